package view

import (
	"net/url"

	"github.com/G-Research/jobdash/internal/jobdash/model"
)

const (
	defaultTitle = "jobdash"

	RefreshParam = "refreshed"
)

// Header renders the navigation header shown above a job view.
type Header interface {
	Render(jobSpecId string, job *model.Job) HeaderFrame
}

// HeaderFrame is a rendered header. It only holds comparable values, so two frames can be compared with ==.
type HeaderFrame struct {
	Title     string
	JobSpecId string
	// Zero while the job has not been loaded.
	RunCount        int
	LatestRunStatus string
	// The Run action posts to RunAction. It is disabled while the job has not been loaded.
	RunDisabled bool
	RunAction   string
}

// RegionalNav is the header of every job page: the job id with a secondary Run action.
type RegionalNav struct {
	Title string
}

func (n RegionalNav) Render(jobSpecId string, job *model.Job) HeaderFrame {
	title := n.Title
	if title == "" {
		title = defaultTitle
	}
	frame := HeaderFrame{
		Title:       title,
		JobSpecId:   jobSpecId,
		RunDisabled: job == nil,
		RunAction:   RunPath(jobSpecId),
	}
	if job != nil {
		frame.RunCount = len(job.Runs)
		if latest := job.LatestRun(); latest != nil {
			frame.LatestRunStatus = latest.Status
		}
	}
	return frame
}

// DefinitionPath is where the definition view of a job is served.
func DefinitionPath(jobSpecId string) string {
	return "/jobs/" + url.PathEscape(jobSpecId) + "/definition"
}

// RefreshPath is the definition page as reloaded by the page itself. Serving it never requests the job again.
func RefreshPath(jobSpecId string) string {
	return DefinitionPath(jobSpecId) + "?" + RefreshParam + "=1"
}

// RunPath is where the Run action of a job posts to.
func RunPath(jobSpecId string) string {
	return "/jobs/" + url.PathEscape(jobSpecId) + "/runs"
}
