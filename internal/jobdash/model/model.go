package model

import (
	"encoding/json"
	"time"
)

const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusErrored   = "errored"
)

// Job is a schedulable unit of work. Spec holds the job's definition document exactly as submitted (JSON);
// the displayable definition is derived from it by package jobspec.
//
// Jobs held by the store are shared between readers and must not be modified in place.
type Job struct {
	JobSpecId string          `json:"jobSpecId"`
	Spec      json.RawMessage `json:"spec"`
	CreatedAt time.Time       `json:"createdAt"`
	Runs      []*Run          `json:"runs,omitempty"`
}

// Run is a single execution of a job.
type Run struct {
	RunId     string    `json:"runId"`
	JobSpecId string    `json:"jobSpecId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Definition is a plain nested key/value document: values are nil, bool, json.Number, string,
// []interface{} or map[string]interface{}.
type Definition map[string]interface{}

// DeepCopy copies the job and its runs. Spec bytes are shared, since they are never modified.
func (job *Job) DeepCopy() *Job {
	if job == nil {
		return nil
	}
	var runs []*Run
	if job.Runs != nil {
		runs = make([]*Run, len(job.Runs))
		for i, run := range job.Runs {
			runs[i] = run.DeepCopy()
		}
	}
	return &Job{
		JobSpecId: job.JobSpecId,
		Spec:      job.Spec,
		CreatedAt: job.CreatedAt,
		Runs:      runs,
	}
}

// WithRun returns a copy of the job with run appended, or replacing an existing run with the same id.
func (job *Job) WithRun(run *Run) *Job {
	updated := job.DeepCopy()
	for i, existing := range updated.Runs {
		if existing.RunId == run.RunId {
			updated.Runs[i] = run.DeepCopy()
			return updated
		}
	}
	updated.Runs = append(updated.Runs, run.DeepCopy())
	return updated
}

// LatestRun returns the most recently created run or nil if the job has never run.
func (job *Job) LatestRun() *Run {
	if job == nil || len(job.Runs) == 0 {
		return nil
	}
	return job.Runs[len(job.Runs)-1]
}

func (run *Run) DeepCopy() *Run {
	if run == nil {
		return nil
	}
	copied := *run
	return &copied
}

// FetchError records the most recent failed request for a job. It lives in the store's error slot.
type FetchError struct {
	JobSpecId  string
	Action     string
	Message    string
	OccurredAt time.Time
}
