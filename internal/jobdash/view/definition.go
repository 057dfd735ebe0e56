package view

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/G-Research/jobdash/internal/common/logging"
	"github.com/G-Research/jobdash/internal/jobdash/jobspec"
	"github.com/G-Research/jobdash/internal/jobdash/metrics"
	"github.com/G-Research/jobdash/internal/jobdash/model"
	"github.com/G-Research/jobdash/internal/jobdash/store"
)

const (
	LoadingText    = "Fetching ..."
	DefinitionText = "Definition"

	definitionView   = "definition"
	loadingBranch    = "loading"
	definitionBranch = "definition"
)

// StateStore is the part of the shared store a view reads from.
type StateStore interface {
	State() *store.State
	Subscribe(ctx context.Context, jobSpecId string) <-chan *model.Job
}

// JobFetcher requests a job to be loaded into the store. Results only ever arrive through the store.
type JobFetcher interface {
	FetchJob(jobSpecId string)
}

type DefinitionProps struct {
	Params  Params
	Store   StateStore
	Fetcher JobFetcher
	Header  Header
	Display Display
}

// Frame is a single render of a view. It only holds comparable values.
type Frame struct {
	JobSpecId string
	Header    HeaderFrame
	// Loading is set while the job, or a definition for it, is not available. Definition is empty then.
	Loading    bool
	Definition string
}

// Definition shows the definition of a single job, or a loading placeholder until the job has been fetched.
// Rendering reads the store and nothing else; the only side effect is the fetch issued on Mount.
type Definition struct {
	props     DefinitionProps
	mountOnce sync.Once
}

func NewDefinition(props DefinitionProps) *Definition {
	return &Definition{props: props}
}

func (d *Definition) Props() DefinitionProps {
	return d.props
}

// Mount requests the job. Only the first call on an instance has any effect.
func (d *Definition) Mount() {
	d.mountOnce.Do(func() {
		d.props.Fetcher.FetchJob(d.props.Params.JobSpecId)
	})
}

// Render renders the view against a snapshot of the store. It never fails: anything that keeps the definition
// from being shown renders the loading placeholder.
func (d *Definition) Render(state *store.State) *Frame {
	jobSpecId := d.props.Params.JobSpecId
	job := store.SelectJob(state, jobSpecId)

	frame := &Frame{
		JobSpecId: jobSpecId,
		Header:    d.props.Header.Render(jobSpecId, job),
		Loading:   true,
	}
	if definition, ok := jobspec.Derive(job); ok {
		formatted, err := d.props.Display.Format(definition)
		if err != nil {
			logging.WithStacktrace(log.WithField("jobSpecId", jobSpecId), err).Warn("Failed to format definition")
		} else {
			frame.Loading = false
			frame.Definition = formatted
		}
	}

	if frame.Loading {
		metrics.RendersCounter.WithLabelValues(definitionView, loadingBranch).Inc()
	} else {
		metrics.RendersCounter.WithLabelValues(definitionView, definitionBranch).Inc()
	}
	return frame
}

// Watch renders the view now and again whenever the job changes in the store. Consecutive identical frames
// are only sent once. The channel is closed once ctx is done.
func (d *Definition) Watch(ctx context.Context) <-chan *Frame {
	frames := make(chan *Frame)
	updates := d.props.Store.Subscribe(ctx, d.props.Params.JobSpecId)
	go func() {
		defer close(frames)
		var last *Frame
		for range updates {
			frame := d.Render(d.props.Store.State())
			if last != nil && *frame == *last {
				continue
			}
			select {
			case frames <- frame:
				last = frame
			case <-ctx.Done():
				return
			}
		}
	}()
	return frames
}
