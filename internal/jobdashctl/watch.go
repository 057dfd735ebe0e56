package jobdashctl

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/G-Research/jobdash/internal/jobdash/actions"
	"github.com/G-Research/jobdash/internal/jobdash/store"
	"github.com/G-Research/jobdash/internal/jobdash/view"
	"github.com/G-Research/jobdash/pkg/client"
)

// Watch mounts the definition view of a job against the remote API and prints every frame it renders, until
// the definition is shown or timeout passes. A failed fetch is returned as an error after the first frame.
func (a *App) Watch(ctx context.Context, jobSpecId string, format view.DisplayFormat, timeout time.Duration) error {
	display, err := view.NewDisplay(format)
	if err != nil {
		return err
	}

	return client.WithJobClient(a.connectionDetails, func(c *client.Client) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		jobStore, err := store.New(10)
		if err != nil {
			return err
		}
		go func() { _ = jobStore.Run(ctx) }()

		failures := &fetchFailures{store: jobStore, errs: make(chan error, 1)}
		dispatcher := actions.NewDispatcher(c, failures, timeout)
		defer dispatcher.Wait()

		definition := view.NewDefinition(view.DefinitionProps{
			Params:  view.Params{JobSpecId: jobSpecId},
			Store:   jobStore,
			Fetcher: dispatcher,
			Header:  view.RegionalNav{},
			Display: display,
		})
		definition.Mount()

		frames := definition.Watch(ctx)
		var fetchErr error
		printed := false
		for {
			select {
			case frame, ok := <-frames:
				if !ok {
					return errors.Errorf("timed out after %s waiting for the definition of job %s", timeout, jobSpecId)
				}
				if err := view.WriteText(a.Out, frame); err != nil {
					return err
				}
				fmt.Fprintln(a.Out)
				printed = true
				if !frame.Loading {
					return nil
				}
			case fetchErr = <-failures.errs:
			}
			if fetchErr != nil && printed {
				return errors.Wrapf(fetchErr, "fetching job %s", jobSpecId)
			}
		}
	})
}

// fetchFailures passes actions on to the store, reporting failed fetches on errs.
type fetchFailures struct {
	store actions.ActionDispatcher
	errs  chan error
}

func (f *fetchFailures) Dispatch(action store.Action) bool {
	if failed, ok := action.(store.JobFetchFailed); ok {
		select {
		case f.errs <- failed.Err:
		default:
		}
	}
	return f.store.Dispatch(action)
}
