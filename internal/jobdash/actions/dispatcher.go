package actions

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/G-Research/jobdash/internal/common/logging"
	"github.com/G-Research/jobdash/internal/jobdash/metrics"
	"github.com/G-Research/jobdash/internal/jobdash/model"
	"github.com/G-Research/jobdash/internal/jobdash/store"
)

const (
	fetchJobRequest     = "fetchJob"
	createJobRunRequest = "createJobRun"
	resultSucceeded     = "succeeded"
	resultFailed        = "failed"
)

// JobClient is the source of job data used by the dispatcher. It is implemented both by the job repository,
// when running in-process, and by the HTTP client of the job API.
type JobClient interface {
	GetJob(ctx context.Context, jobSpecId string) (*model.Job, error)
	CreateJobRun(ctx context.Context, jobSpecId string) (*model.Run, error)
}

// ActionDispatcher is where the store receives actions from.
type ActionDispatcher interface {
	Dispatch(action store.Action) bool
}

// Dispatcher issues job requests in the background and dispatches their outcome to the store. Requests are
// fire-and-forget: callers are never told about the result, which only ever reaches them through the store.
type Dispatcher struct {
	client   JobClient
	store    ActionDispatcher
	timeout  time.Duration
	clock    clock.PassiveClock
	inFlight sync.WaitGroup
}

func NewDispatcher(client JobClient, store ActionDispatcher, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		client:  client,
		store:   store,
		timeout: timeout,
		clock:   clock.RealClock{},
	}
}

// FetchJob requests the job and dispatches JobFetched or JobFetchFailed. Requests are not de-duplicated or
// retried.
func (d *Dispatcher) FetchJob(jobSpecId string) {
	d.spawn(fetchJobRequest, jobSpecId, func(ctx context.Context) (store.Action, error) {
		job, err := d.client.GetJob(ctx, jobSpecId)
		if err != nil {
			return store.JobFetchFailed{Id: jobSpecId, Err: err, OccurredAt: d.clock.Now()}, err
		}
		if job == nil || job.JobSpecId != jobSpecId {
			err = errors.Errorf("job client returned the wrong job for %s", jobSpecId)
			return store.JobFetchFailed{Id: jobSpecId, Err: err, OccurredAt: d.clock.Now()}, err
		}
		return store.JobFetched{Job: job}, nil
	})
}

// CreateJobRun requests a new run of the job and dispatches JobRunCreated or JobRunCreateFailed.
func (d *Dispatcher) CreateJobRun(jobSpecId string) {
	d.spawn(createJobRunRequest, jobSpecId, func(ctx context.Context) (store.Action, error) {
		run, err := d.client.CreateJobRun(ctx, jobSpecId)
		if err != nil {
			return store.JobRunCreateFailed{Id: jobSpecId, Err: err, OccurredAt: d.clock.Now()}, err
		}
		if run == nil {
			err = errors.Errorf("job client returned no run for %s", jobSpecId)
			return store.JobRunCreateFailed{Id: jobSpecId, Err: err, OccurredAt: d.clock.Now()}, err
		}
		return store.JobRunCreated{Run: run}, nil
	})
}

// Wait blocks until every request issued so far has dispatched its outcome.
func (d *Dispatcher) Wait() {
	d.inFlight.Wait()
}

func (d *Dispatcher) spawn(request string, jobSpecId string, do func(ctx context.Context) (store.Action, error)) {
	d.inFlight.Add(1)
	go func() {
		defer d.inFlight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		action, err := do(ctx)
		if err != nil {
			metrics.JobRequestsCounter.WithLabelValues(request, resultFailed).Inc()
			logging.WithStacktrace(log.WithField("jobSpecId", jobSpecId), err).Warnf("%s failed", request)
		} else {
			metrics.JobRequestsCounter.WithLabelValues(request, resultSucceeded).Inc()
		}
		d.store.Dispatch(action)
	}()
}
