package repository

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/G-Research/jobdash/internal/jobdash/model"
)

// InMemoryJobRepository keeps jobs in process memory. Nothing survives a restart.
type InMemoryJobRepository struct {
	mu    sync.RWMutex
	jobs  map[string]*model.Job
	clock clock.PassiveClock
}

func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobs:  map[string]*model.Job{},
		clock: clock.RealClock{},
	}
}

func (r *InMemoryJobRepository) CreateJob(_ context.Context, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.JobSpecId]; exists {
		return errors.WithStack(jobAlreadyExists(job.JobSpecId))
	}
	r.jobs[job.JobSpecId] = job.DeepCopy()
	return nil
}

func (r *InMemoryJobRepository) GetJob(_ context.Context, jobSpecId string) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, exists := r.jobs[jobSpecId]
	if !exists {
		return nil, errors.WithStack(jobNotFound(jobSpecId))
	}
	return job.DeepCopy(), nil
}

func (r *InMemoryJobRepository) CreateJobRun(_ context.Context, jobSpecId string) (*model.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, exists := r.jobs[jobSpecId]
	if !exists {
		return nil, errors.WithStack(jobNotFound(jobSpecId))
	}
	run := newRun(jobSpecId, r.clock)
	r.jobs[jobSpecId] = job.WithRun(run)
	return run.DeepCopy(), nil
}
