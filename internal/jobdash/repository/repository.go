package repository

import (
	"context"

	"k8s.io/utils/clock"

	"github.com/G-Research/jobdash/internal/common/dasherrors"
	"github.com/G-Research/jobdash/internal/common/util"
	"github.com/G-Research/jobdash/internal/jobdash/model"
)

const (
	MemoryBackend   = "memory"
	PostgresBackend = "postgres"
	RedisBackend    = "redis"
)

// JobRepository persists jobs and their runs.
//
// CreateJob returns ErrAlreadyExists if a job with the same id exists. GetJob and CreateJobRun return
// ErrNotFound for unknown jobs. Jobs returned hold their runs ordered by creation.
type JobRepository interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, jobSpecId string) (*model.Job, error)
	CreateJobRun(ctx context.Context, jobSpecId string) (*model.Run, error)
}

func newRun(jobSpecId string, clk clock.PassiveClock) *model.Run {
	return &model.Run{
		RunId:     util.NewULID(),
		JobSpecId: jobSpecId,
		Status:    model.RunStatusPending,
		CreatedAt: clk.Now().UTC(),
	}
}

func jobNotFound(jobSpecId string) error {
	return &dasherrors.ErrNotFound{Type: "job", Value: jobSpecId}
}

func jobAlreadyExists(jobSpecId string) error {
	return &dasherrors.ErrAlreadyExists{Type: "job", Value: jobSpecId}
}
