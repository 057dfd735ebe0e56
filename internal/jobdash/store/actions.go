package store

import (
	"time"

	"github.com/G-Research/jobdash/internal/jobdash/model"
)

// Action is a request to change shared state. Actions are applied one at a time by the store's reducer.
type Action interface {
	// JobSpecId identifies the job whose slice of state the action changes.
	JobSpecId() string
}

// JobFetched records a successfully fetched job, replacing any previous copy and clearing its error slot.
type JobFetched struct {
	Job *model.Job
}

func (a JobFetched) JobSpecId() string {
	if a.Job == nil {
		return ""
	}
	return a.Job.JobSpecId
}

// JobFetchFailed records a failed fetch in the error slot. Any job already in state is kept.
type JobFetchFailed struct {
	Id         string
	Err        error
	OccurredAt time.Time
}

func (a JobFetchFailed) JobSpecId() string { return a.Id }

// JobRunCreated adds a run to a job already in state. Runs for jobs that have not been fetched are dropped;
// they will be part of the job when it is fetched.
type JobRunCreated struct {
	Run *model.Run
}

func (a JobRunCreated) JobSpecId() string {
	if a.Run == nil {
		return ""
	}
	return a.Run.JobSpecId
}

// JobRunCreateFailed records a failed run request in the error slot.
type JobRunCreateFailed struct {
	Id         string
	Err        error
	OccurredAt time.Time
}

func (a JobRunCreateFailed) JobSpecId() string { return a.Id }
