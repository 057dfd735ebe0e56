package store

import (
	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"

	"github.com/G-Research/jobdash/internal/jobdash/model"
)

func reduce(txn *memdb.Txn, action Action) error {
	switch a := action.(type) {
	case JobFetched:
		if a.Job == nil {
			return errors.New("JobFetched without a job")
		}
		if err := txn.Insert(jobsTable, a.Job.DeepCopy()); err != nil {
			return errors.WithStack(err)
		}
		return clearError(txn, a.Job.JobSpecId)
	case JobFetchFailed:
		return recordError(txn, a.Id, fetchJobAction, a.Err, a)
	case JobRunCreated:
		if a.Run == nil {
			return errors.New("JobRunCreated without a run")
		}
		job, err := getJob(txn, a.Run.JobSpecId)
		if err != nil || job == nil {
			return err
		}
		if err := txn.Insert(jobsTable, job.WithRun(a.Run)); err != nil {
			return errors.WithStack(err)
		}
		return clearError(txn, a.Run.JobSpecId)
	case JobRunCreateFailed:
		return recordError(txn, a.Id, createJobRunAction, a.Err, a)
	default:
		return errors.Errorf("unknown action %T", action)
	}
}

func recordError(txn *memdb.Txn, jobSpecId string, requestName string, cause error, action Action) error {
	message := "unknown error"
	if cause != nil {
		message = cause.Error()
	}
	fetchError := &model.FetchError{
		JobSpecId: jobSpecId,
		Action:    requestName,
		Message:   message,
	}
	switch a := action.(type) {
	case JobFetchFailed:
		fetchError.OccurredAt = a.OccurredAt
	case JobRunCreateFailed:
		fetchError.OccurredAt = a.OccurredAt
	}
	return errors.WithStack(txn.Insert(errorsTable, fetchError))
}

func clearError(txn *memdb.Txn, jobSpecId string) error {
	_, err := txn.DeleteAll(errorsTable, idIndex, jobSpecId)
	return errors.WithStack(err)
}

func getJob(txn *memdb.Txn, jobSpecId string) (*model.Job, error) {
	obj, err := txn.First(jobsTable, idIndex, jobSpecId)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	job, _ := obj.(*model.Job)
	return job, nil
}
