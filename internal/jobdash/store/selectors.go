package store

import (
	"github.com/hashicorp/go-memdb"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/jobdash/internal/jobdash/model"
)

// State is an immutable snapshot of the store. Values read from it must not be modified.
type State struct {
	txn *memdb.Txn
}

// SelectJob returns the job with the given id, or nil if it has not been fetched.
func SelectJob(state *State, jobSpecId string) *model.Job {
	job, err := getJob(state.txn, jobSpecId)
	if err != nil {
		log.WithError(err).Errorf("Failed to read job %s from state", jobSpecId)
		return nil
	}
	return job
}

// SelectError returns the last failed request for the job, or nil if the last request succeeded.
func SelectError(state *State, jobSpecId string) *model.FetchError {
	obj, err := state.txn.First(errorsTable, idIndex, jobSpecId)
	if err != nil {
		log.WithError(err).Errorf("Failed to read error slot for job %s from state", jobSpecId)
		return nil
	}
	fetchError, _ := obj.(*model.FetchError)
	return fetchError
}
