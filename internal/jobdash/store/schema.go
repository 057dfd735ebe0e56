package store

import (
	"github.com/hashicorp/go-memdb"
)

const (
	jobsTable   = "jobs"
	errorsTable = "errors"
	idIndex     = "id" // every table is keyed by job spec id
)

// schema creates the database schema: a jobs table and an errors table (the error slot), both keyed by job
// spec id.
func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			jobsTable: {
				Name: jobsTable,
				Indexes: map[string]*memdb.IndexSchema{
					idIndex: {
						Name:    idIndex,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "JobSpecId"},
					},
				},
			},
			errorsTable: {
				Name: errorsTable,
				Indexes: map[string]*memdb.IndexSchema{
					idIndex: {
						Name:    idIndex,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "JobSpecId"},
					},
				},
			},
		},
	}
}
