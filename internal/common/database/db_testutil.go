package database

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"

	"github.com/G-Research/jobdash/internal/common/util"
)

// TestConnectionEnvVar holds the libpq connection string of the postgres instance used by database tests.
// Tests that need postgres are skipped when it is unset.
const TestConnectionEnvVar = "JOBDASH_TEST_POSTGRES"

// TestConnectionString returns the connection string for test databases and whether one is configured.
func TestConnectionString() (string, bool) {
	return os.LookupEnv(TestConnectionEnvVar)
}

// WithTestDb creates a dedicated database on the test postgres instance, applies migrations and hands a pool
// connected to it to action. The database is dropped afterwards.
func WithTestDb(migrations []Migration, action func(db *pgxpool.Pool) error) error {
	ctx := context.Background()

	connectionString, ok := TestConnectionString()
	if !ok {
		return errors.Errorf("%s is not set", TestConnectionEnvVar)
	}

	// Connect and create a dedicated database for the test
	dbName := "test_" + util.NewULID()
	db, err := pgx.Connect(ctx, connectionString)
	if err != nil {
		return errors.WithStack(err)
	}
	defer db.Close(ctx)

	_, err = db.Exec(ctx, "CREATE DATABASE "+dbName)
	if err != nil {
		return errors.WithStack(err)
	}

	// Connect again: this time to the database we just created.  This is the database we use for tests
	testDbPool, err := pgxpool.Connect(ctx, connectionString+" dbname="+dbName)
	if err != nil {
		return errors.WithStack(err)
	}

	defer func() {
		testDbPool.Close()
		// disconnect all db user before cleanup
		_, err = db.Exec(ctx,
			`SELECT pg_terminate_backend(pg_stat_activity.pid)
			 FROM pg_stat_activity WHERE pg_stat_activity.datname = '`+dbName+`';`)
		if err != nil {
			fmt.Println("Failed to disconnect users")
		}

		_, err = db.Exec(ctx, "DROP DATABASE "+dbName)
		if err != nil {
			fmt.Println("Failed to drop database")
		}
	}()

	err = UpdateDatabase(ctx, testDbPool, migrations)
	if err != nil {
		return errors.WithStack(err)
	}

	return action(testDbPool)
}
