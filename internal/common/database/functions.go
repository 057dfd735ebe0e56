package database

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type PostgresConfig struct {
	Connection map[string]string
	// Attempts made to reach the database at startup before giving up.
	ConnectAttempts uint
	ConnectDelay    time.Duration
}

func CreateConnectionString(values map[string]string) string {
	// https://www.postgresql.org/docs/10/libpq-connect.html#id-1.7.3.8.3.5
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(values))
	replacer := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	for _, k := range keys {
		parts = append(parts, k+"='"+replacer.Replace(values[k])+"'")
	}
	return strings.Join(parts, " ")
}

// OpenPgxPool connects to postgres, retrying while the database comes up.
func OpenPgxPool(ctx context.Context, config PostgresConfig) (*pgxpool.Pool, error) {
	attempts := config.ConnectAttempts
	if attempts == 0 {
		attempts = 1
	}

	var db *pgxpool.Pool
	err := retry.Do(
		func() error {
			pool, err := pgxpool.Connect(ctx, CreateConnectionString(config.Connection))
			if err != nil {
				return err
			}
			if err := pool.Ping(ctx); err != nil {
				pool.Close()
				return err
			}
			db = pool
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(config.ConnectDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).Warnf("Failed to connect to postgres (attempt %d of %d)", n+1, attempts)
		}),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return db, nil
}
