package jobdash

import (
	"context"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/G-Research/jobdash/internal/common"
	"github.com/G-Research/jobdash/internal/common/database"
	"github.com/G-Research/jobdash/internal/common/health"
	"github.com/G-Research/jobdash/internal/jobdash/actions"
	"github.com/G-Research/jobdash/internal/jobdash/api"
	"github.com/G-Research/jobdash/internal/jobdash/configuration"
	"github.com/G-Research/jobdash/internal/jobdash/metrics"
	"github.com/G-Research/jobdash/internal/jobdash/repository"
	"github.com/G-Research/jobdash/internal/jobdash/repository/schema"
	"github.com/G-Research/jobdash/internal/jobdash/server"
	"github.com/G-Research/jobdash/internal/jobdash/store"
	"github.com/G-Research/jobdash/internal/jobdash/view"
)

// Serve runs the job API, the UI and the shared store until ctx is cancelled or one of them fails.
func Serve(ctx context.Context, config *configuration.JobDashConfiguration, healthChecks *health.MultiChecker) error {
	log.Info("jobdash starting")
	defer log.Info("jobdash shutting down")

	if err := config.Validate(); err != nil {
		return err
	}

	startupCompleteCheck := health.NewStartupCompleteChecker()
	healthChecks.Add(startupCompleteCheck)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	jobRepository, closeRepository, err := createJobRepository(ctx, config, healthChecks)
	if err != nil {
		return err
	}
	defer closeRepository()

	display, err := view.NewDisplay(config.UI.DisplayFormat)
	if err != nil {
		return err
	}

	jobStore, err := store.New(config.Actions.BufferSize)
	if err != nil {
		return err
	}
	healthChecks.Add(jobStore)
	g.Go(func() error {
		return jobStore.Run(ctx)
	})

	dispatcher := actions.NewDispatcher(jobRepository, jobStore, config.Actions.FetchTimeout)
	defer dispatcher.Wait()

	uiServer := server.NewUIServer(jobStore, dispatcher, server.Config{
		CorsAllowedOrigins: config.CorsAllowedOrigins,
		Header:             view.RegionalNav{Title: config.UI.CustomTitle},
		Display:            display,
		RefreshInterval:    config.UI.RefreshInterval,
		StreamTimeout:      config.UI.StreamTimeout,
	})
	handler := uiServer.Handler(api.NewJobApi(jobRepository), healthChecks)

	metrics.ExposeJobDashMetrics()
	shutdownMetricServer := common.ServeMetrics(config.MetricsPort)
	defer shutdownMetricServer()

	g.Go(func() error {
		shutdownHttpServer := common.ServeHttp(config.HttpPort, handler)
		<-ctx.Done()
		shutdownHttpServer()
		return nil
	})

	startupCompleteCheck.MarkComplete()
	log.Infof("jobdash serving on port %d using the %s repository", config.HttpPort, config.Repository)
	return g.Wait()
}

// Migrate brings the postgres schema up to date.
func Migrate(ctx context.Context, config *configuration.JobDashConfiguration) error {
	db, err := database.OpenPgxPool(ctx, config.Postgres.PostgresConfig)
	if err != nil {
		return err
	}
	defer db.Close()

	migrations, err := schema.Migrations()
	if err != nil {
		return err
	}
	return database.UpdateDatabase(ctx, db, migrations)
}

func createJobRepository(
	ctx context.Context,
	config *configuration.JobDashConfiguration,
	healthChecks *health.MultiChecker,
) (repository.JobRepository, func(), error) {
	switch config.Repository {
	case repository.PostgresBackend:
		db, err := database.OpenPgxPool(ctx, config.Postgres.PostgresConfig)
		if err != nil {
			return nil, nil, err
		}
		sqlRepository, err := repository.NewSqlJobRepository(db, config.Postgres.SpecCacheSize)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		healthChecks.Add(sqlRepository)
		return sqlRepository, db.Close, nil
	case repository.RedisBackend:
		db := redis.NewUniversalClient(config.Redis.AsUniversalOptions())
		redisRepository := repository.NewRedisJobRepository(db)
		healthChecks.Add(redisRepository)
		return redisRepository, func() {
			if err := db.Close(); err != nil {
				log.WithError(err).Warn("Failed to close redis client cleanly")
			}
		}, nil
	case repository.MemoryBackend:
		return repository.NewInMemoryJobRepository(), func() {}, nil
	default:
		return nil, nil, errors.Errorf("unknown repository %q", config.Repository)
	}
}
