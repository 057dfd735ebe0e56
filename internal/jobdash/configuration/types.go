package configuration

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/G-Research/jobdash/internal/common/config"
	"github.com/G-Research/jobdash/internal/common/database"
	"github.com/G-Research/jobdash/internal/jobdash/repository"
	"github.com/G-Research/jobdash/internal/jobdash/view"
)

type JobDashConfiguration struct {
	HttpPort    uint16
	MetricsPort uint16

	CorsAllowedOrigins []string

	// One of memory, postgres or redis.
	Repository string
	Postgres   PostgresConfig
	Redis      config.RedisConfig

	Actions ActionsConfig
	UI      UIConfig
}

type PostgresConfig struct {
	database.PostgresConfig `mapstructure:",squash"`
	// Number of decompressed job specs kept in memory.
	SpecCacheSize int
}

type ActionsConfig struct {
	// Requests issued on behalf of views are abandoned after this long.
	FetchTimeout time.Duration
	// Capacity of the store's action queue.
	BufferSize int
}

type UIConfig struct {
	CustomTitle   string
	DisplayFormat view.DisplayFormat
	// How often a page still waiting for its job reloads itself when scripts are disabled.
	RefreshInterval time.Duration
	// Event streams are closed after this long, even if the definition was never shown.
	StreamTimeout time.Duration
}

var repositoryBackends = []string{repository.MemoryBackend, repository.PostgresBackend, repository.RedisBackend}

// Validate returns every problem found with the configuration.
func (c *JobDashConfiguration) Validate() error {
	var result *multierror.Error
	if c.HttpPort == 0 {
		result = multierror.Append(result, errors.New("httpPort must be set"))
	}
	if !slices.Contains(repositoryBackends, c.Repository) {
		result = multierror.Append(result, errors.Errorf("repository must be one of %v, got %q", repositoryBackends, c.Repository))
	}
	if c.Repository == repository.PostgresBackend {
		if len(c.Postgres.Connection) == 0 {
			result = multierror.Append(result, errors.New("postgres.connection must be set"))
		}
		if c.Postgres.SpecCacheSize <= 0 {
			result = multierror.Append(result, errors.New("postgres.specCacheSize must be greater than 0"))
		}
	}
	if c.Repository == repository.RedisBackend && len(c.Redis.Addrs) == 0 {
		result = multierror.Append(result, errors.New("redis.addrs must be set"))
	}
	if c.Actions.FetchTimeout <= 0 {
		result = multierror.Append(result, errors.New("actions.fetchTimeout must be greater than 0"))
	}
	if c.Actions.BufferSize <= 0 {
		result = multierror.Append(result, errors.New("actions.bufferSize must be greater than 0"))
	}
	if _, err := view.NewDisplay(c.UI.DisplayFormat); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
