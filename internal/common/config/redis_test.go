package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedisConfig_AsUniversalOptions(t *testing.T) {
	rc := RedisConfig{
		Addrs:           []string{"redis-0:6379", "redis-1:6379"},
		DB:              3,
		PoolSize:        50,
		MinRetryBackoff: time.Millisecond,
		MaxRetryBackoff: time.Second,
		MasterName:      "mymaster",
	}

	opts := rc.AsUniversalOptions()

	assert.Equal(t, rc.Addrs, opts.Addrs)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 50, opts.PoolSize)
	assert.Equal(t, time.Millisecond, opts.MinRetryBackoff)
	assert.Equal(t, time.Second, opts.MaxRetryBackoff)
	assert.Equal(t, "mymaster", opts.MasterName)
}
