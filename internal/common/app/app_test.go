package app

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCreateContextWithShutdown_Stop(t *testing.T) {
	ctx, stop := CreateContextWithShutdown(context.Background())
	assert.NoError(t, ctx.Err())

	stop()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestCreateContextWithShutdown_Signal(t *testing.T) {
	ctx, stop := CreateContextWithShutdown(context.Background())
	defer stop()

	assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled by SIGTERM")
	}
}

func TestCreateContextWithShutdown_ParentCancelled(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := CreateContextWithShutdown(parent)
	defer stop()

	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
