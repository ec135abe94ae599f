package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/settlehq/settle/internal/config"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/sentry"
	"github.com/settlehq/settle/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool() *Pool {
	cfg := config.GetDefaultConfig()
	cfg.Worker.InitialInterval = time.Millisecond
	cfg.Worker.MaxElapsed = time.Second
	cfg.Worker.MaxRetries = 3
	log := logger.NewNopLogger()
	return NewPool(cfg, log, sentry.NewSentryService(cfg, log))
}

func drain(t *testing.T, p *Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Drain(ctx))
}

func TestPoolRetriesTransientErrors(t *testing.T) {
	p := newTestPool()
	p.Start()

	var calls atomic.Int32
	err := p.Submit(context.Background(), &Job{
		Name: "flaky",
		Run: func(context.Context) error {
			if calls.Add(1) < 3 {
				return ierr.NewError("down").Mark(ierr.ErrChainUnavailable)
			}
			return nil
		},
	})
	require.NoError(t, err)

	drain(t, p)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPoolDoesNotRetryPermanentErrors(t *testing.T) {
	p := newTestPool()
	p.Start()

	var calls atomic.Int32
	require.NoError(t, p.Submit(context.Background(), &Job{
		Name: "invalid",
		Run: func(context.Context) error {
			calls.Add(1)
			return ierr.NewError("bad").Mark(ierr.ErrValidation)
		},
	}))

	drain(t, p)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPoolGivesUpAfterMaxRetries(t *testing.T) {
	p := newTestPool()
	p.Start()

	var calls atomic.Int32
	require.NoError(t, p.Submit(context.Background(), &Job{
		Name: "down",
		Run: func(context.Context) error {
			calls.Add(1)
			return ierr.NewError("down").Mark(ierr.ErrRelayUnavailable)
		},
	}))

	drain(t, p)
	assert.Equal(t, int32(4), calls.Load())
}

func TestPoolCarriesRequestValues(t *testing.T) {
	p := newTestPool()
	p.Start()

	reqCtx, cancel := context.WithCancel(types.SetUserID(context.Background(), "user_1"))
	var seen atomic.Value
	require.NoError(t, p.Submit(reqCtx, &Job{
		Name: "values",
		Run: func(ctx context.Context) error {
			seen.Store(types.GetUserID(ctx))
			return ctx.Err()
		},
	}))
	// the request finishing must not cancel the job
	cancel()

	drain(t, p)
	assert.Equal(t, "user_1", seen.Load())
}

func TestSubmitAfterStop(t *testing.T) {
	p := newTestPool()
	p.Start()
	require.NoError(t, p.Stop(context.Background()))

	err := p.Submit(context.Background(), &Job{Name: "late", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
}

func TestPoolStopsOnPermanentMarkedErrors(t *testing.T) {
	p := newTestPool()
	p.Start()

	var calls atomic.Int32
	require.NoError(t, p.Submit(context.Background(), &Job{
		Name: "submitted",
		Run: func(context.Context) error {
			calls.Add(1)
			return Permanent(ierr.NewError("write failed").Mark(ierr.ErrDatabase))
		},
	}))

	drain(t, p)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ierr.NewError("x").Mark(ierr.ErrChainUnavailable)))
	assert.True(t, Retryable(ierr.NewError("x").Mark(ierr.ErrDatabase)))
	assert.False(t, Retryable(ierr.NewError("x").Mark(ierr.ErrIllegalState)))
	assert.False(t, Retryable(ierr.NewError("x").Mark(ierr.ErrConversion)))

	final := Permanent(ierr.NewError("x").Mark(ierr.ErrChainUnavailable))
	assert.False(t, Retryable(final))
	assert.True(t, ierr.IsDependencyUnavailable(final))
	assert.Nil(t, Permanent(nil))
}
