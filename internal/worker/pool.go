package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/settlehq/settle/internal/config"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/sentry"
	"github.com/settlehq/settle/internal/types"
	"github.com/sourcegraph/conc/pool"
)

const queueSize = 256

// Job is a unit of background work. Run may be called more than once and must be safe to repeat.
type Job struct {
	Name string
	// Key identifies the entity the job acts on, used for logging only
	Key string
	Run func(ctx context.Context) error
}

// Queue accepts background jobs
type Queue interface {
	Submit(ctx context.Context, job *Job) error
}

var _ Queue = (*Pool)(nil)

// Pool runs jobs on a bounded number of goroutines, retrying failures with exponential backoff.
// Validation, state and not found errors are not retried.
type Pool struct {
	cfg    config.WorkerConfig
	jobs   chan *Job
	ctx    context.Context
	cancel context.CancelFunc
	logger *logger.Logger
	sentry *sentry.Service

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
}

func NewPool(cfg *config.Configuration, logger *logger.Logger, sentry *sentry.Service) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		cfg:    cfg.Worker,
		jobs:   make(chan *Job, queueSize),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		sentry: sentry,
		done:   make(chan struct{}),
	}
}

// Start launches the dispatcher. Jobs submitted before Start are queued.
func (p *Pool) Start() {
	concurrency := p.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	workers := pool.New().WithMaxGoroutines(concurrency)

	go func() {
		defer close(p.done)
		for job := range p.jobs {
			workers.Go(func() {
				p.run(job)
			})
		}
		workers.Wait()
	}()

	p.logger.Infow("worker pool started", "concurrency", concurrency)
}

// Submit queues a job. Request values (user id, request id) of ctx are carried over,
// its cancellation is not.
func (p *Pool) Submit(ctx context.Context, job *Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ierr.NewError("worker pool is stopped").
			WithHint("The service is shutting down, please retry").
			Mark(ierr.ErrSystem)
	}

	detached := types.DetachedContext(ctx)
	wrapped := &Job{
		Name: job.Name,
		Key:  job.Key,
		Run: func(runCtx context.Context) error {
			return job.Run(mergeValues(runCtx, detached))
		},
	}

	select {
	case p.jobs <- wrapped:
		p.logger.Debugw("job queued", "job", job.Name, "key", job.Key)
		return nil
	default:
		return ierr.NewError("worker queue is full").
			WithHint("Too many background jobs are pending, please retry").
			WithReportableDetails(map[string]any{"job": job.Name}).
			Mark(ierr.ErrSystem)
	}
}

// Stop refuses new jobs, cancels running ones and waits for the workers or ctx
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()

	p.cancel()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain waits until all queued jobs have finished. Used by tests and one-off scripts.
func (p *Pool) Drain(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) run(job *Job) {
	start := time.Now()
	attempt := 0

	operation := func() error {
		attempt++
		err := job.Run(p.ctx)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			var permanent *backoff.PermanentError
			if errors.As(err, &permanent) {
				return permanent
			}
			return backoff.Permanent(err)
		}
		p.logger.Warnw("job attempt failed",
			"job", job.Name,
			"key", job.Key,
			"attempt", attempt,
			"error", err,
		)
		return err
	}

	err := backoff.Retry(operation, p.backoff())
	if err != nil {
		p.sentry.CaptureException(err)
		p.logger.Errorw("job failed",
			"job", job.Name,
			"key", job.Key,
			"attempts", attempt,
			"error", err,
		)
		return
	}

	p.logger.Debugw("job finished",
		"job", job.Name,
		"key", job.Key,
		"attempts", attempt,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (p *Pool) backoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.cfg.InitialInterval > 0 {
		b.InitialInterval = p.cfg.InitialInterval
	}
	if p.cfg.MaxElapsed > 0 {
		b.MaxElapsedTime = p.cfg.MaxElapsed
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, p.cfg.MaxRetries), p.ctx)
}

// Permanent marks err as final. Jobs return it once a side effect happened that a rerun would repeat.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Retryable reports whether err may succeed on a later attempt
func Retryable(err error) bool {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return false
	}

	switch {
	case ierr.IsValidation(err),
		ierr.IsIllegalState(err),
		ierr.IsNotFound(err),
		ierr.IsConversion(err),
		ierr.IsAlreadyExists(err),
		ierr.IsPermissionDenied(err):
		return false
	}
	return true
}

// valueContext takes cancellation from one context and values from another
type valueContext struct {
	context.Context
	values context.Context
}

func (c valueContext) Value(key any) any {
	if v := c.values.Value(key); v != nil {
		return v
	}
	return c.Context.Value(key)
}

func mergeValues(cancel, values context.Context) context.Context {
	return valueContext{Context: cancel, values: values}
}
