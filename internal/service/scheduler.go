package service

import (
	"context"
	"sync"
	"time"

	"github.com/settlehq/settle/internal/config"
	"github.com/settlehq/settle/internal/logger"
	"github.com/sourcegraph/conc"
)

// Scheduler runs the periodic reconciliation jobs: the overdue sweep and the webhook replay.
// A run that is still going when its next tick fires is not doubled up.
type Scheduler struct {
	reconciliation ReconciliationService
	cfg            config.ReconciliationConfig
	logger         *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     *conc.WaitGroup
}

func NewScheduler(reconciliation ReconciliationService, cfg *config.Configuration, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		reconciliation: reconciliation,
		cfg:            cfg.Reconciliation,
		logger:         logger,
	}
}

// Start launches the tickers. Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg = conc.NewWaitGroup()

	s.every(ctx, "overdue_sweep", s.cfg.OverdueSweepInterval, func(ctx context.Context) error {
		_, err := s.reconciliation.SweepOverdue(ctx, time.Now().UTC())
		return err
	})
	s.every(ctx, "webhook_replay", s.cfg.ReplayInterval, func(ctx context.Context) error {
		_, err := s.reconciliation.ReplayWebhooks(ctx)
		return err
	})

	s.logger.Infow("reconciliation scheduler started",
		"overdue_sweep_interval", s.cfg.OverdueSweepInterval,
		"replay_interval", s.cfg.ReplayInterval,
	)
}

func (s *Scheduler) every(ctx context.Context, name string, interval time.Duration, run func(context.Context) error) {
	if interval <= 0 {
		s.logger.Warnw("scheduled job disabled", "job", name)
		return
	}

	s.wg.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := run(ctx); err != nil {
					s.logger.Errorw("scheduled job failed", "job", name, "error", err)
				}
			}
		}
	})
}

// Stop cancels the tickers and waits for in flight runs or ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, wg := s.cancel, s.wg
	s.cancel, s.wg = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Infow("reconciliation scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
