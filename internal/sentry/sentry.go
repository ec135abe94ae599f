package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/settlehq/settle/internal/config"
	"github.com/settlehq/settle/internal/logger"
	"go.uber.org/fx"
)

type Service struct {
	cfg    *config.Configuration
	logger *logger.Logger
}

// RegisterHooks registers lifecycle hooks for Sentry
func RegisterHooks(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !svc.cfg.Sentry.Enabled {
				svc.logger.Info("Sentry is disabled")
				return nil
			}

			err := sentry.Init(sentry.ClientOptions{
				Dsn:              svc.cfg.Sentry.DSN,
				Environment:      svc.cfg.Sentry.Environment,
				EnableTracing:    true,
				TracesSampleRate: svc.cfg.Sentry.SampleRate,
				TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
					if ctx.Span.Name == "GET /health" {
						return 0.0
					}
					return svc.cfg.Sentry.SampleRate
				}),
			})
			if err != nil {
				svc.logger.Errorw("Failed to initialize Sentry", "error", err)
				return err
			}
			svc.logger.Infow("Sentry initialized successfully",
				"environment", svc.cfg.Sentry.Environment,
				"sample_rate", svc.cfg.Sentry.SampleRate,
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if svc.cfg.Sentry.Enabled {
				svc.logger.Info("Flushing Sentry events before shutdown")
				sentry.Flush(2 * time.Second)
			}
			return nil
		},
	})
}

// NewSentryService creates a new Sentry service
func NewSentryService(cfg *config.Configuration, logger *logger.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger,
	}
}

// Enabled reports whether events are forwarded to Sentry
func (s *Service) Enabled() bool {
	return s != nil && s.cfg.Sentry.Enabled
}

// CaptureException captures an error in Sentry
func (s *Service) CaptureException(err error) {
	if !s.Enabled() {
		return
	}
	sentry.CaptureException(err)
}

// StartDBSpan starts a new database span in the current transaction
func (s *Service) StartDBSpan(ctx context.Context, operation string, params map[string]interface{}) (*sentry.Span, context.Context) {
	return s.startSpan(ctx, "db.postgres", operation, params)
}

// StartChainSpan starts a span around an RPC call to the chain node
func (s *Service) StartChainSpan(ctx context.Context, method string, params map[string]interface{}) (*sentry.Span, context.Context) {
	return s.startSpan(ctx, "chain.rpc", method, params)
}

// StartRelaySpan starts a span around a paymaster or bundler request
func (s *Service) StartRelaySpan(ctx context.Context, method string, params map[string]interface{}) (*sentry.Span, context.Context) {
	return s.startSpan(ctx, "relay.http", method, params)
}

func (s *Service) startSpan(ctx context.Context, op, operation string, params map[string]interface{}) (*sentry.Span, context.Context) {
	if !s.Enabled() {
		return nil, ctx
	}

	span := sentry.StartSpan(ctx, operation)
	span.Description = operation
	span.Op = op
	for k, v := range params {
		span.SetData(k, v)
	}

	return span, span.Context()
}

// MonitorWebhookProcessing tracks how long a stored webhook event waited before being handled
func (s *Service) MonitorWebhookProcessing(ctx context.Context, eventType string, receivedAt time.Time, metadata map[string]interface{}) (*sentry.Span, context.Context) {
	if !s.Enabled() {
		return nil, ctx
	}

	span := sentry.StartSpan(ctx, "webhook.process")
	span.Description = "Processing webhook event"
	span.Op = "webhook.process"
	span.SetData("event_type", eventType)

	lagMs := time.Since(receivedAt).Milliseconds()
	span.SetData("lag_ms", lagMs)

	if tx := sentry.TransactionFromContext(ctx); tx != nil {
		tx.SetTag("webhook.lag.ms", fmt.Sprintf("%d", lagMs))
		switch {
		case lagMs > 5*60*1000:
			tx.SetTag("webhook.lag.severity", "critical")
		case lagMs > 60*1000:
			tx.SetTag("webhook.lag.severity", "warning")
		default:
			tx.SetTag("webhook.lag.severity", "normal")
		}
	}

	for k, v := range metadata {
		span.SetData(k, v)
	}

	return span, span.Context()
}
