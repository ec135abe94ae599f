package router

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/settlehq/settle/internal/config"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/pubsub"
	"github.com/settlehq/settle/internal/sentry"
)

// Router manages all message routing
type Router struct {
	router *message.Router
	dlq    *gochannel.GoChannel
	logger *logger.Logger
	sentry *sentry.Service
}

// NewRouter creates a new message router with retry, panic recovery and a dead letter queue
func NewRouter(cfg *config.Configuration, logger *logger.Logger, sentry *sentry.Service) (*Router, error) {
	wmLogger := pubsub.NewWatermillLogger(logger)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, err
	}

	dlq := gochannel.NewGoChannel(gochannel.Config{Persistent: false}, wmLogger)
	poisonQueue, err := middleware.PoisonQueue(dlq, cfg.Notification.Topic+"_dlq")
	if err != nil {
		return nil, err
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
		poisonQueue,
		middleware.Retry{
			MaxRetries:          int(cfg.Worker.MaxRetries),
			InitialInterval:     cfg.Worker.InitialInterval,
			MaxInterval:         cfg.Worker.MaxElapsed / 4,
			Multiplier:          2,
			MaxElapsedTime:      cfg.Worker.MaxElapsed,
			RandomizationFactor: 0.5,
			Logger:              wmLogger,
			OnRetryHook: func(retryNum int, delay time.Duration) {
				logger.Infow("retrying message",
					"retry_number", retryNum,
					"max_retries", cfg.Worker.MaxRetries,
					"delay", delay,
				)
			},
		}.Middleware,
	)

	return &Router{
		router: router,
		dlq:    dlq,
		logger: logger,
		sentry: sentry,
	}, nil
}

// AddNoPublishHandler adds a handler that doesn't publish messages
func (r *Router) AddNoPublishHandler(
	handlerName string,
	topicName string,
	subscriber message.Subscriber,
	handlerFunc func(msg *message.Message) error,
	middlewares ...message.HandlerMiddleware,
) {
	handler := r.router.AddNoPublisherHandler(
		handlerName,
		topicName,
		subscriber,
		func(msg *message.Message) error {
			err := handlerFunc(msg)
			if err == nil {
				return nil
			}
			r.sentry.CaptureException(err)
			r.logger.Errorw("handler failed",
				"handler", handlerName,
				"error", err,
				"correlation_id", middleware.MessageCorrelationID(msg),
				"message_uuid", msg.UUID,
			)
			// redelivery cannot fix a permanent failure, ack it
			if !shouldRetry(r.logger, err) {
				return nil
			}
			return err
		},
	)

	for _, mw := range middlewares {
		handler.AddMiddleware(mw)
	}
}

// Run starts the router and blocks until ctx is cancelled or Close is called
func (r *Router) Run(ctx context.Context) error {
	r.logger.Info("starting message router")
	return r.router.Run(ctx)
}

// Running is closed once all handlers are subscribed
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

// Close gracefully shuts down the router
func (r *Router) Close() error {
	r.logger.Info("closing message router")
	if err := r.router.Close(); err != nil {
		return err
	}
	return r.dlq.Close()
}
