package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/settlehq/settle/internal/api"
	"github.com/settlehq/settle/internal/api/cron"
	v1 "github.com/settlehq/settle/internal/api/v1"
	"github.com/settlehq/settle/internal/cache"
	"github.com/settlehq/settle/internal/chain"
	"github.com/settlehq/settle/internal/config"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/notification"
	"github.com/settlehq/settle/internal/postgres"
	"github.com/settlehq/settle/internal/pubsub"
	"github.com/settlehq/settle/internal/pubsub/memory"
	pubsubRouter "github.com/settlehq/settle/internal/pubsub/router"
	"github.com/settlehq/settle/internal/relay"
	"github.com/settlehq/settle/internal/repository"
	"github.com/settlehq/settle/internal/sentry"
	"github.com/settlehq/settle/internal/service"
	"github.com/settlehq/settle/internal/types"
	"github.com/settlehq/settle/internal/validator"
	"github.com/settlehq/settle/internal/worker"
	"go.uber.org/fx"
)

// @title Settle API
// @version 1.0
// @description Stablecoin invoicing with sponsored on-chain settlement
// @BasePath /v1
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Enter the bearer token in the format *Bearer &lt;token&gt;*

func init() {
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,
			sentry.NewSentryService,
			cache.NewCache,

			// Postgres
			providePostgres,
			provideDBClient,

			// Repositories
			repository.NewInvoiceRepository,
			repository.NewTransactionRepository,
			repository.NewUserRepository,
			repository.NewPaymentLinkRepository,
			repository.NewWebhookEventRepository,

			// Chain and relay
			chain.NewClient,
			relay.NewClient,

			// PubSub
			memory.NewPubSub,
			providePublisher,
			provideSubscriber,
			pubsubRouter.NewRouter,
			notification.NewNotifier,
			notification.NewConsumer,

			// Background jobs
			worker.NewPool,
			provideQueue,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewInvoiceService,
			service.NewTransactionService,
			service.NewReconciliationService,
			service.NewPaymentService,
			service.NewStatsService,
			service.NewWalletService,
			provideScheduler,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func providePostgres(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (*postgres.DB, error) {
	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.Postgres.AutoMigrate {
		if err := db.Migrate(cfg.Postgres.MigrationsPath); err != nil {
			db.Close()
			return nil, err
		}
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			db.Close()
			return nil
		},
	})
	return db, nil
}

func provideDBClient(db *postgres.DB, sentryService *sentry.Service, log *logger.Logger) postgres.IClient {
	return postgres.NewSentryClient(postgres.NewClient(db), sentryService, log)
}

func providePublisher(ps *memory.PubSub) pubsub.Publisher {
	return ps
}

func provideSubscriber(ps *memory.PubSub) pubsub.Subscriber {
	return ps
}

func provideQueue(pool *worker.Pool) worker.Queue {
	return pool
}

func provideScheduler(reconciliation service.ReconciliationService, cfg *config.Configuration, log *logger.Logger) *service.Scheduler {
	return service.NewScheduler(reconciliation, cfg, log)
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	db *postgres.DB,
	invoiceService service.InvoiceService,
	transactionService service.TransactionService,
	reconciliationService service.ReconciliationService,
	paymentService service.PaymentService,
	statsService service.StatsService,
	walletService service.WalletService,
) api.Handlers {
	return api.Handlers{
		Health:             v1.NewHealthHandler(db, logger),
		Invoice:            v1.NewInvoiceHandler(invoiceService, logger),
		Payment:            v1.NewPaymentHandler(invoiceService, paymentService, reconciliationService, logger),
		Transaction:        v1.NewTransactionHandler(transactionService, logger),
		Stats:              v1.NewStatsHandler(statsService, logger),
		Wallet:             v1.NewWalletHandler(walletService, logger),
		Webhook:            v1.NewWebhookHandler(cfg, reconciliationService, logger),
		CronReconciliation: cron.NewReconciliationHandler(reconciliationService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	pool *worker.Pool,
	scheduler *service.Scheduler,
	router *pubsubRouter.Router,
	consumer *notification.Consumer,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startWorkerPool(lc, pool, log)
		startMessageRouter(lc, router, consumer, log)
		startScheduler(lc, scheduler, log)
		startAPIServer(lc, r, cfg, log)
	case types.ModeAPI:
		startWorkerPool(lc, pool, log)
		startMessageRouter(lc, router, consumer, log)
		startAPIServer(lc, r, cfg, log)
	case types.ModeWorker:
		startWorkerPool(lc, pool, log)
		startMessageRouter(lc, router, consumer, log)
		startScheduler(lc, scheduler, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down API server")
			return srv.Shutdown(ctx)
		},
	})
}

func startWorkerPool(lc fx.Lifecycle, pool *worker.Pool, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting worker pool")
			pool.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("draining worker pool")
			return pool.Stop(ctx)
		},
	})
}

func startScheduler(lc fx.Lifecycle, scheduler *service.Scheduler, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting reconciliation scheduler")
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping reconciliation scheduler")
			return scheduler.Stop(ctx)
		},
	})
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	consumer *notification.Consumer,
	log *logger.Logger,
) {
	// handlers must be registered before the router runs
	consumer.RegisterHandler(router)

	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := router.Run(runCtx); err != nil {
					log.Errorw("message router failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return router.Close()
		},
	})
}
