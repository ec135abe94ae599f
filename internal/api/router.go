package api

import (
	"github.com/gin-gonic/gin"
	"github.com/settlehq/settle/internal/api/cron"
	v1 "github.com/settlehq/settle/internal/api/v1"
	"github.com/settlehq/settle/internal/config"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/metrics"
	"github.com/settlehq/settle/internal/rest/middleware"
	"github.com/settlehq/settle/internal/types"
)

type Handlers struct {
	Health      *v1.HealthHandler
	Invoice     *v1.InvoiceHandler
	Payment     *v1.PaymentHandler
	Transaction *v1.TransactionHandler
	Stats       *v1.StatsHandler
	Wallet      *v1.WalletHandler
	Webhook     *v1.WebhookHandler

	// Cron jobs
	CronReconciliation *cron.ReconciliationHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.LoggingMiddleware(logger),
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)
	if cfg.Metrics.Enabled {
		router.GET("/metrics", metrics.Handler())
	}

	public := router.Group("/v1")
	{
		pay := public.Group("/pay")
		pay.GET("/:link_id", handlers.Payment.GetPaymentInvoice)
		pay.POST("/:link_id", handlers.Payment.PayByLink)

		public.POST("/invoices/:id/pay", handlers.Invoice.InitiatePayment)
		public.GET("/payments/status/:hash", handlers.Payment.GetPaymentStatus)

		// authenticated by the HMAC signature, not a bearer token
		public.POST("/webhooks", handlers.Webhook.HandleWebhook)
		public.POST("/webhooks/:type", handlers.Webhook.HandleWebhook)
	}

	private := router.Group("/v1")
	if cfg.Deployment.Mode == types.ModeLocal && cfg.Auth.Secret == "" {
		private.Use(middleware.GuestAuthenticateMiddleware)
	} else {
		private.Use(middleware.AuthenticateMiddleware(cfg, logger))
	}

	invoices := private.Group("/invoices")
	{
		invoices.POST("", handlers.Invoice.CreateInvoice)
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.PUT("/:id", handlers.Invoice.UpdateInvoice)
		invoices.DELETE("/:id", handlers.Invoice.DeleteInvoice)
		invoices.POST("/:id/send", handlers.Invoice.SendInvoice)
		invoices.POST("/:id/cancel", handlers.Invoice.CancelInvoice)
		invoices.POST("/:id/remind", handlers.Invoice.SendReminder)
		invoices.POST("/:id/sync", handlers.Invoice.SyncInvoice)
	}

	transactions := private.Group("/transactions")
	{
		transactions.GET("", handlers.Transaction.ListTransactions)
		transactions.GET("/:id", handlers.Transaction.GetTransaction)
	}

	stats := private.Group("/stats")
	{
		stats.GET("", handlers.Stats.GetDashboardStats)
		stats.GET("/activity", handlers.Stats.GetRecentActivity)
	}

	private.GET("/wallets/:address/balances", handlers.Wallet.GetBalances)
	private.POST("/payments/sponsor", handlers.Payment.SponsorGas)

	cronGroup := private.Group("/cron")
	{
		cronGroup.POST("/invoices/overdue", handlers.CronReconciliation.SweepOverdue)
		cronGroup.POST("/webhooks/replay", handlers.CronReconciliation.ReplayWebhooks)
	}

	return router
}
