package service

import (
	"github.com/settlehq/settle/internal/cache"
	"github.com/settlehq/settle/internal/chain"
	"github.com/settlehq/settle/internal/config"
	"github.com/settlehq/settle/internal/domain/invoice"
	"github.com/settlehq/settle/internal/domain/paymentlink"
	"github.com/settlehq/settle/internal/domain/transaction"
	"github.com/settlehq/settle/internal/domain/user"
	"github.com/settlehq/settle/internal/domain/webhookevent"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/notification"
	"github.com/settlehq/settle/internal/postgres"
	"github.com/settlehq/settle/internal/relay"
	"github.com/settlehq/settle/internal/sentry"
	"github.com/settlehq/settle/internal/worker"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Sentry *sentry.Service

	// Repositories
	InvoiceRepo      invoice.Repository
	TransactionRepo  transaction.Repository
	UserRepo         user.Repository
	PaymentLinkRepo  paymentlink.Repository
	WebhookEventRepo webhookevent.Repository

	// External collaborators
	Chain chain.Client
	Relay relay.Client

	Cache    cache.Cache
	Notifier notification.Notifier
	Queue    worker.Queue
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	sentry *sentry.Service,
	invoiceRepo invoice.Repository,
	transactionRepo transaction.Repository,
	userRepo user.Repository,
	paymentLinkRepo paymentlink.Repository,
	webhookEventRepo webhookevent.Repository,
	chainClient chain.Client,
	relayClient relay.Client,
	cache cache.Cache,
	notifier notification.Notifier,
	queue worker.Queue,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		DB:               db,
		Sentry:           sentry,
		InvoiceRepo:      invoiceRepo,
		TransactionRepo:  transactionRepo,
		UserRepo:         userRepo,
		PaymentLinkRepo:  paymentLinkRepo,
		WebhookEventRepo: webhookEventRepo,
		Chain:            chainClient,
		Relay:            relayClient,
		Cache:            cache,
		Notifier:         notifier,
		Queue:            queue,
	}
}
