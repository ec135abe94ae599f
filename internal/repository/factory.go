package repository

import (
	"github.com/settlehq/settle/internal/domain/invoice"
	"github.com/settlehq/settle/internal/domain/paymentlink"
	"github.com/settlehq/settle/internal/domain/transaction"
	"github.com/settlehq/settle/internal/domain/user"
	"github.com/settlehq/settle/internal/domain/webhookevent"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/postgres"
	postgresRepo "github.com/settlehq/settle/internal/repository/postgres"
)

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}

func NewTransactionRepository(db *postgres.DB, logger *logger.Logger) transaction.Repository {
	return postgresRepo.NewTransactionRepository(db, logger)
}

func NewUserRepository(db *postgres.DB, logger *logger.Logger) user.Repository {
	return postgresRepo.NewUserRepository(db, logger)
}

func NewPaymentLinkRepository(db *postgres.DB, logger *logger.Logger) paymentlink.Repository {
	return postgresRepo.NewPaymentLinkRepository(db, logger)
}

func NewWebhookEventRepository(db *postgres.DB, logger *logger.Logger) webhookevent.Repository {
	return postgresRepo.NewWebhookEventRepository(db, logger)
}
