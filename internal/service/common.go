package service

import (
	"context"

	"github.com/settlehq/settle/internal/api/dto"
	"github.com/settlehq/settle/internal/cache"
	"github.com/settlehq/settle/internal/domain/invoice"
	"github.com/settlehq/settle/internal/domain/transaction"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/types"
)

// requireUser returns the authenticated user id of ctx
func requireUser(ctx context.Context) (string, error) {
	if err := types.ValidateUserContext(ctx); err != nil {
		return "", ierr.WithError(err).
			WithHint("Authentication is required").
			Mark(ierr.ErrUnauthenticated)
	}
	return types.GetUserID(ctx), nil
}

// getOwnedInvoice loads an invoice of the authenticated owner.
// Invoices of other owners are reported as not found.
func (p ServiceParams) getOwnedInvoice(ctx context.Context, id string) (*invoice.Invoice, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	inv, err := p.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.OwnerID != userID {
		return nil, ierr.NewError("invoice not found").
			WithHintf("Invoice %s was not found", id).
			WithReportableDetails(map[string]any{
				"invoice_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return inv, nil
}

// recordTransaction persists a pending transaction. Callers own the surrounding db transaction.
func (p ServiceParams) recordTransaction(ctx context.Context, req *dto.RecordTransactionRequest) (*transaction.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	txn := req.ToTransaction(ctx)
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	if err := p.TransactionRepo.Create(ctx, txn); err != nil {
		return nil, err
	}

	p.Logger.Infow("transaction recorded",
		"transaction_id", txn.ID,
		"tx_hash", txn.TxHash,
		"transaction_type", txn.TransactionType,
		"invoice_id", req.InvoiceID,
	)
	return txn, nil
}

func (p ServiceParams) invalidateOwnerStats(ctx context.Context, ownerID string) {
	p.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixOwnerStats, ownerID))
}
