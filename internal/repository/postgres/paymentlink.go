package postgres

import (
	"context"

	"github.com/settlehq/settle/internal/domain/paymentlink"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/postgres"
	"github.com/settlehq/settle/internal/types"
)

type paymentLinkRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPaymentLinkRepository(db *postgres.DB, logger *logger.Logger) paymentlink.Repository {
	return &paymentLinkRepository{db: db, logger: logger}
}

func (r *paymentLinkRepository) RecordAccess(ctx context.Context, invoiceID, linkID string) (*paymentlink.PaymentLink, error) {
	query := `
		INSERT INTO payment_links (id, invoice_id, link_id, clicks, last_accessed, created_at)
		VALUES (:id, :invoice_id, :link_id, 1, NOW(), NOW())
		ON CONFLICT (invoice_id) DO UPDATE
		SET clicks = payment_links.clicks + 1,
			last_accessed = NOW()
		RETURNING *`

	params := map[string]interface{}{
		"id":         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_LINK),
		"invoice_id": invoiceID,
		"link_id":    linkID,
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, wrapDBError(err, "Failed to record payment link access", map[string]any{"invoice_id": invoiceID})
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("payment link upsert returned no row").
			WithHint("Failed to record payment link access").
			Mark(ierr.ErrDatabase)
	}

	var link paymentlink.PaymentLink
	if err := rows.StructScan(&link); err != nil {
		return nil, wrapDBError(err, "Failed to scan payment link", map[string]any{"invoice_id": invoiceID})
	}
	return &link, nil
}

func (r *paymentLinkRepository) GetByInvoiceID(ctx context.Context, invoiceID string) (*paymentlink.PaymentLink, error) {
	var link paymentlink.PaymentLink
	err := r.db.GetQuerier(ctx).GetContext(ctx, &link, `SELECT * FROM payment_links WHERE invoice_id = $1`, invoiceID)
	if err != nil {
		return nil, wrapDBError(err, "Payment link not found", map[string]any{"invoice_id": invoiceID})
	}
	return &link, nil
}
