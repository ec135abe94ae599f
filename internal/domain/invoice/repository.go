package invoice

import (
	"context"
	"time"

	"github.com/settlehq/settle/internal/types"
)

// Repository defines the interface for invoice persistence operations
type Repository interface {
	// Create persists the invoice together with its line items
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	GetByPaymentLinkID(ctx context.Context, linkID string) (*Invoice, error)
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)

	// Update writes the owner editable fields
	Update(ctx context.Context, inv *Invoice) error
	Delete(ctx context.Context, id string) error

	// UpdateStatus moves the invoice to `to` only if its current status is one of `from`.
	// It reports whether a row changed.
	UpdateStatus(ctx context.Context, id string, from []types.InvoiceStatus, to types.InvoiceStatus) (bool, error)

	// MarkPaid moves the invoice to paid when its status is one of `from` and reports whether this call made the change
	MarkPaid(ctx context.Context, id string, paymentTxHash string, paidAt time.Time, from []types.InvoiceStatus) (bool, error)

	// MarkOnChain records the registration hash, advancing draft to sent.
	// It reports false when the invoice was already on chain.
	MarkOnChain(ctx context.Context, id string, txHash string) (bool, error)

	// MarkPaymentSubmitted moves the invoice to pending after a sponsored payment is accepted by the relay
	MarkPaymentSubmitted(ctx context.Context, id string, gasSponsored bool) (bool, error)

	SetContractInvoiceID(ctx context.Context, id string, contractInvoiceID int64) error

	// MarkOverdue ages every payable invoice due before now and returns the affected ids
	MarkOverdue(ctx context.Context, now time.Time) ([]string, error)

	// GetNextInvoiceNumber allocates the next number of the year's sequence
	GetNextInvoiceNumber(ctx context.Context, year int) (string, error)

	GetOwnerStats(ctx context.Context, ownerID string) (*OwnerStats, error)
}
