package paymentlink

import "context"

type Repository interface {
	// RecordAccess creates the link on first access and otherwise bumps clicks and last access
	RecordAccess(ctx context.Context, invoiceID, linkID string) (*PaymentLink, error)
	GetByInvoiceID(ctx context.Context, invoiceID string) (*PaymentLink, error)
}
