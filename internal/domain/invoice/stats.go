package invoice

import "github.com/shopspring/decimal"

// OwnerStats aggregates an owner's invoices by status
type OwnerStats struct {
	TotalInvoices int             `db:"total_invoices"`
	PaidInvoices  int             `db:"paid_invoices"`
	OverdueCount  int             `db:"overdue_count"`
	TotalPaid     decimal.Decimal `db:"total_paid"`
	TotalPending  decimal.Decimal `db:"total_pending"`
	// AvgPaymentHours is the mean time between creation and payment of paid invoices
	AvgPaymentHours decimal.Decimal `db:"avg_payment_hours"`
}
