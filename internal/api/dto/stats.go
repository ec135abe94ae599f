package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardStatsResponse summarises an owner's invoices
type DashboardStatsResponse struct {
	TotalInvoices int             `json:"total_invoices"`
	PaidInvoices  int             `json:"paid_invoices"`
	OverdueCount  int             `json:"overdue_count"`
	TotalPaid     decimal.Decimal `json:"total_paid" swaggertype:"string"`
	TotalPending  decimal.Decimal `json:"total_pending" swaggertype:"string"`
	// SuccessRate is the share of invoices that were paid, in percent
	SuccessRate     decimal.Decimal `json:"success_rate" swaggertype:"string"`
	AvgPaymentHours decimal.Decimal `json:"avg_payment_hours" swaggertype:"string"`
	// GasSavedUSD estimates what the owner and their clients did not spend on gas
	GasSavedUSD decimal.Decimal `json:"gas_saved_usd" swaggertype:"string"`
}

// ActivityKind classifies a recent activity entry
type ActivityKind string

const (
	ActivityInvoiceCreated ActivityKind = "invoice_created"
	ActivityInvoicePaid    ActivityKind = "invoice_paid"
	ActivityTransaction    ActivityKind = "transaction"
)

// ActivityItem is one entry of the owner's activity feed
type ActivityItem struct {
	Kind        ActivityKind    `json:"kind"`
	InvoiceID   string          `json:"invoice_id,omitempty"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string"`
	Status      string          `json:"status"`
	TxHash      string          `json:"tx_hash,omitempty"`
	ExplorerURL string          `json:"explorer_url,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// RecentActivityResponse is the newest-first activity feed
type RecentActivityResponse struct {
	Items []*ActivityItem `json:"items"`
}
