package paymentlink

import "time"

// PaymentLink records how often an invoice's public payment page was opened
type PaymentLink struct {
	ID           string     `db:"id" json:"id"`
	InvoiceID    string     `db:"invoice_id" json:"invoice_id"`
	LinkID       string     `db:"link_id" json:"link_id"`
	Clicks       int        `db:"clicks" json:"clicks"`
	LastAccessed *time.Time `db:"last_accessed" json:"last_accessed,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

func (p *PaymentLink) TableName() string {
	return "payment_links"
}
