package types

import (
	"time"

	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the business status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// invoiceTransitions lists the statuses each status may move to
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:     {InvoiceStatusSent, InvoiceStatusCancelled},
	InvoiceStatusSent:      {InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusPending:   {InvoiceStatusPaid, InvoiceStatusOverdue},
	InvoiceStatusOverdue:   {},
	InvoiceStatusPaid:      {},
	InvoiceStatusCancelled: {},
}

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := lo.Keys(invoiceTransitions)
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Invoice status must be one of draft, sent, pending, paid, overdue or cancelled").
			WithReportableDetails(map[string]any{
				"status": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CanTransitionTo reports whether moving from s to next is a legal forward move
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	return lo.Contains(invoiceTransitions[s], next)
}

// IsTerminal reports whether no further business transition is possible
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// IsPayable reports whether a payment may be initiated or settled in this status
func (s InvoiceStatus) IsPayable() bool {
	return s == InvoiceStatusSent || s == InvoiceStatusPending
}

// IsEditable reports whether the owner may still edit invoice fields
func (s InvoiceStatus) IsEditable() bool {
	return s == InvoiceStatusDraft || s == InvoiceStatusSent
}

// PayableInvoiceStatuses are the statuses that can be settled or aged into overdue
var PayableInvoiceStatuses = []InvoiceStatus{InvoiceStatusSent, InvoiceStatusPending}

// ChainSettledInvoiceStatuses may be marked paid when the settlement contract reports the invoice as paid.
// Overdue is included because the contract accepts late payments.
var ChainSettledInvoiceStatuses = []InvoiceStatus{InvoiceStatusSent, InvoiceStatusPending, InvoiceStatusOverdue}

// Currency is the denomination of an invoice amount
type Currency string

const (
	// CurrencyUSDC is the settlement stablecoin
	CurrencyUSDC Currency = "USDC"
	// CurrencyUSD is a display-only fiat denomination
	CurrencyUSD Currency = "USD"
)

func (c Currency) Validate() error {
	allowed := []Currency{CurrencyUSDC, CurrencyUSD}
	if !lo.Contains(allowed, c) {
		return ierr.NewError("invalid currency").
			WithHint("Currency must be USDC or USD").
			WithReportableDetails(map[string]any{
				"currency": c,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceFilter represents the filter options for listing invoices
type InvoiceFilter struct {
	*QueryFilter
	OwnerID string `json:"owner_id,omitempty" form:"-"`
	// InvoiceStatus filters by business status
	InvoiceStatus []InvoiceStatus `json:"invoice_status,omitempty" form:"invoice_status"`
	// Client matches a case insensitive substring of the client email, wallet or name
	Client string `json:"client,omitempty" form:"client"`
	// DueBefore restricts to invoices due strictly before this time
	DueBefore *time.Time `json:"due_before,omitempty" form:"due_before" time_format:"2006-01-02T15:04:05Z07:00"`
}

func NewInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{QueryFilter: NewDefaultQueryFilter()}
}

func NewNoLimitInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{QueryFilter: NewNoLimitQueryFilter()}
}

func (f *InvoiceFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}
	for _, s := range f.InvoiceStatus {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// InvoiceItemTotal returns quantity x unit price rounded to the stablecoin precision
func InvoiceItemTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(DefaultTokenDecimals)
}
