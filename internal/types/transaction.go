package types

import (
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/samber/lo"
)

// TransactionType is the kind of blockchain bound operation a transaction tracks
type TransactionType string

const (
	TransactionTypeInvoiceCreated TransactionType = "invoice_created"
	TransactionTypeInvoicePaid    TransactionType = "invoice_paid"
	TransactionTypeWithdrawal     TransactionType = "withdrawal"
	TransactionTypeDeposit        TransactionType = "deposit"
)

func (t TransactionType) Validate() error {
	allowed := []TransactionType{
		TransactionTypeInvoiceCreated,
		TransactionTypeInvoicePaid,
		TransactionTypeWithdrawal,
		TransactionTypeDeposit,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid transaction type").
			WithHint("Transaction type must be one of invoice_created, invoice_paid, withdrawal or deposit").
			WithReportableDetails(map[string]any{
				"type": t,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TransactionStatus is the settlement status of a tracked transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) Validate() error {
	allowed := []TransactionStatus{
		TransactionStatusPending,
		TransactionStatusConfirmed,
		TransactionStatusFailed,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid transaction status").
			WithHint("Transaction status must be one of pending, confirmed or failed").
			WithReportableDetails(map[string]any{
				"status": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusConfirmed || s == TransactionStatusFailed
}

// TransactionFilter represents the filter options for listing transactions
type TransactionFilter struct {
	*QueryFilter
	UserID            string              `json:"user_id,omitempty" form:"-"`
	InvoiceID         string              `json:"invoice_id,omitempty" form:"invoice_id"`
	TransactionType   []TransactionType   `json:"transaction_type,omitempty" form:"transaction_type"`
	TransactionStatus []TransactionStatus `json:"transaction_status,omitempty" form:"transaction_status"`
	Sponsored         *bool               `json:"sponsored,omitempty" form:"sponsored"`
}

func NewTransactionFilter() *TransactionFilter {
	return &TransactionFilter{QueryFilter: NewDefaultQueryFilter()}
}

func NewNoLimitTransactionFilter() *TransactionFilter {
	return &TransactionFilter{QueryFilter: NewNoLimitQueryFilter()}
}

func (f *TransactionFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}
	for _, t := range f.TransactionType {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	for _, s := range f.TransactionStatus {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
