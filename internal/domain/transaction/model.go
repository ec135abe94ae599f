package transaction

import (
	"time"

	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/types"
	"github.com/shopspring/decimal"
)

// Transaction tracks one blockchain bound operation from submission to settlement
type Transaction struct {
	ID                string                  `db:"id" json:"id"`
	TxHash            string                  `db:"tx_hash" json:"tx_hash"`
	TransactionType   types.TransactionType   `db:"transaction_type" json:"transaction_type"`
	TransactionStatus types.TransactionStatus `db:"transaction_status" json:"transaction_status"`
	Amount            decimal.Decimal         `db:"amount" json:"amount" swaggertype:"string"`
	FromAddress       string                  `db:"from_address" json:"from_address"`
	ToAddress         string                  `db:"to_address" json:"to_address"`

	BlockNumber *int64           `db:"block_number" json:"block_number,omitempty"`
	GasUsed     *int64           `db:"gas_used" json:"gas_used,omitempty"`
	GasPrice    *decimal.Decimal `db:"gas_price" json:"gas_price,omitempty" swaggertype:"string"`
	IsSponsored bool             `db:"is_sponsored" json:"is_sponsored"`

	// InvoiceID and UserID are weak references, they survive deletion of the referent
	InvoiceID *string `db:"invoice_id" json:"invoice_id,omitempty"`
	UserID    *string `db:"user_id" json:"user_id,omitempty"`

	Metadata    types.TransactionMetadata `db:"metadata" json:"metadata"`
	ConfirmedAt *time.Time                `db:"confirmed_at" json:"confirmed_at,omitempty"`

	types.BaseModel
}

func (t *Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) Validate() error {
	if t.TxHash == "" {
		return ierr.NewError("transaction hash is required").
			WithHint("A transaction can only be recorded once its hash is known").
			Mark(ierr.ErrValidation)
	}
	if t.Amount.IsNegative() {
		return ierr.NewError("transaction amount cannot be negative").
			WithHint("Transaction amount must be zero or positive").
			WithReportableDetails(map[string]any{
				"amount": t.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if err := t.TransactionType.Validate(); err != nil {
		return err
	}
	return t.TransactionStatus.Validate()
}

// Settlement carries the outcome applied when a pending transaction reaches a terminal status
type Settlement struct {
	Status      types.TransactionStatus
	BlockNumber *int64
	GasUsed     *int64
	GasPrice    *decimal.Decimal
	SettledAt   time.Time
	Metadata    types.TransactionMetadata
}
