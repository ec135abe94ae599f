package invoice

import (
	"time"

	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/shopspring/decimal"
)

// LineItem is one billed line of an invoice
type LineItem struct {
	ID          string          `db:"id" json:"id"`
	InvoiceID   string          `db:"invoice_id" json:"invoice_id"`
	Description string          `db:"description" json:"description"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity" swaggertype:"string"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price" swaggertype:"string"`
	Total       decimal.Decimal `db:"total" json:"total" swaggertype:"string"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

func (li *LineItem) Validate() error {
	if li.Description == "" {
		return ierr.NewError("line item description is required").
			WithHint("Every invoice item needs a description").
			Mark(ierr.ErrValidation)
	}
	if !li.Quantity.IsPositive() {
		return ierr.NewError("line item quantity must be greater than 0").
			WithHint("Item quantity must be a positive value").
			WithReportableDetails(map[string]any{
				"quantity": li.Quantity.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if li.UnitPrice.IsNegative() {
		return ierr.NewError("line item unit price cannot be negative").
			WithHint("Item unit price must be zero or positive").
			WithReportableDetails(map[string]any{
				"unit_price": li.UnitPrice.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
