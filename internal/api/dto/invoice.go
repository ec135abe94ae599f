package dto

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/domain/invoice"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/types"
	"github.com/settlehq/settle/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateInvoiceItemRequest is one billed line of a new invoice
type CreateInvoiceItemRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity" swaggertype:"string"`
	UnitPrice   decimal.Decimal `json:"unit_price" swaggertype:"string"`
}

// CreateInvoiceRequest represents the request to create an invoice
type CreateInvoiceRequest struct {
	ClientName   string `json:"client_name,omitempty" validate:"omitempty,max=255"`
	ClientEmail  string `json:"client_email,omitempty" validate:"omitempty,email"`
	ClientWallet string `json:"client_wallet,omitempty"`

	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description,omitempty"`

	// Amount may be omitted when items are given, it is then the sum of the item totals
	Amount   *decimal.Decimal `json:"amount,omitempty" swaggertype:"string"`
	Currency types.Currency   `json:"currency,omitempty"`
	DueDate  time.Time        `json:"due_date" validate:"required"`

	Items    []CreateInvoiceItemRequest `json:"items,omitempty" validate:"omitempty,dive"`
	Metadata *types.InvoiceMetadata     `json:"metadata,omitempty"`

	// Send creates the invoice directly in the sent status
	Send bool `json:"send,omitempty"`
}

func (r *CreateInvoiceRequest) Validate(now time.Time) error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if r.ClientEmail == "" && r.ClientWallet == "" {
		return ierr.NewError("client email or wallet is required").
			WithHint("Provide the client's email address, wallet address, or both").
			Mark(ierr.ErrValidation)
	}

	if r.ClientWallet != "" {
		if _, err := types.NormalizeWalletAddress(r.ClientWallet); err != nil {
			return err
		}
	}

	if !r.DueDate.After(now) {
		return ierr.NewError("due date must be in the future").
			WithHint("Due date must be later than the current time").
			WithReportableDetails(map[string]any{
				"due_date": r.DueDate,
			}).
			Mark(ierr.ErrValidation)
	}

	if r.Amount == nil && len(r.Items) == 0 {
		return ierr.NewError("amount or items are required").
			WithHint("Provide an amount or at least one invoice item").
			Mark(ierr.ErrValidation)
	}

	if r.Currency != "" {
		if err := r.Currency.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ToInvoice builds the invoice entity. Number, payment link and owner are assigned by the caller.
func (r *CreateInvoiceRequest) ToInvoice(ctx context.Context) (*invoice.Invoice, error) {
	inv := &invoice.Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		ClientName:    strings.TrimSpace(r.ClientName),
		ClientEmail:   strings.ToLower(strings.TrimSpace(r.ClientEmail)),
		Title:         r.Title,
		Description:   r.Description,
		Currency:      lo.Ternary(r.Currency == "", types.CurrencyUSDC, r.Currency),
		DueDate:       r.DueDate.UTC(),
		InvoiceStatus: types.InvoiceStatusDraft,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}

	if r.ClientWallet != "" {
		wallet, err := types.NormalizeWalletAddress(r.ClientWallet)
		if err != nil {
			return nil, err
		}
		inv.ClientWallet = wallet
	}

	if r.Metadata != nil {
		inv.Metadata = *r.Metadata
	}

	for _, item := range r.Items {
		li := &invoice.LineItem{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_ITEM),
			InvoiceID:   inv.ID,
			Description: item.Description,
			Quantity:    item.Quantity.Round(2),
			UnitPrice:   item.UnitPrice.Round(6),
			CreatedAt:   inv.CreatedAt,
		}
		if err := li.Validate(); err != nil {
			return nil, err
		}
		li.Total = types.InvoiceItemTotal(li.Quantity, li.UnitPrice)
		inv.Items = append(inv.Items, li)
	}

	if r.Amount != nil {
		inv.Amount = r.Amount.Round(6)
	} else {
		inv.Amount = inv.ItemsTotal()
	}

	return inv, nil
}

// UpdateInvoiceRequest edits the owner controlled fields of a draft or sent invoice
type UpdateInvoiceRequest struct {
	Title       *string                `json:"title,omitempty" validate:"omitempty,max=255"`
	Description *string                `json:"description,omitempty"`
	DueDate     *time.Time             `json:"due_date,omitempty"`
	Metadata    *types.InvoiceMetadata `json:"metadata,omitempty"`
}

func (r *UpdateInvoiceRequest) Validate(now time.Time) error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return ierr.NewError("title cannot be empty").
			WithHint("Invoice title cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if r.DueDate != nil && !r.DueDate.After(now) {
		return ierr.NewError("due date must be in the future").
			WithHint("Due date must be later than the current time").
			WithReportableDetails(map[string]any{
				"due_date": *r.DueDate,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Apply copies the set fields onto inv
func (r *UpdateInvoiceRequest) Apply(inv *invoice.Invoice) {
	if r.Title != nil {
		inv.Title = *r.Title
	}
	if r.Description != nil {
		inv.Description = *r.Description
	}
	if r.DueDate != nil {
		inv.DueDate = r.DueDate.UTC()
	}
	if r.Metadata != nil {
		inv.Metadata = *r.Metadata
	}
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	*invoice.Invoice
	PaymentURL  string `json:"payment_url"`
	ExplorerURL string `json:"explorer_url,omitempty"`
}

// NewInvoiceResponse decorates inv with its public links
func NewInvoiceResponse(inv *invoice.Invoice, paymentBaseURL, explorerURL string) *InvoiceResponse {
	resp := &InvoiceResponse{
		Invoice:    inv,
		PaymentURL: paymentBaseURL + inv.PaymentLinkID,
	}
	if inv.TxHash != nil && *inv.TxHash != "" && explorerURL != "" {
		resp.ExplorerURL = ExplorerTxURL(explorerURL, *inv.TxHash)
	}
	return resp
}

// ListInvoicesResponse represents a page of invoices
type ListInvoicesResponse = types.ListResponse[*InvoiceResponse]

// PaymentInvoiceResponse is the public view of an invoice shown on its payment page
type PaymentInvoiceResponse struct {
	ID                string                `json:"id"`
	InvoiceNumber     string                `json:"invoice_number"`
	Title             string                `json:"title"`
	Description       string                `json:"description,omitempty"`
	ClientName        string                `json:"client_name,omitempty"`
	ClientWallet      string                `json:"client_wallet,omitempty"`
	Amount            decimal.Decimal       `json:"amount" swaggertype:"string"`
	Currency          types.Currency        `json:"currency"`
	DueDate           time.Time             `json:"due_date"`
	InvoiceStatus     types.InvoiceStatus   `json:"invoice_status"`
	ContractInvoiceID *int64                `json:"contract_invoice_id,omitempty"`
	PayeeAddress      string                `json:"payee_address,omitempty"`
	Items             []*invoice.LineItem   `json:"items,omitempty"`
	Metadata          types.InvoiceMetadata `json:"metadata"`
}

func NewPaymentInvoiceResponse(inv *invoice.Invoice, payee string) *PaymentInvoiceResponse {
	return &PaymentInvoiceResponse{
		ID:                inv.ID,
		InvoiceNumber:     inv.InvoiceNumber,
		Title:             inv.Title,
		Description:       inv.Description,
		ClientName:        inv.ClientName,
		ClientWallet:      inv.ClientWallet,
		Amount:            inv.Amount,
		Currency:          inv.Currency,
		DueDate:           inv.DueDate,
		InvoiceStatus:     inv.InvoiceStatus,
		ContractInvoiceID: inv.ContractInvoiceID,
		PayeeAddress:      payee,
		Items:             inv.Items,
		Metadata:          inv.Metadata,
	}
}

// ExplorerTxURL links a transaction hash on the block explorer
func ExplorerTxURL(explorerURL, txHash string) string {
	return strings.TrimRight(explorerURL, "/") + "/tx/" + txHash
}
