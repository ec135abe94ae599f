package invoice

import (
	"time"

	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is a request for payment issued by its owner to a client
type Invoice struct {
	ID            string `db:"id" json:"id"`
	InvoiceNumber string `db:"invoice_number" json:"invoice_number"`
	OwnerID       string `db:"owner_id" json:"owner_id"`

	ClientName   string `db:"client_name" json:"client_name,omitempty"`
	ClientEmail  string `db:"client_email" json:"client_email,omitempty"`
	ClientWallet string `db:"client_wallet" json:"client_wallet,omitempty"`

	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description,omitempty"`

	Amount   decimal.Decimal `db:"amount" json:"amount" swaggertype:"string"`
	Currency types.Currency  `db:"currency" json:"currency"`
	DueDate  time.Time       `db:"due_date" json:"due_date"`

	InvoiceStatus types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`

	// ContractInvoiceID is assigned by the settlement contract once registration is mined
	ContractInvoiceID *int64  `db:"contract_invoice_id" json:"contract_invoice_id,omitempty"`
	TxHash            *string `db:"tx_hash" json:"tx_hash,omitempty"`
	PaymentTxHash     *string `db:"payment_tx_hash" json:"payment_tx_hash,omitempty"`
	IsOnChain         bool    `db:"is_on_chain" json:"is_on_chain"`
	GasSponsored      bool    `db:"gas_sponsored" json:"gas_sponsored"`

	PaymentLinkID string                `db:"payment_link_id" json:"payment_link_id"`
	Metadata      types.InvoiceMetadata `db:"metadata" json:"metadata"`

	SentAt *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	PaidAt *time.Time `db:"paid_at" json:"paid_at,omitempty"`

	Items []*LineItem `db:"-" json:"items,omitempty"`

	types.BaseModel
}

func (i *Invoice) TableName() string {
	return "invoices"
}

// HasWalletClient reports whether the invoice can be registered and paid on chain
func (i *Invoice) HasWalletClient() bool {
	return i.ClientWallet != ""
}

// Validate checks the invariants that hold for every persisted invoice
func (i *Invoice) Validate() error {
	if !i.Amount.IsPositive() {
		return ierr.NewError("invoice amount must be greater than 0").
			WithHint("Invoice amount must be a positive value").
			WithReportableDetails(map[string]any{
				"amount": i.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	if i.ClientEmail == "" && i.ClientWallet == "" {
		return ierr.NewError("client email or wallet is required").
			WithHint("Provide the client's email address, wallet address, or both").
			Mark(ierr.ErrValidation)
	}

	if i.ClientWallet != "" && !types.IsWalletAddress(i.ClientWallet) {
		return ierr.NewError("invalid client wallet address").
			WithHint("Client wallet must be a 0x prefixed 40 character hex string").
			WithReportableDetails(map[string]any{
				"client_wallet": i.ClientWallet,
			}).
			Mark(ierr.ErrValidation)
	}

	if err := i.Currency.Validate(); err != nil {
		return err
	}

	if err := i.InvoiceStatus.Validate(); err != nil {
		return err
	}

	if i.InvoiceStatus == types.InvoiceStatusPaid && (i.PaidAt == nil || i.PaymentTxHash == nil || *i.PaymentTxHash == "") {
		return ierr.NewError("paid invoice is missing payment details").
			WithHint("A paid invoice must carry its payment time and transaction hash").
			Mark(ierr.ErrValidation)
	}

	return nil
}

// ItemsTotal returns the sum of all line item totals
func (i *Invoice) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range i.Items {
		total = total.Add(item.Total)
	}
	return total
}
