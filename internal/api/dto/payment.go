package dto

import (
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/relay"
	"github.com/settlehq/settle/internal/types"
	"github.com/settlehq/settle/internal/validator"
	"github.com/shopspring/decimal"
)

// InitiatePaymentRequest is posted by the payer's wallet from the payment page
type InitiatePaymentRequest struct {
	PayerWallet string `json:"payer_wallet" validate:"required,wallet"`
	// Signature authorises the batched approve and pay operation
	Signature string `json:"signature" validate:"required"`
	// UserOpHash is the hash the client computed for its operation, it is used for status polling
	UserOpHash string `json:"user_op_hash,omitempty"`
}

func (r *InitiatePaymentRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// InitiatePaymentResponse reports the accepted sponsored payment
type InitiatePaymentResponse struct {
	InvoiceID     string              `json:"invoice_id"`
	InvoiceStatus types.InvoiceStatus `json:"invoice_status"`
	TransactionID string              `json:"transaction_id"`
	UserOpHash    string              `json:"user_op_hash"`
	SubmittedHash string              `json:"submitted_hash"`
	Amount        decimal.Decimal     `json:"amount" swaggertype:"string"`
	// AmountMinorUnits is the token amount pulled from the payer
	AmountMinorUnits string `json:"amount_minor_units"`
	GasSponsored     bool   `json:"gas_sponsored"`
}

// PaymentStatusResponse is the settlement state of a submitted operation
type PaymentStatusResponse struct {
	UserOpHash  string        `json:"user_op_hash"`
	Status      relay.OpState `json:"status"`
	TxHash      string        `json:"tx_hash,omitempty"`
	BlockNumber *int64        `json:"block_number,omitempty"`
	GasUsed     *int64        `json:"gas_used,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	ExplorerURL string        `json:"explorer_url,omitempty"`
	// Source tells whether the answer came from cache, database or relay
	Source string `json:"source"`
}

// SponsorGasRequest asks the paymaster to sponsor an arbitrary user operation
type SponsorGasRequest struct {
	UserOp           *relay.UserOperation `json:"user_op" validate:"required"`
	PaymasterAndData string               `json:"paymaster_and_data,omitempty"`
}

func (r *SponsorGasRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !types.IsWalletAddress(r.UserOp.Sender) {
		return ierr.NewError("invalid user operation sender").
			WithHint("User operation sender must be a wallet address").
			WithReportableDetails(map[string]any{
				"sender": r.UserOp.Sender,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SponsorGasResponse carries the submitted sponsored operation
type SponsorGasResponse struct {
	UserOpHash string               `json:"user_op_hash"`
	UserOp     *relay.UserOperation `json:"user_op"`
}
