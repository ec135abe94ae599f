package dto

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/domain/transaction"
	"github.com/settlehq/settle/internal/types"
	"github.com/settlehq/settle/internal/validator"
	"github.com/shopspring/decimal"
)

// TransactionResponse represents a tracked transaction in API responses
type TransactionResponse struct {
	*transaction.Transaction
	ExplorerURL string `json:"explorer_url,omitempty"`
}

func NewTransactionResponse(txn *transaction.Transaction, explorerURL string) *TransactionResponse {
	resp := &TransactionResponse{Transaction: txn}
	hash := txn.Metadata.ChainTxHash
	if hash == "" {
		hash = txn.TxHash
	}
	if explorerURL != "" && hash != "" {
		resp.ExplorerURL = ExplorerTxURL(explorerURL, hash)
	}
	return resp
}

// ListTransactionsResponse represents a page of transactions
type ListTransactionsResponse = types.ListResponse[*TransactionResponse]

// RecordTransactionRequest describes an outbound blockchain operation to track
type RecordTransactionRequest struct {
	TxHash      string                    `json:"tx_hash" validate:"required"`
	Type        types.TransactionType     `json:"transaction_type" validate:"required"`
	Amount      decimal.Decimal           `json:"amount" swaggertype:"string"`
	FromAddress string                    `json:"from_address"`
	ToAddress   string                    `json:"to_address"`
	Sponsored   bool                      `json:"is_sponsored"`
	InvoiceID   string                    `json:"invoice_id,omitempty"`
	UserID      string                    `json:"user_id,omitempty"`
	Metadata    types.TransactionMetadata `json:"metadata"`
}

func (r *RecordTransactionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.Type.Validate()
}

// ToTransaction builds a pending transaction
func (r *RecordTransactionRequest) ToTransaction(ctx context.Context) *transaction.Transaction {
	txn := &transaction.Transaction{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
		TxHash:            r.TxHash,
		TransactionType:   r.Type,
		TransactionStatus: types.TransactionStatusPending,
		Amount:            r.Amount,
		FromAddress:       strings.ToLower(r.FromAddress),
		ToAddress:         strings.ToLower(r.ToAddress),
		IsSponsored:       r.Sponsored,
		Metadata:          r.Metadata,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
	if r.InvoiceID != "" {
		txn.InvoiceID = lo.ToPtr(r.InvoiceID)
	}
	if r.UserID != "" {
		txn.UserID = lo.ToPtr(r.UserID)
	}
	return txn
}
