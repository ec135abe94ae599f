package chain

import (
	"context"
	"math/big"
	"time"
)

// TxDescriptor is an unsigned contract call ready to be wrapped in a user operation
type TxDescriptor struct {
	To    string
	Data  []byte
	Value *big.Int
}

// OnChainInvoice is the settlement contract's view of an invoice
type OnChainInvoice struct {
	Freelancer string
	Client     string
	Amount     *big.Int
	DueDate    time.Time
	IsPaid     bool
	URI        string
}

// RegisterRequest describes an invoice to register with the settlement contract
type RegisterRequest struct {
	// Amount in token minor units
	Amount  *big.Int
	DueDate time.Time
	// URI points at the off-chain invoice document
	URI string
}

// Client reads and builds calls against the settlement and token contracts.
// Every method fails with ErrChainUnavailable when the node cannot be reached.
type Client interface {
	GetInvoice(ctx context.Context, contractInvoiceID int64) (*OnChainInvoice, error)
	BuildRegisterTx(ctx context.Context, req *RegisterRequest) (*TxDescriptor, error)
	// BuildApproveTx allows the settlement contract to pull amount from the payer
	BuildApproveTx(ctx context.Context, amount *big.Int) (*TxDescriptor, error)
	// BuildPayTx settles a registered invoice, the contract id must be known
	BuildPayTx(ctx context.Context, contractInvoiceID *int64) (*TxDescriptor, error)
	GetTokenBalance(ctx context.Context, address string) (*big.Int, error)
	GetNativeBalance(ctx context.Context, address string) (*big.Int, error)
	// GetRegisteredInvoiceID reads the contract invoice id from the InvoiceCreated event in the receipt of txHash.
	// It fails with ErrNotFound while the receipt or event is missing.
	GetRegisteredInvoiceID(ctx context.Context, txHash string) (int64, error)
	// TokenDecimals is the precision of the settlement token
	TokenDecimals() int32
}
