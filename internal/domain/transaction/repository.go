package transaction

import (
	"context"

	"github.com/settlehq/settle/internal/types"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for transaction persistence operations
type Repository interface {
	// Create fails with ErrAlreadyExists when the hash is already tracked
	Create(ctx context.Context, txn *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	GetByHash(ctx context.Context, txHash string) (*Transaction, error)
	// FindByCorrelation matches the relay operation hash kept in metadata, or the tx hash itself
	FindByCorrelation(ctx context.Context, opHash string) (*Transaction, error)
	List(ctx context.Context, filter *types.TransactionFilter) ([]*Transaction, error)
	Count(ctx context.Context, filter *types.TransactionFilter) (int, error)

	// Settle applies s only while the transaction is still pending and reports whether it did
	Settle(ctx context.Context, id string, s *Settlement) (bool, error)
	UpdateMetadata(ctx context.Context, id string, metadata types.TransactionMetadata) error

	// SumSponsoredGas returns the total gas used by the user's sponsored transactions
	SumSponsoredGas(ctx context.Context, userID string) (decimal.Decimal, error)
}
