package postgres

import (
	"context"
)

// IClient defines the transaction boundary used by services.
// Repositories pick up the transaction from the context passed to fn.
type IClient interface {
	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

var _ IClient = (*DB)(nil)

// NewClient exposes the DB as the transaction client services depend on
func NewClient(db *DB) IClient {
	return db
}
