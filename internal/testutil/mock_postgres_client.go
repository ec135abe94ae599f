package testutil

import (
	"context"
	"sync"

	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/postgres"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

type txMarker struct{}

// MockPostgresClient is a mock implementation of postgres client for testing.
// Transactions are serialised so the in-memory stores see the same isolation a real one gives.
type MockPostgresClient struct {
	mu     sync.Mutex
	logger *logger.Logger
	// Commits counts outermost transactions that completed without error
	Commits int
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) *MockPostgresClient {
	return &MockPostgresClient{
		logger: logger,
	}
}

// WithTx executes the given function within a transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	// If we're already in a transaction, reuse it
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		return err
	}
	c.Commits++
	return nil
}
