package webhookevent

import (
	"context"

	"github.com/settlehq/settle/internal/types"
)

type Repository interface {
	Create(ctx context.Context, e *WebhookEvent) error
	Get(ctx context.Context, id string) (*WebhookEvent, error)
	List(ctx context.Context, filter *types.WebhookEventFilter) ([]*WebhookEvent, error)
	Count(ctx context.Context, filter *types.WebhookEventFilter) (int, error)
	MarkProcessed(ctx context.Context, id string) error
	// RecordFailure bumps the attempt counter and keeps the last dispatch error
	RecordFailure(ctx context.Context, id string, reason string) error
}
