package testutil

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/domain/webhookevent"
	"github.com/settlehq/settle/internal/types"
)

// InMemoryWebhookEventStore implements webhookevent.Repository
type InMemoryWebhookEventStore struct {
	*InMemoryStore[*webhookevent.WebhookEvent]
}

var _ webhookevent.Repository = (*InMemoryWebhookEventStore)(nil)

func NewInMemoryWebhookEventStore() *InMemoryWebhookEventStore {
	return &InMemoryWebhookEventStore{
		InMemoryStore: NewInMemoryStore(func(e *webhookevent.WebhookEvent) *webhookevent.WebhookEvent {
			c := *e
			c.Payload = append(types.Payload(nil), e.Payload...)
			c.ProcessedAt = copyPtr(e.ProcessedAt)
			return &c
		}),
	}
}

func webhookEventFilterFn(ctx context.Context, e *webhookevent.WebhookEvent, filter interface{}) bool {
	f, ok := filter.(*types.WebhookEventFilter)
	if !ok || f == nil {
		return true
	}
	if len(f.EventType) > 0 && !lo.Contains(f.EventType, e.EventType) {
		return false
	}
	if f.Processed != nil && e.Processed != *f.Processed {
		return false
	}
	return true
}

func normalizeWebhookEventFilter(filter *types.WebhookEventFilter) *types.WebhookEventFilter {
	if filter == nil {
		filter = &types.WebhookEventFilter{}
	}
	if filter.QueryFilter == nil {
		f := *filter
		f.QueryFilter = types.NewNoLimitQueryFilter()
		return &f
	}
	return filter
}

func (s *InMemoryWebhookEventStore) Create(ctx context.Context, e *webhookevent.WebhookEvent) error {
	return s.InMemoryStore.Create(ctx, e.ID, e)
}

func (s *InMemoryWebhookEventStore) List(ctx context.Context, filter *types.WebhookEventFilter) ([]*webhookevent.WebhookEvent, error) {
	filter = normalizeWebhookEventFilter(filter)
	asc := filter.GetOrder() == types.OrderAsc
	return s.InMemoryStore.List(ctx, filter, webhookEventFilterFn, func(a, b *webhookevent.WebhookEvent) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		if asc {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func (s *InMemoryWebhookEventStore) Count(ctx context.Context, filter *types.WebhookEventFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, normalizeWebhookEventFilter(filter), webhookEventFilterFn)
}

func (s *InMemoryWebhookEventStore) MarkProcessed(ctx context.Context, id string) error {
	changed, _ := s.Mutate(ctx, id, func(e *webhookevent.WebhookEvent) bool {
		e.Processed = true
		e.Attempts++
		e.ProcessedAt = lo.ToPtr(time.Now().UTC())
		e.LastError = ""
		return true
	})
	if !changed {
		return notFound(id)
	}
	return nil
}

func (s *InMemoryWebhookEventStore) RecordFailure(ctx context.Context, id string, reason string) error {
	changed, _ := s.Mutate(ctx, id, func(e *webhookevent.WebhookEvent) bool {
		if e.Processed {
			return false
		}
		e.Attempts++
		e.LastError = reason
		return true
	})
	if !changed {
		return notFound(id)
	}
	return nil
}
