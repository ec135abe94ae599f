package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/domain/webhookevent"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/postgres"
	"github.com/settlehq/settle/internal/types"
)

type webhookEventRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewWebhookEventRepository(db *postgres.DB, logger *logger.Logger) webhookevent.Repository {
	return &webhookEventRepository{db: db, logger: logger}
}

func (r *webhookEventRepository) Create(ctx context.Context, e *webhookevent.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (id, event_type, payload, signature, processed, processed_at, attempts, last_error, created_at)
		VALUES (:id, :event_type, :payload, :signature, :processed, :processed_at, :attempts, :last_error, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return wrapDBError(err, "Failed to store webhook event", map[string]any{
			"webhook_event_id": e.ID,
			"event_type":       e.EventType,
		})
	}
	return nil
}

func (r *webhookEventRepository) Get(ctx context.Context, id string) (*webhookevent.WebhookEvent, error) {
	var e webhookevent.WebhookEvent
	err := r.db.GetQuerier(ctx).GetContext(ctx, &e, `SELECT * FROM webhook_events WHERE id = $1`, id)
	if err != nil {
		return nil, wrapDBError(err, "Webhook event not found", map[string]any{"webhook_event_id": id})
	}
	return &e, nil
}

func (r *webhookEventRepository) buildFilter(filter *types.WebhookEventFilter) (string, map[string]interface{}) {
	conditions := []string{"TRUE"}
	params := map[string]interface{}{}
	if filter == nil {
		return strings.Join(conditions, " AND "), params
	}
	if len(filter.EventType) > 0 {
		conditions = append(conditions, "event_type = ANY(:event_types)")
		params["event_types"] = pq.Array(lo.Map(filter.EventType, func(t types.WebhookEventType, _ int) string {
			return string(t)
		}))
	}
	if filter.Processed != nil {
		conditions = append(conditions, "processed = :processed")
		params["processed"] = *filter.Processed
	}
	return strings.Join(conditions, " AND "), params
}

func (r *webhookEventRepository) List(ctx context.Context, filter *types.WebhookEventFilter) ([]*webhookevent.WebhookEvent, error) {
	where, params := r.buildFilter(filter)
	query := "SELECT * FROM webhook_events WHERE " + where

	order := types.FILTER_DEFAULT_ORDER
	if filter != nil && filter.QueryFilter != nil {
		order = filter.GetOrder()
	}
	query += fmt.Sprintf(" ORDER BY created_at %s, id %s", order, order)

	if filter != nil && filter.QueryFilter != nil && !filter.IsUnlimited() {
		query += " LIMIT :limit OFFSET :offset"
		params["limit"] = filter.GetLimit()
		params["offset"] = filter.GetOffset()
	}

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, wrapDBError(err, "Failed to list webhook events", nil)
	}
	defer rows.Close()

	var events []*webhookevent.WebhookEvent
	for rows.Next() {
		var e webhookevent.WebhookEvent
		if err := rows.StructScan(&e); err != nil {
			return nil, wrapDBError(err, "Failed to scan webhook event", nil)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *webhookEventRepository) Count(ctx context.Context, filter *types.WebhookEventFilter) (int, error) {
	where, params := r.buildFilter(filter)
	rows, err := r.db.NamedQueryContext(ctx, "SELECT COUNT(*) FROM webhook_events WHERE "+where, params)
	if err != nil {
		return 0, wrapDBError(err, "Failed to count webhook events", nil)
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, wrapDBError(err, "Failed to scan webhook event count", nil)
		}
	}
	return count, rows.Err()
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, id string) error {
	query := `
		UPDATE webhook_events
		SET processed = TRUE,
			processed_at = NOW(),
			attempts = attempts + 1,
			last_error = ''
		WHERE id = :id`

	return r.exec(ctx, query, map[string]interface{}{"id": id})
}

func (r *webhookEventRepository) RecordFailure(ctx context.Context, id string, reason string) error {
	query := `
		UPDATE webhook_events
		SET attempts = attempts + 1,
			last_error = :last_error
		WHERE id = :id
		AND processed = FALSE`

	return r.exec(ctx, query, map[string]interface{}{
		"id":         id,
		"last_error": reason,
	})
}

func (r *webhookEventRepository) exec(ctx context.Context, query string, params map[string]interface{}) error {
	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return wrapDBError(err, "Failed to update webhook event", map[string]any{"webhook_event_id": params["id"]})
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ierr.NewError("webhook event not found").
			WithHintf("Webhook event %s was not found", params["id"]).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
