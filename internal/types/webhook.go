package types

import "github.com/samber/lo"

// WebhookEventType is the event name sent by the relay or chain indexer
type WebhookEventType string

const (
	WebhookEventInvoicePaid          WebhookEventType = "invoice_paid"
	WebhookEventTransactionConfirmed WebhookEventType = "transaction_confirmed"
	WebhookEventTransactionFailed    WebhookEventType = "transaction_failed"
	WebhookEventGasSponsored         WebhookEventType = "gas_sponsored"
)

// IsKnown reports whether the event type has a dispatcher
func (t WebhookEventType) IsKnown() bool {
	switch t {
	case WebhookEventInvoicePaid,
		WebhookEventTransactionConfirmed,
		WebhookEventTransactionFailed,
		WebhookEventGasSponsored:
		return true
	}
	return false
}

// WebhookEventFilter represents the filter options for listing stored webhook events
type WebhookEventFilter struct {
	*QueryFilter
	EventType []WebhookEventType `json:"event_type,omitempty" form:"event_type"`
	Processed *bool              `json:"processed,omitempty" form:"processed"`
}

func NewWebhookEventFilter() *WebhookEventFilter {
	return &WebhookEventFilter{QueryFilter: NewDefaultQueryFilter()}
}

// NewUnprocessedWebhookEventFilter returns the oldest first page of events awaiting replay
func NewUnprocessedWebhookEventFilter(limit int) *WebhookEventFilter {
	return &WebhookEventFilter{
		QueryFilter: &QueryFilter{
			Limit:  lo.ToPtr(limit),
			Offset: lo.ToPtr(0),
			Sort:   lo.ToPtr("created_at"),
			Order:  lo.ToPtr(OrderAsc),
		},
		Processed: lo.ToPtr(false),
	}
}
