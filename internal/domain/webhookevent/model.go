package webhookevent

import (
	"encoding/json"
	"time"

	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/types"
)

// WebhookEvent is an append-only record of an inbound relay or chain notification
type WebhookEvent struct {
	ID          string                 `db:"id" json:"id"`
	EventType   types.WebhookEventType `db:"event_type" json:"event_type"`
	Payload     types.Payload          `db:"payload" json:"payload" swaggertype:"object"`
	Signature   string                 `db:"signature" json:"-"`
	Processed   bool                   `db:"processed" json:"processed"`
	ProcessedAt *time.Time             `db:"processed_at" json:"processed_at,omitempty"`
	Attempts    int                    `db:"attempts" json:"attempts"`
	LastError   string                 `db:"last_error" json:"last_error,omitempty"`
	CreatedAt   time.Time              `db:"created_at" json:"created_at"`
}

func (e *WebhookEvent) TableName() string {
	return "webhook_events"
}

// Payload is the body sent by the relay for every event type
type Payload struct {
	TransactionHash   string `json:"transactionHash"`
	UserOpHash        string `json:"userOpHash,omitempty"`
	BlockNumber       *int64 `json:"blockNumber,omitempty"`
	GasUsed           *int64 `json:"gasUsed,omitempty"`
	GasPrice          string `json:"gasPrice,omitempty"`
	ContractInvoiceID *int64 `json:"contractInvoiceId,omitempty"`
	Reason            string `json:"reason,omitempty"`
}

// Decode parses the stored body
func (e *WebhookEvent) Decode() (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Webhook payload is not valid JSON").
			WithReportableDetails(map[string]any{
				"webhook_event_id": e.ID,
			}).
			Mark(ierr.ErrValidation)
	}
	if p.TransactionHash == "" && p.UserOpHash == "" {
		return nil, ierr.NewError("webhook payload has no transaction reference").
			WithHint("Webhook payload must carry transactionHash or userOpHash").
			WithReportableDetails(map[string]any{
				"webhook_event_id": e.ID,
			}).
			Mark(ierr.ErrValidation)
	}
	return &p, nil
}

// Reference is the hash used to find the tracked transaction
func (p *Payload) Reference() string {
	if p.TransactionHash != "" {
		return p.TransactionHash
	}
	return p.UserOpHash
}
