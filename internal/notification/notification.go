package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/settlehq/settle/internal/config"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/pubsub"
	"github.com/settlehq/settle/internal/types"
)

// Kind identifies why the client of an invoice is being notified
type Kind string

const (
	KindInvoiceCreated  Kind = "invoice_created"
	KindInvoiceSent     Kind = "invoice_sent"
	KindInvoiceReminder Kind = "invoice_reminder"
	KindInvoicePaid     Kind = "invoice_paid"
)

// Event is the message published for every notification
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	InvoiceID string    `json:"invoice_id"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier is fire and forget: failures are logged and never returned to the caller
type Notifier interface {
	Notify(ctx context.Context, kind Kind, invoiceID string)
}

type publisher struct {
	pubSub pubsub.Publisher
	topic  string
	logger *logger.Logger
}

// NewNotifier creates a notifier publishing on the configured topic
func NewNotifier(pubSub pubsub.Publisher, cfg *config.Configuration, logger *logger.Logger) Notifier {
	return &publisher{
		pubSub: pubSub,
		topic:  cfg.Notification.Topic,
		logger: logger,
	}
}

func (p *publisher) Notify(ctx context.Context, kind Kind, invoiceID string) {
	event := &Event{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NOTIFICATION),
		Kind:      kind,
		InvoiceID: invoiceID,
		UserID:    types.GetUserID(ctx),
		CreatedAt: time.Now().UTC(),
	}

	if err := p.publish(ctx, event); err != nil {
		p.logger.Errorw("failed to publish notification",
			"error", err,
			"kind", kind,
			"invoice_id", invoiceID,
		)
		return
	}

	p.logger.Debugw("published notification",
		"notification_id", event.ID,
		"kind", kind,
		"invoice_id", invoiceID,
	)
}

func (p *publisher) publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode notification").
			Mark(ierr.ErrSystem)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("kind", string(event.Kind))
	msg.Metadata.Set("request_id", types.GetRequestID(ctx))

	return p.pubSub.Publish(ctx, p.topic, msg)
}
