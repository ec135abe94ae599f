package notification

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/settlehq/settle/internal/config"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/pubsub"
	pubsubRouter "github.com/settlehq/settle/internal/pubsub/router"
)

// Delivery hands a notification to the outside world
type Delivery func(event *Event) error

// Consumer reads notification events and hands them to a delivery function.
// Email delivery is not part of this service, the default delivery only logs.
type Consumer struct {
	subscriber pubsub.Subscriber
	topic      string
	deliver    Delivery
	logger     *logger.Logger
}

func NewConsumer(subscriber pubsub.Subscriber, cfg *config.Configuration, logger *logger.Logger) *Consumer {
	c := &Consumer{
		subscriber: subscriber,
		topic:      cfg.Notification.Topic,
		logger:     logger,
	}
	c.deliver = c.logDelivery
	return c
}

// WithDelivery replaces the delivery function
func (c *Consumer) WithDelivery(d Delivery) *Consumer {
	c.deliver = d
	return c
}

func (c *Consumer) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		"invoice_notification_handler",
		c.topic,
		c.subscriber,
		c.processMessage,
	)
}

func (c *Consumer) processMessage(msg *message.Message) error {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return ierr.WithError(err).
			WithHint("Notification payload is not valid JSON").
			WithReportableDetails(map[string]any{"message_uuid": msg.UUID}).
			Mark(ierr.ErrValidation)
	}
	return c.deliver(&event)
}

func (c *Consumer) logDelivery(event *Event) error {
	c.logger.Infow("invoice notification",
		"notification_id", event.ID,
		"kind", event.Kind,
		"invoice_id", event.InvoiceID,
		"user_id", event.UserID,
	)
	return nil
}
