package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/settlehq/settle/internal/config"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/pubsub/memory"
	"github.com/settlehq/settle/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyPublishesEvent(t *testing.T) {
	cfg := config.GetDefaultConfig()
	log := logger.NewNopLogger()
	ps := memory.NewPubSub(log)
	t.Cleanup(func() { _ = ps.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := ps.Subscribe(ctx, cfg.Notification.Topic)
	require.NoError(t, err)

	n := NewNotifier(ps, cfg, log)
	n.Notify(types.SetUserID(ctx, "user_1"), KindInvoiceCreated, "inv_1")

	select {
	case msg := <-msgs:
		var event Event
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, KindInvoiceCreated, event.Kind)
		assert.Equal(t, "inv_1", event.InvoiceID)
		assert.Equal(t, "user_1", event.UserID)
		assert.Equal(t, string(KindInvoiceCreated), msg.Metadata.Get("kind"))
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("notification was not published")
	}
}

func TestConsumerDecodesEvent(t *testing.T) {
	cfg := config.GetDefaultConfig()
	log := logger.NewNopLogger()

	var got *Event
	c := NewConsumer(memory.NewPubSub(log), cfg, log).WithDelivery(func(e *Event) error {
		got = e
		return nil
	})

	payload, err := json.Marshal(Event{ID: "ntf_1", Kind: KindInvoicePaid, InvoiceID: "inv_2"})
	require.NoError(t, err)

	require.NoError(t, c.processMessage(newMessage(payload)))
	require.NotNil(t, got)
	assert.Equal(t, KindInvoicePaid, got.Kind)

	assert.Error(t, c.processMessage(newMessage([]byte("{"))))
}

func newMessage(payload []byte) *message.Message {
	return message.NewMessage(watermill.NewUUID(), payload)
}
