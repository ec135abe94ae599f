package testutil

import (
	"context"
	"sync"

	"github.com/settlehq/settle/internal/notification"
)

// SentNotification is a notification captured by InMemoryNotifier
type SentNotification struct {
	Kind      notification.Kind
	InvoiceID string
}

// InMemoryNotifier records notifications instead of publishing them
type InMemoryNotifier struct {
	mu   sync.Mutex
	sent []SentNotification
}

var _ notification.Notifier = (*InMemoryNotifier)(nil)

func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{}
}

func (n *InMemoryNotifier) Notify(_ context.Context, kind notification.Kind, invoiceID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, SentNotification{Kind: kind, InvoiceID: invoiceID})
}

// Sent returns the notifications recorded so far
func (n *InMemoryNotifier) Sent() []SentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentNotification(nil), n.sent...)
}

// Count returns how many notifications of kind were sent for invoiceID
func (n *InMemoryNotifier) Count(kind notification.Kind, invoiceID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, s := range n.sent {
		if s.Kind == kind && s.InvoiceID == invoiceID {
			count++
		}
	}
	return count
}

func (n *InMemoryNotifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}
