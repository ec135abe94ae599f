package testutil

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/domain/paymentlink"
	"github.com/settlehq/settle/internal/types"
)

// InMemoryPaymentLinkStore implements paymentlink.Repository, keyed by invoice id
type InMemoryPaymentLinkStore struct {
	*InMemoryStore[*paymentlink.PaymentLink]
}

var _ paymentlink.Repository = (*InMemoryPaymentLinkStore)(nil)

func NewInMemoryPaymentLinkStore() *InMemoryPaymentLinkStore {
	return &InMemoryPaymentLinkStore{
		InMemoryStore: NewInMemoryStore(func(p *paymentlink.PaymentLink) *paymentlink.PaymentLink {
			c := *p
			c.LastAccessed = copyPtr(p.LastAccessed)
			return &c
		}),
	}
}

func (s *InMemoryPaymentLinkStore) RecordAccess(ctx context.Context, invoiceID, linkID string) (*paymentlink.PaymentLink, error) {
	now := time.Now().UTC()
	changed, _ := s.Mutate(ctx, invoiceID, func(p *paymentlink.PaymentLink) bool {
		p.Clicks++
		p.LastAccessed = lo.ToPtr(now)
		return true
	})
	if !changed {
		err := s.Create(ctx, invoiceID, &paymentlink.PaymentLink{
			ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_LINK),
			InvoiceID:    invoiceID,
			LinkID:       linkID,
			Clicks:       1,
			LastAccessed: lo.ToPtr(now),
			CreatedAt:    now,
		})
		if err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, invoiceID)
}

func (s *InMemoryPaymentLinkStore) GetByInvoiceID(ctx context.Context, invoiceID string) (*paymentlink.PaymentLink, error) {
	return s.Get(ctx, invoiceID)
}
