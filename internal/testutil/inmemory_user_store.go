package testutil

import (
	"context"
	"strings"

	"github.com/settlehq/settle/internal/domain/user"
	"github.com/shopspring/decimal"
)

// InMemoryUserStore implements user.Repository
type InMemoryUserStore struct {
	*InMemoryStore[*user.User]
}

var _ user.Repository = (*InMemoryUserStore)(nil)

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		InMemoryStore: NewInMemoryStore(func(u *user.User) *user.User {
			c := *u
			return &c
		}),
	}
}

func (s *InMemoryUserStore) Create(ctx context.Context, u *user.User) error {
	return s.InMemoryStore.Create(ctx, u.ID, u)
}

func (s *InMemoryUserStore) GetByID(ctx context.Context, id string) (*user.User, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryUserStore) GetByWalletAddress(ctx context.Context, address string) (*user.User, error) {
	return s.Find(ctx, address, func(u *user.User) bool {
		return strings.EqualFold(u.WalletAddress, address) || strings.EqualFold(u.SmartAccountAddress, address)
	})
}

func (s *InMemoryUserStore) IncrementInvoiceCount(ctx context.Context, id string) error {
	changed, _ := s.Mutate(ctx, id, func(u *user.User) bool {
		u.TotalInvoices++
		return true
	})
	if !changed {
		return notFound(id)
	}
	return nil
}

func (s *InMemoryUserStore) RecordPayment(ctx context.Context, id string, amount decimal.Decimal) error {
	changed, _ := s.Mutate(ctx, id, func(u *user.User) bool {
		u.TotalEarned = u.TotalEarned.Add(amount)
		u.TotalPaidInvoices++
		return true
	})
	if !changed {
		return notFound(id)
	}
	return nil
}
