package user

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByWalletAddress(ctx context.Context, address string) (*User, error)

	// IncrementInvoiceCount adds one to the owner's issued invoice counter
	IncrementInvoiceCount(ctx context.Context, id string) error

	// RecordPayment adds amount to total earned and bumps the paid counter in one statement
	RecordPayment(ctx context.Context, id string, amount decimal.Decimal) error
}
