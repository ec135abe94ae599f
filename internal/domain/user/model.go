package user

import (
	"github.com/settlehq/settle/internal/types"
	"github.com/shopspring/decimal"
)

// User is an invoice owner. Registration and sign in live outside this service.
type User struct {
	ID                  string          `db:"id" json:"id"`
	Email               string          `db:"email" json:"email"`
	Name                string          `db:"name" json:"name,omitempty"`
	WalletAddress       string          `db:"wallet_address" json:"wallet_address,omitempty"`
	SmartAccountAddress string          `db:"smart_account_address" json:"smart_account_address,omitempty"`
	TotalEarned         decimal.Decimal `db:"total_earned" json:"total_earned" swaggertype:"string"`
	TotalInvoices       int             `db:"total_invoices" json:"total_invoices"`
	TotalPaidInvoices   int             `db:"total_paid_invoices" json:"total_paid_invoices"`
	types.BaseModel
}

func (u *User) TableName() string {
	return "users"
}

// PayoutAddress is where invoice payments settle, the smart account when one exists
func (u *User) PayoutAddress() string {
	if u.SmartAccountAddress != "" {
		return u.SmartAccountAddress
	}
	return u.WalletAddress
}
