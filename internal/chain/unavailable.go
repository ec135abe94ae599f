package chain

import (
	"context"
	"math/big"

	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/types"
)

// Unavailable is the client used when no chain is configured.
// Every call fails with ErrChainUnavailable.
type Unavailable struct{}

func NewUnavailable() *Unavailable {
	return &Unavailable{}
}

func errUnavailable() error {
	return ierr.NewError("chain client is not configured").
		WithHint("On-chain features are disabled on this deployment").
		Mark(ierr.ErrChainUnavailable)
}

func (Unavailable) GetInvoice(context.Context, int64) (*OnChainInvoice, error) {
	return nil, errUnavailable()
}

func (Unavailable) BuildRegisterTx(context.Context, *RegisterRequest) (*TxDescriptor, error) {
	return nil, errUnavailable()
}

func (Unavailable) BuildApproveTx(context.Context, *big.Int) (*TxDescriptor, error) {
	return nil, errUnavailable()
}

func (Unavailable) BuildPayTx(context.Context, *int64) (*TxDescriptor, error) {
	return nil, errUnavailable()
}

func (Unavailable) GetTokenBalance(context.Context, string) (*big.Int, error) {
	return nil, errUnavailable()
}

func (Unavailable) GetNativeBalance(context.Context, string) (*big.Int, error) {
	return nil, errUnavailable()
}

func (Unavailable) GetRegisteredInvoiceID(context.Context, string) (int64, error) {
	return 0, errUnavailable()
}

func (Unavailable) TokenDecimals() int32 {
	return types.DefaultTokenDecimals
}
