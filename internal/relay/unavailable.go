package relay

import (
	"context"

	ierr "github.com/settlehq/settle/internal/errors"
)

// Unavailable is the client used when no paymaster or bundler is configured
type Unavailable struct{}

func NewUnavailable() *Unavailable {
	return &Unavailable{}
}

func errUnavailable() error {
	return ierr.NewError("relay client is not configured").
		WithHint("Gas sponsorship is disabled on this deployment").
		Mark(ierr.ErrRelayUnavailable)
}

func (Unavailable) Sponsor(context.Context, *UserOperation, string) (*UserOperation, error) {
	return nil, errUnavailable()
}

func (Unavailable) Submit(context.Context, *UserOperation) (string, error) {
	return "", errUnavailable()
}

func (Unavailable) Status(context.Context, string) (*OpStatus, error) {
	return nil, errUnavailable()
}
