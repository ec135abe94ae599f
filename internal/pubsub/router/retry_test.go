package router

import (
	"context"
	"testing"

	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/httpclient"
	"github.com/settlehq/settle/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestShouldRetry(t *testing.T) {
	log := logger.NewNopLogger()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "bad gateway", err: httpclient.NewError(502, nil), want: true},
		{name: "bad request", err: httpclient.NewError(400, nil), want: false},
		{name: "relay down", err: ierr.NewError("down").Mark(ierr.ErrRelayUnavailable), want: true},
		{name: "validation", err: ierr.NewError("bad").Mark(ierr.ErrValidation), want: false},
		{name: "illegal state", err: ierr.NewError("paid").Mark(ierr.ErrIllegalState), want: false},
		{name: "not found", err: ierr.NewError("gone").Mark(ierr.ErrNotFound), want: false},
		{name: "unknown", err: context.DeadlineExceeded, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRetry(log, tt.err))
		})
	}
}
