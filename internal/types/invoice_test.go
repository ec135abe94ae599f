package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvoiceStatusTransitions(t *testing.T) {
	tests := []struct {
		from InvoiceStatus
		to   InvoiceStatus
		want bool
	}{
		{InvoiceStatusDraft, InvoiceStatusSent, true},
		{InvoiceStatusDraft, InvoiceStatusCancelled, true},
		{InvoiceStatusDraft, InvoiceStatusPaid, false},
		{InvoiceStatusSent, InvoiceStatusPending, true},
		{InvoiceStatusSent, InvoiceStatusOverdue, true},
		{InvoiceStatusSent, InvoiceStatusCancelled, true},
		{InvoiceStatusSent, InvoiceStatusDraft, false},
		{InvoiceStatusPending, InvoiceStatusPaid, true},
		{InvoiceStatusPending, InvoiceStatusOverdue, true},
		{InvoiceStatusPending, InvoiceStatusSent, false},
		{InvoiceStatusPending, InvoiceStatusCancelled, false},
		{InvoiceStatusPaid, InvoiceStatusOverdue, false},
		{InvoiceStatusPaid, InvoiceStatusPending, false},
		{InvoiceStatusCancelled, InvoiceStatusSent, false},
		{InvoiceStatusOverdue, InvoiceStatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestInvoiceStatusFlags(t *testing.T) {
	assert.True(t, InvoiceStatusPaid.IsTerminal())
	assert.True(t, InvoiceStatusCancelled.IsTerminal())
	assert.False(t, InvoiceStatusOverdue.IsTerminal())

	assert.True(t, InvoiceStatusSent.IsPayable())
	assert.True(t, InvoiceStatusPending.IsPayable())
	assert.False(t, InvoiceStatusPaid.IsPayable())
	assert.False(t, InvoiceStatusDraft.IsPayable())

	assert.True(t, InvoiceStatusDraft.IsEditable())
	assert.False(t, InvoiceStatusPending.IsEditable())

	assert.NoError(t, InvoiceStatusOverdue.Validate())
	assert.Error(t, InvoiceStatus("refunded").Validate())
	assert.Error(t, Currency("EUR").Validate())
}

func TestWalletAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "checksummed", input: "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789", want: "0x5ff137d4b0fdcd49dca30c7cf57e578a026d2789"},
		{name: "surrounding space", input: " 0xabcdefabcdefabcdefabcdefabcdefabcdefabcd ", want: "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"},
		{name: "too short", input: "0x123", wantErr: true},
		{name: "missing prefix", input: "abcdefabcdefabcdefabcdefabcdefabcdefabcd", wantErr: true},
		{name: "non hex", input: "0xzzzzefabcdefabcdefabcdefabcdefabcdefabcd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeWalletAddress(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
