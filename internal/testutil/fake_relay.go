package testutil

import (
	"context"
	"fmt"
	"sync"

	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/relay"
)

// FakeRelayClient is an in-memory relay.Client. Submitted operations are pending until Settle is called.
type FakeRelayClient struct {
	mu       sync.Mutex
	seq      int
	statuses map[string]*relay.OpStatus

	// SponsorErr and SubmitErr fail the matching call when set
	SponsorErr error
	SubmitErr  error
	StatusErr  error

	Sponsored []*relay.UserOperation
	Submitted []*relay.UserOperation
	// StatusCalls counts Status lookups
	StatusCalls int
}

var _ relay.Client = (*FakeRelayClient)(nil)

func NewFakeRelayClient() *FakeRelayClient {
	return &FakeRelayClient{statuses: make(map[string]*relay.OpStatus)}
}

func (r *FakeRelayClient) Sponsor(_ context.Context, op *relay.UserOperation, paymasterData string) (*relay.UserOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SponsorErr != nil {
		return nil, r.SponsorErr
	}
	out := *op
	out.PaymasterAndData = paymasterData
	if out.PaymasterAndData == "" {
		out.PaymasterAndData = "0xpaymaster"
	}
	out.CallGasLimit = "0x30d40"
	r.Sponsored = append(r.Sponsored, &out)
	sponsored := out
	return &sponsored, nil
}

func (r *FakeRelayClient) Submit(_ context.Context, op *relay.UserOperation) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SubmitErr != nil {
		return "", r.SubmitErr
	}
	r.seq++
	hash := fmt.Sprintf("0x%064x", r.seq)
	r.Submitted = append(r.Submitted, op)
	r.statuses[hash] = &relay.OpStatus{OpHash: hash, Status: relay.OpStatePending}
	return hash, nil
}

func (r *FakeRelayClient) Status(_ context.Context, opHash string) (*relay.OpStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StatusCalls++
	if r.StatusErr != nil {
		return nil, r.StatusErr
	}
	st, ok := r.statuses[opHash]
	if !ok {
		return &relay.OpStatus{OpHash: opHash, Status: relay.OpStateNotFound}, nil
	}
	out := *st
	return &out, nil
}

// Settle makes the bundler report opHash as included with the given outcome
func (r *FakeRelayClient) Settle(opHash string, state relay.OpState, txHash string, blockNumber, gasUsed int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[opHash] = &relay.OpStatus{
		OpHash:      opHash,
		Status:      state,
		TxHash:      txHash,
		BlockNumber: &blockNumber,
		GasUsed:     &gasUsed,
	}
}

// LastSubmittedHash returns the hash of the most recent submission
func (r *FakeRelayClient) LastSubmittedHash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("0x%064x", r.seq)
}

// ErrRelayDown is a ready made transport failure
var ErrRelayDown = ierr.NewError("bundler unreachable").
	WithHint("Relay is unavailable").
	Mark(ierr.ErrRelayUnavailable)
