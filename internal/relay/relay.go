package relay

import (
	"context"
)

// UserOperation is an ERC-4337 (entry point v0.6) user operation with hex encoded fields
type UserOperation struct {
	Sender               string `json:"sender"`
	Nonce                string `json:"nonce"`
	InitCode             string `json:"initCode"`
	CallData             string `json:"callData"`
	CallGasLimit         string `json:"callGasLimit"`
	VerificationGasLimit string `json:"verificationGasLimit"`
	PreVerificationGas   string `json:"preVerificationGas"`
	MaxFeePerGas         string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
	PaymasterAndData     string `json:"paymasterAndData"`
	Signature            string `json:"signature"`
}

// NewUserOperation returns an operation for sender with every numeric field zeroed,
// leaving gas estimation to the paymaster
func NewUserOperation(sender, callData, signature string) *UserOperation {
	if signature == "" {
		signature = "0x"
	}
	return &UserOperation{
		Sender:               sender,
		Nonce:                "0x0",
		InitCode:             "0x",
		CallData:             callData,
		CallGasLimit:         "0x0",
		VerificationGasLimit: "0x0",
		PreVerificationGas:   "0x0",
		MaxFeePerGas:         "0x0",
		MaxPriorityFeePerGas: "0x0",
		PaymasterAndData:     "0x",
		Signature:            signature,
	}
}

// OpState is the bundler's view of a submitted operation
type OpState string

const (
	OpStatePending  OpState = "pending"
	OpStateSuccess  OpState = "success"
	OpStateReverted OpState = "reverted"
	OpStateNotFound OpState = "not_found"
)

// IsFinal reports whether the operation was included in a block
func (s OpState) IsFinal() bool {
	return s == OpStateSuccess || s == OpStateReverted
}

// OpStatus is the result of a status query for an operation hash
type OpStatus struct {
	OpHash      string  `json:"op_hash"`
	Status      OpState `json:"status"`
	TxHash      string  `json:"tx_hash,omitempty"`
	BlockNumber *int64  `json:"block_number,omitempty"`
	GasUsed     *int64  `json:"gas_used,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// Client talks to the paymaster and bundler.
// Transport failures are reported as ErrRelayUnavailable, rejected operations as ErrValidation.
type Client interface {
	// Sponsor asks the paymaster to pay gas for op and returns the sponsored operation
	Sponsor(ctx context.Context, op *UserOperation, paymasterData string) (*UserOperation, error)
	// Submit hands a sponsored operation to the bundler and returns its operation hash
	Submit(ctx context.Context, op *UserOperation) (string, error)
	Status(ctx context.Context, opHash string) (*OpStatus, error)
}
