package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ierr "github.com/settlehq/settle/internal/errors"
)

// ExecuteCallData wraps a single call for execution by a smart account
func ExecuteCallData(call *TxDescriptor) ([]byte, error) {
	if call == nil {
		return nil, ierr.NewError("call is required").
			WithHint("Nothing to execute").
			Mark(ierr.ErrValidation)
	}
	value := call.Value
	if value == nil {
		value = big.NewInt(0)
	}
	data, err := walletABI.Pack("execute", common.HexToAddress(call.To), value, call.Data)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode smart account call").
			Mark(ierr.ErrSystem)
	}
	return data, nil
}

// BatchCallData wraps calls so a smart account executes them atomically in order,
// e.g. a token approval followed by the invoice payment
func BatchCallData(calls ...*TxDescriptor) ([]byte, error) {
	if len(calls) == 0 {
		return nil, ierr.NewError("at least one call is required").
			WithHint("Nothing to execute").
			Mark(ierr.ErrValidation)
	}

	dest := make([]common.Address, 0, len(calls))
	funcs := make([][]byte, 0, len(calls))
	for _, c := range calls {
		if c == nil {
			return nil, ierr.NewError("nil call in batch").
				WithHint("Every batched call must be built").
				Mark(ierr.ErrValidation)
		}
		if c.Value != nil && c.Value.Sign() != 0 {
			return nil, ierr.NewError("batched calls cannot carry value").
				WithHint("Use a single execute call to transfer native value").
				Mark(ierr.ErrValidation)
		}
		dest = append(dest, common.HexToAddress(c.To))
		funcs = append(funcs, c.Data)
	}

	data, err := walletABI.Pack("executeBatch", dest, funcs)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode smart account batch").
			Mark(ierr.ErrSystem)
	}
	return data, nil
}
