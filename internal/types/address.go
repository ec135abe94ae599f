package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ierr "github.com/settlehq/settle/internal/errors"
)

// IsWalletAddress reports whether s is a 0x prefixed 20 byte hex address
func IsWalletAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// NormalizeWalletAddress validates and lower cases a wallet address
func NormalizeWalletAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !IsWalletAddress(s) {
		return "", ierr.NewError("invalid wallet address").
			WithHint("Wallet address must be a 0x prefixed 40 character hex string").
			WithReportableDetails(map[string]any{
				"wallet_address": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return strings.ToLower(s), nil
}
