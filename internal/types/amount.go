package types

import (
	"math/big"
	"strings"

	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/shopspring/decimal"
)

// DefaultTokenDecimals is the number of fractional digits of the settlement stablecoin
const DefaultTokenDecimals int32 = 6

// ParseAmount parses a decimal string into an amount, rejecting anything that is not numeric
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ierr.NewError("amount is empty").
			WithHint("Amount must be a decimal number").
			Mark(ierr.ErrConversion)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ierr.WithError(err).
			WithHint("Amount must be a decimal number").
			WithReportableDetails(map[string]any{
				"amount": s,
			}).
			Mark(ierr.ErrConversion)
	}
	return d, nil
}

// ToMinorUnits converts a decimal amount into its integer minor unit representation.
// Digits beyond the given precision are truncated.
func ToMinorUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	if decimals < 0 || decimals > 36 {
		return nil, ierr.NewError("unsupported token precision").
			WithHint("Token decimals must be between 0 and 36").
			WithReportableDetails(map[string]any{
				"decimals": decimals,
			}).
			Mark(ierr.ErrConversion)
	}
	if amount.IsNegative() {
		return nil, ierr.NewError("negative amount").
			WithHint("Amount must not be negative").
			WithReportableDetails(map[string]any{
				"amount": amount.String(),
			}).
			Mark(ierr.ErrConversion)
	}
	return amount.Shift(decimals).Truncate(0).BigInt(), nil
}

// ToDecimal converts minor units back into a decimal amount with the given precision
func ToDecimal(minorUnits *big.Int, decimals int32) decimal.Decimal {
	if minorUnits == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(minorUnits, -decimals)
}

// StringToMinorUnits parses and converts in one step
func StringToMinorUnits(s string, decimals int32) (*big.Int, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return nil, err
	}
	return ToMinorUnits(d, decimals)
}
