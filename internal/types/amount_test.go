package types

import (
	"math/big"
	"testing"

	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int32
		want     string
		wantErr  bool
	}{
		{name: "whole amount", amount: "100", decimals: 6, want: "100000000"},
		{name: "fractional amount", amount: "100.50", decimals: 6, want: "100500000"},
		{name: "zero", amount: "0", decimals: 6, want: "0"},
		{name: "smallest unit", amount: "0.000001", decimals: 6, want: "1"},
		{name: "truncates beyond precision", amount: "1.0000019", decimals: 6, want: "1000001"},
		{name: "eighteen decimals", amount: "1.5", decimals: 18, want: "1500000000000000000"},
		{name: "negative amount", amount: "-1", decimals: 6, wantErr: true},
		{name: "unsupported precision", amount: "1", decimals: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMinorUnits(decimal.RequireFromString(tt.amount), tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ierr.IsConversion(err))
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestToDecimal(t *testing.T) {
	got := ToDecimal(big.NewInt(100500000), 6)
	assert.True(t, got.Equal(decimal.RequireFromString("100.5")), "got %s", got)

	assert.True(t, ToDecimal(nil, 6).IsZero())
	assert.True(t, ToDecimal(big.NewInt(0), 6).IsZero())
}

func TestAmountRoundTrip(t *testing.T) {
	amounts := []string{"100.50", "0", "0.000001", "123456789.123456", "42"}

	for _, a := range amounts {
		t.Run(a, func(t *testing.T) {
			d := decimal.RequireFromString(a)
			minor, err := ToMinorUnits(d, DefaultTokenDecimals)
			require.NoError(t, err)
			assert.True(t, ToDecimal(minor, DefaultTokenDecimals).Equal(d))
		})
	}
}

func TestParseAmount(t *testing.T) {
	_, err := ParseAmount("abc")
	require.Error(t, err)
	assert.True(t, ierr.IsConversion(err))

	_, err = ParseAmount("  ")
	require.Error(t, err)
	assert.True(t, ierr.IsConversion(err))

	d, err := ParseAmount(" 12.5 ")
	require.NoError(t, err)
	assert.Equal(t, "12.5", d.String())

	minor, err := StringToMinorUnits("2.25", 6)
	require.NoError(t, err)
	assert.Equal(t, int64(2250000), minor.Int64())
}
