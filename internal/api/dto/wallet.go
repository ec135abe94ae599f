package dto

import "github.com/shopspring/decimal"

// WalletBalanceResponse reports the balances of an address on the settlement chain
type WalletBalanceResponse struct {
	Address string `json:"address"`
	// Token is the settlement stablecoin balance in whole units
	Token       decimal.Decimal `json:"token" swaggertype:"string"`
	TokenSymbol string          `json:"token_symbol"`
	// Native is the gas token balance in ether
	Native decimal.Decimal `json:"native" swaggertype:"string"`
}
