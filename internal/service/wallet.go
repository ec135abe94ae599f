package service

import (
	"context"
	"math/big"
	"time"

	"github.com/settlehq/settle/internal/api/dto"
	"github.com/settlehq/settle/internal/cache"
	"github.com/settlehq/settle/internal/types"
	"github.com/sourcegraph/conc/pool"
)

const (
	nativeDecimals   = 18
	walletBalanceTTL = 15 * time.Second
)

type WalletService interface {
	// GetBalances reads the settlement token and gas token balances of address
	GetBalances(ctx context.Context, address string) (*dto.WalletBalanceResponse, error)
}

type walletService struct {
	ServiceParams
}

func NewWalletService(params ServiceParams) WalletService {
	return &walletService{ServiceParams: params}
}

func (s *walletService) GetBalances(ctx context.Context, address string) (*dto.WalletBalanceResponse, error) {
	address, err := types.NormalizeWalletAddress(address)
	if err != nil {
		return nil, err
	}

	key := cache.GenerateKey(cache.PrefixWalletBalance, address)
	if cached, ok := cache.GetJSON[dto.WalletBalanceResponse](ctx, s.Cache, key); ok {
		return cached, nil
	}

	var token, native *big.Int
	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		var err error
		token, err = s.Chain.GetTokenBalance(ctx, address)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		native, err = s.Chain.GetNativeBalance(ctx, address)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	resp := &dto.WalletBalanceResponse{
		Address:     address,
		Token:       types.ToDecimal(token, s.Chain.TokenDecimals()),
		TokenSymbol: s.Config.Chain.TokenSymbol,
		Native:      types.ToDecimal(native, nativeDecimals),
	}

	cache.SetJSON(ctx, s.Cache, key, resp, walletBalanceTTL)
	return resp, nil
}
