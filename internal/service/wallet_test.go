package service

import (
	"math/big"
	"strings"
	"testing"

	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/testutil"
	"github.com/stretchr/testify/suite"
)

type WalletServiceSuite struct {
	serviceSuite
}

func TestWalletService(t *testing.T) {
	suite.Run(t, new(WalletServiceSuite))
}

func (s *WalletServiceSuite) TestGetBalances() {
	native, _ := new(big.Int).SetString("1500000000000000000", 10)
	s.GetChain().SetBalances(testutil.TestClientWallet, big.NewInt(12_345_678), native)

	resp, err := s.wallets.GetBalances(s.GetContext(), strings.ToUpper(testutil.TestClientWallet[2:]))
	s.True(ierr.IsValidation(err), "addresses need the 0x prefix")
	s.Nil(resp)

	resp, err = s.wallets.GetBalances(s.GetContext(), testutil.TestClientWallet)
	s.Require().NoError(err)
	s.Equal("12.345678", resp.Token.String())
	s.Equal("1.5", resp.Native.String())
	s.Equal("USDC", resp.TokenSymbol)

	// cached balances survive a chain outage
	s.GetChain().Err = testutil.ErrRelayDown
	cached, err := s.wallets.GetBalances(s.GetContext(), testutil.TestClientWallet)
	s.Require().NoError(err)
	s.Equal(resp.Token.String(), cached.Token.String())
}

func (s *WalletServiceSuite) TestGetBalancesChainDown() {
	s.GetChain().Err = ierr.NewError("rpc down").Mark(ierr.ErrChainUnavailable)

	_, err := s.wallets.GetBalances(s.GetContext(), testutil.TestClientWallet)
	s.True(ierr.IsDependencyUnavailable(err))
}
