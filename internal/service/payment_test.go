package service

import (
	"testing"

	"github.com/settlehq/settle/internal/api/dto"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/relay"
	"github.com/settlehq/settle/internal/testutil"
	"github.com/stretchr/testify/suite"
)

type PaymentServiceSuite struct {
	serviceSuite
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) TestSponsorGas() {
	op := relay.NewUserOperation(testutil.TestClientWallet, "0xdeadbeef", "0xsig")

	resp, err := s.payments.SponsorGas(s.GetContext(), &dto.SponsorGasRequest{UserOp: op})
	s.Require().NoError(err)
	s.Equal(s.GetRelay().LastSubmittedHash(), resp.UserOpHash)
	s.Equal(testutil.TestPaymasterAddress, resp.UserOp.PaymasterAndData)

	custom, err := s.payments.SponsorGas(s.GetContext(), &dto.SponsorGasRequest{UserOp: op, PaymasterAndData: "0xcustom"})
	s.Require().NoError(err)
	s.Equal("0xcustom", custom.UserOp.PaymasterAndData)
}

func (s *PaymentServiceSuite) TestSponsorGasValidation() {
	_, err := s.payments.SponsorGas(s.GetContext(), &dto.SponsorGasRequest{})
	s.True(ierr.IsValidation(err))

	_, err = s.payments.SponsorGas(s.GetContext(), &dto.SponsorGasRequest{
		UserOp: relay.NewUserOperation("not-a-wallet", "0x", ""),
	})
	s.True(ierr.IsValidation(err))
}

func (s *PaymentServiceSuite) TestSponsorGasRelayDown() {
	s.GetRelay().SponsorErr = testutil.ErrRelayDown
	_, err := s.payments.SponsorGas(s.GetContext(), &dto.SponsorGasRequest{
		UserOp: relay.NewUserOperation(testutil.TestClientWallet, "0x", ""),
	})
	s.True(ierr.IsDependencyUnavailable(err))
	s.Empty(s.GetRelay().Submitted)
}
