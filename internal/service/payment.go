package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/settlehq/settle/internal/api/dto"
)

// PaymentService exposes the gas sponsorship endpoint used by wallets that build their own operations
type PaymentService interface {
	SponsorGas(ctx context.Context, req *dto.SponsorGasRequest) (*dto.SponsorGasResponse, error)
}

type paymentService struct {
	ServiceParams
}

func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{ServiceParams: params}
}

func (s *paymentService) SponsorGas(ctx context.Context, req *dto.SponsorGasRequest) (*dto.SponsorGasResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	paymasterData := lo.CoalesceOrEmpty(req.PaymasterAndData, s.Config.Relay.PaymasterAddress)
	sponsored, err := s.Relay.Sponsor(ctx, req.UserOp, paymasterData)
	if err != nil {
		return nil, err
	}

	opHash, err := s.Relay.Submit(ctx, sponsored)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("sponsored user operation submitted",
		"sender", sponsored.Sender,
		"op_hash", opHash,
	)

	return &dto.SponsorGasResponse{
		UserOpHash: opHash,
		UserOp:     sponsored,
	}, nil
}
