package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/kyc"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
)

// RiskService mock
type RiskService struct {
	mock.Mock
}

func (m *RiskService) AssessOrderRisk(ctx context.Context, orderID string) (*risk.Assessment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*risk.Assessment), args.Error(1)
}

// KYCService mock
type KYCService struct {
	mock.Mock
}

func (m *KYCService) VerifyIdentity(ctx context.Context, orderID string) (*kyc.Result, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kyc.Result), args.Error(1)
}
