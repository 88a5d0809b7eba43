package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/kyc"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/order"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
)

// OrderRepository mock covering both the order and the history lookups
type OrderRepository struct {
	mock.Mock
}

func (m *OrderRepository) GetByID(ctx context.Context, orderID string) (*order.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *OrderRepository) RecentByCounterparty(ctx context.Context, counterpartyID string, window time.Duration) ([]*order.Order, error) {
	args := m.Called(ctx, counterpartyID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *OrderRepository) HistoryByCounterparty(ctx context.Context, counterpartyID string, limit int) ([]*order.Order, error) {
	args := m.Called(ctx, counterpartyID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

// ResultSink mock for both engines' persistence
type ResultSink struct {
	mock.Mock
}

func (m *ResultSink) UpsertRiskAssessment(ctx context.Context, a *risk.Assessment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *ResultSink) CreateKycVerification(ctx context.Context, v *kyc.Verification) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

// AssessmentReader mock
type AssessmentReader struct {
	mock.Mock
}

func (m *AssessmentReader) GetLatestAssessment(ctx context.Context, orderID string) (*risk.Assessment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*risk.Assessment), args.Error(1)
}
