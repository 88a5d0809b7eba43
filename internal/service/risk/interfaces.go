package risk

import (
	"context"
	"time"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/order"
	domain "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
)

// Service defines the risk assessment engine interface
type Service interface {
	// AssessOrderRisk scores an order and stores the result. It fails only
	// when the order cannot be loaded.
	AssessOrderRisk(ctx context.Context, orderID string) (*domain.Assessment, error)
}

// OrderRepository loads orders with their messages, documents and KYC snapshot
type OrderRepository interface {
	// GetByID returns an error matching errors.ErrOrderNotFound for unknown ids
	GetByID(ctx context.Context, orderID string) (*order.Order, error)
}

// HistoricalOrderRepository provides counterparty history, most recent first
type HistoricalOrderRepository interface {
	RecentByCounterparty(ctx context.Context, counterpartyID string, window time.Duration) ([]*order.Order, error)
	HistoryByCounterparty(ctx context.Context, counterpartyID string, limit int) ([]*order.Order, error)
}

// ResultSink persists assessments keyed by order id
type ResultSink interface {
	UpsertRiskAssessment(ctx context.Context, assessment *domain.Assessment) error
}

// MetricsRecorder receives one observation per assessment
type MetricsRecorder interface {
	RecordRiskAssessment(ctx context.Context, durationMS, score float64, recommendation string, factors map[string]string)
}
