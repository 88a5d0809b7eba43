package risk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/errors"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/order"
	domain "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/telemetry"
)

// service implements the Service interface
type service struct {
	orders  OrderRepository
	history HistoricalOrderRepository
	sink    ResultSink
	metrics MetricsRecorder
	logger  *slog.Logger
	tracer  trace.Tracer

	cfg Config
	now func() time.Time
}

// NewService creates a new risk assessment engine. sink and metrics may be nil.
func NewService(
	orders OrderRepository,
	history HistoricalOrderRepository,
	sink ResultSink,
	metrics MetricsRecorder,
	logger *slog.Logger,
	cfg Config,
) Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		orders:  orders,
		history: history,
		sink:    sink,
		metrics: metrics,
		logger:  logger.With("component", "risk_engine"),
		tracer:  telemetry.Tracer("github.com/davidleathers/p2p-trade-desk-backend/internal/service/risk"),
		cfg:     cfg,
		now:     time.Now,
	}
}

// AssessOrderRisk loads the order and its counterparty history, runs every
// assessor and stores the result
func (s *service) AssessOrderRisk(ctx context.Context, orderID string) (*domain.Assessment, error) {
	ctx, span := s.tracer.Start(ctx, "risk.AssessOrderRisk", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	start := s.now()

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		telemetry.RecordError(span, err)
		span.SetStatus(codes.Error, "order lookup failed")
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return nil, err
		}
		return nil, errors.NewInternalError("failed to load order").WithCause(err)
	}

	in := s.loadInput(ctx, o)
	in.Now = start

	assessment := build(o.ID, s.runAssessors(ctx, in), &s.cfg)
	assessment.AssessedAt = start.UTC()

	span.SetAttributes(
		attribute.Float64("risk.score", assessment.OverallScore),
		attribute.String("risk.recommendation", string(assessment.Recommendation)),
		attribute.Int("risk.factor_count", len(assessment.Factors)),
	)

	if s.sink != nil {
		if err := s.sink.UpsertRiskAssessment(ctx, assessment); err != nil {
			s.logger.ErrorContext(ctx, "failed to store risk assessment",
				"order_id", o.ID,
				"error", err,
			)
		}
	}

	duration := s.now().Sub(start)
	if s.metrics != nil {
		factorTypes := make(map[string]string, len(assessment.Factors))
		for _, f := range assessment.Factors {
			factorTypes[f.Type] = string(f.Severity)
		}
		s.metrics.RecordRiskAssessment(ctx, float64(duration.Microseconds())/1000, assessment.OverallScore, string(assessment.Recommendation), factorTypes)
	}

	s.logger.InfoContext(ctx, "risk assessment completed",
		"order_id", o.ID,
		"score", assessment.OverallScore,
		"risk_level", assessment.Level,
		"recommendation", assessment.Recommendation,
		"factor_count", len(assessment.Factors),
		"duration", duration,
	)

	return assessment, nil
}

// loadInput fetches history and the recent window concurrently. Lookup
// failures are carried on the input for the assessors to report.
func (s *service) loadInput(ctx context.Context, o *order.Order) *input {
	in := &input{Order: o}

	var g errgroup.Group
	g.Go(func() error {
		lctx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
		defer cancel()

		history, err := s.history.HistoryByCounterparty(lctx, o.CounterpartyID, s.cfg.HistoryLimit)
		if err != nil {
			in.HistoryErr = err
			s.logger.WarnContext(ctx, "counterparty history unavailable",
				"order_id", o.ID,
				"counterparty_id", o.CounterpartyID,
				"error", err,
			)
			return nil
		}
		in.History = excludeOrder(history, o.ID)
		return nil
	})
	g.Go(func() error {
		lctx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
		defer cancel()

		recent, err := s.history.RecentByCounterparty(lctx, o.CounterpartyID, s.cfg.HistoryLookback)
		if err != nil {
			in.RecentErr = err
			s.logger.WarnContext(ctx, "recent counterparty activity unavailable",
				"order_id", o.ID,
				"counterparty_id", o.CounterpartyID,
				"error", err,
			)
			return nil
		}
		in.Recent = excludeOrder(recent, o.ID)
		return nil
	})
	_ = g.Wait()

	return in
}

// runAssessors evaluates every assessor and concatenates their factors in
// assessor order, whatever order they finish in
func (s *service) runAssessors(ctx context.Context, in *input) []domain.Factor {
	slots := make([][]domain.Factor, len(assessors))

	if s.cfg.ParallelAssessors {
		var g errgroup.Group
		for i, a := range assessors {
			g.Go(func() error {
				slots[i] = s.safeAssess(ctx, a, in)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, a := range assessors {
			slots[i] = s.safeAssess(ctx, a, in)
		}
	}

	factors := []domain.Factor{}
	for _, slot := range slots {
		factors = append(factors, slot...)
	}
	return factors
}

// safeAssess turns a panicking assessor into a HIGH factor so the run
// still completes and leans toward review
func (s *service) safeAssess(ctx context.Context, a assessor, in *input) (factors []domain.Factor) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "risk assessor panicked",
				"assessor", a.name,
				"order_id", in.Order.ID,
				"panic", fmt.Sprint(r),
			)
			factors = []domain.Factor{{
				Type:        domain.FactorAssessorFailure,
				Severity:    domain.SeverityHigh,
				Score:       ScoreAssessorFailure,
				Description: fmt.Sprintf("Risk check %q could not be evaluated", a.name),
				Details: map[string]interface{}{
					"assessor": a.name,
					"panic":    fmt.Sprint(r),
				},
			}}
		}
	}()

	return a.fn(in, &s.cfg)
}

func excludeOrder(orders []*order.Order, orderID string) []*order.Order {
	out := make([]*order.Order, 0, len(orders))
	for _, o := range orders {
		if o != nil && o.ID != orderID {
			out = append(out, o)
		}
	}
	return out
}
