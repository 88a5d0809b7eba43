package kyc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/errors"
	domain "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/kyc"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/order"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/telemetry"
)

// service implements the Service interface
type service struct {
	orders    OrderRepository
	providers Providers
	sink      ResultSink
	metrics   MetricsRecorder
	logger    *slog.Logger
	tracer    trace.Tracer

	cfg Config
	now func() time.Time
}

// NewService creates a new identity verification engine. sink and metrics may be nil.
func NewService(
	orders OrderRepository,
	providers Providers,
	sink ResultSink,
	metrics MetricsRecorder,
	logger *slog.Logger,
	cfg Config,
) Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Fields == nil {
		cfg.Fields = DefaultFieldMap()
	}

	return &service{
		orders:    orders,
		providers: providers,
		sink:      sink,
		metrics:   metrics,
		logger:    logger.With("component", "kyc_engine"),
		tracer:    telemetry.Tracer("github.com/davidleathers/p2p-trade-desk-backend/internal/service/kyc"),
		cfg:       cfg,
		now:       time.Now,
	}
}

// VerifyIdentity evaluates the order's identity documents and stores a snapshot
func (s *service) VerifyIdentity(ctx context.Context, orderID string) (*domain.Result, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.VerifyIdentity", trace.WithAttributes(attribute.String("order.id", orderID)))
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

	docs := o.IdentityDocuments()
	if len(docs) == 0 {
		err := errors.NewNoIdentityDocumentsError(o.ID)
		span.SetStatus(codes.Error, err.Code)
		return nil, err
	}

	result := &domain.Result{
		OrderID:         o.ID,
		RiskFactors:     []string{},
		Recommendations: []string{},
	}

	if err := s.run(ctx, o, docs, result); err != nil {
		s.logger.ErrorContext(ctx, "identity verification failed, rejecting",
			"order_id", o.ID,
			"error", err,
		)
		telemetry.RecordError(span, err)
		result.Status = domain.StatusRejected
		result.RiskFactors = append(result.RiskFactors, ReasonVerificationFailed)
		result.Recommendations = Recommendations(result.Checks)
	}

	span.SetAttributes(
		attribute.String("kyc.status", string(result.Status)),
		attribute.Float64("kyc.score", result.Score),
		attribute.Int("kyc.reason_count", len(result.RiskFactors)),
	)

	if s.sink != nil {
		if err := s.sink.CreateKycVerification(ctx, domain.NewVerification(result, s.now())); err != nil {
			s.logger.ErrorContext(ctx, "failed to store kyc verification",
				"order_id", o.ID,
				"error", err,
			)
		}
	}

	duration := s.now().Sub(start)
	if s.metrics != nil {
		s.metrics.RecordKYCVerification(ctx, float64(duration.Microseconds())/1000, result.Score, string(result.Status))
	}

	s.logger.InfoContext(ctx, "identity verification completed",
		"order_id", o.ID,
		"status", result.Status,
		"score", result.Score,
		"reason_count", len(result.RiskFactors),
		"documents", len(docs),
		"duration", duration,
	)

	return result, nil
}

// run fills result from the documents. Any panic is returned as an error so
// the caller can fail closed; result keeps whatever was computed before it.
func (s *service) run(ctx context.Context, o *order.Order, docs []order.Document, result *domain.Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("verification panicked: %v", r)
		}
	}()

	cl, err := s.evaluateDocuments(ctx, docs, o.Selfie())
	if err != nil {
		return err
	}
	result.Checks = cl.checks
	result.ExtractedData = cl.data
	result.RiskFactors = cl.reasons

	s.screenSanctions(ctx, cl)
	result.Checks = cl.checks
	result.RiskFactors = cl.reasons

	result.Score = Score(cl.checks, len(cl.reasons), &s.cfg)
	result.Status = Classify(result.Score, cl.reasons, &s.cfg)
	result.Recommendations = Recommendations(cl.checks)

	return nil
}
