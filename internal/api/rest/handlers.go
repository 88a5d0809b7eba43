package rest

import (
	"context"
	"log/slog"
	"net/http"

	domainRisk "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/service/kyc"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/service/risk"
)

// AssessmentReader serves the latest stored assessment for an order
type AssessmentReader interface {
	GetLatestAssessment(ctx context.Context, orderID string) (*domainRisk.Assessment, error)
}

// Services holds the engines the REST API exposes
type Services struct {
	Risk        risk.Service
	KYC         kyc.Service
	Assessments AssessmentReader
}

// Handlers implements the order decision endpoints
type Handlers struct {
	*BaseHandler
	services Services
	logger   *slog.Logger
}

// NewHandlers creates the order decision handlers
func NewHandlers(base *BaseHandler, services Services, logger *slog.Logger) *Handlers {
	return &Handlers{
		BaseHandler: base,
		services:    services,
		logger:      logger,
	}
}

type orderPathParams struct {
	OrderID string `validate:"required,order_id"`
}

func (h *Handlers) orderID(r *http.Request) (string, error) {
	params := orderPathParams{OrderID: r.PathValue("orderID")}
	if err := h.ValidateStruct(params); err != nil {
		return "", err
	}
	return params.OrderID, nil
}

func (h *Handlers) handleAssessRisk(ctx context.Context, r *http.Request) (interface{}, error) {
	orderID, err := h.orderID(r)
	if err != nil {
		return nil, err
	}

	operatorID, _ := OperatorFromContext(ctx)
	h.logger.InfoContext(ctx, "risk assessment requested", "order_id", orderID, "operator_id", operatorID)

	return h.services.Risk.AssessOrderRisk(ctx, orderID)
}

func (h *Handlers) handleGetRiskAssessment(ctx context.Context, r *http.Request) (interface{}, error) {
	orderID, err := h.orderID(r)
	if err != nil {
		return nil, err
	}

	return h.services.Assessments.GetLatestAssessment(ctx, orderID)
}

func (h *Handlers) handleVerifyIdentity(ctx context.Context, r *http.Request) (interface{}, error) {
	orderID, err := h.orderID(r)
	if err != nil {
		return nil, err
	}

	operatorID, _ := OperatorFromContext(ctx)
	h.logger.InfoContext(ctx, "kyc verification requested", "order_id", orderID, "operator_id", operatorID)

	return h.services.KYC.VerifyIdentity(ctx, orderID)
}
