package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	domainErrors "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/errors"
)

// ErrorHandler maps errors onto an HTTP status and error body
type ErrorHandler interface {
	HandleError(ctx context.Context, err error) (int, *ErrorResponse)
}

// DefaultErrorHandler maps domain errors by their status code and hides
// everything else behind INTERNAL_ERROR
type DefaultErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultErrorHandler{logger: logger}
}

// HandleError converts err to a status code and response body
func (h *DefaultErrorHandler) HandleError(ctx context.Context, err error) (int, *ErrorResponse) {
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		status := appErr.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "request failed", "code", appErr.Code, "error", err)
			// internal messages may carry driver details
			if appErr.Type == domainErrors.ErrorTypeInternal {
				return status, &ErrorResponse{Code: appErr.Code, Message: "An internal error occurred"}
			}
		}
		return status, &ErrorResponse{Code: appErr.Code, Message: appErr.Message}
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, &ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: validationErr.Message,
			Fields:  validationErr.Fields,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, &ErrorResponse{Code: "REQUEST_TIMEOUT", Message: "Request timed out"}
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout, &ErrorResponse{Code: "REQUEST_CANCELED", Message: "Request was canceled"}
	}

	h.logger.ErrorContext(ctx, "request failed", "error", err)
	return http.StatusInternalServerError, &ErrorResponse{Code: "INTERNAL_ERROR", Message: "An internal error occurred"}
}
