package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// ResponseEnvelope wraps all API responses
type ResponseEnvelope struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
	Meta    ResponseMeta   `json:"meta"`
}

// ResponseMeta contains response metadata
type ResponseMeta struct {
	RequestID    string    `json:"request_id"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version,omitempty"`
	ResponseTime string    `json:"response_time,omitempty"`
}

// ErrorResponse carries the error code and a human readable message
type ErrorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
	TraceID string              `json:"trace_id,omitempty"`
}

// APIMetrics receives one observation per handled request
type APIMetrics interface {
	RecordAPIRequest(ctx context.Context, duration float64, method, path string, statusCode int)
}

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	validator    *validator.Validate
	errorHandler ErrorHandler
	metrics      APIMetrics
	logger       *slog.Logger
	apiVersion   string
}

var orderIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]{0,63}$`)

// NewBaseHandler creates a base handler. metrics may be nil.
func NewBaseHandler(apiVersion string, metrics APIMetrics, logger *slog.Logger) *BaseHandler {
	v := validator.New()
	_ = v.RegisterValidation("order_id", validateOrderID)

	return &BaseHandler{
		validator:    v,
		errorHandler: NewErrorHandler(logger),
		metrics:      metrics,
		logger:       logger,
		apiVersion:   apiVersion,
	}
}

// HandlerOption configures handler behavior
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	timeout time.Duration
	status  int
}

// WithTimeout bounds the handler's context
func WithTimeout(d time.Duration) HandlerOption {
	return func(c *handlerConfig) { c.timeout = d }
}

// WrapHandler adapts a typed handler to net/http: it applies the timeout,
// writes the envelope and records request metrics under pattern.
func (h *BaseHandler) WrapHandler(
	method, pattern string,
	handler func(context.Context, *http.Request) (interface{}, error),
	opts ...HandlerOption,
) http.HandlerFunc {
	cfg := &handlerConfig{
		timeout: 30 * time.Second,
		status:  http.StatusOK,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		ctx := r.Context()
		if cfg.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
			defer cancel()
		}
		r = r.WithContext(ctx)

		res, err := handler(ctx, r)
		if err != nil {
			h.handleError(rec, r, err)
		} else {
			h.writeSuccess(rec, r, cfg.status, res, start)
		}

		if h.metrics != nil {
			h.metrics.RecordAPIRequest(ctx, float64(time.Since(start).Microseconds())/1000, method, pattern, rec.statusCode)
		}
	}
}

// ValidateStruct runs the validator over path or body parameters
func (h *BaseHandler) ValidateStruct(v interface{}) error {
	if err := h.validator.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func (h *BaseHandler) writeSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}, start time.Time) {
	response := ResponseEnvelope{
		Success: true,
		Data:    data,
		Meta: ResponseMeta{
			RequestID:    requestID(r),
			Timestamp:    time.Now().UTC(),
			Version:      h.apiVersion,
			ResponseTime: time.Since(start).String(),
		},
	}

	writeJSON(w, status, response)
}

func (h *BaseHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := h.errorHandler.HandleError(r.Context(), err)
	if span := trace.SpanFromContext(r.Context()); span.SpanContext().IsValid() {
		resp.TraceID = span.SpanContext().TraceID().String()
	}

	writeJSON(w, status, ResponseEnvelope{
		Success: false,
		Error:   resp,
		Meta: ResponseMeta{
			RequestID: requestID(r),
			Timestamp: time.Now().UTC(),
			Version:   h.apiVersion,
		},
	})
}

// writeErrorEnvelope is used by middleware that runs before a BaseHandler
func writeErrorEnvelope(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ResponseEnvelope{
		Success: false,
		Error:   &ErrorResponse{Code: code, Message: message},
		Meta: ResponseMeta{
			RequestID: requestID(r),
			Timestamp: time.Now().UTC(),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	// the status line is already out; nothing useful can be done on failure
	_ = json.NewEncoder(w).Encode(v)
}

func requestID(r *http.Request) string {
	if id := requestIDFromContext(r.Context()); id != "" {
		return id
	}
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.New().String()
}

func validateOrderID(fl validator.FieldLevel) bool {
	return orderIDPattern.MatchString(fl.Field().String())
}

// ValidationError represents a request validation failure
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func formatValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{Message: err.Error()}
	}

	fields := make(map[string][]string, len(validationErrs))
	for _, fe := range validationErrs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "order_id":
			msg = "must be 1-64 letters, digits or _.:- characters"
		default:
			msg = fmt.Sprintf("failed %s validation", fe.Tag())
		}
		fields[fe.Field()] = append(fields[fe.Field()], msg)
	}

	return &ValidationError{Message: "Request validation failed", Fields: fields}
}
