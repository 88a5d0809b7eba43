package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an AppError for transport mapping and retries
type ErrorType string

const (
	ErrorTypeBusiness ErrorType = "business"
	ErrorTypeNotFound ErrorType = "not_found"
	ErrorTypeInternal ErrorType = "internal"
)

const (
	CodeOrderNotFound       = "ORDER_NOT_FOUND"
	CodeNoIdentityDocuments = "NO_IDENTITY_DOCUMENTS"
	CodeAssessmentNotFound  = "ASSESSMENT_NOT_FOUND"
	CodeInternal            = "INTERNAL_ERROR"
)

var statusByType = map[ErrorType]int{
	ErrorTypeBusiness: 422,
	ErrorTypeNotFound: 404,
	ErrorTypeInternal: 500,
}

// AppError is the error shape both engines return to their callers
type AppError struct {
	Type       ErrorType      `json:"type"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
	Retryable  bool           `json:"retryable"`
	StatusCode int            `json:"status_code"`
}

func newAppError(t ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       t,
		Code:       code,
		Message:    message,
		StatusCode: statusByType[t],
		Retryable:  t == ErrorTypeInternal,
	}
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is compares codes only, so the Err* sentinels match any instance
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) withDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

// NewInternalError hides storage and provider failures behind a generic code
func NewInternalError(message string) *AppError {
	return newAppError(ErrorTypeInternal, CodeInternal, message)
}

// NewOrderNotFoundError reports a missing order. No partial result accompanies it.
func NewOrderNotFoundError(orderID string) *AppError {
	return newAppError(ErrorTypeNotFound, CodeOrderNotFound, fmt.Sprintf("order %s not found", orderID)).
		withDetail("order_id", orderID)
}

// NewNoIdentityDocumentsError reports an order without any ID card, passport
// or driver's license attached.
func NewNoIdentityDocumentsError(orderID string) *AppError {
	return newAppError(ErrorTypeBusiness, CodeNoIdentityDocuments, fmt.Sprintf("order %s has no identity documents", orderID)).
		withDetail("order_id", orderID)
}

// NewAssessmentNotFoundError reports an order that was never assessed
func NewAssessmentNotFoundError(orderID string) *AppError {
	return newAppError(ErrorTypeNotFound, CodeAssessmentNotFound, fmt.Sprintf("no risk assessment for order %s", orderID)).
		withDetail("order_id", orderID)
}

var (
	ErrOrderNotFound       = newAppError(ErrorTypeNotFound, CodeOrderNotFound, "order not found")
	ErrNoIdentityDocuments = newAppError(ErrorTypeBusiness, CodeNoIdentityDocuments, "no identity documents")
	ErrAssessmentNotFound  = newAppError(ErrorTypeNotFound, CodeAssessmentNotFound, "risk assessment not found")
)

// IsType reports whether err wraps an AppError of type t
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// GetStatusCode returns the HTTP status carried by err, 500 when it has none
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return 500
}
