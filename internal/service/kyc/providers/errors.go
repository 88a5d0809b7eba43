package providers

import (
	"errors"
	"fmt"
)

// ErrProviderNotConfigured is returned by a capability that has no backing provider
var ErrProviderNotConfigured = errors.New("provider not configured")

// ProviderError represents provider-specific errors
type ProviderError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Provider string `json:"provider"`
	Retry    bool   `json:"retry"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Standard error codes
const (
	ErrCodeConnectionFailed     = "CONNECTION_FAILED"
	ErrCodeAuthenticationFailed = "AUTH_FAILED"
	ErrCodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeInvalidResponse      = "INVALID_RESPONSE"
	ErrCodeProviderUnavailable  = "PROVIDER_UNAVAILABLE"
	ErrCodeCircuitOpen          = "CIRCUIT_OPEN"
)

// IsRetryable reports whether err is a provider error worth retrying
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retry
	}
	return false
}
