package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/order"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/service/kyc"
)

var (
	_ kyc.DocumentAuthenticityChecker = (*HTTPProvider)(nil)
	_ kyc.FaceMatchService            = (*HTTPProvider)(nil)
	_ kyc.LivenessChecker             = (*HTTPProvider)(nil)
	_ kyc.AddressVerifier             = (*HTTPProvider)(nil)
	_ kyc.SanctionsListChecker        = SanctionsChecker{}
)

// HTTPConfig contains configuration for one verification provider endpoint
type HTTPConfig struct {
	Name         string
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	RateLimitRPS int

	Circuit CircuitConfig
}

// HTTPProvider talks JSON over HTTP to an identity verification vendor.
// One instance serves one base URL; the engine only calls the method for
// the capability it was wired to.
type HTTPProvider struct {
	config      HTTPConfig
	client      *http.Client
	rateLimiter *rate.Limiter
	breaker     *circuitBreaker
	tracer      trace.Tracer
}

// NewHTTPProvider creates a new provider client
func NewHTTPProvider(config HTTPConfig) *HTTPProvider {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimitRPS == 0 {
		config.RateLimitRPS = 10
	}
	if config.Name == "" {
		config.Name = "http"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &HTTPProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		rateLimiter: rate.NewLimiter(rate.Limit(config.RateLimitRPS), config.RateLimitRPS*2),
		breaker:     newCircuitBreaker(config.Circuit),
		tracer:      telemetry.Tracer("github.com/davidleathers/p2p-trade-desk-backend/internal/service/kyc/providers"),
	}
}

// Name returns the provider name
func (p *HTTPProvider) Name() string {
	return p.config.Name
}

// CircuitState returns the current circuit breaker state
func (p *HTTPProvider) CircuitState() CircuitState {
	return p.breaker.State()
}

type validateRequest struct {
	DocumentID   string            `json:"document_id"`
	DocumentType string            `json:"document_type"`
	Fields       map[string]string `json:"fields"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

// Validate asks the vendor whether the document is genuine
func (p *HTTPProvider) Validate(ctx context.Context, doc order.Document, fields map[string]string) (bool, error) {
	var resp validateResponse
	err := p.post(ctx, "/v1/documents/validate", validateRequest{
		DocumentID:   doc.ID,
		DocumentType: string(doc.Type),
		Fields:       fields,
	}, &resp)
	return resp.Valid, err
}

type faceMatchRequest struct {
	DocumentID string `json:"document_id"`
	SelfieID   string `json:"selfie_id"`
}

type faceMatchResponse struct {
	Match      bool    `json:"match"`
	Confidence float64 `json:"confidence"`
}

// Compare matches the portrait on idDocument against selfie
func (p *HTTPProvider) Compare(ctx context.Context, idDocument, selfie order.Document) (bool, error) {
	var resp faceMatchResponse
	err := p.post(ctx, "/v1/face-match", faceMatchRequest{
		DocumentID: idDocument.ID,
		SelfieID:   selfie.ID,
	}, &resp)
	return resp.Match, err
}

type livenessRequest struct {
	SelfieID string `json:"selfie_id"`
}

type livenessResponse struct {
	Live bool `json:"live"`
}

// Check runs a liveness check on the selfie
func (p *HTTPProvider) Check(ctx context.Context, selfie order.Document) (bool, error) {
	var resp livenessResponse
	err := p.post(ctx, "/v1/liveness", livenessRequest{SelfieID: selfie.ID}, &resp)
	return resp.Live, err
}

type addressRequest struct {
	Address *string `json:"address"`
}

type addressResponse struct {
	Verified bool `json:"verified"`
}

// Verify verifies a postal address. A nil address is sent as null and the
// vendor decides.
func (p *HTTPProvider) Verify(ctx context.Context, address *string) (bool, error) {
	var resp addressResponse
	err := p.post(ctx, "/v1/addresses/verify", addressRequest{Address: address}, &resp)
	return resp.Verified, err
}

// SanctionsChecker adapts the provider to kyc.SanctionsListChecker, whose
// Check would otherwise collide with the liveness Check
type SanctionsChecker struct {
	*HTTPProvider
}

// NewSanctionsChecker wraps p for sanctions screening
func NewSanctionsChecker(p *HTTPProvider) SanctionsChecker {
	return SanctionsChecker{HTTPProvider: p}
}

type sanctionsRequest struct {
	FullName string `json:"full_name"`
}

type sanctionsResponse struct {
	Listed bool `json:"listed"`
}

// Screen reports whether fullName is on a sanctions list
func (p *HTTPProvider) Screen(ctx context.Context, fullName string) (bool, error) {
	var resp sanctionsResponse
	err := p.post(ctx, "/v1/sanctions/screen", sanctionsRequest{FullName: fullName}, &resp)
	return resp.Listed, err
}

// Check satisfies kyc.SanctionsListChecker
func (s SanctionsChecker) Check(ctx context.Context, fullName string) (bool, error) {
	return s.Screen(ctx, fullName)
}

func (p *HTTPProvider) post(ctx context.Context, path string, body, out interface{}) (err error) {
	ctx, span := p.tracer.Start(ctx, "provider."+p.config.Name, trace.WithAttributes(
		attribute.String("provider.name", p.config.Name),
		attribute.String("http.route", path),
	))
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
			span.SetStatus(codes.Error, "provider call failed")
		}
		span.End()
	}()

	if !p.breaker.Allow() {
		return &ProviderError{
			Code:     ErrCodeCircuitOpen,
			Message:  "Circuit breaker is open",
			Provider: p.config.Name,
			Retry:    true,
		}
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return &ProviderError{
			Code:     ErrCodeRateLimitExceeded,
			Message:  fmt.Sprintf("Rate limit wait aborted: %v", err),
			Provider: p.config.Name,
			Retry:    true,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return &ProviderError{
			Code:     ErrCodeInvalidRequest,
			Message:  fmt.Sprintf("Failed to encode request: %v", err),
			Provider: p.config.Name,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &ProviderError{
			Code:     ErrCodeInvalidRequest,
			Message:  fmt.Sprintf("Failed to create request: %v", err),
			Provider: p.config.Name,
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.breaker.RecordFailure()
		return &ProviderError{
			Code:     ErrCodeConnectionFailed,
			Message:  fmt.Sprintf("Request failed: %v", err),
			Provider: p.config.Name,
			Retry:    true,
		}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		perr := p.handleHTTPError(resp)
		if perr.Retry {
			p.breaker.RecordFailure()
		}
		return perr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		p.breaker.RecordFailure()
		return &ProviderError{
			Code:     ErrCodeInvalidResponse,
			Message:  fmt.Sprintf("Failed to parse response: %v", err),
			Provider: p.config.Name,
		}
	}

	p.breaker.RecordSuccess()
	return nil
}

func (p *HTTPProvider) handleHTTPError(resp *http.Response) *ProviderError {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ProviderError{
			Code:     ErrCodeAuthenticationFailed,
			Message:  "Authentication failed",
			Provider: p.config.Name,
			Retry:    false,
		}
	case http.StatusTooManyRequests:
		return &ProviderError{
			Code:     ErrCodeRateLimitExceeded,
			Message:  "Rate limit exceeded",
			Provider: p.config.Name,
			Retry:    true,
		}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &ProviderError{
			Code:     ErrCodeInvalidRequest,
			Message:  "Bad request",
			Provider: p.config.Name,
			Retry:    false,
		}
	case http.StatusServiceUnavailable:
		return &ProviderError{
			Code:     ErrCodeProviderUnavailable,
			Message:  "Service unavailable",
			Provider: p.config.Name,
			Retry:    true,
		}
	default:
		return &ProviderError{
			Code:     ErrCodeProviderUnavailable,
			Message:  fmt.Sprintf("HTTP %d", resp.StatusCode),
			Provider: p.config.Name,
			Retry:    resp.StatusCode >= 500,
		}
	}
}
