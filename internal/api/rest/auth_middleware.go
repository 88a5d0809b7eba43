package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AuthConfig holds operator authentication configuration
type AuthConfig struct {
	JWTSecret []byte
	Issuer    string
	Leeway    time.Duration
}

// Claims represents operator JWT claims. The subject is the operator id.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// AuthMiddleware authenticates operators with HS256 bearer tokens
type AuthMiddleware struct {
	config AuthConfig
	tracer trace.Tracer
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(config AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{
		config: config,
		tracer: otel.Tracer("api.rest.auth"),
	}
}

// Middleware rejects requests without a valid operator token
func (a *AuthMiddleware) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := a.tracer.Start(r.Context(), "auth.middleware")
			defer span.End()

			token, err := extractBearerToken(r)
			if err != nil {
				span.RecordError(err)
				writeErrorEnvelope(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization header")
				return
			}

			claims, err := a.ValidateToken(token)
			if err != nil {
				span.RecordError(err)
				writeErrorEnvelope(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
				return
			}

			span.SetAttributes(attribute.String("operator.id", claims.Subject))
			next.ServeHTTP(w, r.WithContext(withOperator(ctx, claims.Subject)))
		})
	}
}

// ValidateToken parses and verifies an operator token
func (a *AuthMiddleware) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.config.Leeway),
	}
	if a.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.config.Issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		if len(a.config.JWTSecret) == 0 {
			return nil, errors.New("jwt secret not configured")
		}
		return a.config.JWTSecret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return claims, nil
}

// IssueToken signs an operator token valid for ttl
func (a *AuthMiddleware) IssueToken(operatorID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorID,
			Issuer:    a.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.config.JWTSecret)
}

func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing authorization header")
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("invalid authorization header format")
	}

	return strings.TrimSpace(token), nil
}
