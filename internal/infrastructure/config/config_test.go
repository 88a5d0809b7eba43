package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10000.0, cfg.Risk.HighAmount)
	assert.Equal(t, 3*time.Second, cfg.Risk.LookupTimeout)
	assert.Equal(t, 0.25, cfg.KYC.Weights.SanctionsCheck)
	assert.Equal(t, 24*time.Hour, cfg.Redis.AssessmentTTL)
	assert.False(t, cfg.Providers.Sanctions.Configured())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
server:
  port: 9000
risk:
  high_amount: 20000
  parallel_assessors: false
providers:
  sanctions:
    base_url: https://sanctions.example.com
    rate_limit_rps: 5
`), 0o600))

	t.Setenv("PTD_SERVER_PORT", "9100")
	t.Setenv("PTD_RISK_REVIEW_MIN_SCORE", "0.75")
	t.Setenv("PTD_PROVIDERS_SANCTIONS_API_KEY", "k-123")
	t.Setenv("PTD_KYC_WEIGHTS_FACE_MATCH", "0.20")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9100, cfg.Server.Port, "environment overrides the file")
	assert.Equal(t, 20000.0, cfg.Risk.HighAmount)
	assert.False(t, cfg.Risk.ParallelAssessors)
	assert.Equal(t, 0.75, cfg.Risk.ReviewMinScore)
	assert.True(t, cfg.Providers.Sanctions.Configured())
	assert.Equal(t, 5, cfg.Providers.Sanctions.RateLimitRPS)
	assert.Equal(t, "k-123", cfg.Providers.Sanctions.APIKey)
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"PTD_SERVER_READ_TIMEOUT":            "server.read_timeout",
		"PTD_PROVIDERS_FACE_MATCH_BASE_URL":  "providers.face_match.base_url",
		"PTD_PROVIDERS_SANCTIONS_CACHE_TTL":  "providers.sanctions.cache_ttl",
		"PTD_RISK_SEVERITY_WEIGHTS_CRITICAL": "risk.severity_weights.critical",
		"PTD_SECURITY_JWT_SECRET":            "security.jwt_secret",
		"PTD_LOG_LEVEL":                      "log_level",
	}

	for in, expected := range tests {
		assert.Equal(t, expected, envKey(in), in)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{
			name:    "kyc weights must sum to one",
			mutate:  func(c *Config) { c.KYC.Weights.FaceMatch = 0.3 },
			wantErr: "sum to 1.0",
		},
		{
			name:    "negative kyc weight",
			mutate:  func(c *Config) { c.KYC.Weights.AddressVerification = -0.1 },
			wantErr: "AddressVerification",
		},
		{
			name:    "level cut points out of order",
			mutate:  func(c *Config) { c.Risk.LevelHighMin = 0.2 },
			wantErr: "LevelHighMin",
		},
		{
			name:    "review floor below auto approve ceiling",
			mutate:  func(c *Config) { c.Risk.ReviewMinScore = 0.1 },
			wantErr: "ReviewMinScore",
		},
		{
			name:    "active hours reversed",
			mutate:  func(c *Config) { c.Risk.ActiveHoursStart = 23; c.Risk.ActiveHoursEnd = 5 },
			wantErr: "ActiveHoursEnd",
		},
		{
			name:    "bad provider url",
			mutate:  func(c *Config) { c.Providers.Liveness.BaseURL = "not a url" },
			wantErr: "BaseURL",
		},
		{
			name:    "production requires jwt secret",
			mutate:  func(c *Config) { c.Environment = "production" },
			wantErr: "jwt_secret",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: "LogLevel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
