package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultPath is where Load looks for a config file when none is given
const DefaultPath = "configs/config.yaml"

// EnvPrefix prefixes every environment override, e.g. PTD_SERVER_PORT
const EnvPrefix = "PTD_"

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment" validate:"oneof=development staging production test"`
	LogLevel    string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Security  SecurityConfig  `koanf:"security"`

	Risk      RiskConfig      `koanf:"risk"`
	KYC       KYCConfig       `koanf:"kyc"`
	Providers ProvidersConfig `koanf:"providers"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL          string        `koanf:"url"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db" validate:"min=0"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	MaxRetries   int           `koanf:"max_retries"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// AssessmentTTL bounds how long the latest assessment stays cached
	AssessmentTTL time.Duration `koanf:"assessment_ttl"`
}

type TelemetryConfig struct {
	Enabled      bool          `koanf:"enabled"`
	ServiceName  string        `koanf:"service_name"`
	OTLPEndpoint string        `koanf:"otlp_endpoint"`
	Insecure     bool          `koanf:"insecure"`
	SamplingRate float64       `koanf:"sampling_rate" validate:"min=0,max=1"`
	BatchTimeout time.Duration `koanf:"batch_timeout"`
}

type SecurityConfig struct {
	JWTSecret string          `koanf:"jwt_secret"`
	JWTIssuer string          `koanf:"jwt_issuer"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled           bool          `koanf:"enabled"`
	RequestsPerWindow int           `koanf:"requests_per_window" validate:"min=1"`
	Window            time.Duration `koanf:"window" validate:"gt=0"`
}

// RiskConfig mirrors the risk engine thresholds
type RiskConfig struct {
	HighAmount           float64 `koanf:"high_amount" validate:"gt=0"`
	ElevatedAmount       float64 `koanf:"elevated_amount" validate:"gt=0,ltfield=HighAmount"`
	AmountDeviationRatio float64 `koanf:"amount_deviation_ratio" validate:"gt=0"`

	HistoryLookback             time.Duration `koanf:"history_lookback" validate:"gt=0"`
	HistoryLimit                int           `koanf:"history_limit" validate:"min=1"`
	DisputeWindow               time.Duration `koanf:"dispute_window" validate:"gt=0"`
	MinCompletionRate           float64       `koanf:"min_completion_rate" validate:"min=0,max=1"`
	MinHistoryForCompletionRate int           `koanf:"min_history_for_completion_rate" validate:"min=1"`

	HighRiskPaymentMethods   []string `koanf:"high_risk_payment_methods"`
	MediumRiskPaymentMethods []string `koanf:"medium_risk_payment_methods"`

	MinOCRConfidence        float64  `koanf:"min_ocr_confidence" validate:"min=0,max=1"`
	UrgencyKeywords         []string `koanf:"urgency_keywords"`
	MaxCounterpartyMessages int      `koanf:"max_counterparty_messages" validate:"min=1"`
	KYCMinScore             float64  `koanf:"kyc_min_score" validate:"min=0,max=1"`

	ActiveHoursStart int           `koanf:"active_hours_start" validate:"min=0,max=23"`
	ActiveHoursEnd   int           `koanf:"active_hours_end" validate:"min=0,max=23,gtefield=ActiveHoursStart"`
	RapidOrderWindow time.Duration `koanf:"rapid_order_window" validate:"gt=0"`
	RapidOrderLimit  int           `koanf:"rapid_order_limit" validate:"min=1"`

	SeverityWeights SeverityWeights `koanf:"severity_weights"`

	LevelMediumMin   float64 `koanf:"level_medium_min" validate:"gt=0"`
	LevelHighMin     float64 `koanf:"level_high_min" validate:"gtfield=LevelMediumMin"`
	LevelCriticalMin float64 `koanf:"level_critical_min" validate:"gtfield=LevelHighMin,max=1"`

	AutoApproveMaxScore float64 `koanf:"auto_approve_max_score" validate:"min=0"`
	ReviewMinScore      float64 `koanf:"review_min_score" validate:"gtfield=AutoApproveMaxScore,max=1"`

	LookupTimeout     time.Duration `koanf:"lookup_timeout" validate:"gt=0"`
	ParallelAssessors bool          `koanf:"parallel_assessors"`
}

type SeverityWeights struct {
	Low      float64 `koanf:"low" validate:"gt=0"`
	Medium   float64 `koanf:"medium" validate:"gt=0"`
	High     float64 `koanf:"high" validate:"gt=0"`
	Critical float64 `koanf:"critical" validate:"gt=0"`
}

// KYCConfig mirrors the verification engine weights and thresholds
type KYCConfig struct {
	Weights CheckWeights `koanf:"weights"`

	ReasonPenalty     float64       `koanf:"reason_penalty" validate:"min=0"`
	ApproveMinScore   float64       `koanf:"approve_min_score" validate:"max=1"`
	RejectBelowScore  float64       `koanf:"reject_below_score" validate:"min=0,ltfield=ApproveMinScore"`
	SanctionsKeyword  string        `koanf:"sanctions_keyword" validate:"required"`
	ProviderTimeout   time.Duration `koanf:"provider_timeout" validate:"gt=0"`
	ParallelDocuments bool          `koanf:"parallel_documents"`
}

type CheckWeights struct {
	DocumentValid       float64 `koanf:"document_valid" validate:"min=0"`
	FaceMatch           float64 `koanf:"face_match" validate:"min=0"`
	LivenessCheck       float64 `koanf:"liveness_check" validate:"min=0"`
	SanctionsCheck      float64 `koanf:"sanctions_check" validate:"min=0"`
	AddressVerification float64 `koanf:"address_verification" validate:"min=0"`
}

// Sum adds up all weights
func (w CheckWeights) Sum() float64 {
	return w.DocumentValid + w.FaceMatch + w.LivenessCheck + w.SanctionsCheck + w.AddressVerification
}

// ProvidersConfig holds one endpoint per verification capability. A
// capability with an empty base URL is left unconfigured.
type ProvidersConfig struct {
	Authenticity ProviderConfig `koanf:"authenticity"`
	FaceMatch    ProviderConfig `koanf:"face_match"`
	Liveness     ProviderConfig `koanf:"liveness"`
	Address      ProviderConfig `koanf:"address"`
	Sanctions    ProviderConfig `koanf:"sanctions"`
}

type ProviderConfig struct {
	BaseURL      string        `koanf:"base_url" validate:"omitempty,url"`
	APIKey       string        `koanf:"api_key"`
	Timeout      time.Duration `koanf:"timeout"`
	RateLimitRPS int           `koanf:"rate_limit_rps" validate:"min=0"`

	FailureThreshold int           `koanf:"failure_threshold" validate:"min=0"`
	RecoveryTimeout  time.Duration `koanf:"recovery_timeout"`
	SuccessThreshold int           `koanf:"success_threshold" validate:"min=0"`

	// CacheTTL is only honoured for sanctions screening
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// Configured reports whether the capability has an endpoint
func (p ProviderConfig) Configured() bool {
	return p.BaseURL != ""
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:      10,
			MinIdleConns:  2,
			MaxRetries:    3,
			DialTimeout:   5 * time.Second,
			ReadTimeout:   3 * time.Second,
			WriteTimeout:  3 * time.Second,
			AssessmentTTL: 24 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			ServiceName:  "p2p-trade-desk",
			OTLPEndpoint: "localhost:4317",
			Insecure:     true,
			SamplingRate: 1.0,
			BatchTimeout: 5 * time.Second,
		},
		Security: SecurityConfig{
			JWTIssuer: "p2p-trade-desk",
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerWindow: 120,
				Window:            time.Minute,
			},
		},
		Risk: RiskConfig{
			HighAmount:                  10000,
			ElevatedAmount:              5000,
			AmountDeviationRatio:        2.0,
			HistoryLookback:             720 * time.Hour,
			HistoryLimit:                50,
			DisputeWindow:               30 * 24 * time.Hour,
			MinCompletionRate:           0.8,
			MinHistoryForCompletionRate: 5,
			HighRiskPaymentMethods:      []string{"CASH", "GIFT_CARDS", "PREPAID_CARDS"},
			MediumRiskPaymentMethods:    []string{"PAYPAL", "VENMO", "CASHAPP"},
			MinOCRConfidence:            0.7,
			UrgencyKeywords:             []string{"urgent", "hurry", "quick", "fast", "emergency", "problem"},
			MaxCounterpartyMessages:     20,
			KYCMinScore:                 0.6,
			ActiveHoursStart:            6,
			ActiveHoursEnd:              22,
			RapidOrderWindow:            24 * time.Hour,
			RapidOrderLimit:             3,
			SeverityWeights: SeverityWeights{
				Low:      0.1,
				Medium:   0.3,
				High:     0.6,
				Critical: 1.0,
			},
			LevelMediumMin:      0.3,
			LevelHighMin:        0.6,
			LevelCriticalMin:    0.8,
			AutoApproveMaxScore: 0.2,
			ReviewMinScore:      0.7,
			LookupTimeout:       3 * time.Second,
			ParallelAssessors:   true,
		},
		KYC: KYCConfig{
			Weights: CheckWeights{
				DocumentValid:       0.30,
				FaceMatch:           0.20,
				LivenessCheck:       0.15,
				SanctionsCheck:      0.25,
				AddressVerification: 0.10,
			},
			ReasonPenalty:     0.1,
			ApproveMinScore:   0.9,
			RejectBelowScore:  0.3,
			SanctionsKeyword:  "sanction",
			ProviderTimeout:   10 * time.Second,
			ParallelDocuments: true,
		},
		Providers: ProvidersConfig{
			Sanctions: ProviderConfig{
				CacheTTL: 6 * time.Hour,
			},
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and PTD_ environment variables, in that order. An empty path means
// DefaultPath.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = DefaultPath
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading config file %s: %w", path, err)
	}

	// PTD_RISK_HIGH_AMOUNT -> risk.high_amount. Only the first underscore
	// after each known section is a separator.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// sections lists the nested keys an environment variable may address.
// Longer names come first so providers_face_match wins over providers.
var sections = []string{
	"providers.authenticity",
	"providers.face_match",
	"providers.liveness",
	"providers.address",
	"providers.sanctions",
	"risk.severity_weights",
	"security.rate_limit",
	"kyc.weights",
	"server",
	"database",
	"redis",
	"telemetry",
	"security",
	"risk",
	"kyc",
	"providers",
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range sections {
		prefix := strings.ReplaceAll(section, ".", "_") + "_"
		if strings.HasPrefix(key, prefix) {
			return section + "." + strings.TrimPrefix(key, prefix)
		}
	}
	return key
}

var validate = validator.New()

// Validate checks struct constraints plus the cross-field rules the tags
// cannot express
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if sum := c.KYC.Weights.Sum(); math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("invalid configuration: kyc check weights must sum to 1.0, got %.4f", sum)
	}

	if c.Environment == "production" && c.Security.JWTSecret == "" {
		return fmt.Errorf("invalid configuration: security.jwt_secret is required in production")
	}

	return nil
}
