package main

import (
	"log/slog"

	"github.com/shopspring/decimal"

	domainRisk "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/cache"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/config"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/service/kyc"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/service/kyc/providers"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/service/risk"
)

// riskConfig maps the file/env configuration onto the engine's thresholds
func riskConfig(c config.RiskConfig) risk.Config {
	return risk.Config{
		HighAmount:                  decimal.NewFromFloat(c.HighAmount),
		ElevatedAmount:              decimal.NewFromFloat(c.ElevatedAmount),
		AmountDeviationRatio:        c.AmountDeviationRatio,
		HistoryLookback:             c.HistoryLookback,
		HistoryLimit:                c.HistoryLimit,
		DisputeWindow:               c.DisputeWindow,
		MinCompletionRate:           c.MinCompletionRate,
		MinHistoryForCompletionRate: c.MinHistoryForCompletionRate,
		HighRiskPaymentMethods:      c.HighRiskPaymentMethods,
		MediumRiskPaymentMethods:    c.MediumRiskPaymentMethods,
		MinOCRConfidence:            c.MinOCRConfidence,
		UrgencyKeywords:             c.UrgencyKeywords,
		MaxCounterpartyMessages:     c.MaxCounterpartyMessages,
		KYCMinScore:                 c.KYCMinScore,
		ActiveHoursStart:            c.ActiveHoursStart,
		ActiveHoursEnd:              c.ActiveHoursEnd,
		RapidOrderWindow:            c.RapidOrderWindow,
		RapidOrderLimit:             c.RapidOrderLimit,
		SeverityWeights: map[domainRisk.Severity]float64{
			domainRisk.SeverityLow:      c.SeverityWeights.Low,
			domainRisk.SeverityMedium:   c.SeverityWeights.Medium,
			domainRisk.SeverityHigh:     c.SeverityWeights.High,
			domainRisk.SeverityCritical: c.SeverityWeights.Critical,
		},
		LevelMediumMin:      c.LevelMediumMin,
		LevelHighMin:        c.LevelHighMin,
		LevelCriticalMin:    c.LevelCriticalMin,
		AutoApproveMaxScore: c.AutoApproveMaxScore,
		ReviewMinScore:      c.ReviewMinScore,
		LookupTimeout:       c.LookupTimeout,
		ParallelAssessors:   c.ParallelAssessors,
	}
}

func kycConfig(c config.KYCConfig) kyc.Config {
	return kyc.Config{
		Weights: kyc.CheckWeights{
			DocumentValid:       c.Weights.DocumentValid,
			FaceMatch:           c.Weights.FaceMatch,
			LivenessCheck:       c.Weights.LivenessCheck,
			SanctionsCheck:      c.Weights.SanctionsCheck,
			AddressVerification: c.Weights.AddressVerification,
		},
		ReasonPenalty:     c.ReasonPenalty,
		ApproveMinScore:   c.ApproveMinScore,
		RejectBelowScore:  c.RejectBelowScore,
		SanctionsKeyword:  c.SanctionsKeyword,
		ProviderTimeout:   c.ProviderTimeout,
		ParallelDocuments: c.ParallelDocuments,
		Fields:            kyc.DefaultFieldMap(),
	}
}

func httpConfig(name string, c config.ProviderConfig) providers.HTTPConfig {
	return providers.HTTPConfig{
		Name:         name,
		BaseURL:      c.BaseURL,
		APIKey:       c.APIKey,
		Timeout:      c.Timeout,
		RateLimitRPS: c.RateLimitRPS,
		Circuit: providers.CircuitConfig{
			FailureThreshold: c.FailureThreshold,
			RecoveryTimeout:  c.RecoveryTimeout,
			SuccessThreshold: c.SuccessThreshold,
		},
	}
}

// buildProviders wires one HTTP client per configured capability and an
// Unconfigured stand-in for the rest. Sanctions answers are cached in
// Redis when c is non-nil. The HTTP clients are returned for monitoring.
func buildProviders(cfg config.ProvidersConfig, c cache.Cache, logger *slog.Logger) (kyc.Providers, []*providers.HTTPProvider) {
	var clients []*providers.HTTPProvider
	client := func(name string, pc config.ProviderConfig) *providers.HTTPProvider {
		p := providers.NewHTTPProvider(httpConfig(name, pc))
		clients = append(clients, p)
		return p
	}

	ps := kyc.Providers{
		Extractor:    providers.NewPatternExtractor(),
		Authenticity: providers.Unconfigured{Capability: "document_authenticity"},
		FaceMatch:    providers.Unconfigured{Capability: "face_match"},
		Liveness:     providers.Unconfigured{Capability: "liveness"},
		Address:      providers.Unconfigured{Capability: "address_verification"},
		Sanctions:    providers.UnconfiguredSanctions{},
	}

	if cfg.Authenticity.Configured() {
		ps.Authenticity = client("document_authenticity", cfg.Authenticity)
	}
	if cfg.FaceMatch.Configured() {
		ps.FaceMatch = client("face_match", cfg.FaceMatch)
	}
	if cfg.Liveness.Configured() {
		ps.Liveness = client("liveness", cfg.Liveness)
	}
	if cfg.Address.Configured() {
		ps.Address = client("address_verification", cfg.Address)
	}
	if cfg.Sanctions.Configured() {
		var checker kyc.SanctionsListChecker = providers.NewSanctionsChecker(client("sanctions_screening", cfg.Sanctions))
		if c != nil {
			checker = providers.NewCachedSanctionsChecker(checker, c, cfg.Sanctions.CacheTTL, logger)
		}
		ps.Sanctions = checker
	}

	for _, capability := range []struct {
		name       string
		configured bool
	}{
		{"document_authenticity", cfg.Authenticity.Configured()},
		{"face_match", cfg.FaceMatch.Configured()},
		{"liveness", cfg.Liveness.Configured()},
		{"address_verification", cfg.Address.Configured()},
		{"sanctions_screening", cfg.Sanctions.Configured()},
	} {
		if !capability.configured {
			logger.Warn("verification provider not configured; its check will never pass", "capability", capability.name)
		}
	}

	return ps, clients
}
