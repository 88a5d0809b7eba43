package risk

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
)

// Config carries every threshold and weight the engine uses. Engines built
// from different configs never share state.
type Config struct {
	HighAmount           decimal.Decimal
	ElevatedAmount       decimal.Decimal
	AmountDeviationRatio float64

	HistoryLookback             time.Duration
	HistoryLimit                int
	DisputeWindow               time.Duration
	MinCompletionRate           float64
	MinHistoryForCompletionRate int

	HighRiskPaymentMethods   []string
	MediumRiskPaymentMethods []string

	MinOCRConfidence        float64
	UrgencyKeywords         []string
	MaxCounterpartyMessages int
	KYCMinScore             float64

	ActiveHoursStart int
	ActiveHoursEnd   int
	RapidOrderWindow time.Duration
	RapidOrderLimit  int

	SeverityWeights map[domain.Severity]float64

	LevelMediumMin   float64
	LevelHighMin     float64
	LevelCriticalMin float64

	AutoApproveMaxScore float64
	ReviewMinScore      float64

	LookupTimeout     time.Duration
	ParallelAssessors bool
}

// DefaultConfig returns the production thresholds
func DefaultConfig() Config {
	return Config{
		HighAmount:                  decimal.NewFromInt(DefaultHighAmount),
		ElevatedAmount:              decimal.NewFromInt(DefaultElevatedAmount),
		AmountDeviationRatio:        DefaultAmountDeviationRatio,
		HistoryLookback:             DefaultHistoryLookback,
		HistoryLimit:                DefaultHistoryLimit,
		DisputeWindow:               DefaultDisputeWindow,
		MinCompletionRate:           DefaultMinCompletionRate,
		MinHistoryForCompletionRate: DefaultMinHistoryForCompletionRate,
		HighRiskPaymentMethods:      []string{"CASH", "GIFT_CARDS", "PREPAID_CARDS"},
		MediumRiskPaymentMethods:    []string{"PAYPAL", "VENMO", "CASHAPP"},
		MinOCRConfidence:            DefaultMinOCRConfidence,
		UrgencyKeywords:             []string{"urgent", "hurry", "quick", "fast", "emergency", "problem"},
		MaxCounterpartyMessages:     DefaultMaxCounterpartyMessages,
		KYCMinScore:                 DefaultKYCMinScore,
		ActiveHoursStart:            DefaultActiveHoursStart,
		ActiveHoursEnd:              DefaultActiveHoursEnd,
		RapidOrderWindow:            DefaultRapidOrderWindow,
		RapidOrderLimit:             DefaultRapidOrderLimit,
		SeverityWeights:             DefaultSeverityWeights(),
		LevelMediumMin:              DefaultLevelMediumMin,
		LevelHighMin:                DefaultLevelHighMin,
		LevelCriticalMin:            DefaultLevelCriticalMin,
		AutoApproveMaxScore:         DefaultAutoApproveMaxScore,
		ReviewMinScore:              DefaultReviewMinScore,
		LookupTimeout:               DefaultLookupTimeout,
		ParallelAssessors:           true,
	}
}

// DefaultSeverityWeights returns the importance weight of each severity
func DefaultSeverityWeights() map[domain.Severity]float64 {
	return map[domain.Severity]float64{
		domain.SeverityLow:      0.1,
		domain.SeverityMedium:   0.3,
		domain.SeverityHigh:     0.6,
		domain.SeverityCritical: 1.0,
	}
}

// Validate checks the thresholds are usable
func (c Config) Validate() error {
	for _, s := range []domain.Severity{domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical} {
		w, ok := c.SeverityWeights[s]
		if !ok {
			return fmt.Errorf("missing severity weight for %s", s)
		}
		if w <= 0 {
			return fmt.Errorf("severity weight for %s must be positive", s)
		}
	}

	if !(c.LevelMediumMin < c.LevelHighMin && c.LevelHighMin < c.LevelCriticalMin) {
		return fmt.Errorf("risk level cut points must be strictly increasing")
	}

	if c.AutoApproveMaxScore < 0 || c.AutoApproveMaxScore >= c.ReviewMinScore || c.ReviewMinScore > 1 {
		return fmt.Errorf("auto-approve ceiling must be below review floor within [0,1]")
	}

	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history limit must be positive")
	}

	if c.ActiveHoursStart < 0 || c.ActiveHoursEnd > 23 || c.ActiveHoursStart > c.ActiveHoursEnd {
		return fmt.Errorf("active hours must satisfy 0 <= start <= end <= 23")
	}

	if c.LookupTimeout <= 0 {
		return fmt.Errorf("lookup timeout must be positive")
	}

	return nil
}
