package risk

import (
	"fmt"
	"strings"

	domain "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
)

// Recommend applies the decision tree. The first matching rule wins:
// any CRITICAL factor rejects, any HIGH factor or a score at the review
// floor needs a human, a score at or below the auto-approve ceiling passes,
// and everything else goes to manual review.
func Recommend(score float64, factors []domain.Factor, cfg *Config) domain.Recommendation {
	hasHigh := false
	for _, f := range factors {
		if f.Severity == domain.SeverityCritical {
			return domain.RecommendReject
		}
		if f.Severity == domain.SeverityHigh {
			hasHigh = true
		}
	}

	switch {
	case hasHigh || score >= cfg.ReviewMinScore:
		return domain.RecommendManualReview
	case score <= cfg.AutoApproveMaxScore:
		return domain.RecommendAutoApprove
	default:
		return domain.RecommendManualReview
	}
}

// Notes summarises the factor count and the CRITICAL then HIGH descriptions
func Notes(factors []domain.Factor) string {
	if len(factors) == 0 {
		return NoFactorsNote
	}

	var critical, high []string
	for _, f := range factors {
		switch f.Severity {
		case domain.SeverityCritical:
			critical = append(critical, f.Description)
		case domain.SeverityHigh:
			high = append(high, f.Description)
		}
	}

	var b strings.Builder
	if len(factors) == 1 {
		b.WriteString("1 risk factor identified")
	} else {
		fmt.Fprintf(&b, "%d risk factors identified", len(factors))
	}
	if len(critical) > 0 {
		b.WriteString(". Critical: ")
		b.WriteString(strings.Join(critical, "; "))
	}
	if len(high) > 0 {
		b.WriteString(". High: ")
		b.WriteString(strings.Join(high, "; "))
	}
	return b.String()
}

// build assembles the assessment from an ordered factor list
func build(orderID string, factors []domain.Factor, cfg *Config) *domain.Assessment {
	if factors == nil {
		factors = []domain.Factor{}
	}
	score := Aggregate(factors, cfg.SeverityWeights)
	rec := Recommend(score, factors, cfg)

	return &domain.Assessment{
		OrderID:        orderID,
		OverallScore:   score,
		Level:          LevelFor(score, cfg),
		Recommendation: rec,
		Factors:        factors,
		AutoApproved:   rec == domain.RecommendAutoApprove,
		ReviewRequired: rec == domain.RecommendManualReview,
		Notes:          Notes(factors),
	}
}
