package risk

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	domain "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
)

var severities = []domain.Severity{
	domain.SeverityLow,
	domain.SeverityMedium,
	domain.SeverityHigh,
	domain.SeverityCritical,
}

func zipFactors(levels []int, scores []float64) []domain.Factor {
	n := len(levels)
	if len(scores) < n {
		n = len(scores)
	}
	factors := make([]domain.Factor, 0, n)
	for i := 0; i < n; i++ {
		factors = append(factors, domain.Factor{
			Type:     "GENERATED",
			Severity: severities[levels[i]],
			Score:    scores[i],
		})
	}
	return factors
}

func TestAggregate_Properties(t *testing.T) {
	cfg := DefaultConfig()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("score stays within [0,1]", prop.ForAll(
		func(levels []int, scores []float64) bool {
			score := Aggregate(zipFactors(levels, scores), cfg.SeverityWeights)
			return score >= 0 && score <= 1
		},
		gen.SliceOf(gen.IntRange(0, 3)),
		gen.SliceOf(gen.Float64Range(-0.5, 1.5)),
	))

	properties.Property("a CRITICAL factor always rejects", prop.ForAll(
		func(levels []int, scores []float64, criticalScore float64) bool {
			factors := zipFactors(levels, scores)
			factors = append(factors, domain.Factor{Type: domain.FactorKYCRejected, Severity: domain.SeverityCritical, Score: criticalScore})
			a := build("ord-prop", factors, &cfg)
			return a.Recommendation == domain.RecommendReject && !a.AutoApproved && !a.ReviewRequired
		},
		gen.SliceOf(gen.IntRange(0, 3)),
		gen.SliceOf(gen.Float64Range(0, 1)),
		gen.Float64Range(0, 1),
	))

	properties.Property("auto-approve and review flags mirror the recommendation", prop.ForAll(
		func(levels []int, scores []float64) bool {
			a := build("ord-prop", zipFactors(levels, scores), &cfg)
			switch a.Recommendation {
			case domain.RecommendAutoApprove:
				return a.AutoApproved && !a.ReviewRequired
			case domain.RecommendManualReview:
				return !a.AutoApproved && a.ReviewRequired
			case domain.RecommendReject:
				return !a.AutoApproved && !a.ReviewRequired
			}
			return false
		},
		gen.SliceOf(gen.IntRange(0, 3)),
		gen.SliceOf(gen.Float64Range(0, 1)),
	))

	properties.Property("level agrees with score bands", prop.ForAll(
		func(score float64) bool {
			level := LevelFor(score, &cfg)
			switch {
			case score < 0.3:
				return level == domain.LevelLow
			case score < 0.6:
				return level == domain.LevelMedium
			case score < 0.8:
				return level == domain.LevelHigh
			default:
				return level == domain.LevelCritical
			}
		},
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func TestAggregate_Empty(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 0.0, Aggregate(nil, cfg.SeverityWeights))
	assert.Equal(t, 0.0, Aggregate([]domain.Factor{}, cfg.SeverityWeights))
	assert.Equal(t, 0.0, Aggregate([]domain.Factor{{Severity: "UNKNOWN", Score: 1}}, cfg.SeverityWeights))
}

func TestAggregate_CriticalDominates(t *testing.T) {
	cfg := DefaultConfig()
	factors := []domain.Factor{
		{Severity: domain.SeverityLow, Score: 0.1},
		{Severity: domain.SeverityLow, Score: 0.1},
		{Severity: domain.SeverityLow, Score: 0.1},
		{Severity: domain.SeverityCritical, Score: 1.0},
	}
	// (3*0.1*0.1 + 1.0) / (0.3 + 1.0)
	assert.InDelta(t, 1.03/1.3, Aggregate(factors, cfg.SeverityWeights), 1e-9)
}

func TestLevelFor_Boundaries(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, domain.LevelLow, LevelFor(0, &cfg))
	assert.Equal(t, domain.LevelLow, LevelFor(0.2999, &cfg))
	assert.Equal(t, domain.LevelMedium, LevelFor(0.3, &cfg))
	assert.Equal(t, domain.LevelHigh, LevelFor(0.6, &cfg))
	assert.Equal(t, domain.LevelCritical, LevelFor(0.8, &cfg))
	assert.Equal(t, domain.LevelCritical, LevelFor(1.0, &cfg))
}

func TestRecommend(t *testing.T) {
	cfg := DefaultConfig()
	low := domain.Factor{Severity: domain.SeverityLow, Score: 0.1}
	medium := domain.Factor{Severity: domain.SeverityMedium, Score: 0.4}
	high := domain.Factor{Severity: domain.SeverityHigh, Score: 0.1}
	critical := domain.Factor{Severity: domain.SeverityCritical, Score: 0.0}

	tests := []struct {
		name     string
		score    float64
		factors  []domain.Factor
		expected domain.Recommendation
	}{
		{name: "nothing flagged", score: 0, expected: domain.RecommendAutoApprove},
		{name: "at auto-approve ceiling", score: 0.2, factors: []domain.Factor{low}, expected: domain.RecommendAutoApprove},
		{name: "fallback band", score: 0.4, factors: []domain.Factor{medium}, expected: domain.RecommendManualReview},
		{name: "review floor", score: 0.7, factors: []domain.Factor{medium}, expected: domain.RecommendManualReview},
		{name: "high factor with low score", score: 0.1, factors: []domain.Factor{high}, expected: domain.RecommendManualReview},
		{name: "critical with zero score", score: 0, factors: []domain.Factor{low, critical}, expected: domain.RecommendReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Recommend(tt.score, tt.factors, &cfg))
		})
	}
}

func TestNotes(t *testing.T) {
	assert.Equal(t, NoFactorsNote, Notes(nil))

	notes := Notes([]domain.Factor{
		{Severity: domain.SeverityHigh, Description: "No documents provided"},
		{Severity: domain.SeverityMedium, Description: "New counterparty with no trading history"},
		{Severity: domain.SeverityCritical, Description: "KYC verification rejected"},
	})
	assert.Equal(t, "3 risk factors identified. Critical: KYC verification rejected. High: No documents provided", notes)

	assert.Equal(t, "1 risk factor identified", Notes([]domain.Factor{{Severity: domain.SeverityLow, Description: "x"}}))
}
