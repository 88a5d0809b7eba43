package risk

import (
	"math"

	domain "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
)

// Aggregate returns the severity-weighted mean of the factor scores, in
// [0,1]. An empty list, or one whose severities carry no weight, scores 0.
func Aggregate(factors []domain.Factor, weights map[domain.Severity]float64) float64 {
	var weighted, total float64
	for _, f := range factors {
		w := weights[f.Severity]
		if w <= 0 {
			continue
		}
		weighted += clamp(f.Score) * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return clamp(weighted / total)
}

// LevelFor maps a score to a risk level using the configured cut points
func LevelFor(score float64, cfg *Config) domain.Level {
	switch {
	case score < cfg.LevelMediumMin:
		return domain.LevelLow
	case score < cfg.LevelHighMin:
		return domain.LevelMedium
	case score < cfg.LevelCriticalMin:
		return domain.LevelHigh
	default:
		return domain.LevelCritical
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
