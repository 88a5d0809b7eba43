package kyc

import (
	"strings"

	domain "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/kyc"
)

// Score sums the weights of passed checks, subtracts the per-reason penalty
// and clamps to [0,1]
func Score(checks domain.CheckSet, reasons int, cfg *Config) float64 {
	w := cfg.Weights
	score := 0.0
	if checks.DocumentValid {
		score += w.DocumentValid
	}
	if checks.FaceMatch {
		score += w.FaceMatch
	}
	if checks.LivenessCheck {
		score += w.LivenessCheck
	}
	if checks.SanctionsCheck {
		score += w.SanctionsCheck
	}
	if checks.AddressVerification {
		score += w.AddressVerification
	}

	score -= cfg.ReasonPenalty * float64(reasons)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Classify maps a score and its reasons to a status. A reason mentioning
// sanctions always rejects.
func Classify(score float64, reasons []string, cfg *Config) domain.Status {
	if score >= cfg.ApproveMinScore && len(reasons) == 0 {
		return domain.StatusApproved
	}
	if score < cfg.RejectBelowScore || mentionsSanctions(reasons, cfg.SanctionsKeyword) {
		return domain.StatusRejected
	}
	return domain.StatusRequiresReview
}

func mentionsSanctions(reasons []string, keyword string) bool {
	keyword = strings.ToLower(keyword)
	for _, r := range reasons {
		if strings.Contains(strings.ToLower(r), keyword) {
			return true
		}
	}
	return false
}

// Recommendations returns one follow-up per failed check, in checklist order
func Recommendations(checks domain.CheckSet) []string {
	recs := []string{}
	if !checks.DocumentValid {
		recs = append(recs, RecommendResubmitDocument)
	}
	if !checks.FaceMatch {
		recs = append(recs, RecommendNewSelfie)
	}
	if !checks.LivenessCheck {
		recs = append(recs, RecommendLiveness)
	}
	if !checks.SanctionsCheck {
		recs = append(recs, RecommendCompliance)
	}
	if !checks.AddressVerification {
		recs = append(recs, RecommendProofOfAddress)
	}
	return recs
}
