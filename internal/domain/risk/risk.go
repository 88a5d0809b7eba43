package risk

import (
	"time"
)

// Severity is the ordinal category shared by the risk and KYC engines.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities so callers can compare them; unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Factor types emitted by the assessors.
const (
	FactorHighAmount         = "HIGH_AMOUNT"
	FactorElevatedAmount     = "ELEVATED_AMOUNT"
	FactorUnusualAmount      = "UNUSUAL_AMOUNT_PATTERN"
	FactorNewCounterparty    = "NEW_COUNTERPARTY"
	FactorRecentDisputes     = "RECENT_DISPUTES"
	FactorLowCompletionRate  = "LOW_COMPLETION_RATE"
	FactorHistoryUnavailable = "HISTORY_UNAVAILABLE"
	FactorHighRiskPayment    = "HIGH_RISK_PAYMENT_METHOD"
	FactorMediumRiskPayment  = "MEDIUM_RISK_PAYMENT_METHOD"
	FactorNoDocuments        = "NO_DOCUMENTS"
	FactorLowDocumentQuality = "LOW_DOCUMENT_QUALITY"
	FactorDocumentFailed     = "DOCUMENT_PROCESSING_FAILED"
	FactorNoCommunication    = "NO_COMMUNICATION"
	FactorUrgencyLanguage    = "URGENCY_LANGUAGE"
	FactorExcessiveMessaging = "EXCESSIVE_MESSAGING"
	FactorKYCNotCompleted    = "KYC_NOT_COMPLETED"
	FactorKYCRejected        = "KYC_REJECTED"
	FactorKYCReview          = "KYC_REQUIRES_REVIEW"
	FactorKYCLowScore        = "KYC_LOW_SCORE"
	FactorUnusualTiming      = "UNUSUAL_TIMING"
	FactorRapidOrders        = "RAPID_ORDERS"
	FactorRecentUnavailable  = "RECENT_ACTIVITY_UNAVAILABLE"
	FactorAssessorFailure    = "ASSESSOR_FAILURE"
)

// Factor is one typed, severity-scored signal about a trade. Details carries
// the raw inputs the assessor used so a reviewer can audit it.
type Factor struct {
	Type        string                 `json:"type"`
	Severity    Severity               `json:"severity"`
	Score       float64                `json:"score"`
	Description string                 `json:"description"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

type Recommendation string

const (
	RecommendAutoApprove  Recommendation = "AUTO_APPROVE"
	RecommendManualReview Recommendation = "MANUAL_REVIEW"
	RecommendReject       Recommendation = "REJECT"
)

// Assessment is the outcome of one risk assessment run. It is keyed by
// OrderID and replaces any earlier assessment for the same order.
type Assessment struct {
	OrderID        string         `json:"order_id"`
	OverallScore   float64        `json:"overall_score"`
	Level          Level          `json:"risk_level"`
	Recommendation Recommendation `json:"recommendation"`
	Factors        []Factor       `json:"factors"`
	AutoApproved   bool           `json:"auto_approved"`
	ReviewRequired bool           `json:"review_required"`
	Notes          string         `json:"notes"`
	AssessedAt     time.Time      `json:"assessed_at"`
}

// HasSeverity reports whether any factor carries the given severity.
func (a *Assessment) HasSeverity(s Severity) bool {
	for _, f := range a.Factors {
		if f.Severity == s {
			return true
		}
	}
	return false
}
