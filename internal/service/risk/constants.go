package risk

import "time"

// Amount thresholds
const (
	// DefaultHighAmount marks a trade large enough for a HIGH factor
	DefaultHighAmount = 10000

	// DefaultElevatedAmount marks a trade large enough for a MEDIUM factor
	DefaultElevatedAmount = 5000

	// DefaultAmountDeviationRatio is the relative distance from the historical
	// mean above which an amount is considered unusual
	DefaultAmountDeviationRatio = 2.0
)

// Counterparty history
const (
	// DefaultHistoryLookback is the recent-order window used for amount patterns
	DefaultHistoryLookback = 720 * time.Hour

	// DefaultHistoryLimit caps the counterparty history sample
	DefaultHistoryLimit = 50

	// DefaultDisputeWindow is how far back a dispute still counts
	DefaultDisputeWindow = 30 * 24 * time.Hour

	// DefaultMinCompletionRate is the completion rate below which history is flagged
	DefaultMinCompletionRate = 0.8

	// DefaultMinHistoryForCompletionRate is the sample size needed before the rate is judged
	DefaultMinHistoryForCompletionRate = 5
)

// Documents, chat and KYC
const (
	DefaultMinOCRConfidence        = 0.7
	DefaultMaxCounterpartyMessages = 20
	DefaultKYCMinScore             = 0.6
)

// Behaviour
const (
	// DefaultActiveHoursStart and DefaultActiveHoursEnd bound the UTC hours
	// considered normal trading time, inclusive
	DefaultActiveHoursStart = 6
	DefaultActiveHoursEnd   = 22

	DefaultRapidOrderWindow = 24 * time.Hour
	DefaultRapidOrderLimit  = 3
)

// Aggregation and policy
const (
	// Score cut points for risk levels; a score equal to a cut point belongs to the higher band
	DefaultLevelMediumMin   = 0.3
	DefaultLevelHighMin     = 0.6
	DefaultLevelCriticalMin = 0.8

	// DefaultAutoApproveMaxScore is the highest score that may still auto-approve
	DefaultAutoApproveMaxScore = 0.2

	// DefaultReviewMinScore forces manual review at or above this score
	DefaultReviewMinScore = 0.7

	// DefaultLookupTimeout bounds each historical order lookup
	DefaultLookupTimeout = 3 * time.Second
)

// Factor scores
const (
	ScoreHighAmount         = 0.8
	ScoreElevatedAmount     = 0.4
	ScoreUnusualAmount      = 0.5
	ScoreNewCounterparty    = 0.4
	ScoreRecentDisputes     = 0.7
	ScoreLowCompletionRate  = 0.5
	ScoreHistoryUnavailable = 0.4
	ScoreHighRiskPayment    = 0.6
	ScoreMediumRiskPayment  = 0.3
	ScoreNoDocuments        = 0.8
	ScoreLowDocumentQuality = 0.4
	ScoreDocumentFailed     = 0.7
	ScoreNoCommunication    = 0.3
	ScoreUrgencyLanguage    = 0.4
	ScoreExcessiveMessaging = 0.2
	ScoreKYCNotCompleted    = 0.9
	ScoreKYCRejected        = 1.0
	ScoreKYCReview          = 0.7
	ScoreKYCLowScore        = 0.5
	ScoreUnusualTiming      = 0.1
	ScoreRapidOrders        = 0.4
	ScoreRecentUnavailable  = 0.2
	ScoreAssessorFailure    = 0.6
)

// NoFactorsNote is the assessment note when nothing was flagged
const NoFactorsNote = "No significant risk factors identified"
