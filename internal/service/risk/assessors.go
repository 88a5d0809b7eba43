package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/order"
	domain "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
)

// input is everything an assessor may look at. History and Recent exclude
// the order under assessment.
type input struct {
	Order      *order.Order
	History    []*order.Order
	Recent     []*order.Order
	HistoryErr error
	RecentErr  error
	Now        time.Time
}

type assessor struct {
	name string
	fn   func(in *input, cfg *Config) []domain.Factor
}

// assessors run in this order and their factors are concatenated in this order
var assessors = []assessor{
	{name: "amount", fn: assessAmount},
	{name: "counterparty", fn: assessCounterparty},
	{name: "payment_method", fn: assessPaymentMethod},
	{name: "documents", fn: assessDocuments},
	{name: "communication", fn: assessCommunication},
	{name: "kyc", fn: assessKYC},
	{name: "behavior", fn: assessBehavior},
}

func assessAmount(in *input, cfg *Config) []domain.Factor {
	var factors []domain.Factor
	amount := in.Order.Amount

	switch {
	case amount.GreaterThan(cfg.HighAmount):
		factors = append(factors, domain.Factor{
			Type:        domain.FactorHighAmount,
			Severity:    domain.SeverityHigh,
			Score:       ScoreHighAmount,
			Description: fmt.Sprintf("High transaction amount: %s %s", amount.String(), in.Order.Currency),
			Details: map[string]interface{}{
				"amount":    amount.String(),
				"threshold": cfg.HighAmount.String(),
			},
		})
	case amount.GreaterThan(cfg.ElevatedAmount):
		factors = append(factors, domain.Factor{
			Type:        domain.FactorElevatedAmount,
			Severity:    domain.SeverityMedium,
			Score:       ScoreElevatedAmount,
			Description: fmt.Sprintf("Elevated transaction amount: %s %s", amount.String(), in.Order.Currency),
			Details: map[string]interface{}{
				"amount":    amount.String(),
				"threshold": cfg.ElevatedAmount.String(),
			},
		})
	}

	if in.RecentErr != nil || len(in.Recent) == 0 {
		return factors
	}

	sum := decimal.Zero
	for _, o := range in.Recent {
		sum = sum.Add(o.Amount)
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(in.Recent))))
	if !mean.IsPositive() {
		return factors
	}

	deviation, _ := amount.Sub(mean).Abs().Div(mean).Float64()
	if deviation > cfg.AmountDeviationRatio {
		factors = append(factors, domain.Factor{
			Type:        domain.FactorUnusualAmount,
			Severity:    domain.SeverityMedium,
			Score:       ScoreUnusualAmount,
			Description: "Unusual amount pattern compared to counterparty history",
			Details: map[string]interface{}{
				"amount":          amount.String(),
				"historical_mean": mean.StringFixed(2),
				"deviation":       deviation,
				"threshold":       cfg.AmountDeviationRatio,
				"sample_size":     len(in.Recent),
			},
		})
	}

	return factors
}

func assessCounterparty(in *input, cfg *Config) []domain.Factor {
	if in.HistoryErr != nil {
		return []domain.Factor{{
			Type:        domain.FactorHistoryUnavailable,
			Severity:    domain.SeverityMedium,
			Score:       ScoreHistoryUnavailable,
			Description: "Counterparty history could not be loaded",
			Details: map[string]interface{}{
				"counterparty_id": in.Order.CounterpartyID,
				"error":           in.HistoryErr.Error(),
			},
		}}
	}

	total := len(in.History)
	if total == 0 {
		return []domain.Factor{{
			Type:        domain.FactorNewCounterparty,
			Severity:    domain.SeverityMedium,
			Score:       ScoreNewCounterparty,
			Description: "New counterparty with no trading history",
			Details: map[string]interface{}{
				"counterparty_id": in.Order.CounterpartyID,
				"prior_orders":    0,
			},
		}}
	}

	var factors []domain.Factor
	disputeCutoff := in.Now.Add(-cfg.DisputeWindow)
	disputes, completed := 0, 0
	for _, o := range in.History {
		if o.Status == order.StatusDisputed && o.CreatedAt.After(disputeCutoff) {
			disputes++
		}
		if o.Status == order.StatusCompleted {
			completed++
		}
	}

	if disputes > 0 {
		factors = append(factors, domain.Factor{
			Type:        domain.FactorRecentDisputes,
			Severity:    domain.SeverityHigh,
			Score:       ScoreRecentDisputes,
			Description: fmt.Sprintf("Counterparty has %d disputed orders in the last %d days", disputes, int(cfg.DisputeWindow.Hours()/24)),
			Details: map[string]interface{}{
				"disputed_orders": disputes,
				"window_hours":    cfg.DisputeWindow.Hours(),
			},
		})
	}

	rate := float64(completed) / float64(total)
	if total >= cfg.MinHistoryForCompletionRate && rate < cfg.MinCompletionRate {
		factors = append(factors, domain.Factor{
			Type:        domain.FactorLowCompletionRate,
			Severity:    domain.SeverityMedium,
			Score:       ScoreLowCompletionRate,
			Description: fmt.Sprintf("Low order completion rate: %.0f%%", rate*100),
			Details: map[string]interface{}{
				"completed_orders": completed,
				"total_orders":     total,
				"completion_rate":  rate,
				"threshold":        cfg.MinCompletionRate,
			},
		})
	}

	return factors
}

func assessPaymentMethod(in *input, cfg *Config) []domain.Factor {
	method := order.NormalizePaymentMethod(in.Order.PaymentMethod)

	if containsMethod(cfg.HighRiskPaymentMethods, method) {
		return []domain.Factor{{
			Type:        domain.FactorHighRiskPayment,
			Severity:    domain.SeverityHigh,
			Score:       ScoreHighRiskPayment,
			Description: fmt.Sprintf("High-risk payment method: %s", method),
			Details:     map[string]interface{}{"payment_method": method},
		}}
	}

	if containsMethod(cfg.MediumRiskPaymentMethods, method) {
		return []domain.Factor{{
			Type:        domain.FactorMediumRiskPayment,
			Severity:    domain.SeverityMedium,
			Score:       ScoreMediumRiskPayment,
			Description: fmt.Sprintf("Reversible payment method: %s", method),
			Details:     map[string]interface{}{"payment_method": method},
		}}
	}

	return nil
}

func containsMethod(methods []string, method string) bool {
	for _, m := range methods {
		if order.NormalizePaymentMethod(m) == method {
			return true
		}
	}
	return false
}

func assessDocuments(in *input, cfg *Config) []domain.Factor {
	docs := in.Order.Documents
	if len(docs) == 0 {
		return []domain.Factor{{
			Type:        domain.FactorNoDocuments,
			Severity:    domain.SeverityHigh,
			Score:       ScoreNoDocuments,
			Description: "No documents provided",
			Details:     map[string]interface{}{"document_count": 0},
		}}
	}

	var factors []domain.Factor
	var lowQuality, failed []string
	for _, d := range docs {
		if d.OCRConfidence != nil && *d.OCRConfidence < cfg.MinOCRConfidence {
			lowQuality = append(lowQuality, d.ID)
		}
		if d.Status == order.ProcessingFailed {
			failed = append(failed, d.ID)
		}
	}

	if len(lowQuality) > 0 {
		factors = append(factors, domain.Factor{
			Type:        domain.FactorLowDocumentQuality,
			Severity:    domain.SeverityMedium,
			Score:       ScoreLowDocumentQuality,
			Description: "Low document quality",
			Details: map[string]interface{}{
				"document_ids":   lowQuality,
				"min_confidence": cfg.MinOCRConfidence,
			},
		})
	}

	if len(failed) > 0 {
		factors = append(factors, domain.Factor{
			Type:        domain.FactorDocumentFailed,
			Severity:    domain.SeverityHigh,
			Score:       ScoreDocumentFailed,
			Description: "Document processing failed",
			Details:     map[string]interface{}{"document_ids": failed},
		})
	}

	return factors
}

func assessCommunication(in *input, cfg *Config) []domain.Factor {
	msgs := in.Order.CounterpartyMessages()
	if len(msgs) == 0 {
		return []domain.Factor{{
			Type:        domain.FactorNoCommunication,
			Severity:    domain.SeverityMedium,
			Score:       ScoreNoCommunication,
			Description: "No communication from counterparty",
			Details:     map[string]interface{}{"message_count": 0},
		}}
	}

	var factors []domain.Factor
	var matched []string
	for _, kw := range cfg.UrgencyKeywords {
		needle := strings.ToLower(kw)
		for _, m := range msgs {
			if strings.Contains(strings.ToLower(m.Content), needle) {
				matched = append(matched, kw)
				break
			}
		}
	}

	if len(matched) > 0 {
		factors = append(factors, domain.Factor{
			Type:        domain.FactorUrgencyLanguage,
			Severity:    domain.SeverityMedium,
			Score:       ScoreUrgencyLanguage,
			Description: "Counterparty uses urgency language",
			Details:     map[string]interface{}{"keywords": matched},
		})
	}

	if len(msgs) > cfg.MaxCounterpartyMessages {
		factors = append(factors, domain.Factor{
			Type:        domain.FactorExcessiveMessaging,
			Severity:    domain.SeverityLow,
			Score:       ScoreExcessiveMessaging,
			Description: fmt.Sprintf("Excessive messaging: %d messages", len(msgs)),
			Details: map[string]interface{}{
				"message_count": len(msgs),
				"threshold":     cfg.MaxCounterpartyMessages,
			},
		})
	}

	return factors
}

func assessKYC(in *input, cfg *Config) []domain.Factor {
	snap := in.Order.KYC
	if snap == nil {
		return []domain.Factor{{
			Type:        domain.FactorKYCNotCompleted,
			Severity:    domain.SeverityHigh,
			Score:       ScoreKYCNotCompleted,
			Description: "KYC verification not completed",
		}}
	}

	switch snap.Status {
	case order.KYCRejected:
		return []domain.Factor{{
			Type:        domain.FactorKYCRejected,
			Severity:    domain.SeverityCritical,
			Score:       ScoreKYCRejected,
			Description: "KYC verification rejected",
			Details:     map[string]interface{}{"kyc_status": string(snap.Status)},
		}}
	case order.KYCRequiresReview:
		return []domain.Factor{{
			Type:        domain.FactorKYCReview,
			Severity:    domain.SeverityHigh,
			Score:       ScoreKYCReview,
			Description: "KYC verification requires manual review",
			Details:     map[string]interface{}{"kyc_status": string(snap.Status)},
		}}
	}

	if snap.RiskScore != nil && *snap.RiskScore < cfg.KYCMinScore {
		return []domain.Factor{{
			Type:        domain.FactorKYCLowScore,
			Severity:    domain.SeverityMedium,
			Score:       ScoreKYCLowScore,
			Description: fmt.Sprintf("Low KYC score: %.2f", *snap.RiskScore),
			Details: map[string]interface{}{
				"kyc_status": string(snap.Status),
				"kyc_score":  *snap.RiskScore,
				"threshold":  cfg.KYCMinScore,
			},
		}}
	}

	return nil
}

func assessBehavior(in *input, cfg *Config) []domain.Factor {
	var factors []domain.Factor

	hour := in.Order.CreatedAt.UTC().Hour()
	if hour < cfg.ActiveHoursStart || hour > cfg.ActiveHoursEnd {
		factors = append(factors, domain.Factor{
			Type:        domain.FactorUnusualTiming,
			Severity:    domain.SeverityLow,
			Score:       ScoreUnusualTiming,
			Description: fmt.Sprintf("Order created at unusual hour: %02d:00 UTC", hour),
			Details: map[string]interface{}{
				"hour_utc":     hour,
				"active_start": cfg.ActiveHoursStart,
				"active_end":   cfg.ActiveHoursEnd,
			},
		})
	}

	if in.RecentErr != nil {
		return append(factors, domain.Factor{
			Type:        domain.FactorRecentUnavailable,
			Severity:    domain.SeverityLow,
			Score:       ScoreRecentUnavailable,
			Description: "Recent counterparty activity could not be loaded",
			Details:     map[string]interface{}{"error": in.RecentErr.Error()},
		})
	}

	cutoff := in.Now.Add(-cfg.RapidOrderWindow)
	count := 0
	for _, o := range in.Recent {
		if o.CreatedAt.After(cutoff) {
			count++
		}
	}

	if count > cfg.RapidOrderLimit {
		factors = append(factors, domain.Factor{
			Type:        domain.FactorRapidOrders,
			Severity:    domain.SeverityMedium,
			Score:       ScoreRapidOrders,
			Description: fmt.Sprintf("Rapid orders: %d in the last %.0f hours", count, cfg.RapidOrderWindow.Hours()),
			Details: map[string]interface{}{
				"order_count":  count,
				"window_hours": cfg.RapidOrderWindow.Hours(),
				"threshold":    cfg.RapidOrderLimit,
			},
		})
	}

	return factors
}
