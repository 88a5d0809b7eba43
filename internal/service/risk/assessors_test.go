package risk

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/order"
	domain "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/testutil/fixtures"
)

func factorTypes(factors []domain.Factor) []string {
	out := make([]string, 0, len(factors))
	for _, f := range factors {
		out = append(out, f.Type)
	}
	return out
}

func TestAssessAmount(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		amount   int64
		recent   []*order.Order
		expected []string
	}{
		{name: "small amount", amount: 100, expected: []string{}},
		{name: "exactly elevated threshold", amount: 5000, expected: []string{}},
		{name: "elevated amount", amount: 5001, expected: []string{domain.FactorElevatedAmount}},
		{name: "exactly high threshold", amount: 10000, expected: []string{domain.FactorElevatedAmount}},
		{name: "high amount", amount: 12000, expected: []string{domain.FactorHighAmount}},
		{
			name:     "deviation above ratio",
			amount:   400,
			recent:   fixtures.History(t, "cp-1", 3, order.StatusCompleted, 100),
			expected: []string{domain.FactorUnusualAmount},
		},
		{
			name:     "deviation exactly at ratio",
			amount:   300,
			recent:   fixtures.History(t, "cp-1", 3, order.StatusCompleted, 100),
			expected: []string{},
		},
		{
			name:     "high amount and unusual pattern",
			amount:   20000,
			recent:   fixtures.History(t, "cp-1", 2, order.StatusCompleted, 500),
			expected: []string{domain.FactorHighAmount, domain.FactorUnusualAmount},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &input{
				Order:  fixtures.NewOrderBuilder(t).WithAmount(tt.amount).Build(),
				Recent: tt.recent,
				Now:    fixtures.ReferenceTime,
			}
			assert.Equal(t, tt.expected, factorTypes(assessAmount(in, &cfg)))
		})
	}
}

func TestAssessAmount_DetailsCarryInputs(t *testing.T) {
	cfg := DefaultConfig()
	in := &input{
		Order:  fixtures.NewOrderBuilder(t).WithAmount(1000).Build(),
		Recent: fixtures.History(t, "cp-1", 4, order.StatusCompleted, 100),
		Now:    fixtures.ReferenceTime,
	}

	factors := assessAmount(in, &cfg)
	require.Len(t, factors, 1)
	assert.Equal(t, "1000", factors[0].Details["amount"])
	assert.Equal(t, "100.00", factors[0].Details["historical_mean"])
	assert.InDelta(t, 9.0, factors[0].Details["deviation"], 1e-9)
	assert.Equal(t, 4, factors[0].Details["sample_size"])
}

func TestAssessCounterparty(t *testing.T) {
	cfg := DefaultConfig()
	now := fixtures.ReferenceTime

	disputedRecently := fixtures.NewOrderBuilder(t).WithStatus(order.StatusDisputed).WithCreatedAt(now.Add(-5 * 24 * time.Hour)).Build()
	disputedLongAgo := fixtures.NewOrderBuilder(t).WithStatus(order.StatusDisputed).WithCreatedAt(now.Add(-45 * 24 * time.Hour)).Build()

	mixed := fixtures.History(t, "cp-1", 3, order.StatusCompleted, 100)
	mixed = append(mixed, fixtures.History(t, "cp-2", 2, order.StatusCancelled, 100)...)

	tests := []struct {
		name       string
		history    []*order.Order
		historyErr error
		expected   []string
	}{
		{name: "first order", history: nil, expected: []string{domain.FactorNewCounterparty}},
		{name: "clean history", history: fixtures.History(t, "cp-1", 10, order.StatusCompleted, 100), expected: []string{}},
		{
			name:     "recent dispute",
			history:  append(fixtures.History(t, "cp-1", 9, order.StatusCompleted, 100), disputedRecently),
			expected: []string{domain.FactorRecentDisputes},
		},
		{
			name:     "old dispute ignored",
			history:  append(fixtures.History(t, "cp-1", 9, order.StatusCompleted, 100), disputedLongAgo),
			expected: []string{},
		},
		{name: "low completion with enough history", history: mixed, expected: []string{domain.FactorLowCompletionRate}},
		{
			name:     "low completion with short history",
			history:  fixtures.History(t, "cp-1", 4, order.StatusCancelled, 100),
			expected: []string{},
		},
		{name: "lookup failed", historyErr: errors.New("timeout"), expected: []string{domain.FactorHistoryUnavailable}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &input{
				Order:      fixtures.NewOrderBuilder(t).Build(),
				History:    tt.history,
				HistoryErr: tt.historyErr,
				Now:        now,
			}
			assert.Equal(t, tt.expected, factorTypes(assessCounterparty(in, &cfg)))
		})
	}
}

func TestAssessPaymentMethod(t *testing.T) {
	cfg := DefaultConfig()

	tests := map[string]string{
		"CASH":          domain.FactorHighRiskPayment,
		"Gift Cards":    domain.FactorHighRiskPayment,
		"prepaid_cards": domain.FactorHighRiskPayment,
		"PAYPAL":        domain.FactorMediumRiskPayment,
		"Venmo":         domain.FactorMediumRiskPayment,
		"CashApp":       domain.FactorMediumRiskPayment,
		"BANK_TRANSFER": "",
		"SEPA":          "",
	}

	for method, expected := range tests {
		t.Run(method, func(t *testing.T) {
			in := &input{Order: fixtures.NewOrderBuilder(t).WithPaymentMethod(method).Build()}
			factors := assessPaymentMethod(in, &cfg)
			if expected == "" {
				assert.Empty(t, factors)
				return
			}
			require.Len(t, factors, 1)
			assert.Equal(t, expected, factors[0].Type)
		})
	}
}

func TestAssessDocuments(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		docs     []order.Document
		expected []string
	}{
		{name: "no documents", expected: []string{domain.FactorNoDocuments}},
		{name: "good document", docs: []order.Document{fixtures.IDDocument("x", 0.95)}, expected: []string{}},
		{
			name:     "low confidence",
			docs:     []order.Document{fixtures.IDDocument("x", 0.95), fixtures.IDDocument("y", 0.5)},
			expected: []string{domain.FactorLowDocumentQuality},
		},
		{
			name:     "confidence absent is not judged",
			docs:     []order.Document{{Type: order.DocumentSelfie, Status: order.ProcessingDone}},
			expected: []string{},
		},
		{
			name: "failed and low quality",
			docs: []order.Document{
				{Type: order.DocumentPassport, Status: order.ProcessingFailed, OCRConfidence: fixtures.Float(0.2)},
			},
			expected: []string{domain.FactorLowDocumentQuality, domain.FactorDocumentFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fixtures.NewOrderBuilder(t)
			for _, d := range tt.docs {
				b.WithDocument(d)
			}
			in := &input{Order: b.Build()}
			assert.Equal(t, tt.expected, factorTypes(assessDocuments(in, &cfg)))
		})
	}
}

func TestAssessCommunication(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("no counterparty messages", func(t *testing.T) {
		o := fixtures.NewOrderBuilder(t).WithMessage(order.SenderOperator, "hello, are you there?").Build()
		assert.Equal(t, []string{domain.FactorNoCommunication}, factorTypes(assessCommunication(&input{Order: o}, &cfg)))
	})

	t.Run("urgency language is case insensitive", func(t *testing.T) {
		o := fixtures.NewOrderBuilder(t).WithMessage(order.SenderCounterparty, "Please be QUICK, it's an Emergency").Build()
		factors := assessCommunication(&input{Order: o}, &cfg)
		require.Len(t, factors, 1)
		assert.Equal(t, domain.FactorUrgencyLanguage, factors[0].Type)
		assert.Equal(t, []string{"quick", "emergency"}, factors[0].Details["keywords"])
	})

	t.Run("operator urgency does not count", func(t *testing.T) {
		o := fixtures.NewOrderBuilder(t).
			WithMessage(order.SenderOperator, "urgent: please confirm").
			WithMessage(order.SenderCounterparty, "done").
			Build()
		assert.Empty(t, assessCommunication(&input{Order: o}, &cfg))
	})

	t.Run("excessive messaging", func(t *testing.T) {
		b := fixtures.NewOrderBuilder(t)
		for i := 0; i < 21; i++ {
			b.WithMessage(order.SenderCounterparty, "ok")
		}
		assert.Equal(t, []string{domain.FactorExcessiveMessaging}, factorTypes(assessCommunication(&input{Order: b.Build()}, &cfg)))
	})

	t.Run("twenty messages is fine", func(t *testing.T) {
		b := fixtures.NewOrderBuilder(t)
		for i := 0; i < 20; i++ {
			b.WithMessage(order.SenderCounterparty, strings.Repeat("a", i+1))
		}
		assert.Empty(t, assessCommunication(&input{Order: b.Build()}, &cfg))
	})
}

func TestAssessKYC(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		kyc      *order.KYCSnapshot
		expected string
		severity domain.Severity
	}{
		{name: "missing", expected: domain.FactorKYCNotCompleted, severity: domain.SeverityHigh},
		{name: "rejected", kyc: &order.KYCSnapshot{Status: order.KYCRejected}, expected: domain.FactorKYCRejected, severity: domain.SeverityCritical},
		{name: "review", kyc: &order.KYCSnapshot{Status: order.KYCRequiresReview}, expected: domain.FactorKYCReview, severity: domain.SeverityHigh},
		{name: "approved low score", kyc: &order.KYCSnapshot{Status: order.KYCApproved, RiskScore: fixtures.Float(0.59)}, expected: domain.FactorKYCLowScore, severity: domain.SeverityMedium},
		{name: "in progress low score", kyc: &order.KYCSnapshot{Status: order.KYCInProgress, RiskScore: fixtures.Float(0.2)}, expected: domain.FactorKYCLowScore, severity: domain.SeverityMedium},
		{name: "approved at threshold", kyc: &order.KYCSnapshot{Status: order.KYCApproved, RiskScore: fixtures.Float(0.6)}},
		{name: "approved without score", kyc: &order.KYCSnapshot{Status: order.KYCApproved}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := fixtures.NewOrderBuilder(t).Build()
			o.KYC = tt.kyc
			factors := assessKYC(&input{Order: o}, &cfg)
			if tt.expected == "" {
				assert.Empty(t, factors)
				return
			}
			require.Len(t, factors, 1)
			assert.Equal(t, tt.expected, factors[0].Type)
			assert.Equal(t, tt.severity, factors[0].Severity)
		})
	}
}

func TestAssessBehavior(t *testing.T) {
	cfg := DefaultConfig()
	day := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		hour    int
		flagged bool
	}{
		{hour: 3, flagged: true},
		{hour: 5, flagged: true},
		{hour: 6, flagged: false},
		{hour: 22, flagged: false},
		{hour: 23, flagged: true},
	} {
		o := fixtures.NewOrderBuilder(t).WithCreatedAt(day.Add(time.Duration(tc.hour) * time.Hour)).Build()
		factors := assessBehavior(&input{Order: o, Now: fixtures.ReferenceTime}, &cfg)
		if tc.flagged {
			assert.Equal(t, []string{domain.FactorUnusualTiming}, factorTypes(factors), "hour %d", tc.hour)
		} else {
			assert.Empty(t, factors, "hour %d", tc.hour)
		}
	}

	t.Run("rapid orders", func(t *testing.T) {
		var recent []*order.Order
		for i := 0; i < 4; i++ {
			recent = append(recent, fixtures.NewOrderBuilder(t).WithCreatedAt(fixtures.ReferenceTime.Add(-time.Duration(i+1)*time.Hour)).Build())
		}
		o := fixtures.NewOrderBuilder(t).Build()

		factors := assessBehavior(&input{Order: o, Recent: recent, Now: fixtures.ReferenceTime}, &cfg)
		assert.Equal(t, []string{domain.FactorRapidOrders}, factorTypes(factors))

		factors = assessBehavior(&input{Order: o, Recent: recent[:3], Now: fixtures.ReferenceTime}, &cfg)
		assert.Empty(t, factors)
	})

	t.Run("recent lookup failed", func(t *testing.T) {
		o := fixtures.NewOrderBuilder(t).Build()
		factors := assessBehavior(&input{Order: o, RecentErr: errors.New("boom"), Now: fixtures.ReferenceTime}, &cfg)
		assert.Equal(t, []string{domain.FactorRecentUnavailable}, factorTypes(factors))
	})
}

func TestConfig_CustomThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HighAmount = decimal.NewFromInt(500)
	cfg.ElevatedAmount = decimal.NewFromInt(200)
	require.NoError(t, cfg.Validate())

	in := &input{Order: fixtures.NewOrderBuilder(t).WithAmount(600).Build()}
	assert.Equal(t, []string{domain.FactorHighAmount}, factorTypes(assessAmount(in, &cfg)))

	def := DefaultConfig()
	assert.Equal(t, []string{}, factorTypes(assessAmount(in, &def)))
}
