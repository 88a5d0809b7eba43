package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/errors"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/kyc"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/risk"
)

// ResultRepository stores the decisions produced by the engines
type ResultRepository struct {
	db *sql.DB
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// UpsertRiskAssessment stores the assessment, replacing any earlier one for the same order
func (r *ResultRepository) UpsertRiskAssessment(ctx context.Context, a *risk.Assessment) error {
	factors := a.Factors
	if factors == nil {
		factors = []risk.Factor{}
	}
	factorsJSON, err := json.Marshal(factors)
	if err != nil {
		return fmt.Errorf("failed to marshal factors: %w", err)
	}

	query := `
		INSERT INTO risk_assessments (
			order_id, overall_score, risk_level, recommendation, factors,
			auto_approved, review_required, notes, assessed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (order_id) DO UPDATE SET
			overall_score = EXCLUDED.overall_score,
			risk_level = EXCLUDED.risk_level,
			recommendation = EXCLUDED.recommendation,
			factors = EXCLUDED.factors,
			auto_approved = EXCLUDED.auto_approved,
			review_required = EXCLUDED.review_required,
			notes = EXCLUDED.notes,
			assessed_at = EXCLUDED.assessed_at,
			updated_at = NOW()
	`

	_, err = r.db.ExecContext(ctx, query,
		a.OrderID, a.OverallScore, string(a.Level), string(a.Recommendation), factorsJSON,
		a.AutoApproved, a.ReviewRequired, a.Notes, a.AssessedAt,
	)
	if err != nil {
		return WrapRepositoryError(err, "upsert risk assessment")
	}

	return nil
}

// GetRiskAssessment returns the stored assessment for an order
func (r *ResultRepository) GetRiskAssessment(ctx context.Context, orderID string) (*risk.Assessment, error) {
	query := `
		SELECT order_id, overall_score, risk_level, recommendation, factors,
			auto_approved, review_required, notes, assessed_at
		FROM risk_assessments
		WHERE order_id = $1
	`

	var a risk.Assessment
	var level, recommendation string
	var factorsJSON []byte

	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&a.OrderID, &a.OverallScore, &level, &recommendation, &factorsJSON,
		&a.AutoApproved, &a.ReviewRequired, &a.Notes, &a.AssessedAt,
	)
	if err != nil {
		if IsNotFound(err) {
			return nil, errors.NewAssessmentNotFoundError(orderID)
		}
		return nil, fmt.Errorf("failed to get risk assessment: %w", err)
	}

	a.Level = risk.Level(level)
	a.Recommendation = risk.Recommendation(recommendation)
	if err := json.Unmarshal(factorsJSON, &a.Factors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal factors: %w", err)
	}

	return &a, nil
}

// CreateKycVerification appends a verification snapshot. Snapshots are never updated.
func (r *ResultRepository) CreateKycVerification(ctx context.Context, v *kyc.Verification) error {
	checksJSON, err := json.Marshal(v.Checks)
	if err != nil {
		return fmt.Errorf("failed to marshal checks: %w", err)
	}
	extractedJSON, err := json.Marshal(v.ExtractedData)
	if err != nil {
		return fmt.Errorf("failed to marshal extracted data: %w", err)
	}

	query := `
		INSERT INTO kyc_verifications (
			id, order_id, status, score, checks, extracted_data,
			risk_factors, recommendations, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		v.ID, v.OrderID, string(v.Status), v.Score, checksJSON, extractedJSON,
		pq.Array(nonNil(v.RiskFactors)), pq.Array(nonNil(v.Recommendations)), v.CreatedAt,
	)
	if err != nil {
		return WrapRepositoryError(err, "create kyc verification")
	}

	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
