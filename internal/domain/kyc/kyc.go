package kyc

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusApproved       Status = "APPROVED"
	StatusRejected       Status = "REJECTED"
	StatusRequiresReview Status = "REQUIRES_REVIEW"
)

// CheckSet is the fixed five-slot checklist. A slot only moves from false
// to true during one verification.
type CheckSet struct {
	DocumentValid       bool `json:"document_valid"`
	FaceMatch           bool `json:"face_match"`
	LivenessCheck       bool `json:"liveness_check"`
	SanctionsCheck      bool `json:"sanctions_check"`
	AddressVerification bool `json:"address_verification"`
}

// Merge ORs other into c.
func (c *CheckSet) Merge(other CheckSet) {
	c.DocumentValid = c.DocumentValid || other.DocumentValid
	c.FaceMatch = c.FaceMatch || other.FaceMatch
	c.LivenessCheck = c.LivenessCheck || other.LivenessCheck
	c.SanctionsCheck = c.SanctionsCheck || other.SanctionsCheck
	c.AddressVerification = c.AddressVerification || other.AddressVerification
}

// ExtractedData holds personal fields read from identity documents.
type ExtractedData struct {
	FullName       *string `json:"full_name,omitempty"`
	DateOfBirth    *string `json:"date_of_birth,omitempty"`
	DocumentNumber *string `json:"document_number,omitempty"`
	Nationality    *string `json:"nationality,omitempty"`
	Address        *string `json:"address,omitempty"`
	IssueDate      *string `json:"issue_date,omitempty"`
	ExpiryDate     *string `json:"expiry_date,omitempty"`
}

// Result is returned by one identity verification.
type Result struct {
	OrderID         string        `json:"order_id"`
	Status          Status        `json:"status"`
	Score           float64       `json:"score"`
	Checks          CheckSet      `json:"checks"`
	ExtractedData   ExtractedData `json:"extracted_data"`
	RiskFactors     []string      `json:"risk_factors"`
	Recommendations []string      `json:"recommendations"`
}

// Verification is the persisted snapshot of a Result.
type Verification struct {
	ID              uuid.UUID     `json:"id"`
	OrderID         string        `json:"order_id"`
	Status          Status        `json:"status"`
	Score           float64       `json:"score"`
	Checks          CheckSet      `json:"checks"`
	ExtractedData   ExtractedData `json:"extracted_data"`
	RiskFactors     []string      `json:"risk_factors"`
	Recommendations []string      `json:"recommendations"`
	CreatedAt       time.Time     `json:"created_at"`
}

// NewVerification snapshots a result for persistence.
func NewVerification(r *Result, now time.Time) *Verification {
	return &Verification{
		ID:              uuid.New(),
		OrderID:         r.OrderID,
		Status:          r.Status,
		Score:           r.Score,
		Checks:          r.Checks,
		ExtractedData:   r.ExtractedData,
		RiskFactors:     append([]string(nil), r.RiskFactors...),
		Recommendations: append([]string(nil), r.Recommendations...),
		CreatedAt:       now.UTC(),
	}
}
