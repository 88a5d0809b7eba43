package kyc

import (
	"fmt"
	"math"
	"time"
)

// CheckWeights assigns each checklist slot its share of the score
type CheckWeights struct {
	DocumentValid       float64
	FaceMatch           float64
	LivenessCheck       float64
	SanctionsCheck      float64
	AddressVerification float64
}

func (w CheckWeights) sum() float64 {
	return w.DocumentValid + w.FaceMatch + w.LivenessCheck + w.SanctionsCheck + w.AddressVerification
}

// Config carries the scoring and classification thresholds
type Config struct {
	Weights CheckWeights

	// ReasonPenalty is subtracted from the score for every recorded reason
	ReasonPenalty float64

	ApproveMinScore  float64
	RejectBelowScore float64

	// SanctionsKeyword in any reason forces rejection, case-insensitive
	SanctionsKeyword string

	ProviderTimeout   time.Duration
	ParallelDocuments bool

	Fields FieldMap
}

// DefaultConfig returns the production weights and thresholds
func DefaultConfig() Config {
	return Config{
		Weights: CheckWeights{
			DocumentValid:       0.30,
			FaceMatch:           0.20,
			LivenessCheck:       0.15,
			SanctionsCheck:      0.25,
			AddressVerification: 0.10,
		},
		ReasonPenalty:     0.1,
		ApproveMinScore:   0.9,
		RejectBelowScore:  0.3,
		SanctionsKeyword:  "sanction",
		ProviderTimeout:   10 * time.Second,
		ParallelDocuments: true,
		Fields:            DefaultFieldMap(),
	}
}

// Validate checks the weights form a distribution and thresholds are ordered
func (c Config) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		"document_valid":       w.DocumentValid,
		"face_match":           w.FaceMatch,
		"liveness_check":       w.LivenessCheck,
		"sanctions_check":      w.SanctionsCheck,
		"address_verification": w.AddressVerification,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative", name)
		}
	}

	if math.Abs(w.sum()-1.0) > 1e-9 {
		return fmt.Errorf("check weights must sum to 1.0, got %.4f", w.sum())
	}

	if c.ReasonPenalty < 0 {
		return fmt.Errorf("reason penalty must not be negative")
	}

	if c.RejectBelowScore > c.ApproveMinScore {
		return fmt.Errorf("reject threshold must not exceed approve threshold")
	}

	if c.SanctionsKeyword == "" {
		return fmt.Errorf("sanctions keyword is required")
	}

	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("provider timeout must be positive")
	}

	return nil
}
