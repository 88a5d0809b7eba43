package kyc

import (
	"context"

	domain "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/kyc"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/order"
)

// Service defines the identity verification engine interface
type Service interface {
	// VerifyIdentity evaluates the order's identity documents. It fails only
	// for a missing order or an order without identity documents; every
	// other problem is folded into the result.
	VerifyIdentity(ctx context.Context, orderID string) (*domain.Result, error)
}

// OrderRepository loads orders with their documents
type OrderRepository interface {
	GetByID(ctx context.Context, orderID string) (*order.Order, error)
}

// DocumentTextExtractor turns a document's OCR text into pattern key -> value pairs
type DocumentTextExtractor interface {
	ExtractFields(ctx context.Context, doc order.Document) (map[string]string, error)
}

// DocumentAuthenticityChecker decides whether a document is genuine
type DocumentAuthenticityChecker interface {
	Validate(ctx context.Context, doc order.Document, fields map[string]string) (bool, error)
}

// FaceMatchService compares the portrait on an ID with a selfie
type FaceMatchService interface {
	Compare(ctx context.Context, idDocument, selfie order.Document) (bool, error)
}

// LivenessChecker decides whether a selfie shows a live person
type LivenessChecker interface {
	Check(ctx context.Context, selfie order.Document) (bool, error)
}

// AddressVerifier verifies a postal address; address may be nil when none was extracted
type AddressVerifier interface {
	Verify(ctx context.Context, address *string) (bool, error)
}

// SanctionsListChecker screens a full name. true means the name is listed.
type SanctionsListChecker interface {
	Check(ctx context.Context, fullName string) (bool, error)
}

// Providers groups the external verification capabilities. All fields are required.
type Providers struct {
	Extractor    DocumentTextExtractor
	Authenticity DocumentAuthenticityChecker
	FaceMatch    FaceMatchService
	Liveness     LivenessChecker
	Address      AddressVerifier
	Sanctions    SanctionsListChecker
}

// ResultSink persists verification snapshots
type ResultSink interface {
	CreateKycVerification(ctx context.Context, v *domain.Verification) error
}

// MetricsRecorder receives verification and provider observations
type MetricsRecorder interface {
	RecordKYCVerification(ctx context.Context, durationMS, score float64, status string)
	RecordProviderCall(ctx context.Context, durationMS float64, capability string, success bool)
}
