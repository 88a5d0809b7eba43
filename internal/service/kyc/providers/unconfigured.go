package providers

import (
	"context"
	"fmt"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/order"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/service/kyc"
)

var (
	_ kyc.DocumentAuthenticityChecker = Unconfigured{}
	_ kyc.FaceMatchService            = Unconfigured{}
	_ kyc.LivenessChecker             = Unconfigured{}
	_ kyc.AddressVerifier             = Unconfigured{}
)

// Unconfigured stands in for a capability with no base URL. Every call
// fails so the check is reported as not passed.
type Unconfigured struct {
	Capability string
}

func (u Unconfigured) err() error {
	return fmt.Errorf("%s: %w", u.Capability, ErrProviderNotConfigured)
}

func (u Unconfigured) Validate(context.Context, order.Document, map[string]string) (bool, error) {
	return false, u.err()
}

func (u Unconfigured) Compare(context.Context, order.Document, order.Document) (bool, error) {
	return false, u.err()
}

func (u Unconfigured) Check(context.Context, order.Document) (bool, error) {
	return false, u.err()
}

func (u Unconfigured) Verify(context.Context, *string) (bool, error) {
	return false, u.err()
}

// UnconfiguredSanctions is the sanctions counterpart of Unconfigured
type UnconfiguredSanctions struct{}

func (UnconfiguredSanctions) Check(context.Context, string) (bool, error) {
	return false, fmt.Errorf("sanctions_screening: %w", ErrProviderNotConfigured)
}
