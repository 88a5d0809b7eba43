package kyc

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	domain "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/kyc"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/order"
)

// documentOutcome is what one identity document contributed
type documentOutcome struct {
	checks    domain.CheckSet
	fields    map[FieldID]string
	reasons   []string
	validated bool
}

// checklist is the merged outcome over all identity documents
type checklist struct {
	checks  domain.CheckSet
	data    domain.ExtractedData
	reasons []string
}

// evaluateDocuments runs every identity document and merges the outcomes in
// document order. A check is only ever raised to true, and extracted fields
// keep the first non-empty value.
func (s *service) evaluateDocuments(ctx context.Context, docs []order.Document, selfie *order.Document) (*checklist, error) {
	outcomes := make([]documentOutcome, len(docs))

	if s.cfg.ParallelDocuments && len(docs) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for i := range docs {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("document %s evaluation panicked: %v", docs[i].ID, r)
					}
				}()
				outcomes[i] = s.evaluateDocument(gctx, docs[i], selfie)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range docs {
			outcomes[i] = s.evaluateDocument(ctx, docs[i], selfie)
		}
	}

	cl := &checklist{reasons: []string{}}
	anyValid := false
	for _, out := range outcomes {
		cl.checks.Merge(out.checks)
		applyFields(&cl.data, out.fields)
		cl.reasons = append(cl.reasons, out.reasons...)
		anyValid = anyValid || out.validated
	}

	// without a selfie face match and liveness simply stay false
	if anyValid && selfie != nil {
		s.checkLiveness(ctx, *selfie, cl)
	}

	return cl, nil
}

// evaluateDocument runs extraction, authenticity and the document-bound
// checks for one identity document. A negative provider answer only leaves
// its check false; reasons are recorded for failures to get an answer.
func (s *service) evaluateDocument(ctx context.Context, doc order.Document, selfie *order.Document) documentOutcome {
	out := documentOutcome{}

	if doc.OCRText == nil || *doc.OCRText == "" {
		out.reasons = append(out.reasons, ReasonOCRFailed)
		return out
	}

	var raw map[string]string
	err := s.call(ctx, CapabilityExtraction, func(cctx context.Context) error {
		var err error
		raw, err = s.providers.Extractor.ExtractFields(cctx, doc)
		return err
	})
	if err != nil {
		out.reasons = append(out.reasons, ReasonExtractionFailed)
		return out
	}

	var authentic bool
	err = s.call(ctx, CapabilityAuthenticity, func(cctx context.Context) error {
		var err error
		authentic, err = s.providers.Authenticity.Validate(cctx, doc, raw)
		return err
	})
	if err != nil || !authentic {
		out.reasons = append(out.reasons, ReasonValidationFailed)
		return out
	}

	out.validated = true
	out.checks.DocumentValid = true
	out.fields = s.cfg.Fields.Resolve(doc.Type, raw)

	if selfie != nil {
		var matched bool
		err = s.call(ctx, CapabilityFaceMatch, func(cctx context.Context) error {
			var err error
			matched, err = s.providers.FaceMatch.Compare(cctx, doc, *selfie)
			return err
		})
		if err != nil {
			out.reasons = append(out.reasons, unavailable(CapabilityFaceMatch, err))
		}
		out.checks.FaceMatch = err == nil && matched
	}

	var address *string
	if v, ok := out.fields[FieldAddress]; ok {
		address = &v
	}
	var verified bool
	err = s.call(ctx, CapabilityAddress, func(cctx context.Context) error {
		var err error
		verified, err = s.providers.Address.Verify(cctx, address)
		return err
	})
	if err != nil {
		out.reasons = append(out.reasons, unavailable(CapabilityAddress, err))
	}
	out.checks.AddressVerification = err == nil && verified

	return out
}

func (s *service) checkLiveness(ctx context.Context, selfie order.Document, cl *checklist) {
	var live bool
	err := s.call(ctx, CapabilityLiveness, func(cctx context.Context) error {
		var err error
		live, err = s.providers.Liveness.Check(cctx, selfie)
		return err
	})
	if err != nil {
		cl.reasons = append(cl.reasons, unavailable(CapabilityLiveness, err))
	}
	cl.checks.LivenessCheck = err == nil && live
}

// screenSanctions runs once per verification on the merged full name
func (s *service) screenSanctions(ctx context.Context, cl *checklist) {
	if cl.data.FullName == nil {
		cl.reasons = append(cl.reasons, ReasonNameNotExtracted)
		return
	}

	var hit bool
	err := s.call(ctx, CapabilitySanctions, func(cctx context.Context) error {
		var err error
		hit, err = s.providers.Sanctions.Check(cctx, *cl.data.FullName)
		return err
	})
	switch {
	case err != nil:
		cl.reasons = append(cl.reasons, unavailable(CapabilitySanctions, err))
	case hit:
		cl.reasons = append(cl.reasons, ReasonSanctionsHit)
	default:
		cl.checks.SanctionsCheck = true
	}
}

// call bounds a provider call by the provider timeout and records its outcome
func (s *service) call(ctx context.Context, capability string, fn func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	start := time.Now()
	err := fn(cctx)
	if s.metrics != nil {
		s.metrics.RecordProviderCall(ctx, float64(time.Since(start).Microseconds())/1000, capability, err == nil)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "verification provider call failed",
			"capability", capability,
			"error", err,
		)
	}
	return err
}

func unavailable(capability string, err error) string {
	return fmt.Sprintf("%s unavailable: %v", capability, err)
}
