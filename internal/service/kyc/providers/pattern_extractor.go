package providers

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/order"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/service/kyc"
)

var _ kyc.DocumentTextExtractor = (*PatternExtractor)(nil)

// ErrNoText is returned when a document carries no OCR text
var ErrNoText = errors.New("document has no OCR text")

// Value shapes shared by the rules below
const (
	valueNumber = `[A-Z0-9][A-Z0-9\-]{3,31}`
	valueName   = `[A-Z][A-Z'\.\- ]*[A-Z\.]`
	valueDate   = `\d{4}-\d{2}-\d{2}|\d{2}[./]\d{2}[./]\d{4}`
	valueText   = `\S.*?`
	valueCode   = `[A-Z]{3}|[A-Z][A-Z ]+[A-Z]`
	valueAmount = `[-+]?\d[\d,]*(?:\.\d{1,2})?`
)

type rule struct {
	key string
	re  *regexp.Regexp
}

// labelled builds a rule matching a "LABEL: value" line
func labelled(key, labels, value string) rule {
	return rule{
		key: key,
		re:  regexp.MustCompile(`(?im)^[ \t]*(?:` + labels + `)[ \t]*[:#][ \t]*(` + value + `)[ \t]*\r?$`),
	}
}

var (
	dobRule         = labelled("dob", `DATE OF BIRTH|BIRTH DATE|DOB`, valueDate)
	nationalityRule = labelled("nationality", `NATIONALITY`, valueCode)
	issueRule       = labelled("issue_date", `DATE OF ISSUE|ISSUE DATE|ISSUED`, valueDate)
	expiryRule      = labelled("expiry", `DATE OF EXPIRY|EXPIRY DATE|EXPIRES|EXPIRY|VALID UNTIL`, valueDate)
	nameRule        = labelled("name", `FULL NAME|NAME`, valueName)
	addressRule     = labelled("address", `ADDRESS`, valueText)
	accountRule     = labelled("account_number", `ACCOUNT NUMBER|ACCOUNT NO\.?|ACCOUNT`, valueNumber)
)

// defaultRules returns the extraction rules per document type. Keys line up
// with kyc.DefaultFieldMap.
func defaultRules() map[order.DocumentType][]rule {
	return map[order.DocumentType][]rule{
		order.DocumentIDCard: {
			labelled("id_number", `IDENTITY NUMBER|ID NUMBER|ID NO\.?|DOCUMENT NUMBER|DOCUMENT NO\.?`, valueNumber),
			nameRule,
			dobRule,
			nationalityRule,
			issueRule,
			expiryRule,
		},
		order.DocumentPassport: {
			labelled("passport_number", `PASSPORT NUMBER|PASSPORT NO\.?`, valueNumber),
			labelled("surname", `SURNAME|LAST NAME`, valueName),
			labelled("given_names", `GIVEN NAMES|GIVEN NAME|FIRST NAMES|FIRST NAME`, valueName),
			nationalityRule,
			dobRule,
			issueRule,
			expiryRule,
		},
		order.DocumentDriversLicense: {
			labelled("license_number", `LICEN[CS]E NUMBER|LICEN[CS]E NO\.?|DL NO\.?`, valueNumber),
			nameRule,
			dobRule,
			addressRule,
			expiryRule,
		},
		order.DocumentBankStatement: {
			accountRule,
			labelled("balance", `CLOSING BALANCE|BALANCE`, valueAmount),
			addressRule,
		},
		order.DocumentUtilityBill: {
			accountRule,
			addressRule,
		},
	}
}

// PatternExtractor pulls labelled fields out of OCR text with per document
// type regular expressions. It never calls out of process.
type PatternExtractor struct {
	rules map[order.DocumentType][]rule
}

// NewPatternExtractor creates an extractor with the built-in rules
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{rules: defaultRules()}
}

// ExtractFields returns pattern key -> value for every rule that matched.
// The first matching line wins for each key.
func (e *PatternExtractor) ExtractFields(ctx context.Context, doc order.Document) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc.OCRText == nil || strings.TrimSpace(*doc.OCRText) == "" {
		return nil, ErrNoText
	}

	text := *doc.OCRText
	fields := make(map[string]string)
	for _, r := range e.rules[doc.Type] {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v := collapseSpaces(m[1]); v != "" {
			fields[r.key] = v
		}
	}
	return fields, nil
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
