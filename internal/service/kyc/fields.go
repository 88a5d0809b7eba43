package kyc

import (
	"strings"

	domain "github.com/davidleathers/p2p-trade-desk-backend/internal/domain/kyc"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/order"
)

// FieldID is a stable identifier for a personal data field, independent of
// how a given extractor names its patterns
type FieldID string

const (
	FieldFullName       FieldID = "full_name"
	FieldSurname        FieldID = "surname"
	FieldGivenNames     FieldID = "given_names"
	FieldDateOfBirth    FieldID = "date_of_birth"
	FieldDocumentNumber FieldID = "document_number"
	FieldNationality    FieldID = "nationality"
	FieldAddress        FieldID = "address"
	FieldIssueDate      FieldID = "issue_date"
	FieldExpiryDate     FieldID = "expiry_date"
	FieldAccountNumber  FieldID = "account_number"
	FieldBalance        FieldID = "balance"
)

// FieldMap maps an extractor's pattern keys to field ids per document type.
// Keys missing from the map are ignored.
type FieldMap map[order.DocumentType]map[string]FieldID

// DefaultFieldMap matches the pattern keys produced by providers.PatternExtractor
func DefaultFieldMap() FieldMap {
	return FieldMap{
		order.DocumentIDCard: {
			"id_number":   FieldDocumentNumber,
			"name":        FieldFullName,
			"dob":         FieldDateOfBirth,
			"nationality": FieldNationality,
			"issue_date":  FieldIssueDate,
			"expiry":      FieldExpiryDate,
		},
		order.DocumentPassport: {
			"passport_number": FieldDocumentNumber,
			"surname":         FieldSurname,
			"given_names":     FieldGivenNames,
			"nationality":     FieldNationality,
			"dob":             FieldDateOfBirth,
			"issue_date":      FieldIssueDate,
			"expiry":          FieldExpiryDate,
		},
		order.DocumentDriversLicense: {
			"license_number": FieldDocumentNumber,
			"name":           FieldFullName,
			"dob":            FieldDateOfBirth,
			"address":        FieldAddress,
			"expiry":         FieldExpiryDate,
		},
		order.DocumentBankStatement: {
			"account_number": FieldAccountNumber,
			"balance":        FieldBalance,
			"address":        FieldAddress,
		},
		order.DocumentUtilityBill: {
			"account_number": FieldAccountNumber,
			"address":        FieldAddress,
		},
	}
}

// Resolve converts raw extractor output into field ids. A passport's given
// names and surname compose the full name when no explicit name is present.
func (m FieldMap) Resolve(docType order.DocumentType, raw map[string]string) map[FieldID]string {
	keys := m[docType]
	out := make(map[FieldID]string, len(raw))
	for key, value := range raw {
		id, ok := keys[key]
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		out[id] = value
	}

	if _, ok := out[FieldFullName]; !ok {
		given, surname := out[FieldGivenNames], out[FieldSurname]
		if full := strings.TrimSpace(given + " " + surname); given != "" || surname != "" {
			out[FieldFullName] = full
		}
	}

	return out
}

// applyFields copies fields into data without overwriting values already set
func applyFields(data *domain.ExtractedData, fields map[FieldID]string) {
	set := func(dst **string, id FieldID) {
		if *dst != nil {
			return
		}
		if v, ok := fields[id]; ok && v != "" {
			v := v
			*dst = &v
		}
	}

	set(&data.FullName, FieldFullName)
	set(&data.DateOfBirth, FieldDateOfBirth)
	set(&data.DocumentNumber, FieldDocumentNumber)
	set(&data.Nationality, FieldNationality)
	set(&data.Address, FieldAddress)
	set(&data.IssueDate, FieldIssueDate)
	set(&data.ExpiryDate, FieldExpiryDate)
}
