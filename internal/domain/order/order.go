package order

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a single P2P trade discovered on the exchange. The decision
// engines only read it.
type Order struct {
	ID               string          `json:"id"`
	Side             Side            `json:"side"`
	Amount           decimal.Decimal `json:"amount"`
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency"`
	PaymentMethod    string          `json:"payment_method"`
	CounterpartyID   string          `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	Status           Status          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`

	Messages  []ChatMessage `json:"messages,omitempty"`
	Documents []Document    `json:"documents,omitempty"`

	// KYC is the latest stored identity verification for this order, if any.
	KYC *KYCSnapshot `json:"kyc,omitempty"`
}

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusDisputed  Status = "DISPUTED"
)

// ChatMessage is one message in the order's trade chat.
type ChatMessage struct {
	ID      string        `json:"id"`
	OrderID string        `json:"order_id"`
	Sender  MessageSender `json:"sender"`
	Content string        `json:"content"`
	SentAt  time.Time     `json:"sent_at"`
}

type MessageSender string

const (
	SenderCounterparty MessageSender = "COUNTERPARTY"
	SenderOperator     MessageSender = "OPERATOR"
	SenderSystem       MessageSender = "SYSTEM"
)

// Document is a file the counterparty attached to the order, together with
// whatever the OCR backend produced for it.
type Document struct {
	ID            string           `json:"id"`
	OrderID       string           `json:"order_id"`
	Type          DocumentType     `json:"type"`
	Status        ProcessingStatus `json:"status"`
	FileName      string           `json:"file_name"`
	OCRText       *string          `json:"ocr_text,omitempty"`
	OCRConfidence *float64         `json:"ocr_confidence,omitempty"`
	UploadedAt    time.Time        `json:"uploaded_at"`
}

type DocumentType string

const (
	DocumentIDCard         DocumentType = "ID_CARD"
	DocumentPassport       DocumentType = "PASSPORT"
	DocumentDriversLicense DocumentType = "DRIVERS_LICENSE"
	DocumentSelfie         DocumentType = "SELFIE"
	DocumentBankStatement  DocumentType = "BANK_STATEMENT"
	DocumentUtilityBill    DocumentType = "UTILITY_BILL"
	DocumentPaymentProof   DocumentType = "PAYMENT_PROOF"
	DocumentOther          DocumentType = "OTHER"
)

// IsIdentity reports whether the document type can establish identity.
func (t DocumentType) IsIdentity() bool {
	switch t {
	case DocumentIDCard, DocumentPassport, DocumentDriversLicense:
		return true
	default:
		return false
	}
}

type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "PENDING"
	ProcessingInProgress ProcessingStatus = "PROCESSING"
	ProcessingDone       ProcessingStatus = "PROCESSED"
	ProcessingFailed     ProcessingStatus = "FAILED"
)

// KYCSnapshot is the last stored KYC outcome as seen by the risk engine.
type KYCSnapshot struct {
	Status     KYCStatus `json:"status"`
	RiskScore  *float64  `json:"risk_score,omitempty"`
	VerifiedAt time.Time `json:"verified_at"`
}

type KYCStatus string

const (
	KYCPending        KYCStatus = "PENDING"
	KYCInProgress     KYCStatus = "IN_PROGRESS"
	KYCApproved       KYCStatus = "APPROVED"
	KYCRejected       KYCStatus = "REJECTED"
	KYCRequiresReview KYCStatus = "REQUIRES_REVIEW"
)

// CounterpartyMessages returns the chat messages authored by the counterparty, in chat order.
func (o *Order) CounterpartyMessages() []ChatMessage {
	var out []ChatMessage
	for _, m := range o.Messages {
		if m.Sender == SenderCounterparty {
			out = append(out, m)
		}
	}
	return out
}

// IdentityDocuments returns attached ID cards, passports and driver's licenses in upload order.
func (o *Order) IdentityDocuments() []Document {
	var out []Document
	for _, d := range o.Documents {
		if d.Type.IsIdentity() {
			out = append(out, d)
		}
	}
	return out
}

// Selfie returns the first attached selfie, or nil.
func (o *Order) Selfie() *Document {
	for i := range o.Documents {
		if o.Documents[i].Type == DocumentSelfie {
			return &o.Documents[i]
		}
	}
	return nil
}

// NormalizePaymentMethod upper-cases and trims a payment method label so
// "Gift Cards" and "GIFT_CARDS" compare equal.
func NormalizePaymentMethod(method string) string {
	m := strings.ToUpper(strings.TrimSpace(method))
	m = strings.ReplaceAll(m, "-", "_")
	return strings.ReplaceAll(m, " ", "_")
}
