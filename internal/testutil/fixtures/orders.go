package fixtures

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/order"
)

// ReferenceTime is a weekday noon in UTC, inside normal trading hours
var ReferenceTime = time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)

// OrderBuilder builds test Order entities
type OrderBuilder struct {
	t                *testing.T
	id               string
	side             order.Side
	amount           decimal.Decimal
	price            decimal.Decimal
	currency         string
	paymentMethod    string
	counterpartyID   string
	counterpartyName string
	status           order.Status
	createdAt        time.Time
	messages         []order.ChatMessage
	documents        []order.Document
	kyc              *order.KYCSnapshot
}

// NewOrderBuilder creates a new OrderBuilder with defaults
func NewOrderBuilder(t *testing.T) *OrderBuilder {
	t.Helper()

	return &OrderBuilder{
		t:                t,
		id:               "ord-" + uuid.New().String()[:8],
		side:             order.SideBuy,
		amount:           decimal.NewFromInt(100),
		price:            decimal.RequireFromString("1.00"),
		currency:         "USDT",
		paymentMethod:    "BANK_TRANSFER",
		counterpartyID:   "cp-" + uuid.New().String()[:8],
		counterpartyName: "Test Trader",
		status:           order.StatusPending,
		createdAt:        ReferenceTime,
	}
}

// WithID sets the order ID
func (b *OrderBuilder) WithID(id string) *OrderBuilder {
	b.id = id
	return b
}

// WithAmount sets the trade amount
func (b *OrderBuilder) WithAmount(amount int64) *OrderBuilder {
	b.amount = decimal.NewFromInt(amount)
	return b
}

// WithPaymentMethod sets the payment method label
func (b *OrderBuilder) WithPaymentMethod(method string) *OrderBuilder {
	b.paymentMethod = method
	return b
}

// WithCounterparty sets the counterparty id
func (b *OrderBuilder) WithCounterparty(id string) *OrderBuilder {
	b.counterpartyID = id
	return b
}

// WithStatus sets the order status
func (b *OrderBuilder) WithStatus(status order.Status) *OrderBuilder {
	b.status = status
	return b
}

// WithCreatedAt sets the creation time
func (b *OrderBuilder) WithCreatedAt(at time.Time) *OrderBuilder {
	b.createdAt = at
	return b
}

// WithMessage appends a chat message
func (b *OrderBuilder) WithMessage(sender order.MessageSender, content string) *OrderBuilder {
	b.messages = append(b.messages, order.ChatMessage{
		ID:      fmt.Sprintf("msg-%d", len(b.messages)+1),
		Sender:  sender,
		Content: content,
		SentAt:  b.createdAt.Add(time.Duration(len(b.messages)+1) * time.Minute),
	})
	return b
}

// WithDocument appends a document
func (b *OrderBuilder) WithDocument(doc order.Document) *OrderBuilder {
	if doc.ID == "" {
		doc.ID = fmt.Sprintf("doc-%d", len(b.documents)+1)
	}
	if doc.Status == "" {
		doc.Status = order.ProcessingDone
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = b.createdAt.Add(time.Duration(len(b.documents)+1) * time.Minute)
	}
	b.documents = append(b.documents, doc)
	return b
}

// WithKYC sets the stored KYC snapshot
func (b *OrderBuilder) WithKYC(status order.KYCStatus, score float64) *OrderBuilder {
	b.kyc = &order.KYCSnapshot{Status: status, RiskScore: &score, VerifiedAt: b.createdAt}
	return b
}

// Build creates the Order
func (b *OrderBuilder) Build() *order.Order {
	b.t.Helper()

	o := &order.Order{
		ID:               b.id,
		Side:             b.side,
		Amount:           b.amount,
		Price:            b.price,
		Currency:         b.currency,
		PaymentMethod:    b.paymentMethod,
		CounterpartyID:   b.counterpartyID,
		CounterpartyName: b.counterpartyName,
		Status:           b.status,
		CreatedAt:        b.createdAt,
		Messages:         append([]order.ChatMessage(nil), b.messages...),
		Documents:        append([]order.Document(nil), b.documents...),
		KYC:              b.kyc,
	}
	for i := range o.Messages {
		o.Messages[i].OrderID = o.ID
	}
	for i := range o.Documents {
		o.Documents[i].OrderID = o.ID
	}
	return o
}

// History builds n prior orders for a counterparty, one per day going back
// from ReferenceTime, all with the given status and amount
func History(t *testing.T, counterpartyID string, n int, status order.Status, amount int64) []*order.Order {
	t.Helper()

	out := make([]*order.Order, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, NewOrderBuilder(t).
			WithID(fmt.Sprintf("hist-%s-%d", counterpartyID, i)).
			WithCounterparty(counterpartyID).
			WithStatus(status).
			WithAmount(amount).
			WithCreatedAt(ReferenceTime.Add(-time.Duration(i+2) * 24 * time.Hour)).
			Build())
	}
	return out
}

// IDDocument returns a processed ID card with OCR text
func IDDocument(text string, confidence float64) order.Document {
	return order.Document{
		Type:          order.DocumentIDCard,
		Status:        order.ProcessingDone,
		FileName:      "id_card.jpg",
		OCRText:       &text,
		OCRConfidence: &confidence,
	}
}

// PassportDocument returns a processed passport with OCR text
func PassportDocument(text string) order.Document {
	confidence := 0.93
	return order.Document{
		Type:          order.DocumentPassport,
		Status:        order.ProcessingDone,
		FileName:      "passport.jpg",
		OCRText:       &text,
		OCRConfidence: &confidence,
	}
}

// SelfieDocument returns a processed selfie
func SelfieDocument() order.Document {
	return order.Document{
		Type:     order.DocumentSelfie,
		Status:   order.ProcessingDone,
		FileName: "selfie.jpg",
	}
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s
func String(s string) *string {
	return &s
}
