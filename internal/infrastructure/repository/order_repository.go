package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/errors"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/order"
)

const orderColumns = `id, side, amount, price, currency, payment_method,
			counterparty_id, counterparty_name, status, created_at`

// OrderRepository reads orders together with their chat, documents and
// latest KYC outcome. It serves both decision engines.
type OrderRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db, now: time.Now}
}

// GetByID loads a fully populated order. Unknown ids yield an ORDER_NOT_FOUND error.
func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*order.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
	`

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if IsNotFound(err) {
			return nil, errors.NewOrderNotFoundError(orderID)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if o.Messages, err = r.messages(ctx, orderID); err != nil {
		return nil, err
	}
	if o.Documents, err = r.documents(ctx, orderID); err != nil {
		return nil, err
	}
	if o.KYC, err = r.latestKYC(ctx, orderID); err != nil {
		return nil, err
	}

	return o, nil
}

// RecentByCounterparty returns the counterparty's orders created within the
// window, newest first. Chat and documents are not loaded.
func (r *OrderRepository) RecentByCounterparty(ctx context.Context, counterpartyID string, window time.Duration) ([]*order.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE counterparty_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`

	since := r.now().Add(-window).UTC()
	return r.listOrders(ctx, "recent orders", query, counterpartyID, since)
}

// HistoryByCounterparty returns up to limit of the counterparty's orders, newest first
func (r *OrderRepository) HistoryByCounterparty(ctx context.Context, counterpartyID string, limit int) ([]*order.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE counterparty_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.listOrders(ctx, "order history", query, counterpartyID, limit)
}

func (r *OrderRepository) listOrders(ctx context.Context, what, query string, args ...interface{}) ([]*order.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", what, err)
	}

	return orders, nil
}

func (r *OrderRepository) messages(ctx context.Context, orderID string) ([]order.ChatMessage, error) {
	query := `
		SELECT id, order_id, sender, content, sent_at
		FROM chat_messages
		WHERE order_id = $1
		ORDER BY sent_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []order.ChatMessage
	for rows.Next() {
		var m order.ChatMessage
		var sender string
		if err := rows.Scan(&m.ID, &m.OrderID, &sender, &m.Content, &m.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		m.Sender = order.MessageSender(sender)
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}

	return messages, nil
}

func (r *OrderRepository) documents(ctx context.Context, orderID string) ([]order.Document, error) {
	query := `
		SELECT id, order_id, type, status, file_name, ocr_text, ocr_confidence, uploaded_at
		FROM order_documents
		WHERE order_id = $1
		ORDER BY uploaded_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []order.Document
	for rows.Next() {
		var d order.Document
		var docType, status string
		var ocrText sql.NullString
		var ocrConfidence sql.NullFloat64

		if err := rows.Scan(&d.ID, &d.OrderID, &docType, &status, &d.FileName, &ocrText, &ocrConfidence, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		d.Type = order.DocumentType(docType)
		d.Status = order.ProcessingStatus(status)
		if ocrText.Valid {
			d.OCRText = &ocrText.String
		}
		if ocrConfidence.Valid {
			d.OCRConfidence = &ocrConfidence.Float64
		}
		docs = append(docs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// latestKYC returns the most recent stored verification, or nil when the
// order was never verified.
func (r *OrderRepository) latestKYC(ctx context.Context, orderID string) (*order.KYCSnapshot, error) {
	query := `
		SELECT status, score, created_at
		FROM kyc_verifications
		WHERE order_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var status string
	var score float64
	var verifiedAt time.Time

	err := r.db.QueryRowContext(ctx, query, orderID).Scan(&status, &score, &verifiedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get kyc verification: %w", err)
	}

	return &order.KYCSnapshot{
		Status:     order.KYCStatus(status),
		RiskScore:  &score,
		VerifiedAt: verifiedAt,
	}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var o order.Order
	var side, status string

	err := row.Scan(
		&o.ID, &side, &o.Amount, &o.Price, &o.Currency, &o.PaymentMethod,
		&o.CounterpartyID, &o.CounterpartyName, &status, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Side = order.Side(side)
	o.Status = order.Status(status)
	return &o, nil
}
