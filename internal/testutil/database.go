package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/domain/order"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/database"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/testutil/containers"
)

// TestDB is a migrated PostgreSQL database running in a container
type TestDB struct {
	t  *testing.T
	db *sql.DB
}

// NewTestDB starts a postgres container and applies every migration. Skipped with -short.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := containers.NewPostgresContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	// the migrator closes the handle it runs on
	migrateDB, err := sql.Open("postgres", pg.ConnectionString)
	require.NoError(t, err)
	m, err := database.NewMigrator(migrateDB, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Up(0))
	require.NoError(t, m.Close())

	db, err := sql.Open("postgres", pg.ConnectionString)
	require.NoError(t, err)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.PingContext(ctx))

	return &TestDB{t: t, db: db}
}

// DB returns the underlying database connection
func (tdb *TestDB) DB() *sql.DB {
	return tdb.db
}

// Truncate empties every application table
func (tdb *TestDB) Truncate() {
	tdb.t.Helper()

	_, err := tdb.db.Exec(`TRUNCATE orders, chat_messages, order_documents, risk_assessments, kyc_verifications CASCADE`)
	require.NoError(tdb.t, err)
}

// SeedOrder inserts the order with its chat messages and documents. The KYC snapshot is not stored.
func (tdb *TestDB) SeedOrder(o *order.Order) {
	tdb.t.Helper()
	ctx := context.Background()

	_, err := tdb.db.ExecContext(ctx, `
		INSERT INTO orders (id, side, amount, price, currency, payment_method,
			counterparty_id, counterparty_name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, string(o.Side), o.Amount.String(), o.Price.String(), o.Currency, o.PaymentMethod,
		o.CounterpartyID, o.CounterpartyName, string(o.Status), o.CreatedAt,
	)
	require.NoError(tdb.t, err)

	for _, m := range o.Messages {
		_, err := tdb.db.ExecContext(ctx, `
			INSERT INTO chat_messages (id, order_id, sender, content, sent_at)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID+"-"+m.ID, o.ID, string(m.Sender), m.Content, m.SentAt,
		)
		require.NoError(tdb.t, err)
	}

	for _, d := range o.Documents {
		_, err := tdb.db.ExecContext(ctx, `
			INSERT INTO order_documents (id, order_id, type, status, file_name, ocr_text, ocr_confidence, uploaded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			o.ID+"-"+d.ID, o.ID, string(d.Type), string(d.Status), d.FileName, d.OCRText, d.OCRConfidence, d.UploadedAt,
		)
		require.NoError(tdb.t, err)
	}
}
