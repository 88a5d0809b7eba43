package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	ErrNotFound     = errors.New("entity not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
	ErrForeignKey   = errors.New("foreign key violation")
)

// SQLSTATE class 23 codes the repositories translate
const (
	sqlStateForeignKey = "23503"
	sqlStateUnique     = "23505"
)

// sqlState digs the SQLSTATE out of either driver's error type. The pool
// runs pgx through database/sql; the migrate tooling and integration
// tests go through lib/pq.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func IsForeignKeyViolation(err error) bool {
	return sqlState(err) == sqlStateForeignKey
}

func IsDuplicateKeyViolation(err error) bool {
	return sqlState(err) == sqlStateUnique
}

// IsNotFound matches the no-rows errors of both sql packages
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

// WrapRepositoryError prefixes err with op and swaps constraint failures
// for the matching sentinel, keeping the driver text for the logs.
func WrapRepositoryError(err error, op string) error {
	var sentinel error
	switch {
	case err == nil:
		return nil
	case IsNotFound(err):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case IsDuplicateKeyViolation(err):
		sentinel = ErrDuplicateKey
	case IsForeignKeyViolation(err):
		sentinel = ErrForeignKey
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, sentinel, err)
}
