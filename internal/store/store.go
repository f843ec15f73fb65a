package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const defaultPlacementAttempts = 5

type Store struct {
	db *sqlx.DB

	// MaxPlacementAttempts bounds the retry loop of PlaceOrder. Conflicts
	// past the bound surface as TransactionConflictError.
	MaxPlacementAttempts int
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, MaxPlacementAttempts: defaultPlacementAttempts}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// isSerializationFailure reports whether err is a Postgres write conflict the
// placement transaction should retry: serialization_failure (40001) or
// deadlock_detected (40P01).
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

// isPaymentIDConflict reports whether err is the unique_violation raised by
// two transactions committing the same payment reference.
func isPaymentIDConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, "payment_id")
}
