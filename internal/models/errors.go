package models

import (
	"errors"
	"fmt"
)

// Machine-readable error codes crossing the API boundary
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeProductNotFound     = "PRODUCT_NOT_FOUND"
	CodeOrderNotFound       = "ORDER_NOT_FOUND"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeDuplicateSubmission = "DUPLICATE_SUBMISSION"
	CodeTransactionConflict = "TRANSACTION_CONFLICT"
	CodePersistence         = "PERSISTENCE_ERROR"
	CodeInvalidTransition   = "INVALID_TRANSITION"
)

// ValidationError rejects a malformed request before any transaction starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ProductNotFoundError means a referenced product no longer exists in the
// catalog. Name is set when it was known at lookup time.
type ProductNotFoundError struct {
	ProductID int64
	Name      string
}

func (e *ProductNotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("product %q (id %d) not found", e.Name, e.ProductID)
	}
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// OrderNotFoundError means the referenced order does not exist.
type OrderNotFoundError struct {
	OrderID int64
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order %d not found", e.OrderID)
}

// InsufficientStockError carries the available count so the UI can prompt a
// quantity reduction.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available=%d, requested=%d",
		e.ProductID, e.Available, e.Requested)
}

// DuplicateSubmissionError means another order already holds this payment
// reference. Not a failure for the caller: the guard resolves it to the
// winner's order id. OrderID is zero when the loser detected the duplicate
// at commit time and has not re-queried yet.
type DuplicateSubmissionError struct {
	PaymentID string
	OrderID   int64
}

func (e *DuplicateSubmissionError) Error() string {
	return fmt.Sprintf("payment reference %s already submitted", e.PaymentID)
}

// TransactionConflictError surfaces after the placement retry bound is
// exhausted. Safe to resubmit: the idempotency guard absorbs the retry.
type TransactionConflictError struct {
	Attempts int
}

func (e *TransactionConflictError) Error() string {
	return fmt.Sprintf("transaction conflict after %d attempts", e.Attempts)
}

// PersistenceError hides backing-store failures behind an opaque reference
// code for support lookup.
type PersistenceError struct {
	Ref   string
	cause error
}

func NewPersistenceError(ref string, cause error) *PersistenceError {
	return &PersistenceError{Ref: ref, cause: cause}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure (ref %s)", e.Ref)
}

func (e *PersistenceError) Unwrap() error { return e.cause }

// InvalidTransitionError rejects a status change absent from the transition
// table. No mutation occurs.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// ErrorCode maps an error to its machine code, defaulting to
// CodePersistence for anything unrecognized so no internal detail leaks.
func ErrorCode(err error) string {
	var (
		validation   *ValidationError
		notFound     *ProductNotFoundError
		orderMissing *OrderNotFoundError
		stock        *InsufficientStockError
		duplicate    *DuplicateSubmissionError
		conflict     *TransactionConflictError
		transition   *InvalidTransitionError
	)
	switch {
	case errors.As(err, &validation):
		return CodeValidation
	case errors.As(err, &notFound):
		return CodeProductNotFound
	case errors.As(err, &orderMissing):
		return CodeOrderNotFound
	case errors.As(err, &stock):
		return CodeInsufficientStock
	case errors.As(err, &duplicate):
		return CodeDuplicateSubmission
	case errors.As(err, &conflict):
		return CodeTransactionConflict
	case errors.As(err, &transition):
		return CodeInvalidTransition
	}
	return CodePersistence
}
