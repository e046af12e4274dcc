package models

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountNotFound indicates the account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrTransactionNotFound indicates the transaction does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrInsufficientFunds indicates the mutation would take the balance
	// below zero on an account without overdraft.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrVersionConflict indicates a compare-and-apply lost the race against
	// a concurrent mutation. Retried internally by the ledger service.
	ErrVersionConflict = errors.New("account version conflict")
	// ErrConcurrencyExhausted indicates the retry bound was reached without a
	// successful commit. The whole operation is safe to retry by the caller.
	ErrConcurrencyExhausted = errors.New("concurrent update retries exhausted")
	// ErrForbidden indicates the actor does not own the target resource.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicateRequest indicates another submission with the same
	// idempotency key is still in flight. Retrying after it settles returns
	// its recorded outcome.
	ErrDuplicateRequest = errors.New("duplicate request in flight")
)

// ValidationError reports bad input shape or range. The caller must fix the
// request; retrying unchanged will fail again.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// CompensationFailure reports a transfer whose debit committed, whose credit
// failed, and whose compensating credit back to the source also failed. The
// reconciliation invariant is broken until the transfer is resolved manually.
type CompensationFailure struct {
	TransferID      string
	DebitTxID       int64
	SourceAccountID string
	Cause           error // the credit-leg failure that triggered compensation
	CompensationErr error // the failure of the compensation itself
}

func (e *CompensationFailure) Error() string {
	return fmt.Sprintf("transfer %s: compensation failed after debit %d on account %s: %v (original failure: %v)",
		e.TransferID, e.DebitTxID, e.SourceAccountID, e.CompensationErr, e.Cause)
}

// Unwrap exposes the compensation error for errors.Is/As chains.
func (e *CompensationFailure) Unwrap() error { return e.CompensationErr }
