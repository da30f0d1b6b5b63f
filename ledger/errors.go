/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Collaborators branch on these with errors.Is / errors.As; the engine never
  logs-and-swallows an error.

ERROR CATEGORIES:
  1. Validation errors - caller-correctable, rejected before any state change
  2. Business-rule errors - insufficient balance on checked paths
  3. Infrastructure errors - persistence unavailable, concurrent modification

USAGE:
  _, err := engine.ApplyInternalTransfer(ctx, req)
  var short *ledger.InsufficientBalanceError
  if errors.As(err, &short) {
      fmt.Printf("short by %d\n", short.Shortfall())
  }

SEE ALSO:
  - engine.go: Raises these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// Validation
	ErrDuplicateCashAccount = errors.New("a cash account already exists")
	ErrSameAccount          = errors.New("source and destination account are the same")
	ErrMissingReceiver      = errors.New("payment receiver account is required")
	ErrMissingSource        = errors.New("source account is required")
	ErrMissingDestination   = errors.New("destination account is required")
	ErrNoSettlementTarget   = errors.New("merchant account has no settlement target")
	ErrAccountNotFound      = errors.New("account not found")
	ErrSplitMismatch        = errors.New("split amounts do not add up to the total")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidFee           = errors.New("fee must not be negative")
	ErrInvalidAccount       = errors.New("invalid account")
	ErrMissingEntry         = errors.New("mutation entry is required")
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
	ErrInvalidTransaction   = errors.New("invalid transaction")
	ErrDeltaMismatch        = errors.New("deltas do not match the mutations")

	// Business rule
	ErrInsufficientBalance = errors.New("insufficient balance")

	// Infrastructure
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	AccountID AccountID
	Available int64
	Required  int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on %s: available %d, required %d",
		e.AccountID, e.Available, e.Required)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Shortfall is how much more the account would need.
func (e *InsufficientBalanceError) Shortfall() int64 { return e.Required - e.Available }

// SplitMismatchError reports split legs that do not cover the bill.
type SplitMismatchError struct {
	Cash     int64
	Transfer int64
	Total    int64
}

func (e *SplitMismatchError) Error() string {
	return fmt.Sprintf("split cash %d + transfer %d != total %d", e.Cash, e.Transfer, e.Total)
}

func (e *SplitMismatchError) Unwrap() error { return ErrSplitMismatch }

// AccountError ties a validation failure to the account reference involved.
type AccountError struct {
	AccountID AccountID
	Err       error
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("%s: %v", e.AccountID, e.Err)
}

func (e *AccountError) Unwrap() error { return e.Err }

// PersistenceError wraps a store failure. It matches both
// ErrPersistenceUnavailable and the underlying cause.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: persistence unavailable: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistenceUnavailable, e.Err}
}

func notFound(id AccountID) error {
	return &AccountError{AccountID: id, Err: ErrAccountNotFound}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true for caller-correctable input errors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrDuplicateCashAccount) ||
		errors.Is(err, ErrSameAccount) ||
		errors.Is(err, ErrMissingReceiver) ||
		errors.Is(err, ErrMissingSource) ||
		errors.Is(err, ErrMissingDestination) ||
		errors.Is(err, ErrNoSettlementTarget) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrSplitMismatch) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidFee) ||
		errors.Is(err, ErrInvalidAccount) ||
		errors.Is(err, ErrMissingEntry) ||
		errors.Is(err, ErrInvalidPaymentMethod) ||
		errors.Is(err, ErrInvalidTransaction) ||
		errors.Is(err, ErrDeltaMismatch)
}

// IsBusinessRule returns true when a checked path refused the operation.
func IsBusinessRule(err error) bool {
	return errors.Is(err, ErrInsufficientBalance)
}

// IsRetryable returns true if the error might succeed on retry.
// The engine itself never retries.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistenceUnavailable) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsNotFound returns true if the error indicates a missing account.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

// wrapStore classifies an error coming back from a Store call. Domain and
// concurrency errors pass through; everything else, deadline expiry
// included, becomes a PersistenceError.
func wrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) || IsBusinessRule(err) || errors.Is(err, ErrConcurrentModification) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
