/*
errors.go - Centralized error types for the RadCoin engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages (shop, events, tutor) wrap these with additional context.

ERROR CATEGORIES:
  1. Balance errors - Insufficient funds, missing wallets
  2. Ledger errors  - Duplicate idempotency keys, persistence failures
  3. Settlement errors - Benefit credit and compensation failures

USAGE:
  if errors.Is(err, radcoin.ErrInsufficientBalance) {
      // business-rule rejection, nothing was written
  }
*/
package radcoin

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUserNotFound is returned when no wallet exists for the user.
	// The API layer maps this to 401/404 depending on the route.
	ErrUserNotFound = errors.New("user not found")

	// ErrInsufficientBalance is returned when a debit exceeds the available
	// balance. Guaranteed side-effect free: nothing was written.
	ErrInsufficientBalance = errors.New("insufficient radcoin balance")

	// ErrDuplicateIdempotencyKey is returned when a ledger entry with the
	// same idempotency key already exists. Expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrStoreUnavailable is returned when the balance store cannot be
	// reached. Transient; callers may retry at their own discretion.
	ErrStoreUnavailable = errors.New("balance store unavailable")

	// ErrBenefitCreditFailed is returned when the debit succeeded but the
	// help-aid credit failed. A compensating write restored the balance.
	ErrBenefitCreditFailed = errors.New("benefit credit failed")

	// ErrCompensationFailed is returned when both the benefit credit and the
	// compensating balance write failed. The user is charged without benefit;
	// a reconcile_pending ledger entry records the stuck debit.
	ErrCompensationFailed = errors.New("compensating write failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	UserID    UserID
	Available Amount
	Requested Amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: available %v, requested %v",
		e.UserID, e.Available.Value, e.Requested.Value)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// AuditError reports a broken balance-after chain found by the Auditor.
type AuditError struct {
	UserID   UserID
	TxID     TransactionID
	Expected Amount
	Actual   Amount
}

func (e *AuditError) Error() string {
	return fmt.Sprintf("ledger chain broken at %s for %s: expected balance %v, recorded %v",
		e.TxID, e.UserID, e.Expected.Value, e.Actual.Value)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsClientError returns true if the error is due to the caller's state or
// input rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsNotFound returns true if the error indicates a missing wallet.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}
