/*
balance.go - Wallet storage and atomic debit

PURPOSE:
  Defines the interface between the engine and wallet persistence.

WHY AN ATOMIC CONDITIONAL DEBIT?
  A naive read-compare-write of the balance is a check-then-act race: two
  concurrent purchases for a user with exactly enough coins for one item
  can both pass the check before either writes, over-debiting the wallet
  or silently losing one debit. DebitIfSufficient pushes the check and the
  decrement into a single store-side operation (one conditional UPDATE in
  SQLite, one critical section in memory), so the balance can never be
  observed negative regardless of concurrent callers.

COMPENSATION:
  Credit is used both for grants and for the compensating write when a
  benefit credit fails after a successful debit. Under the atomic-decrement
  model, crediting back the debited amount restores the pre-debit balance
  exactly without clobbering concurrent mutations.

SEE ALSO:
  - ../shop/settlement.go: The purchase flow built on these operations
*/
package radcoin

import "context"

// =============================================================================
// BALANCE STORE - Wallet persistence
// =============================================================================

type BalanceStore interface {
	// GetBalance returns the wallet for a user.
	// Returns ErrUserNotFound if no wallet exists.
	GetBalance(ctx context.Context, userID UserID) (Balance, error)

	// Credit adds coins (or points) to a wallet and refreshes UpdatedAt.
	// Returns the balance after the credit.
	Credit(ctx context.Context, userID UserID, amount Amount) (Balance, error)

	// DebitIfSufficient atomically subtracts amount from the wallet only if
	// the resulting balance stays non-negative. Returns the balance after
	// the debit, ErrInsufficientBalance (side-effect free) if the wallet is
	// short, or ErrUserNotFound if no wallet exists.
	DebitIfSufficient(ctx context.Context, userID UserID, amount Amount) (Balance, error)
}
