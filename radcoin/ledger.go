/*
ledger.go - Append-only RadCoin transaction log

PURPOSE:
  The Ledger is the immutable audit trail for every balance-affecting
  operation: purchases, login bonuses, event rewards, adjustments.
  The wallet balance itself lives in the BalanceStore; the ledger exists
  so that any balance can be explained after the fact.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, transactions cannot be modified
  3. IDEMPOTENT: Same idempotency key = same transaction (no duplicates)
  4. CHAINED: For a given user, summing Amount over entries in creation
     order reconstructs BalanceAfter of each entry from the prior one.
     The Auditor (audit.go) verifies this chain on demand.

CORRECTIONS:
  A mistaken entry is never edited. A reversal transaction with the
  opposite sign is appended instead; both remain in the ledger.

SEE ALSO:
  - store/memory.go: In-memory Store for tests
  - ../store/sqlite: Production Store
*/
package radcoin

import "context"

// =============================================================================
// STORE - Persistence interface for ledger entries (append-only)
// =============================================================================

// Store handles persistence of ledger transactions.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete. Ever.
type Store interface {
	// Append persists a transaction. This is the ONLY write operation.
	Append(ctx context.Context, tx Transaction) error

	// Load returns all transactions for a user, ordered by creation time.
	Load(ctx context.Context, userID UserID) ([]Transaction, error)

	// Exists checks if an idempotency key has already been recorded.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

// =============================================================================
// LEDGER - Idempotency-checked writer over a Store
// =============================================================================

type Ledger interface {
	Append(ctx context.Context, tx Transaction) error
	Transactions(ctx context.Context, userID UserID) ([]Transaction, error)

	// Exists reports whether an idempotency key has been recorded. Callers
	// that pre-check a key before side effects depend on this being part
	// of the contract, not a detail of one implementation.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

type DefaultLedger struct {
	Store Store
}

func NewLedger(store Store) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) Append(ctx context.Context, tx Transaction) error {
	if tx.IdempotencyKey != "" {
		exists, err := l.Store.Exists(ctx, tx.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.Store.Append(ctx, tx)
}

func (l *DefaultLedger) Transactions(ctx context.Context, userID UserID) ([]Transaction, error) {
	return l.Store.Load(ctx, userID)
}

func (l *DefaultLedger) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	return l.Store.Exists(ctx, idempotencyKey)
}
