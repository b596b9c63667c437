/*
grants.go - Credit-and-record helper for coin grants

PURPOSE:
  Every grant (daily login bonus, event reward, manual adjustment) is a
  credit to the wallet plus a ledger entry. Grantor does both in one call
  so callers cannot forget the audit trail.

IDEMPOTENCY:
  Grants carry an idempotency key; replaying the same grant (retries,
  double-clicks, rerun jobs) records nothing the second time. The daily
  login bonus keys on user+date, so a user can claim it at most once per
  calendar day.
*/
package radcoin

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// GRANTOR
// =============================================================================

type Grantor struct {
	Balances BalanceStore
	Ledger   Ledger
}

func NewGrantor(balances BalanceStore, ledger Ledger) *Grantor {
	return &Grantor{Balances: balances, Ledger: ledger}
}

// Grant credits amount to the user's wallet and appends a ledger entry.
// The idempotency key is checked BEFORE the credit so a replayed grant is
// a complete no-op. A failed ledger append reverts the credit: the grant
// either fully lands (credit plus entry) or leaves the wallet untouched,
// so the caller may retry on error.
func (g *Grantor) Grant(ctx context.Context, userID UserID, txType TransactionType, amount Amount, idempotencyKey string, metadata map[string]string) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, fmt.Errorf("grant amount must be positive, got %v", amount.Value)
	}

	if idempotencyKey != "" {
		exists, err := g.Ledger.Exists(ctx, idempotencyKey)
		if err != nil {
			return Transaction{}, err
		}
		if exists {
			return Transaction{}, ErrDuplicateIdempotencyKey
		}
	}

	balance, err := g.Balances.Credit(ctx, userID, amount)
	if err != nil {
		return Transaction{}, err
	}

	tx := Transaction{
		ID:             TransactionID(uuid.NewString()),
		UserID:         userID,
		Type:           txType,
		Amount:         amount,
		BalanceAfter:   balance.RadCoins,
		Metadata:       metadata,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}
	if err := g.Ledger.Append(ctx, tx); err != nil {
		// The key was never recorded, so a retry would credit again on top
		// of this one. Revert the credit so the retry starts clean. The
		// debit is a decrement, not a reset: concurrent mutations between
		// the two steps are preserved.
		if _, derr := g.Balances.DebitIfSufficient(ctx, userID, amount); derr != nil {
			log.Printf("radcoin: grant compensation failed for user %s key %q: %v (cause: %v)",
				userID, idempotencyKey, derr, err)
			return Transaction{}, fmt.Errorf("%w after ledger append error: %v", ErrCompensationFailed, err)
		}
		return Transaction{}, fmt.Errorf("recording grant: %w", err)
	}
	return tx, nil
}

// DailyLoginBonus credits the login bonus for the given day, at most once
// per user per calendar day.
func (g *Grantor) DailyLoginBonus(ctx context.Context, userID UserID, amount Amount, day time.Time) (Transaction, error) {
	key := fmt.Sprintf("daily-login-%s-%s", userID, day.UTC().Format("2006-01-02"))
	return g.Grant(ctx, userID, TxDailyLogin, amount, key, map[string]string{
		"day": day.UTC().Format("2006-01-02"),
	})
}

// EventReward credits an event prize, at most once per event per user.
func (g *Grantor) EventReward(ctx context.Context, userID UserID, eventID string, rank int, amount Amount) (Transaction, error) {
	key := fmt.Sprintf("event-reward-%s-%s", eventID, userID)
	return g.Grant(ctx, userID, TxEventReward, amount, key, map[string]string{
		"event_id": eventID,
		"rank":     fmt.Sprintf("%d", rank),
	})
}
