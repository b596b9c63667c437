/*
Package helpaid manages per-user help-aid inventories.

PURPOSE:
  Help aids are the consumables users spend while solving cases:
  eliminating wrong answer options, skipping a case, or asking the AI
  tutor. Inventories are three independent non-negative counters per user,
  created implicitly on first grant and never deleted.

ATOMICITY:
  Grant increments all three counters in a single store-side operation
  (one UPSERT in SQLite). It either fully succeeds or fully fails; the
  purchase-settlement flow relies on that to keep its compensation logic
  simple.

SEE ALSO:
  - shop/settlement.go: Credits inventories after a purchase debit
  - tutor/tutor.go: Consumes ai_tutor_credits
*/
package helpaid

import (
	"context"
	"errors"
)

// =============================================================================
// TYPES
// =============================================================================

// Type identifies one of the three consumable aid kinds.
type Type string

const (
	Elimination Type = "elimination_aids"
	Skip        Type = "skip_aids"
	AITutor     Type = "ai_tutor_credits"
)

// Inventory is the per-user counter set.
type Inventory struct {
	UserID      string
	Elimination int
	Skip        int
	AITutor     int
}

// Count returns the counter for one aid type.
func (inv Inventory) Count(t Type) int {
	switch t {
	case Elimination:
		return inv.Elimination
	case Skip:
		return inv.Skip
	case AITutor:
		return inv.AITutor
	}
	return 0
}

// Grant is a benefit bundle credited by a purchase or reward.
// Zero fields are permitted and grant nothing for that aid type.
type Grant struct {
	Elimination int
	Skip        int
	AITutor     int
}

// IsZero reports whether the grant credits nothing at all.
func (g Grant) IsZero() bool { return g.Elimination == 0 && g.Skip == 0 && g.AITutor == 0 }

// Valid reports whether all quantities are non-negative.
func (g Grant) Valid() bool { return g.Elimination >= 0 && g.Skip >= 0 && g.AITutor >= 0 }

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoAidsLeft is returned by Use when the counter is already zero.
	ErrNoAidsLeft = errors.New("no aids of this type left")

	// ErrInvalidGrant is returned when a grant carries a negative quantity.
	ErrInvalidGrant = errors.New("grant quantities must be non-negative")
)

// =============================================================================
// GRANTER - Inventory persistence
// =============================================================================

// Granter is the remote inventory surface. Implementations must make Grant
// atomic across the three counters: it either fully succeeds or fully
// fails, never partially.
type Granter interface {
	// Get returns the inventory for a user, an implicit zero inventory if
	// none was ever granted.
	Get(ctx context.Context, userID string) (Inventory, error)

	// Grant atomically increments the three counters.
	Grant(ctx context.Context, userID string, g Grant) error

	// Use atomically decrements one counter if it is positive.
	// Returns ErrNoAidsLeft when the counter is already zero.
	Use(ctx context.Context, userID string, t Type) error
}
