/*
Package notify provides user-facing notification records.

PURPOSE:
  Notifications are persisted rows the frontend polls for: purchase
  confirmations, event updates, new daily challenges. Every producer in
  this codebase treats notification creation as best-effort: a failed
  insert is logged and swallowed, and never rolls back the operation that
  triggered it.

SEE ALSO:
  - shop/settlement.go: Emits after a successful purchase
  - challenge/challenge.go: Fans out to all users in batches
*/
package notify

import (
	"context"
	"time"
)

// =============================================================================
// TYPES
// =============================================================================

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Notification struct {
	ID          string
	UserID      string
	Type        string
	Title       string
	Message     string
	Priority    Priority
	ActionURL   string
	ActionLabel string
	Metadata    map[string]string
	Read        bool
	CreatedAt   time.Time
}

// Common notification types.
const (
	TypePurchase  = "help_purchase"
	TypeEvent     = "event_update"
	TypeChallenge = "daily_challenge"
	TypeReward    = "reward"
)

// =============================================================================
// EMITTER
// =============================================================================

// Emitter persists notifications. All call sites are best-effort;
// implementations should still return errors so callers can log them.
type Emitter interface {
	Create(ctx context.Context, n Notification) error

	// CreateBatch inserts a batch atomically. Used by fan-outs that chunk
	// large audiences to bound single-request payload size.
	CreateBatch(ctx context.Context, ns []Notification) error
}

// Discard is an Emitter that drops everything. Useful when a flow runs
// without a notification backend (tests, CLI tools).
type Discard struct{}

func (Discard) Create(context.Context, Notification) error        { return nil }
func (Discard) CreateBatch(context.Context, []Notification) error { return nil }
