/*
Package radcoin provides the core virtual-currency engine.

PURPOSE:
  This package contains the types and algorithms for managing RadCoin
  balances: amounts, the append-only transaction ledger, balance storage,
  grant helpers, and ledger auditing. Every coin that enters or leaves a
  user's wallet flows through this package.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 150 radcoins, 4200 points)
  - Transaction: An immutable ledger entry recording a balance change
  - Balance: The stored wallet state for one user
  - User/Transaction IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified, only compensated
  2. Precision: Uses decimal.Decimal so discount math never touches floats
  3. Integer semantics: RadCoins are whole coins; prices floor to integers
  4. Auditability: Every transaction carries balance-after and metadata

SEE ALSO:
  - ledger.go: Transaction persistence interface
  - balance.go: Balance storage and atomic debit
  - audit.go: Ledger chain verification
*/
package radcoin

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitRadCoins Unit = "radcoins"
	UnitPoints   Unit = "points"
)

// NewCoins builds a whole-coin RadCoin amount.
func NewCoins(value int64) Amount {
	return Amount{Value: decimal.NewFromInt(value), Unit: UnitRadCoins}
}

// NewPoints builds a point amount.
func NewPoints(value int64) Amount {
	return Amount{Value: decimal.NewFromInt(value), Unit: UnitPoints}
}

func NewAmount(value int64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(value), Unit: unit}
}

func (a Amount) Zero() Amount              { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Neg() Amount               { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool       { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }

// Int64 returns the whole-unit value. Amounts held by this engine are
// always integral; Floor guards against upstream rounding artifacts.
func (a Amount) Int64() int64 { return a.Value.Floor().IntPart() }

func (a Amount) String() string { return a.Value.String() + " " + string(a.Unit) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type TransactionID string

// =============================================================================
// TRANSACTION - Atomic change to a RadCoin balance
// =============================================================================

type TransactionType string

const (
	TxHelpPurchase TransactionType = "help_purchase" // Store purchase debit
	TxDailyLogin   TransactionType = "daily_login"   // Daily login bonus
	TxEventReward  TransactionType = "event_reward"  // Event prize payout
	TxAdjustment   TransactionType = "adjustment"    // Manual admin correction
	TxReversal     TransactionType = "reversal"      // Undo a previous transaction

	// TxReconcilePending marks a debit whose benefit credit AND compensating
	// write both failed. The user is charged without benefit until an
	// operator resolves the entry.
	TxReconcilePending TransactionType = "reconcile_pending"
)

// Transaction is an immutable ledger entry. Amount is signed: negative for
// debits, positive for credits. BalanceAfter records the wallet balance
// immediately following this entry.
type Transaction struct {
	ID             TransactionID
	UserID         UserID
	Type           TransactionType
	Amount         Amount
	BalanceAfter   Amount
	Metadata       map[string]string
	IdempotencyKey string
	CreatedAt      time.Time
}

// =============================================================================
// BALANCE - Stored wallet state for one user
// =============================================================================

// Balance is the per-user wallet row. RadCoins is never observed negative:
// debits go through BalanceStore.DebitIfSufficient.
type Balance struct {
	UserID    UserID
	RadCoins  Amount
	Points    Amount
	UpdatedAt time.Time
}
