package radcoin_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radventure/engine/radcoin"
	"github.com/radventure/engine/radcoin/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func coins(n int64) radcoin.Amount { return radcoin.NewCoins(n) }

func entry(userID string, txID string, amount, balanceAfter int64, key string) radcoin.Transaction {
	return radcoin.Transaction{
		ID:             radcoin.TransactionID(txID),
		UserID:         radcoin.UserID(userID),
		Type:           radcoin.TxAdjustment,
		Amount:         coins(amount),
		BalanceAfter:   coins(balanceAfter),
		IdempotencyKey: key,
		CreatedAt:      time.Now().UTC(),
	}
}

// =============================================================================
// LEDGER IDEMPOTENCY
// =============================================================================

func TestLedger_DuplicateIdempotencyKey_Rejected(t *testing.T) {
	// GIVEN: An entry recorded under key "k1"
	// WHEN: Appending a second entry with the same key
	// THEN: The second append is rejected and only one entry exists

	ctx := context.Background()
	mem := store.NewMemory()
	ledger := radcoin.NewLedger(mem)

	require.NoError(t, ledger.Append(ctx, entry("user-1", "tx-1", 10, 10, "k1")))

	err := ledger.Append(ctx, entry("user-1", "tx-2", 10, 20, "k1"))
	assert.ErrorIs(t, err, radcoin.ErrDuplicateIdempotencyKey)

	txs, err := ledger.Transactions(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestLedger_EmptyKey_NeverConflicts(t *testing.T) {
	// GIVEN: Two entries without idempotency keys
	// WHEN: Appending both
	// THEN: Both land; an empty key is not a key

	ctx := context.Background()
	ledger := radcoin.NewLedger(store.NewMemory())

	require.NoError(t, ledger.Append(ctx, entry("user-1", "tx-1", 5, 5, "")))
	require.NoError(t, ledger.Append(ctx, entry("user-1", "tx-2", 5, 10, "")))

	txs, _ := ledger.Transactions(ctx, "user-1")
	assert.Len(t, txs, 2)
}

// =============================================================================
// GRANTOR
// =============================================================================

func TestGrantor_DailyLoginBonus_OncePerDay(t *testing.T) {
	// GIVEN: A user claiming the daily login bonus
	// WHEN: Claiming twice on the same day and once the next day
	// THEN: Day one pays once, the replay is a complete no-op, day two pays again

	ctx := context.Background()
	mem := store.NewMemory()
	mem.SeedBalance("user-1", 0)
	grantor := radcoin.NewGrantor(mem, radcoin.NewLedger(mem))

	day1 := time.Date(2026, time.August, 29, 9, 0, 0, 0, time.UTC)

	tx, err := grantor.DailyLoginBonus(ctx, "user-1", coins(5), day1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), tx.BalanceAfter.Int64())

	// Same calendar day, later hour: replay.
	_, err = grantor.DailyLoginBonus(ctx, "user-1", coins(5), day1.Add(10*time.Hour))
	assert.ErrorIs(t, err, radcoin.ErrDuplicateIdempotencyKey)

	balance, _ := mem.GetBalance(ctx, "user-1")
	assert.Equal(t, int64(5), balance.RadCoins.Int64(), "replay must not pay twice")

	_, err = grantor.DailyLoginBonus(ctx, "user-1", coins(5), day1.AddDate(0, 0, 1))
	require.NoError(t, err)

	balance, _ = mem.GetBalance(ctx, "user-1")
	assert.Equal(t, int64(10), balance.RadCoins.Int64())
}

func TestGrantor_EventReward_OncePerEventAndUser(t *testing.T) {
	// GIVEN: An event reward already paid to a user
	// WHEN: Re-running the same reward
	// THEN: The rerun records nothing

	ctx := context.Background()
	mem := store.NewMemory()
	mem.SeedBalance("user-1", 0)
	grantor := radcoin.NewGrantor(mem, radcoin.NewLedger(mem))

	_, err := grantor.EventReward(ctx, "user-1", "event-1", 1, coins(50))
	require.NoError(t, err)

	_, err = grantor.EventReward(ctx, "user-1", "event-1", 1, coins(50))
	assert.ErrorIs(t, err, radcoin.ErrDuplicateIdempotencyKey)

	balance, _ := mem.GetBalance(ctx, "user-1")
	assert.Equal(t, int64(50), balance.RadCoins.Int64())

	// A different event pays independently.
	_, err = grantor.EventReward(ctx, "user-1", "event-2", 2, coins(30))
	require.NoError(t, err)
}

func TestGrantor_NonPositiveAmount_Rejected(t *testing.T) {
	// GIVEN: A zero grant
	// WHEN: Granting
	// THEN: Rejected before any write

	mem := store.NewMemory()
	mem.SeedBalance("user-1", 0)
	grantor := radcoin.NewGrantor(mem, radcoin.NewLedger(mem))

	_, err := grantor.Grant(context.Background(), "user-1", radcoin.TxAdjustment, coins(0), "", nil)
	assert.Error(t, err)
}

// flakyAppendStore fails the first N Append calls, then delegates.
type flakyAppendStore struct {
	*store.Memory
	failures int
}

func (f *flakyAppendStore) Append(ctx context.Context, tx radcoin.Transaction) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("ledger store unavailable")
	}
	return f.Memory.Append(ctx, tx)
}

func TestGrantor_LedgerAppendFails_CreditReverted(t *testing.T) {
	// GIVEN: A ledger whose first append fails transiently
	// WHEN: The daily login bonus is granted, then retried
	// THEN: The failed grant leaves the wallet untouched; the retry pays
	//       exactly once and writes exactly one ledger entry

	ctx := context.Background()
	mem := store.NewMemory()
	mem.SeedBalance("user-1", 0)
	flaky := &flakyAppendStore{Memory: mem, failures: 1}
	grantor := radcoin.NewGrantor(mem, radcoin.NewLedger(flaky))

	day := time.Date(2026, time.August, 29, 9, 0, 0, 0, time.UTC)

	_, err := grantor.DailyLoginBonus(ctx, "user-1", coins(5), day)
	require.Error(t, err)

	balance, _ := mem.GetBalance(ctx, "user-1")
	assert.Equal(t, int64(0), balance.RadCoins.Int64(), "credit must be reverted on append failure")

	tx, err := grantor.DailyLoginBonus(ctx, "user-1", coins(5), day)
	require.NoError(t, err)
	assert.Equal(t, int64(5), tx.BalanceAfter.Int64())

	balance, _ = mem.GetBalance(ctx, "user-1")
	assert.Equal(t, int64(5), balance.RadCoins.Int64(), "retry pays once, not twice")

	txs, _ := mem.Load(ctx, "user-1")
	assert.Len(t, txs, 1)
}

// stuckBalances embeds the memory store but refuses debits, so the
// compensating write after an append failure cannot land.
type stuckBalances struct {
	*store.Memory
}

func (s *stuckBalances) DebitIfSufficient(context.Context, radcoin.UserID, radcoin.Amount) (radcoin.Balance, error) {
	return radcoin.Balance{}, errors.New("balance store unavailable")
}

func TestGrantor_CompensationAlsoFails_SurfacedDistinctly(t *testing.T) {
	// GIVEN: A failing ledger append AND a failing compensating debit
	// WHEN: Granting
	// THEN: The caller gets ErrCompensationFailed, distinct from a plain
	//       append error, and the stray credit is visible on the wallet

	ctx := context.Background()
	mem := store.NewMemory()
	mem.SeedBalance("user-1", 0)
	balances := &stuckBalances{Memory: mem}
	flaky := &flakyAppendStore{Memory: mem, failures: 1}
	grantor := radcoin.NewGrantor(balances, radcoin.NewLedger(flaky))

	_, err := grantor.Grant(ctx, "user-1", radcoin.TxAdjustment, coins(5), "adj-1", nil)
	assert.ErrorIs(t, err, radcoin.ErrCompensationFailed)

	balance, _ := mem.GetBalance(ctx, "user-1")
	assert.Equal(t, int64(5), balance.RadCoins.Int64())
}

// recordedKeyLedger is a minimal Ledger that reports every key as already
// recorded.
type recordedKeyLedger struct{}

func (recordedKeyLedger) Append(context.Context, radcoin.Transaction) error { return nil }
func (recordedKeyLedger) Transactions(context.Context, radcoin.UserID) ([]radcoin.Transaction, error) {
	return nil, nil
}
func (recordedKeyLedger) Exists(context.Context, string) (bool, error) { return true, nil }

func TestGrantor_ReplayGuard_HoldsForAnyLedger(t *testing.T) {
	// GIVEN: A grantor over a non-default Ledger implementation
	// WHEN: Granting a key the ledger has already recorded
	// THEN: The grant is rejected before the wallet is touched

	mem := store.NewMemory()
	mem.SeedBalance("user-1", 0)
	grantor := radcoin.NewGrantor(mem, recordedKeyLedger{})

	_, err := grantor.Grant(context.Background(), "user-1", radcoin.TxAdjustment, coins(5), "k1", nil)
	assert.ErrorIs(t, err, radcoin.ErrDuplicateIdempotencyKey)

	balance, _ := mem.GetBalance(context.Background(), "user-1")
	assert.Equal(t, int64(0), balance.RadCoins.Int64())
}

// =============================================================================
// AUDITOR
// =============================================================================

func TestAuditor_CleanChain(t *testing.T) {
	// GIVEN: A ledger where each BalanceAfter follows from the prior entry
	// WHEN: Verifying the chain
	// THEN: The report is clean and the final balance matches the last entry

	ctx := context.Background()
	mem := store.NewMemory()
	ledger := radcoin.NewLedger(mem)
	require.NoError(t, ledger.Append(ctx, entry("user-1", "tx-1", 100, 100, "")))
	require.NoError(t, ledger.Append(ctx, entry("user-1", "tx-2", -25, 75, "")))
	require.NoError(t, ledger.Append(ctx, entry("user-1", "tx-3", 5, 80, "")))

	auditor := &radcoin.Auditor{Ledger: ledger}
	report, err := auditor.Verify(ctx, "user-1")
	require.NoError(t, err)

	assert.True(t, report.Clean())
	assert.Equal(t, 3, report.Entries)
	assert.Equal(t, int64(80), report.FinalBalance.Int64())
}

func TestAuditor_BreakDetected_DoesNotCascade(t *testing.T) {
	// GIVEN: A chain with one corrupted BalanceAfter in the middle
	// WHEN: Verifying
	// THEN: Exactly that entry is reported; entries after it, consistent
	//       with the recorded value, stay clean

	ctx := context.Background()
	mem := store.NewMemory()
	ledger := radcoin.NewLedger(mem)
	require.NoError(t, ledger.Append(ctx, entry("user-1", "tx-1", 100, 100, "")))
	require.NoError(t, ledger.Append(ctx, entry("user-1", "tx-2", -25, 70, ""))) // should be 75
	require.NoError(t, ledger.Append(ctx, entry("user-1", "tx-3", 10, 80, "")))  // consistent with 70

	auditor := &radcoin.Auditor{Ledger: ledger}
	report, err := auditor.Verify(ctx, "user-1")
	require.NoError(t, err)

	require.Len(t, report.Breaks, 1)
	assert.Equal(t, radcoin.TransactionID("tx-2"), report.Breaks[0].TxID)
	assert.Equal(t, int64(75), report.Breaks[0].Expected.Int64())
	assert.Equal(t, int64(70), report.Breaks[0].Actual.Int64())
}

func TestAuditor_EmptyLedger_CleanZero(t *testing.T) {
	// GIVEN: No entries for a user
	// WHEN: Verifying
	// THEN: Clean report with zero balance

	auditor := &radcoin.Auditor{Ledger: radcoin.NewLedger(store.NewMemory())}
	report, err := auditor.Verify(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, int64(0), report.FinalBalance.Int64())
}
