/*
audit.go - Ledger chain verification

PURPOSE:
  The ledger invariant says: for a given user, replaying entries in
  creation order and summing Amount reconstructs BalanceAfter of each
  entry from the prior one. The write path only writes forward and never
  re-checks history, so drift (a missed entry, a bad compensating write,
  a manual database edit) would otherwise go unnoticed. The Auditor
  replays the chain and reports every break.

USAGE:
  report, err := auditor.Verify(ctx, userID)
  if len(report.Breaks) > 0 { ... escalate ... }
*/
package radcoin

import "context"

// =============================================================================
// AUDITOR
// =============================================================================

type Auditor struct {
	Ledger Ledger
}

// AuditReport summarizes a chain verification run for one user.
type AuditReport struct {
	UserID       UserID
	Entries      int
	FinalBalance Amount
	Breaks       []*AuditError
}

// Clean reports whether the chain replayed without a single break.
func (r AuditReport) Clean() bool { return len(r.Breaks) == 0 }

// Verify replays the user's ledger in creation order. The first entry
// anchors the chain (its BalanceAfter is taken as given); every subsequent
// entry must satisfy prev.BalanceAfter + tx.Amount == tx.BalanceAfter.
func (a *Auditor) Verify(ctx context.Context, userID UserID) (AuditReport, error) {
	txs, err := a.Ledger.Transactions(ctx, userID)
	if err != nil {
		return AuditReport{}, err
	}

	report := AuditReport{UserID: userID, Entries: len(txs)}
	if len(txs) == 0 {
		report.FinalBalance = NewCoins(0)
		return report, nil
	}

	running := txs[0].BalanceAfter
	for _, tx := range txs[1:] {
		expected := running.Add(tx.Amount)
		if !expected.Equal(tx.BalanceAfter) {
			report.Breaks = append(report.Breaks, &AuditError{
				UserID:   userID,
				TxID:     tx.ID,
				Expected: expected,
				Actual:   tx.BalanceAfter,
			})
		}
		// Continue from the recorded value so one break does not cascade.
		running = tx.BalanceAfter
	}
	report.FinalBalance = running
	return report, nil
}
