/*
settlement.go - Purchase settlement: debit coins, credit help aids

PURPOSE:
  Executes a single purchase of a catalog item: derives the final price,
  atomically debits the wallet, credits the help-aid benefits, appends the
  ledger entry, and emits a best-effort notification.

WHY NO DISTRIBUTED TRANSACTION:
  The wallet and the inventory are separate stores with no shared
  transaction boundary. The flow keeps the window small instead:

  1. DebitIfSufficient is a single atomic store operation. A short wallet
     is rejected before anything is written (side-effect free).
  2. The inventory Grant is atomic on the far side: it fully succeeds or
     fully fails.
  3. If the Grant fails, a compensating credit of the debited amount
     restores the pre-debit balance exactly. Because the debit was a
     decrement (not an absolute write), concurrent mutations between the
     two steps are preserved.
  4. If the compensating credit ALSO fails, the user is charged without
     benefit. That state is never silent: a reconcile_pending ledger entry
     records the stuck debit and the caller gets ErrCompensationFailed,
     distinct from the compensated case.

  Ledger and notification writes happen after the money moved; their
  failures are logged and never roll back the purchase.

ERROR CONTRACT (in caller terms):
  radcoin.ErrUserNotFound         no wallet; nothing attempted
  radcoin.ErrInsufficientBalance  rejection; zero writes
  radcoin.ErrBenefitCreditFailed  debit reverted, wallet intact
  radcoin.ErrCompensationFailed   charged without benefit, needs operator
  anything else                   store transport failure; caller may retry
*/
package shop

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/radventure/engine/helpaid"
	"github.com/radventure/engine/notify"
	"github.com/radventure/engine/radcoin"
)

// =============================================================================
// SETTLER
// =============================================================================

// Settler executes purchases. All dependencies are injected; Notifier may
// be nil (or notify.Discard) when no notification backend is wired.
type Settler struct {
	Balances radcoin.BalanceStore
	Aids     helpaid.Granter
	Ledger   radcoin.Ledger
	Notifier notify.Emitter
}

func NewSettler(balances radcoin.BalanceStore, aids helpaid.Granter, ledger radcoin.Ledger, notifier notify.Emitter) *Settler {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Settler{Balances: balances, Aids: aids, Ledger: ledger, Notifier: notifier}
}

// Settlement is the successful outcome of a purchase.
type Settlement struct {
	UserID     radcoin.UserID
	ItemID     string
	FinalPrice radcoin.Amount
	NewBalance radcoin.Amount
	Benefits   helpaid.Grant
}

// Settle purchases one catalog item for the user. See the file header for
// the failure contract.
func (s *Settler) Settle(ctx context.Context, userID radcoin.UserID, item Item) (Settlement, error) {
	if !item.Benefits.Valid() {
		return Settlement{}, helpaid.ErrInvalidGrant
	}
	price := item.FinalPrice()
	if price.IsNegative() {
		return Settlement{}, fmt.Errorf("item %s derives a negative price", item.ID)
	}

	// Atomic check-and-decrement. Wraps ErrInsufficientBalance with the
	// available/requested detail, or ErrUserNotFound for missing wallets.
	balance, err := s.Balances.DebitIfSufficient(ctx, userID, price)
	if err != nil {
		return Settlement{}, err
	}

	if err := s.Aids.Grant(ctx, string(userID), item.Benefits); err != nil {
		return Settlement{}, s.compensate(ctx, userID, item, price, balance.RadCoins, err)
	}

	// Money moved and benefits granted; from here every failure is
	// logged, not surfaced.
	if err := s.Ledger.Append(ctx, s.purchaseTx(userID, item, price, balance.RadCoins)); err != nil {
		log.Printf("shop: ledger append failed for user %s item %s: %v", userID, item.ID, err)
	}

	if err := s.Notifier.Create(ctx, purchaseNotification(userID, item, price)); err != nil {
		log.Printf("shop: purchase notification failed for user %s: %v", userID, err)
	}

	return Settlement{
		UserID:     userID,
		ItemID:     item.ID,
		FinalPrice: price,
		NewBalance: balance.RadCoins,
		Benefits:   item.Benefits,
	}, nil
}

// compensate reverts the debit after a failed benefit credit. The credit
// of the same amount restores the pre-debit balance exactly without
// clobbering writes that may have landed in between.
func (s *Settler) compensate(ctx context.Context, userID radcoin.UserID, item Item, price, postDebit radcoin.Amount, cause error) error {
	if _, err := s.Balances.Credit(ctx, userID, price); err != nil {
		log.Printf("shop: COMPENSATION FAILED for user %s item %s: %v (cause: %v)", userID, item.ID, err, cause)

		// Record the stuck debit so reconciliation can find it.
		tx := s.purchaseTx(userID, item, price, postDebit)
		tx.Type = radcoin.TxReconcilePending
		tx.Metadata["credit_error"] = cause.Error()
		tx.Metadata["compensation_error"] = err.Error()
		if lerr := s.Ledger.Append(ctx, tx); lerr != nil {
			log.Printf("shop: reconcile_pending ledger append failed for user %s: %v", userID, lerr)
		}
		return fmt.Errorf("%w after benefit credit error: %v", radcoin.ErrCompensationFailed, cause)
	}
	return fmt.Errorf("%w: %v", radcoin.ErrBenefitCreditFailed, cause)
}

func (s *Settler) purchaseTx(userID radcoin.UserID, item Item, price, balanceAfter radcoin.Amount) radcoin.Transaction {
	return radcoin.Transaction{
		ID:           radcoin.TransactionID(uuid.NewString()),
		UserID:       userID,
		Type:         radcoin.TxHelpPurchase,
		Amount:       price.Neg(),
		BalanceAfter: balanceAfter,
		Metadata: map[string]string{
			"item_id":          item.ID,
			"item_name":        item.Name,
			"elimination_aids": strconv.Itoa(item.Benefits.Elimination),
			"skip_aids":        strconv.Itoa(item.Benefits.Skip),
			"ai_tutor_credits": strconv.Itoa(item.Benefits.AITutor),
		},
		CreatedAt: time.Now().UTC(),
	}
}

func purchaseNotification(userID radcoin.UserID, item Item, price radcoin.Amount) notify.Notification {
	return notify.Notification{
		ID:        uuid.NewString(),
		UserID:    string(userID),
		Type:      notify.TypePurchase,
		Title:     "Purchase complete",
		Message:   fmt.Sprintf("You bought %s for %d RadCoins.", item.Name, price.Int64()),
		Priority:  notify.PriorityLow,
		Metadata:  map[string]string{"item_id": item.ID},
		CreatedAt: time.Now().UTC(),
	}
}
