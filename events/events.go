/*
Package events handles scheduled-event registration and prize payout.

PURPOSE:
  Events are time-boxed competitions. Users register ahead of time
  (optionally against a capacity ceiling) and ranked finishers receive
  RadCoin prizes through the ledger-backed grantor.

REGISTRATION SHAPE:
  Register is a check-then-insert with two guards: an idempotency guard
  (a user registers at most once per event) and a capacity guard. The
  store backs the idempotency guard with a unique index on
  (event_id, user_id), so a race between two identical registrations
  still yields exactly one row.

SEE ALSO:
  - radcoin/grants.go: EventReward grants (idempotent per event+user)
*/
package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/radventure/engine/notify"
	"github.com/radventure/engine/radcoin"
)

// =============================================================================
// TYPES
// =============================================================================

type Event struct {
	ID              string
	Title           string
	StartsAt        time.Time
	EndsAt          time.Time
	MaxParticipants int // 0 = unlimited
	PrizeRadCoins   int64
	Active          bool
}

type Registration struct {
	ID           string
	EventID      string
	UserID       radcoin.UserID
	RegisteredAt time.Time
}

// RankedResult is a finisher's placement used for prize distribution.
type RankedResult struct {
	UserID radcoin.UserID
	Rank   int // 1-based
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrAlreadyRegistered = errors.New("already registered for event")
	ErrEventFull         = errors.New("event is at capacity")
)

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	IsRegistered(ctx context.Context, eventID string, userID radcoin.UserID) (bool, error)
	CountRegistrations(ctx context.Context, eventID string) (int, error)

	// InsertRegistration persists the row. Implementations enforce
	// uniqueness on (event_id, user_id) and return ErrAlreadyRegistered
	// on conflict.
	InsertRegistration(ctx context.Context, reg Registration) error
}

// =============================================================================
// REGISTRAR
// =============================================================================

type Registrar struct {
	Store    Store
	Notifier notify.Emitter
}

func NewRegistrar(store Store, notifier notify.Emitter) *Registrar {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Registrar{Store: store, Notifier: notifier}
}

// Register signs the user up for the event. Fails with ErrAlreadyRegistered
// (no write) on a repeat call and ErrEventFull when the capacity ceiling is
// reached. The notification is best-effort.
func (r *Registrar) Register(ctx context.Context, eventID string, userID radcoin.UserID) (Registration, error) {
	event, err := r.Store.GetEvent(ctx, eventID)
	if err != nil {
		return Registration{}, err
	}
	if event == nil {
		return Registration{}, ErrEventNotFound
	}

	registered, err := r.Store.IsRegistered(ctx, eventID, userID)
	if err != nil {
		return Registration{}, err
	}
	if registered {
		return Registration{}, ErrAlreadyRegistered
	}

	if event.MaxParticipants > 0 {
		count, err := r.Store.CountRegistrations(ctx, eventID)
		if err != nil {
			return Registration{}, err
		}
		if count >= event.MaxParticipants {
			return Registration{}, ErrEventFull
		}
	}

	reg := Registration{
		ID:           uuid.NewString(),
		EventID:      eventID,
		UserID:       userID,
		RegisteredAt: time.Now().UTC(),
	}
	if err := r.Store.InsertRegistration(ctx, reg); err != nil {
		return Registration{}, err
	}

	n := notify.Notification{
		ID:        uuid.NewString(),
		UserID:    string(userID),
		Type:      notify.TypeEvent,
		Title:     "Registration confirmed",
		Message:   fmt.Sprintf("You are registered for %s.", event.Title),
		Priority:  notify.PriorityMedium,
		Metadata:  map[string]string{"event_id": event.ID},
		CreatedAt: time.Now().UTC(),
	}
	if err := r.Notifier.Create(ctx, n); err != nil {
		log.Printf("events: registration notification failed for user %s: %v", userID, err)
	}

	return reg, nil
}

// =============================================================================
// PRIZE DISTRIBUTION
// =============================================================================

// PrizeSplit maps a rank to its share of the prize pool, in percent.
// Standard split: 50/30/20 over the podium.
var PrizeSplit = map[int]int64{1: 50, 2: 30, 3: 20}

// DistributeRewards pays the podium of an event through the grantor and
// returns how many grants actually landed. Grants are idempotent per
// event+user, so rerunning a distribution after a partial failure only
// pays the finishers that were missed; an all-duplicate rerun pays zero.
func DistributeRewards(ctx context.Context, grantor *radcoin.Grantor, event Event, results []RankedResult) (int, error) {
	paid := 0
	var firstErr error
	for _, res := range results {
		share, ok := PrizeSplit[res.Rank]
		if !ok {
			continue
		}
		amount := radcoin.NewCoins(event.PrizeRadCoins * share / 100)
		if !amount.IsPositive() {
			continue
		}
		_, err := grantor.EventReward(ctx, res.UserID, event.ID, res.Rank, amount)
		switch {
		case err == nil:
			paid++
		case errors.Is(err, radcoin.ErrDuplicateIdempotencyKey):
			// Already paid on a previous run.
		default:
			log.Printf("events: reward grant failed for user %s event %s: %v", res.UserID, event.ID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return paid, firstErr
}
