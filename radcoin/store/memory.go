// Package store provides in-memory implementations of the engine's
// persistence interfaces, for testing and development.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/radventure/engine/helpaid"
	"github.com/radventure/engine/notify"
	"github.com/radventure/engine/radcoin"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements radcoin.Store, radcoin.BalanceStore, helpaid.Granter
// and notify.Emitter behind one mutex, which makes every operation atomic
// the way the SQLite store's single-statement writes are.
type Memory struct {
	mu            sync.RWMutex
	balances      map[radcoin.UserID]radcoin.Balance
	transactions  map[radcoin.UserID][]radcoin.Transaction
	idempotency   map[string]bool
	inventories   map[string]helpaid.Inventory
	notifications []notify.Notification
}

func NewMemory() *Memory {
	return &Memory{
		balances:     make(map[radcoin.UserID]radcoin.Balance),
		transactions: make(map[radcoin.UserID][]radcoin.Transaction),
		idempotency:  make(map[string]bool),
		inventories:  make(map[string]helpaid.Inventory),
	}
}

// SeedBalance creates or replaces a wallet. Test setup helper.
func (m *Memory) SeedBalance(userID radcoin.UserID, coins int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] = radcoin.Balance{
		UserID:    userID,
		RadCoins:  radcoin.NewCoins(coins),
		Points:    radcoin.NewPoints(0),
		UpdatedAt: time.Now().UTC(),
	}
}

// =============================================================================
// radcoin.Store
// =============================================================================

func (m *Memory) Append(_ context.Context, tx radcoin.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.IdempotencyKey != "" {
		if m.idempotency[tx.IdempotencyKey] {
			return radcoin.ErrDuplicateIdempotencyKey
		}
		m.idempotency[tx.IdempotencyKey] = true
	}
	m.transactions[tx.UserID] = append(m.transactions[tx.UserID], tx)
	return nil
}

func (m *Memory) Load(_ context.Context, userID radcoin.UserID) ([]radcoin.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]radcoin.Transaction, len(m.transactions[userID]))
	copy(result, m.transactions[userID])
	return result, nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

// =============================================================================
// radcoin.BalanceStore
// =============================================================================

func (m *Memory) GetBalance(_ context.Context, userID radcoin.UserID) (radcoin.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.balances[userID]
	if !ok {
		return radcoin.Balance{}, radcoin.ErrUserNotFound
	}
	return b, nil
}

func (m *Memory) Credit(_ context.Context, userID radcoin.UserID, amount radcoin.Amount) (radcoin.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.balances[userID]
	if !ok {
		return radcoin.Balance{}, radcoin.ErrUserNotFound
	}
	switch amount.Unit {
	case radcoin.UnitPoints:
		b.Points = b.Points.Add(amount)
	default:
		b.RadCoins = b.RadCoins.Add(amount)
	}
	b.UpdatedAt = time.Now().UTC()
	m.balances[userID] = b
	return b, nil
}

func (m *Memory) DebitIfSufficient(_ context.Context, userID radcoin.UserID, amount radcoin.Amount) (radcoin.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.balances[userID]
	if !ok {
		return radcoin.Balance{}, radcoin.ErrUserNotFound
	}
	remaining := b.RadCoins.Sub(amount)
	if remaining.IsNegative() {
		return radcoin.Balance{}, &radcoin.InsufficientBalanceError{
			UserID:    userID,
			Available: b.RadCoins,
			Requested: amount,
		}
	}
	b.RadCoins = remaining
	b.UpdatedAt = time.Now().UTC()
	m.balances[userID] = b
	return b, nil
}

// =============================================================================
// helpaid.Granter
// =============================================================================

func (m *Memory) Get(_ context.Context, userID string) (helpaid.Inventory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inv, ok := m.inventories[userID]
	if !ok {
		return helpaid.Inventory{UserID: userID}, nil
	}
	return inv, nil
}

func (m *Memory) Grant(_ context.Context, userID string, g helpaid.Grant) error {
	if !g.Valid() {
		return helpaid.ErrInvalidGrant
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inv := m.inventories[userID]
	inv.UserID = userID
	inv.Elimination += g.Elimination
	inv.Skip += g.Skip
	inv.AITutor += g.AITutor
	m.inventories[userID] = inv
	return nil
}

func (m *Memory) Use(_ context.Context, userID string, t helpaid.Type) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv := m.inventories[userID]
	if inv.Count(t) <= 0 {
		return helpaid.ErrNoAidsLeft
	}
	switch t {
	case helpaid.Elimination:
		inv.Elimination--
	case helpaid.Skip:
		inv.Skip--
	case helpaid.AITutor:
		inv.AITutor--
	}
	m.inventories[userID] = inv
	return nil
}

// =============================================================================
// notify.Emitter
// =============================================================================

func (m *Memory) Create(_ context.Context, n notify.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *Memory) CreateBatch(_ context.Context, ns []notify.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, ns...)
	return nil
}

// Notifications returns a copy of everything emitted so far. Test helper.
func (m *Memory) Notifications() []notify.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]notify.Notification, len(m.notifications))
	copy(result, m.notifications)
	return result
}
