/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  One store implements every persistence interface in the engine:
  radcoin.Store (ledger), radcoin.BalanceStore (wallets), helpaid.Granter
  (inventories), notify.Emitter (notifications), events.Store and
  challenge.Store, plus users and the shop catalog. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

ATOMICITY IN SQL:
  The operations the purchase and registration flows rely on are single
  statements, so SQLite's statement atomicity is the synchronization:
  - DebitIfSufficient: one conditional UPDATE guarded by balance >= amount
  - Grant:             one UPSERT incrementing all three aid counters
  - InsertRegistration / InsertChallenge: unique indexes reject the loser
    of a race, mapped to the domain sentinel errors

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements exist for radcoin_transactions.
  Corrections happen via reversal entries only.

KEY TABLES:
  users                 Account rows (role drives challenge fan-out)
  balances              Wallets: RadCoin balance plus points
  radcoin_transactions  Immutable ledger of all balance changes
  help_aids             Per-user aid counters
  catalog_items         Purchasable items and offers
  events                Scheduled competitions
  event_registrations   Unique (event_id, user_id)
  daily_challenges      Unique challenge_date
  notifications         User-facing notification records

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/radventure.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - radcoin/store/memory.go: In-memory implementation for testing
  - radcoin/ledger.go: Higher-level ledger using Store
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/radventure/engine/challenge"
	"github.com/radventure/engine/events"
	"github.com/radventure/engine/helpaid"
	"github.com/radventure/engine/notify"
	"github.com/radventure/engine/radcoin"
	"github.com/radventure/engine/shop"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'USER',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

	CREATE TABLE IF NOT EXISTS balances (
		user_id TEXT PRIMARY KEY REFERENCES users(id),
		radcoin_balance INTEGER NOT NULL DEFAULT 0 CHECK (radcoin_balance >= 0),
		total_points INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	-- Append-only ledger. No UPDATE, no DELETE.
	CREATE TABLE IF NOT EXISTS radcoin_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		balance_after INTEGER NOT NULL,
		metadata_json TEXT,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_created
		ON radcoin_transactions(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_idempotency
		ON radcoin_transactions(idempotency_key) WHERE idempotency_key IS NOT NULL;

	CREATE TABLE IF NOT EXISTS help_aids (
		user_id TEXT PRIMARY KEY,
		elimination_aids INTEGER NOT NULL DEFAULT 0 CHECK (elimination_aids >= 0),
		skip_aids INTEGER NOT NULL DEFAULT 0 CHECK (skip_aids >= 0),
		ai_tutor_credits INTEGER NOT NULL DEFAULT 0 CHECK (ai_tutor_credits >= 0)
	);

	CREATE TABLE IF NOT EXISTS catalog_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		category TEXT NOT NULL,
		price INTEGER NOT NULL,
		sale_price INTEGER,
		discount INTEGER,
		elimination_aids INTEGER NOT NULL DEFAULT 0,
		skip_aids INTEGER NOT NULL DEFAULT 0,
		ai_tutor_credits INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		starts_at TEXT NOT NULL,
		ends_at TEXT NOT NULL,
		max_participants INTEGER NOT NULL DEFAULT 0,
		prize_radcoins INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS event_registrations (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL REFERENCES events(id),
		user_id TEXT NOT NULL,
		registered_at TEXT NOT NULL
	);

	-- CRITICAL: a user registers for an event at most once
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_registration
		ON event_registrations(event_id, user_id);

	CREATE TABLE IF NOT EXISTS daily_challenges (
		id TEXT PRIMARY KEY,
		challenge_date TEXT NOT NULL,
		question TEXT NOT NULL,
		explanation TEXT,
		correct_answer INTEGER NOT NULL,
		total_answers INTEGER NOT NULL DEFAULT 0,
		correct_answers INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: at most one challenge per calendar date
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_challenge_date
		ON daily_challenges(challenge_date);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		priority TEXT NOT NULL,
		action_url TEXT,
		action_label TEXT,
		metadata_json TEXT,
		read INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user
		ON notifications(user_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USERS
// =============================================================================

// User represents an account record.
type User struct {
	ID        string
	Name      string
	Role      string
	CreatedAt time.Time
}

// CreateUser creates the account row plus its wallet and aid inventory
// in one database transaction.
func (s *Store) CreateUser(ctx context.Context, u User, initialCoins int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := sqlTx.ExecContext(ctx,
		"INSERT INTO users (id, name, role, created_at) VALUES (?, ?, ?, ?)",
		u.ID, u.Name, u.Role, now,
	); err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx,
		"INSERT INTO balances (user_id, radcoin_balance, total_points, updated_at) VALUES (?, ?, 0, ?)",
		u.ID, initialCoins, now,
	); err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx,
		"INSERT INTO help_aids (user_id) VALUES (?)", u.ID,
	); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// GetUser retrieves a user by ID. Returns nil when not found.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u User
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, role, created_at FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Name, &u.Role, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &u, nil
}

// ListUserIDsByRole returns the IDs of all users holding a role.
func (s *Store) ListUserIDsByRole(ctx context.Context, role string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM users WHERE role = ? ORDER BY id", role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// BALANCE STORE (radcoin.BalanceStore interface)
// =============================================================================

// GetBalance returns the user's current wallet.
func (s *Store) GetBalance(ctx context.Context, userID radcoin.UserID) (radcoin.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getBalance(ctx, userID)
}

func (s *Store) getBalance(ctx context.Context, userID radcoin.UserID) (radcoin.Balance, error) {
	var coins, points int64
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT radcoin_balance, total_points, updated_at FROM balances WHERE user_id = ?",
		string(userID),
	).Scan(&coins, &points, &updatedAt)
	if err == sql.ErrNoRows {
		return radcoin.Balance{}, radcoin.ErrUserNotFound
	}
	if err != nil {
		return radcoin.Balance{}, fmt.Errorf("%w: %v", radcoin.ErrStoreUnavailable, err)
	}

	b := radcoin.Balance{
		UserID:   userID,
		RadCoins: radcoin.NewCoins(coins),
		Points:   radcoin.NewPoints(points),
	}
	b.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return b, nil
}

// Credit adds the amount to the column matching its unit.
func (s *Store) Credit(ctx context.Context, userID radcoin.UserID, amount radcoin.Amount) (radcoin.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	column := "radcoin_balance"
	if amount.Unit == radcoin.UnitPoints {
		column = "total_points"
	}

	query := fmt.Sprintf(
		"UPDATE balances SET %s = %s + ?, updated_at = ? WHERE user_id = ?",
		column, column)
	res, err := s.db.ExecContext(ctx, query,
		amount.Int64(), time.Now().UTC().Format(time.RFC3339Nano), string(userID))
	if err != nil {
		return radcoin.Balance{}, fmt.Errorf("%w: %v", radcoin.ErrStoreUnavailable, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return radcoin.Balance{}, radcoin.ErrUserNotFound
	}
	return s.getBalance(ctx, userID)
}

// DebitIfSufficient performs the check and the decrement in one guarded
// UPDATE. Zero rows affected means either a short wallet or a missing
// one; a follow-up read disambiguates.
func (s *Store) DebitIfSufficient(ctx context.Context, userID radcoin.UserID, amount radcoin.Amount) (radcoin.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coins := amount.Int64()
	res, err := s.db.ExecContext(ctx,
		`UPDATE balances SET radcoin_balance = radcoin_balance - ?, updated_at = ?
		 WHERE user_id = ? AND radcoin_balance >= ?`,
		coins, time.Now().UTC().Format(time.RFC3339Nano), string(userID), coins)
	if err != nil {
		return radcoin.Balance{}, fmt.Errorf("%w: %v", radcoin.ErrStoreUnavailable, err)
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		current, gerr := s.getBalance(ctx, userID)
		if gerr != nil {
			return radcoin.Balance{}, gerr
		}
		return radcoin.Balance{}, &radcoin.InsufficientBalanceError{
			UserID:    userID,
			Available: current.RadCoins,
			Requested: amount,
		}
	}
	return s.getBalance(ctx, userID)
}

// =============================================================================
// LEDGER STORE (radcoin.Store interface)
// =============================================================================

// Append adds a transaction to the ledger.
func (s *Store) Append(ctx context.Context, tx radcoin.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadataJSON, _ := json.Marshal(tx.Metadata)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO radcoin_transactions
		 (id, user_id, tx_type, amount, balance_after, metadata_json, idempotency_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(tx.ID),
		string(tx.UserID),
		string(tx.Type),
		tx.Amount.Int64(),
		tx.BalanceAfter.Int64(),
		string(metadataJSON),
		nullString(tx.IdempotencyKey),
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return radcoin.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// Load returns all transactions for a user, oldest first.
func (s *Store) Load(ctx context.Context, userID radcoin.UserID) ([]radcoin.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, tx_type, amount, balance_after, metadata_json, idempotency_key, created_at
		 FROM radcoin_transactions
		 WHERE user_id = ?
		 ORDER BY created_at ASC, id ASC`,
		string(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []radcoin.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// Exists checks if an idempotency key exists.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM radcoin_transactions WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)
	return count > 0, err
}

func scanTransaction(rows *sql.Rows) (radcoin.Transaction, error) {
	var (
		tx             radcoin.Transaction
		id             string
		userID         string
		txType         string
		amount         int64
		balanceAfter   int64
		metadataJSON   sql.NullString
		idempotencyKey sql.NullString
		createdAt      string
	)

	err := rows.Scan(&id, &userID, &txType, &amount, &balanceAfter,
		&metadataJSON, &idempotencyKey, &createdAt)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.ID = radcoin.TransactionID(id)
	tx.UserID = radcoin.UserID(userID)
	tx.Type = radcoin.TransactionType(txType)
	tx.Amount = radcoin.NewCoins(amount)
	tx.BalanceAfter = radcoin.NewCoins(balanceAfter)
	tx.IdempotencyKey = idempotencyKey.String
	tx.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		json.Unmarshal([]byte(metadataJSON.String), &tx.Metadata)
	}
	return tx, nil
}

// =============================================================================
// HELP AID STORE (helpaid.Granter interface)
// =============================================================================

// Get returns the user's aid inventory. A missing row is a zero inventory.
func (s *Store) Get(ctx context.Context, userID string) (helpaid.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv := helpaid.Inventory{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		"SELECT elimination_aids, skip_aids, ai_tutor_credits FROM help_aids WHERE user_id = ?",
		userID,
	).Scan(&inv.Elimination, &inv.Skip, &inv.AITutor)
	if err == sql.ErrNoRows {
		return inv, nil
	}
	if err != nil {
		return helpaid.Inventory{}, err
	}
	return inv, nil
}

// Grant increments all three counters in one UPSERT; the row is created
// on first grant.
func (s *Store) Grant(ctx context.Context, userID string, g helpaid.Grant) error {
	if !g.Valid() {
		return helpaid.ErrInvalidGrant
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO help_aids (user_id, elimination_aids, skip_aids, ai_tutor_credits)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			elimination_aids = elimination_aids + excluded.elimination_aids,
			skip_aids = skip_aids + excluded.skip_aids,
			ai_tutor_credits = ai_tutor_credits + excluded.ai_tutor_credits
	`
	_, err := s.db.ExecContext(ctx, query, userID, g.Elimination, g.Skip, g.AITutor)
	return err
}

// Use decrements one counter, guarded so it never goes below zero.
func (s *Store) Use(ctx context.Context, userID string, t helpaid.Type) error {
	column, ok := aidColumn(t)
	if !ok {
		return fmt.Errorf("unknown aid type %q", t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(
		"UPDATE help_aids SET %s = %s - 1 WHERE user_id = ? AND %s > 0",
		column, column, column)
	res, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return helpaid.ErrNoAidsLeft
	}
	return nil
}

func aidColumn(t helpaid.Type) (string, bool) {
	switch t {
	case helpaid.Elimination:
		return "elimination_aids", true
	case helpaid.Skip:
		return "skip_aids", true
	case helpaid.AITutor:
		return "ai_tutor_credits", true
	}
	return "", false
}

// =============================================================================
// CATALOG STORE (shop.Catalog interface)
// =============================================================================

// ListItems returns all active catalog items, cheapest first.
func (s *Store) ListItems(ctx context.Context) ([]shop.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, category, price, sale_price, discount,
		        elimination_aids, skip_aids, ai_tutor_credits, active
		 FROM catalog_items
		 WHERE active = 1
		 ORDER BY price ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []shop.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetItem retrieves a catalog item by ID. Returns nil when not found.
func (s *Store) GetItem(ctx context.Context, id string) (*shop.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, category, price, sale_price, discount,
		        elimination_aids, skip_aids, ai_tutor_credits, active
		 FROM catalog_items WHERE id = ?`, id)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SaveItem inserts or updates a catalog item. Used by seeding and admin.
func (s *Store) SaveItem(ctx context.Context, item shop.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var salePrice, discount any
	if item.SalePrice != nil {
		salePrice = *item.SalePrice
	}
	if item.Discount != nil {
		discount = *item.Discount
	}

	query := `
		INSERT INTO catalog_items
		(id, name, description, category, price, sale_price, discount,
		 elimination_aids, skip_aids, ai_tutor_credits, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			price = excluded.price,
			sale_price = excluded.sale_price,
			discount = excluded.discount,
			elimination_aids = excluded.elimination_aids,
			skip_aids = excluded.skip_aids,
			ai_tutor_credits = excluded.ai_tutor_credits,
			active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ID, item.Name, item.Description, string(item.Category),
		item.Price, salePrice, discount,
		item.Benefits.Elimination, item.Benefits.Skip, item.Benefits.AITutor,
		boolToInt(item.Active),
	)
	return err
}

// CountItems reports the catalog size, used as a seeding guard.
func (s *Store) CountItems(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalog_items").Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (shop.Item, error) {
	var item shop.Item
	var category string
	var salePrice, discount sql.NullInt64
	var active int

	err := row.Scan(&item.ID, &item.Name, &item.Description, &category,
		&item.Price, &salePrice, &discount,
		&item.Benefits.Elimination, &item.Benefits.Skip, &item.Benefits.AITutor,
		&active)
	if err != nil {
		return shop.Item{}, err
	}

	item.Category = shop.Category(category)
	if salePrice.Valid {
		v := salePrice.Int64
		item.SalePrice = &v
	}
	if discount.Valid {
		v := int(discount.Int64)
		item.Discount = &v
	}
	item.Active = active != 0
	return item, nil
}

// =============================================================================
// EVENT STORE (events.Store interface)
// =============================================================================

// GetEvent retrieves an event by ID. Returns nil when not found.
func (s *Store) GetEvent(ctx context.Context, eventID string) (*events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var e events.Event
	var startsAt, endsAt string
	var active int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, starts_at, ends_at, max_participants, prize_radcoins, active
		 FROM events WHERE id = ?`, eventID,
	).Scan(&e.ID, &e.Title, &startsAt, &endsAt, &e.MaxParticipants, &e.PrizeRadCoins, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.StartsAt, _ = time.Parse(time.RFC3339Nano, startsAt)
	e.EndsAt, _ = time.Parse(time.RFC3339Nano, endsAt)
	e.Active = active != 0
	return &e, nil
}

// SaveEvent inserts or updates an event.
func (s *Store) SaveEvent(ctx context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO events (id, title, starts_at, ends_at, max_participants, prize_radcoins, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			starts_at = excluded.starts_at,
			ends_at = excluded.ends_at,
			max_participants = excluded.max_participants,
			prize_radcoins = excluded.prize_radcoins,
			active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.Title,
		e.StartsAt.UTC().Format(time.RFC3339Nano),
		e.EndsAt.UTC().Format(time.RFC3339Nano),
		e.MaxParticipants, e.PrizeRadCoins, boolToInt(e.Active),
	)
	return err
}

// ListEvents returns all active events ordered by start time.
func (s *Store) ListEvents(ctx context.Context) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, starts_at, ends_at, max_participants, prize_radcoins, active
		 FROM events WHERE active = 1 ORDER BY starts_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []events.Event
	for rows.Next() {
		var e events.Event
		var startsAt, endsAt string
		var active int
		if err := rows.Scan(&e.ID, &e.Title, &startsAt, &endsAt,
			&e.MaxParticipants, &e.PrizeRadCoins, &active); err != nil {
			return nil, err
		}
		e.StartsAt, _ = time.Parse(time.RFC3339Nano, startsAt)
		e.EndsAt, _ = time.Parse(time.RFC3339Nano, endsAt)
		e.Active = active != 0
		result = append(result, e)
	}
	return result, rows.Err()
}

// IsRegistered checks whether the user already holds a registration.
func (s *Store) IsRegistered(ctx context.Context, eventID string, userID radcoin.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM event_registrations WHERE event_id = ? AND user_id = ?",
		eventID, string(userID),
	).Scan(&count)
	return count > 0, err
}

// CountRegistrations returns the number of registrations for an event.
func (s *Store) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM event_registrations WHERE event_id = ?", eventID,
	).Scan(&count)
	return count, err
}

// InsertRegistration inserts a registration. The unique (event_id, user_id)
// index turns a concurrent duplicate into events.ErrAlreadyRegistered.
func (s *Store) InsertRegistration(ctx context.Context, reg events.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO event_registrations (id, event_id, user_id, registered_at) VALUES (?, ?, ?, ?)",
		reg.ID, reg.EventID, string(reg.UserID),
		reg.RegisteredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil && isUniqueConstraintError(err) {
		return events.ErrAlreadyRegistered
	}
	return err
}

// =============================================================================
// CHALLENGE STORE (challenge.Store interface)
// =============================================================================

// ActiveOn returns the active challenge for a date ("YYYY-MM-DD"), or nil.
func (s *Store) ActiveOn(ctx context.Context, date string) (*challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c challenge.Challenge
	var correctAnswer, active int
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, challenge_date, question, explanation, correct_answer,
		        total_answers, correct_answers, active, created_at
		 FROM daily_challenges WHERE challenge_date = ? AND active = 1`, date,
	).Scan(&c.ID, &c.Date, &c.Question, &c.Explanation, &correctAnswer,
		&c.Community.TotalAnswers, &c.Community.CorrectAnswers, &active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.CorrectAnswer = correctAnswer != 0
	c.Active = active != 0
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &c, nil
}

// InsertChallenge inserts a challenge. The unique date index turns a
// concurrent duplicate into challenge.ErrDuplicateDate.
func (s *Store) InsertChallenge(ctx context.Context, c challenge.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_challenges
		 (id, challenge_date, question, explanation, correct_answer,
		  total_answers, correct_answers, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Date, c.Question, c.Explanation, boolToInt(c.CorrectAnswer),
		c.Community.TotalAnswers, c.Community.CorrectAnswers, boolToInt(c.Active),
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil && isUniqueConstraintError(err) {
		return challenge.ErrDuplicateDate
	}
	return err
}

// =============================================================================
// NOTIFICATION STORE (notify.Emitter interface)
// =============================================================================

// Create persists a single notification.
func (s *Store) Create(ctx context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertNotification(ctx, s.db, n)
}

// CreateBatch persists a batch of notifications atomically.
func (s *Store) CreateBatch(ctx context.Context, ns []notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, n := range ns {
		if err := s.insertNotification(ctx, sqlTx, n); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

func (s *Store) insertNotification(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, n notify.Notification) error {
	metadataJSON, _ := json.Marshal(n.Metadata)

	_, err := db.ExecContext(ctx,
		`INSERT INTO notifications
		 (id, user_id, type, title, message, priority, action_url, action_label,
		  metadata_json, read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, string(n.Priority),
		n.ActionURL, n.ActionLabel, string(metadataJSON), boolToInt(n.Read),
		n.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]notify.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, type, title, message, priority, action_url, action_label,
		        metadata_json, read, created_at
		 FROM notifications
		 WHERE user_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []notify.Notification
	for rows.Next() {
		var n notify.Notification
		var priority, createdAt string
		var metadataJSON sql.NullString
		var read int
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&priority, &n.ActionURL, &n.ActionLabel, &metadataJSON, &read, &createdAt); err != nil {
			return nil, err
		}
		n.Priority = notify.Priority(priority)
		n.Read = read != 0
		n.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
			json.Unmarshal([]byte(metadataJSON.String), &n.Metadata)
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

// MarkNotificationRead flags one notification as read.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?",
		notificationID, userID)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"notifications", "daily_challenges", "event_registrations", "events",
		"catalog_items", "help_aids", "radcoin_transactions", "balances", "users",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
