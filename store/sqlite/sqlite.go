/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Persists the three ledger collections (accounts, mutations, transactions)
  in one database file. Each engine operation is one SQL transaction, so a
  failed unit leaves nothing behind.

DRIVERS:
  "sqlite3": github.com/mattn/go-sqlite3 (cgo)
  "sqlite":  modernc.org/sqlite (pure Go, no C toolchain needed)
  Both speak the same SQL; Open picks one by name.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on mutations or transactions
  - Insertion order is the seq column, never the timestamp

KEY TABLES:
  accounts:     Current balance and metadata, one row per account
  mutations:    Append-only log of balance-affecting events
  transactions: Append-only customer-facing history

BALANCES:
  AdjustBalance is "balance = balance + ?". Balances are never read, changed
  in Go and written back by an engine operation.

CONCURRENCY:
  One open connection, so ":memory:" databases are shared by every caller
  and writers queue up inside database/sql. A sync.RWMutex keeps readers
  out of a unit in flight. SQLITE_BUSY surfaces as
  ledger.ErrConcurrentModification.

USAGE:
  store, err := sqlite.Open("sqlite", "./data/kasledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store)

MIGRATION:
  Schema is auto-migrated on Open(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/agenlink/kasledger/ledger"
)

const (
	DriverCGO    = "sqlite3"
	DriverPureGo = "sqlite"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens dbPath with the named driver and migrates the schema.
func Open(driver, dbPath string) (*Store, error) {
	if driver != DriverCGO && driver != DriverPureGo {
		return nil, fmt.Errorf("unknown sqlite driver %q", driver)
	}

	db, err := sql.Open(driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %q: %w", pragma, err)
		}
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
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		balance INTEGER NOT NULL DEFAULT 0,
		minimum_balance INTEGER,
		external_reference TEXT NOT NULL DEFAULT '',
		merchant_fee_percent TEXT NOT NULL DEFAULT '0',
		settlement_target_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- At most one cash account. The engine checks first; this is the backstop.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_single_cash_account
		ON accounts(kind) WHERE kind = 'cash';

	-- Mutations (append-only). Account ids are not foreign keys: deleting an
	-- account leaves its history behind with the stale id.
	CREATE TABLE IF NOT EXISTS mutations (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		occurred_at TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount INTEGER NOT NULL,
		fee INTEGER NOT NULL DEFAULT 0,
		source_account_id TEXT NOT NULL DEFAULT '',
		destination_account_id TEXT NOT NULL DEFAULT '',
		charged_to TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		transaction_id TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_mutations_source
		ON mutations(source_account_id);
	CREATE INDEX IF NOT EXISTS idx_mutations_destination
		ON mutations(destination_account_id);

	-- Transactions (append-only)
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		occurred_at TEXT NOT NULL,
		type TEXT NOT NULL,
		customer_name TEXT NOT NULL DEFAULT '',
		account_number TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		principal_amount INTEGER NOT NULL,
		bank_admin_fee INTEGER NOT NULL,
		agent_fee INTEGER NOT NULL,
		total INTEGER NOT NULL,
		status TEXT NOT NULL,
		source_account_id TEXT NOT NULL DEFAULT '',
		payment_method TEXT NOT NULL DEFAULT '',
		payment_receiver_id TEXT NOT NULL DEFAULT '',
		split_cash_amount INTEGER NOT NULL DEFAULT 0,
		split_transfer_amount INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// READS (ledger.Store)
// =============================================================================

func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAccounts(ctx, s.db)
}

func (s *Store) GetAccount(ctx context.Context, id ledger.AccountID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccount(ctx, s.db, id)
}

func (s *Store) ListMutations(ctx context.Context) ([]ledger.Mutation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, occurred_at, kind, amount, fee, source_account_id,
		       destination_account_id, charged_to, description, transaction_id
		FROM mutations
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mutations: %w", mapError(err))
	}
	defer rows.Close()

	var mutations []ledger.Mutation
	for rows.Next() {
		m, err := scanMutation(rows)
		if err != nil {
			return nil, err
		}
		mutations = append(mutations, m)
	}
	return mutations, rows.Err()
}

func (s *Store) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, occurred_at, type, customer_name, account_number, provider,
		       principal_amount, bank_admin_fee, agent_fee, total, status,
		       source_account_id, payment_method, payment_receiver_id,
		       split_cash_amount, split_transfer_amount
		FROM transactions
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", mapError(err))
	}
	defer rows.Close()

	var transactions []ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.Store.WithTx)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", mapError(err))
	}
	return nil
}

// Reset deletes every row. Used when loading a scenario.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM mutations;
		DELETE FROM transactions;
		DELETE FROM accounts;
	`)
	return mapError(err)
}

// txStore reads through the open transaction only: with a single pooled
// connection, a read on s.db would wait forever for the unit to finish.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	return listAccounts(ctx, ts.tx)
}

func (ts *txStore) GetAccount(ctx context.Context, id ledger.AccountID) (ledger.Account, error) {
	return getAccount(ctx, ts.tx, id)
}

func (ts *txStore) InsertAccount(ctx context.Context, a ledger.Account) error {
	_, err := ts.tx.ExecContext(ctx, `
		INSERT INTO accounts
		(id, name, kind, balance, minimum_balance, external_reference,
		 merchant_fee_percent, settlement_target_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.Name, a.Kind, a.Balance, nullInt(a.MinimumBalance), a.ExternalReference,
		a.MerchantFeePercent.String(), a.SettlementTargetID, formatTime(a.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			if strings.Contains(err.Error(), "accounts.kind") {
				return ledger.ErrDuplicateCashAccount
			}
			return ledger.ErrConcurrentModification
		}
		return fmt.Errorf("failed to insert account: %w", mapError(err))
	}
	return nil
}

func (ts *txStore) UpdateAccount(ctx context.Context, a ledger.Account) error {
	res, err := ts.tx.ExecContext(ctx, `
		UPDATE accounts
		SET name = ?, kind = ?, balance = ?, minimum_balance = ?, external_reference = ?,
		    merchant_fee_percent = ?, settlement_target_id = ?
		WHERE id = ?
	`,
		a.Name, a.Kind, a.Balance, nullInt(a.MinimumBalance), a.ExternalReference,
		a.MerchantFeePercent.String(), a.SettlementTargetID, a.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateCashAccount
		}
		return fmt.Errorf("failed to update account: %w", mapError(err))
	}
	return requireRow(res)
}

func (ts *txStore) DeleteAccount(ctx context.Context, id ledger.AccountID) error {
	res, err := ts.tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", mapError(err))
	}
	return requireRow(res)
}

func (ts *txStore) AdjustBalance(ctx context.Context, id ledger.AccountID, delta int64) error {
	res, err := ts.tx.ExecContext(ctx, `UPDATE accounts SET balance = balance + ? WHERE id = ?`, delta, id)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", mapError(err))
	}
	return requireRow(res)
}

func (ts *txStore) AppendMutation(ctx context.Context, m ledger.Mutation) error {
	f := ledger.Flatten(m.Entry)
	_, err := ts.tx.ExecContext(ctx, `
		INSERT INTO mutations
		(id, occurred_at, kind, amount, fee, source_account_id, destination_account_id,
		 charged_to, description, transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, formatTime(m.Timestamp), f.Kind, f.Amount, f.Fee, f.Source, f.Destination,
		f.ChargedTo, m.Description, m.TransactionID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrConcurrentModification
		}
		return fmt.Errorf("failed to append mutation: %w", mapError(err))
	}
	return nil
}

func (ts *txStore) AppendTransaction(ctx context.Context, t ledger.Transaction) error {
	_, err := ts.tx.ExecContext(ctx, `
		INSERT INTO transactions
		(id, occurred_at, type, customer_name, account_number, provider,
		 principal_amount, bank_admin_fee, agent_fee, total, status,
		 source_account_id, payment_method, payment_receiver_id,
		 split_cash_amount, split_transfer_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, formatTime(t.Timestamp), t.Type, t.CustomerName, t.AccountNumber, t.Provider,
		t.PrincipalAmount, t.BankAdminFee, t.AgentFee, t.Total, t.Status,
		t.SourceAccountID, t.PaymentMethod, t.PaymentReceiverID,
		t.SplitCashAmount, t.SplitTransferAmount,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrConcurrentModification
		}
		return fmt.Errorf("failed to append transaction: %w", mapError(err))
	}
	return nil
}

// =============================================================================
// SHARED QUERIES AND SCANNING
// =============================================================================

const accountColumns = `id, name, kind, balance, minimum_balance, external_reference,
	merchant_fee_percent, settlement_target_id, created_at`

func listAccounts(ctx context.Context, q querier) ([]ledger.Account, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", mapError(err))
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func getAccount(ctx context.Context, q querier, id ledger.AccountID) (ledger.Account, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return a, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (ledger.Account, error) {
	var (
		a          ledger.Account
		minimum    sql.NullInt64
		feePercent string
		createdAt  string
	)
	err := row.Scan(&a.ID, &a.Name, &a.Kind, &a.Balance, &minimum, &a.ExternalReference,
		&feePercent, &a.SettlementTargetID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, err
	}
	if err != nil {
		return a, fmt.Errorf("failed to scan account: %w", mapError(err))
	}

	if minimum.Valid {
		v := minimum.Int64
		a.MinimumBalance = &v
	}
	a.MerchantFeePercent, err = decimal.NewFromString(feePercent)
	if err != nil {
		return a, fmt.Errorf("account %s: bad merchant fee percent %q: %w", a.ID, feePercent, err)
	}
	a.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return a, fmt.Errorf("account %s: %w", a.ID, err)
	}
	return a, nil
}

func scanMutation(rows *sql.Rows) (ledger.Mutation, error) {
	var (
		m          ledger.Mutation
		f          ledger.EntryFields
		occurredAt string
	)
	err := rows.Scan(&m.ID, &occurredAt, &f.Kind, &f.Amount, &f.Fee, &f.Source,
		&f.Destination, &f.ChargedTo, &m.Description, &m.TransactionID)
	if err != nil {
		return m, fmt.Errorf("failed to scan mutation: %w", mapError(err))
	}

	m.Timestamp, err = parseTime(occurredAt)
	if err != nil {
		return m, fmt.Errorf("mutation %s: %w", m.ID, err)
	}
	m.Entry, err = ledger.Rebuild(f)
	if err != nil {
		return m, fmt.Errorf("mutation %s: %w", m.ID, err)
	}
	return m, nil
}

func scanTransaction(rows *sql.Rows) (ledger.Transaction, error) {
	var (
		t          ledger.Transaction
		occurredAt string
	)
	err := rows.Scan(&t.ID, &occurredAt, &t.Type, &t.CustomerName, &t.AccountNumber, &t.Provider,
		&t.PrincipalAmount, &t.BankAdminFee, &t.AgentFee, &t.Total, &t.Status,
		&t.SourceAccountID, &t.PaymentMethod, &t.PaymentReceiverID,
		&t.SplitCashAmount, &t.SplitTransferAmount)
	if err != nil {
		return t, fmt.Errorf("failed to scan transaction: %w", mapError(err))
	}
	t.Timestamp, err = parseTime(occurredAt)
	if err != nil {
		return t, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	return t, nil
}

// Helper functions

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mapError turns lock contention into ErrConcurrentModification and leaves
// everything else alone.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY") {
		return fmt.Errorf("%w: %v", ledger.ErrConcurrentModification, err)
	}
	return err
}
