/*
store.go - Persistence contract for accounts, mutations and transactions

PURPOSE:
  Defines the interface between the engine and whatever holds its three
  collections. The engine is the only caller; the store never decides
  anything about balances.

COLLECTIONS:
  accounts:     id -> Account, mutable (metadata edits and balance deltas)
  mutations:    append-only, kept in insertion order
  transactions: append-only, kept in insertion order

ATOMIC UNITS:
  Every write goes through WithTx. If fn returns an error nothing fn wrote
  is visible afterwards. Reads outside WithTx must never observe a half
  applied unit.

BALANCES:
  AdjustBalance applies a signed delta. It is the only way an engine
  operation moves money; UpdateAccount overwrites metadata, and the balance
  only on an explicit account edit.

NOT FOUND:
  GetAccount, UpdateAccount, DeleteAccount and AdjustBalance return an
  error matching ErrAccountNotFound for an unknown id.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory, snapshot + rollback
  - store/sqlite/sqlite.go: SQLite on mattn/go-sqlite3 or modernc.org/sqlite
*/
package ledger

import "context"

// Store is the read side plus the transactional entry point.
type Store interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	GetAccount(ctx context.Context, id AccountID) (Account, error)

	// ListMutations returns the whole log in insertion order.
	ListMutations(ctx context.Context) ([]Mutation, error)

	// ListTransactions returns every transaction in insertion order.
	ListTransactions(ctx context.Context) ([]Transaction, error)

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the view of a store inside WithTx. Reads see the unit's own writes.
type Tx interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	GetAccount(ctx context.Context, id AccountID) (Account, error)

	InsertAccount(ctx context.Context, a Account) error
	UpdateAccount(ctx context.Context, a Account) error
	DeleteAccount(ctx context.Context, id AccountID) error
	AdjustBalance(ctx context.Context, id AccountID, delta int64) error

	AppendMutation(ctx context.Context, m Mutation) error
	AppendTransaction(ctx context.Context, t Transaction) error
}
