// Package store provides in-memory ledger.Store implementations.
package store

import (
	"context"
	"slices"
	"sync"

	"github.com/agenlink/kasledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps accounts in creation order and both logs in insertion order.
type Memory struct {
	mu           sync.RWMutex
	accounts     []ledger.Account
	mutations    []ledger.Mutation
	transactions []ledger.Transaction
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAccounts(m.accounts), nil
}

func (m *Memory) GetAccount(_ context.Context, id ledger.AccountID) (ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

func (m *Memory) ListMutations(_ context.Context) ([]ledger.Mutation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.mutations), nil
}

func (m *Memory) ListTransactions(_ context.Context) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.transactions), nil
}

// Reset drops every account, mutation and transaction.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts, m.mutations, m.transactions = nil, nil, nil
	return nil
}

func (m *Memory) indexLocked(id ledger.AccountID) int {
	return slices.IndexFunc(m.accounts, func(a ledger.Account) bool { return a.ID == id })
}

func (m *Memory) getLocked(id ledger.AccountID) (ledger.Account, error) {
	i := m.indexLocked(id)
	if i < 0 {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return cloneAccount(m.accounts[i]), nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(ledger.Tx) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := tm.snapshot()
	if err := fn(&txMemoryView{parent: tm.Memory}); err != nil {
		tm.restore(snapshot)
		return err
	}
	// The unit may have outlived its deadline while fn ran.
	if err := ctx.Err(); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts     []ledger.Account
	mutations    int
	transactions int
}

// snapshot copies the accounts. The logs are append-only, so their lengths
// are enough to roll back.
func (tm *TxMemory) snapshot() memorySnapshot {
	return memorySnapshot{
		accounts:     cloneAccounts(tm.accounts),
		mutations:    len(tm.mutations),
		transactions: len(tm.transactions),
	}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.accounts = s.accounts
	tm.mutations = tm.mutations[:s.mutations]
	tm.transactions = tm.transactions[:s.transactions]
}

// txMemoryView writes straight into the parent; the caller holds its lock.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	return cloneAccounts(tv.parent.accounts), nil
}

func (tv *txMemoryView) GetAccount(_ context.Context, id ledger.AccountID) (ledger.Account, error) {
	return tv.parent.getLocked(id)
}

func (tv *txMemoryView) InsertAccount(_ context.Context, a ledger.Account) error {
	if tv.parent.indexLocked(a.ID) >= 0 {
		return ledger.ErrConcurrentModification
	}
	tv.parent.accounts = append(tv.parent.accounts, cloneAccount(a))
	return nil
}

func (tv *txMemoryView) UpdateAccount(_ context.Context, a ledger.Account) error {
	i := tv.parent.indexLocked(a.ID)
	if i < 0 {
		return ledger.ErrAccountNotFound
	}
	tv.parent.accounts[i] = cloneAccount(a)
	return nil
}

func (tv *txMemoryView) DeleteAccount(_ context.Context, id ledger.AccountID) error {
	i := tv.parent.indexLocked(id)
	if i < 0 {
		return ledger.ErrAccountNotFound
	}
	tv.parent.accounts = slices.Delete(tv.parent.accounts, i, i+1)
	return nil
}

func (tv *txMemoryView) AdjustBalance(_ context.Context, id ledger.AccountID, delta int64) error {
	i := tv.parent.indexLocked(id)
	if i < 0 {
		return ledger.ErrAccountNotFound
	}
	tv.parent.accounts[i].Balance += delta
	return nil
}

func (tv *txMemoryView) AppendMutation(_ context.Context, m ledger.Mutation) error {
	tv.parent.mutations = append(tv.parent.mutations, m)
	return nil
}

func (tv *txMemoryView) AppendTransaction(_ context.Context, t ledger.Transaction) error {
	tv.parent.transactions = append(tv.parent.transactions, t)
	return nil
}

func cloneAccounts(in []ledger.Account) []ledger.Account {
	out := make([]ledger.Account, len(in))
	for i, a := range in {
		out[i] = cloneAccount(a)
	}
	return out
}

func cloneAccount(a ledger.Account) ledger.Account {
	if a.MinimumBalance != nil {
		v := *a.MinimumBalance
		a.MinimumBalance = &v
	}
	return a
}
