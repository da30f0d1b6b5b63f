/*
engine.go - The single writer over accounts, mutations and transactions

PURPOSE:
  Every balance change and every log append goes through an Engine. Each
  public write is one atomic transition: the combined (accounts, log) state
  moves from S to S' or stays at S on any failure.

OPERATIONS:
  ApplyTransaction       records a customer transaction with its derived
                         mutations and deltas. No balance pre-check.
  SubmitTransaction      Classify + ApplyTransaction as one unit.
  ApplyInternalTransfer  moves money between two accounts. Checks the debit.
  ApplySettlement        cashes a merchant account out to its target, minus
                         the merchant discount. Checks the gross.
  ApplyCapitalInjection  credits external funds. No check.

CONCURRENCY:
  A sync.RWMutex serializes writers. Readers share the read lock, so a
  read never sees a half-applied unit even across collections. Every call
  runs under a bounded timeout; an expired deadline surfaces as a
  PersistenceError.

CHECK ORDER (internal transfer):
  missing refs -> same account -> amount -> fee -> unknown accounts -> debit

CHECK ORDER (settlement):
  amount -> unknown merchant -> gross vs balance -> settlement target

SEE ALSO:
  - classifier.go: Derives what ApplyTransaction records
  - store.go: Persistence contract
  - errors.go: Error taxonomy
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds each engine call when no WithTimeout is given.
const DefaultTimeout = 5 * time.Second

// Engine owns all ledger writes.
type Engine struct {
	store   Store
	mu      sync.RWMutex
	now     func() time.Time
	newID   func(prefix string) string
	timeout time.Duration
	log     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the default "<prefix>-<uuid>" ids.
func WithIDGenerator(fn func(prefix string) string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithTimeout sets the per-call deadline. Zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		now:     time.Now,
		newID:   func(prefix string) string { return prefix + "-" + uuid.NewString() },
		timeout: DefaultTimeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// write runs fn as one atomic unit under the writer lock.
func (e *Engine) write(ctx context.Context, op string, fn func(context.Context, Tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, cancel := e.bound(ctx)
	defer cancel()

	err := e.store.WithTx(ctx, func(tx Tx) error { return fn(ctx, tx) })
	return wrapStore(op, err)
}

// reject logs a refused operation and returns err unchanged.
func (e *Engine) reject(op string, err error) error {
	if IsRetryable(err) {
		e.log.Warn("ledger operation failed", zap.String("op", op), zap.Error(err))
	} else {
		e.log.Debug("ledger operation rejected", zap.String("op", op), zap.Error(err))
	}
	return err
}

// lookup resolves an account inside a unit, mapping a miss to AccountError.
func lookup(ctx context.Context, tx Tx, id AccountID) (Account, error) {
	a, err := tx.GetAccount(ctx, id)
	if errors.Is(err, ErrAccountNotFound) {
		return Account{}, notFound(id)
	}
	return a, err
}

// =============================================================================
// READS
// =============================================================================

func (e *Engine) ListAccounts(ctx context.Context) ([]Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ctx, cancel := e.bound(ctx)
	defer cancel()

	accounts, err := e.store.ListAccounts(ctx)
	return accounts, wrapStore("list accounts", err)
}

func (e *Engine) GetAccount(ctx context.Context, id AccountID) (Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ctx, cancel := e.bound(ctx)
	defer cancel()

	a, err := e.store.GetAccount(ctx, id)
	if errors.Is(err, ErrAccountNotFound) {
		return Account{}, notFound(id)
	}
	return a, wrapStore("get account", err)
}

// FindLowBalance is recomputed from current balances on every call.
func (e *Engine) FindLowBalance(ctx context.Context) ([]Account, error) {
	accounts, err := e.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return LowBalance(accounts), nil
}

// ListMutations returns the whole log in insertion order, or the history of
// one account newest first when id is set.
func (e *Engine) ListMutations(ctx context.Context, id AccountID) ([]Mutation, error) {
	log, err := e.mutationLog(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return log, nil
	}
	return Newest(log.History(id)), nil
}

// History is the unsorted, restartable sequence of one account's mutations.
func (e *Engine) History(ctx context.Context, id AccountID) (iter.Seq[Mutation], error) {
	log, err := e.mutationLog(ctx)
	if err != nil {
		return nil, err
	}
	return log.History(id), nil
}

func (e *Engine) mutationLog(ctx context.Context) (MutationLog, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ctx, cancel := e.bound(ctx)
	defer cancel()

	muts, err := e.store.ListMutations(ctx)
	if err != nil {
		return nil, wrapStore("list mutations", err)
	}
	return MutationLog(muts), nil
}

// ListTransactions returns all transactions newest first.
func (e *Engine) ListTransactions(ctx context.Context) ([]Transaction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ctx, cancel := e.bound(ctx)
	defer cancel()

	txs, err := e.store.ListTransactions(ctx)
	if err != nil {
		return nil, wrapStore("list transactions", err)
	}
	return newestTransactions(txs), nil
}

// Snapshot reads all three collections at one consistent point.
func (e *Engine) Snapshot(ctx context.Context) (State, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ctx, cancel := e.bound(ctx)
	defer cancel()

	accounts, err := e.store.ListAccounts(ctx)
	if err != nil {
		return State{}, wrapStore("snapshot", err)
	}
	muts, err := e.store.ListMutations(ctx)
	if err != nil {
		return State{}, wrapStore("snapshot", err)
	}
	txs, err := e.store.ListTransactions(ctx)
	if err != nil {
		return State{}, wrapStore("snapshot", err)
	}
	return State{Accounts: accounts, Mutations: muts, Transactions: txs}, nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// CreateAccount adds an account. A second cash account is refused; the
// initial balance may be any value.
func (e *Engine) CreateAccount(ctx context.Context, spec AccountSpec) (Account, error) {
	const op = "create account"

	acct := newAccount(spec)
	if err := validateAccount(acct); err != nil {
		return Account{}, e.reject(op, err)
	}
	acct.ID = AccountID(e.newID("acc"))
	acct.CreatedAt = e.now()

	err := e.write(ctx, op, func(ctx context.Context, tx Tx) error {
		existing, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		if err := checkSingleCash(existing, acct); err != nil {
			return err
		}
		if err := requireTarget(existing, acct); err != nil {
			return err
		}
		return tx.InsertAccount(ctx, acct)
	})
	if err != nil {
		return Account{}, e.reject(op, err)
	}

	e.log.Info("account created",
		zap.String("account_id", string(acct.ID)),
		zap.String("kind", string(acct.Kind)),
		zap.Int64("balance", acct.Balance))
	return acct, nil
}

// UpdateAccount merges patch into the account. A balance in the patch is a
// raw overwrite.
func (e *Engine) UpdateAccount(ctx context.Context, id AccountID, patch AccountPatch) (Account, error) {
	const op = "update account"

	var updated Account
	err := e.write(ctx, op, func(ctx context.Context, tx Tx) error {
		cur, err := lookup(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = applyPatch(cur, patch)
		if err := validateAccount(updated); err != nil {
			return err
		}
		existing, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		if err := checkSingleCash(existing, updated); err != nil {
			return err
		}
		// A stale target is only checked when the patch sets a new one.
		if patch.SettlementTargetID != nil {
			if err := requireTarget(existing, updated); err != nil {
				return err
			}
		}
		return tx.UpdateAccount(ctx, updated)
	})
	if err != nil {
		return Account{}, e.reject(op, err)
	}

	e.log.Info("account updated", zap.String("account_id", string(id)))
	return updated, nil
}

// DeleteAccount removes the account immediately. Its mutations stay in the
// log with the stale id.
func (e *Engine) DeleteAccount(ctx context.Context, id AccountID) error {
	const op = "delete account"

	err := e.write(ctx, op, func(ctx context.Context, tx Tx) error {
		err := tx.DeleteAccount(ctx, id)
		if errors.Is(err, ErrAccountNotFound) {
			return notFound(id)
		}
		return err
	})
	if err != nil {
		return e.reject(op, err)
	}

	e.log.Info("account deleted", zap.String("account_id", string(id)))
	return nil
}

func requireTarget(existing []Account, a Account) error {
	if a.SettlementTargetID == "" {
		return nil
	}
	if _, ok := findAccount(existing, a.SettlementTargetID); !ok {
		return notFound(a.SettlementTargetID)
	}
	return nil
}

// =============================================================================
// CUSTOMER TRANSACTIONS
// =============================================================================

// Classify derives the mutations an intent would produce against the
// current accounts. Nothing is written.
func (e *Engine) Classify(ctx context.Context, intent TransactionIntent) (Classification, error) {
	if err := checkIntent(intent); err != nil {
		return Classification{}, err
	}
	accounts, err := e.ListAccounts(ctx)
	if err != nil {
		return Classification{}, err
	}
	return Classify(intent, cashAccountID(accounts))
}

// ApplyTransaction records the transaction, appends every mutation and
// applies every delta as one unit. It never checks balances: the outbound
// leg may drive its source negative.
func (e *Engine) ApplyTransaction(ctx context.Context, intent TransactionIntent, c Classification) (Result, error) {
	const op = "apply transaction"

	if err := checkIntent(intent); err != nil {
		return Result{}, e.reject(op, err)
	}
	if err := checkClassification(c); err != nil {
		return Result{}, e.reject(op, err)
	}

	var res Result
	err := e.write(ctx, op, func(ctx context.Context, tx Tx) error {
		var err error
		res, err = e.recordTransaction(ctx, tx, intent, c)
		return err
	})
	if err != nil {
		return Result{}, e.reject(op, err)
	}

	e.logTransaction(res)
	return res, nil
}

// SubmitTransaction classifies the intent and applies the result without
// releasing the writer lock in between.
func (e *Engine) SubmitTransaction(ctx context.Context, intent TransactionIntent) (Result, error) {
	const op = "submit transaction"

	if err := checkIntent(intent); err != nil {
		return Result{}, e.reject(op, err)
	}

	var res Result
	err := e.write(ctx, op, func(ctx context.Context, tx Tx) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		c, err := Classify(intent, cashAccountID(accounts))
		if err != nil {
			return err
		}
		res, err = e.recordTransaction(ctx, tx, intent, c)
		return err
	})
	if err != nil {
		return Result{}, e.reject(op, err)
	}

	e.logTransaction(res)
	return res, nil
}

func (e *Engine) recordTransaction(ctx context.Context, tx Tx, intent TransactionIntent, c Classification) (Result, error) {
	touched := touchedAccounts(c)
	for _, id := range touched {
		if _, err := lookup(ctx, tx, id); err != nil {
			return Result{}, err
		}
	}

	status := intent.Status
	if status == "" {
		status = StatusSuccess
	}

	now := e.now()
	t := Transaction{
		ID:                  TransactionID(e.newID("trx")),
		Timestamp:           now,
		Type:                intent.Type,
		CustomerName:        intent.CustomerName,
		AccountNumber:       intent.AccountNumber,
		Provider:            intent.Provider,
		PrincipalAmount:     intent.PrincipalAmount,
		BankAdminFee:        intent.BankAdminFee,
		AgentFee:            intent.AgentFee,
		Total:               intent.Total(),
		Status:              status,
		SourceAccountID:     intent.SourceAccountID,
		PaymentMethod:       intent.PaymentMethod,
		PaymentReceiverID:   intent.PaymentReceiverID,
		SplitCashAmount:     intent.SplitCashAmount,
		SplitTransferAmount: intent.SplitTransferAmount,
	}
	if err := tx.AppendTransaction(ctx, t); err != nil {
		return Result{}, err
	}

	muts, err := e.appendMutations(ctx, tx, now, t.ID, c.Mutations)
	if err != nil {
		return Result{}, err
	}
	if err := adjust(ctx, tx, c.Deltas); err != nil {
		return Result{}, err
	}
	accounts, err := reload(ctx, tx, touched)
	if err != nil {
		return Result{}, err
	}
	return Result{Transaction: &t, Mutations: muts, Accounts: accounts}, nil
}

func (e *Engine) logTransaction(res Result) {
	e.log.Info("transaction applied",
		zap.String("transaction_id", string(res.Transaction.ID)),
		zap.String("type", string(res.Transaction.Type)),
		zap.String("payment_method", string(res.Transaction.PaymentMethod)),
		zap.Int64("total", res.Transaction.Total),
		zap.Int("mutations", len(res.Mutations)))
}

func checkIntent(intent TransactionIntent) error {
	if !intent.Type.Valid() {
		return fmt.Errorf("transaction type %q: %w", intent.Type, ErrInvalidTransaction)
	}
	switch intent.Status {
	case "", StatusSuccess, StatusPending, StatusFailed:
	default:
		return fmt.Errorf("transaction status %q: %w", intent.Status, ErrInvalidTransaction)
	}
	return checkIntentAmounts(intent)
}

// checkClassification refuses invalid entries, kinds other than In and Out,
// and deltas that disagree with the entries.
func checkClassification(c Classification) error {
	for _, p := range c.Mutations {
		if err := validateEntry(p.Entry); err != nil {
			return err
		}
		switch k := p.Entry.Kind(); k {
		case MutationIn, MutationOut:
		default:
			return fmt.Errorf("%s entry in a customer transaction: %w", k, ErrInvalidTransaction)
		}
	}

	want := make(map[AccountID]int64)
	for _, d := range NetDeltas(c.Mutations) {
		want[d.AccountID] = d.Amount
	}
	got := make(map[AccountID]int64)
	for _, d := range c.Deltas {
		if d.AccountID == "" {
			return ErrDeltaMismatch
		}
		got[d.AccountID] += d.Amount
	}
	for id, amt := range want {
		if got[id] != amt {
			return fmt.Errorf("account %s: deltas %d, mutations %d: %w", id, got[id], amt, ErrDeltaMismatch)
		}
	}
	for id, amt := range got {
		if _, ok := want[id]; !ok && amt != 0 {
			return fmt.Errorf("account %s: delta %d without mutation: %w", id, amt, ErrDeltaMismatch)
		}
	}
	return nil
}

// touchedAccounts lists every account a classification references, in first
// reference order.
func touchedAccounts(c Classification) []AccountID {
	seen := make(map[AccountID]bool)
	var ids []AccountID
	add := func(id AccountID) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, p := range c.Mutations {
		add(p.Entry.Source())
		add(p.Entry.Destination())
	}
	for _, d := range c.Deltas {
		add(d.AccountID)
	}
	return ids
}

// =============================================================================
// INTERNAL TRANSFER
// =============================================================================

// TransferRequest moves money between two of the agent's own accounts.
type TransferRequest struct {
	SourceID      AccountID
	DestinationID AccountID
	Amount        int64

	// FeeType picks the fee. ManualFee is only read for FeeManual.
	// Empty means FeeFree.
	FeeType   FeePreset
	ManualFee int64

	// ChargedTo defaults to ChargeSource.
	ChargedTo FeeBearer

	Description string
}

// ApplyInternalTransfer debits the source and credits the destination. The
// source must cover the full debit, fee included when it pays the fee.
func (e *Engine) ApplyInternalTransfer(ctx context.Context, req TransferRequest) (Result, error) {
	const op = "internal transfer"

	entry, desc, err := transferEntry(req)
	if err != nil {
		return Result{}, e.reject(op, err)
	}

	var res Result
	err = e.write(ctx, op, func(ctx context.Context, tx Tx) error {
		src, err := lookup(ctx, tx, entry.From)
		if err != nil {
			return err
		}
		if _, err := lookup(ctx, tx, entry.To); err != nil {
			return err
		}
		if src.Balance < entry.Debit() {
			return &InsufficientBalanceError{AccountID: src.ID, Available: src.Balance, Required: entry.Debit()}
		}
		res, err = e.recordEntry(ctx, tx, desc, entry)
		return err
	})
	if err != nil {
		return Result{}, e.reject(op, err)
	}

	e.log.Info("internal transfer applied",
		zap.String("source", string(entry.From)),
		zap.String("destination", string(entry.To)),
		zap.Int64("amount", entry.Amount),
		zap.Int64("fee", entry.Fee),
		zap.String("charged_to", string(entry.ChargedTo)))
	return res, nil
}

func transferEntry(req TransferRequest) (TransferEntry, string, error) {
	switch {
	case req.SourceID == "":
		return TransferEntry{}, "", ErrMissingSource
	case req.DestinationID == "":
		return TransferEntry{}, "", ErrMissingDestination
	case req.SourceID == req.DestinationID:
		return TransferEntry{}, "", ErrSameAccount
	case req.Amount <= 0:
		return TransferEntry{}, "", fmt.Errorf("transfer amount %d: %w", req.Amount, ErrInvalidAmount)
	}

	preset := req.FeeType
	if preset == "" {
		preset = FeeFree
	}
	fee, err := TransferFee(preset, req.ManualFee)
	if err != nil {
		return TransferEntry{}, "", err
	}

	bearer := req.ChargedTo
	switch bearer {
	case "":
		bearer = ChargeSource
	case ChargeSource, ChargeDestination:
	default:
		return TransferEntry{}, "", fmt.Errorf("fee bearer %q: %w", bearer, ErrInvalidFee)
	}
	if bearer == ChargeDestination && fee > req.Amount {
		return TransferEntry{}, "", fmt.Errorf("fee %d exceeds amount %d: %w", fee, req.Amount, ErrInvalidFee)
	}

	desc := req.Description
	if desc == "" {
		desc = fmt.Sprintf("Internal transfer (%s)", preset)
	}
	entry := TransferEntry{
		Amount:    req.Amount,
		Fee:       fee,
		From:      req.SourceID,
		To:        req.DestinationID,
		ChargedTo: bearer,
	}
	return entry, desc, nil
}

// =============================================================================
// SETTLEMENT
// =============================================================================

// ApplySettlement debits the merchant account by the gross amount and credits
// its settlement target with the net. The merchant discount leaves the
// tracked balances.
func (e *Engine) ApplySettlement(ctx context.Context, merchantID AccountID, amount int64) (Result, error) {
	const op = "settlement"

	if merchantID == "" {
		return Result{}, e.reject(op, ErrMissingSource)
	}
	if amount <= 0 {
		return Result{}, e.reject(op, fmt.Errorf("settlement amount %d: %w", amount, ErrInvalidAmount))
	}

	var (
		res   Result
		entry SettlementEntry
	)
	err := e.write(ctx, op, func(ctx context.Context, tx Tx) error {
		merchant, err := lookup(ctx, tx, merchantID)
		if err != nil {
			return err
		}
		if amount > merchant.Balance {
			return &InsufficientBalanceError{AccountID: merchant.ID, Available: merchant.Balance, Required: amount}
		}
		if merchant.SettlementTargetID == "" {
			return &AccountError{AccountID: merchant.ID, Err: ErrNoSettlementTarget}
		}
		if _, err := lookup(ctx, tx, merchant.SettlementTargetID); err != nil {
			return err
		}

		entry = SettlementEntry{
			Amount: amount,
			Fee:    SettlementFee(amount, merchant.MerchantFeePercent),
			From:   merchant.ID,
			To:     merchant.SettlementTargetID,
		}
		res, err = e.recordEntry(ctx, tx, "Settlement "+merchant.Name, entry)
		return err
	})
	if err != nil {
		return Result{}, e.reject(op, err)
	}

	e.log.Info("settlement applied",
		zap.String("merchant", string(entry.From)),
		zap.String("target", string(entry.To)),
		zap.Int64("gross", entry.Amount),
		zap.Int64("fee", entry.Fee))
	return res, nil
}

// =============================================================================
// CAPITAL INJECTION
// =============================================================================

// ApplyCapitalInjection credits external funds to an account.
func (e *Engine) ApplyCapitalInjection(ctx context.Context, destID AccountID, amount int64, description string) (Result, error) {
	const op = "capital injection"

	if destID == "" {
		return Result{}, e.reject(op, ErrMissingDestination)
	}
	if amount <= 0 {
		return Result{}, e.reject(op, fmt.Errorf("capital amount %d: %w", amount, ErrInvalidAmount))
	}
	if description == "" {
		description = "Capital injection"
	}

	entry := CapitalInjectionEntry{Amount: amount, To: destID}
	var res Result
	err := e.write(ctx, op, func(ctx context.Context, tx Tx) error {
		if _, err := lookup(ctx, tx, destID); err != nil {
			return err
		}
		var err error
		res, err = e.recordEntry(ctx, tx, description, entry)
		return err
	})
	if err != nil {
		return Result{}, e.reject(op, err)
	}

	e.log.Info("capital injected",
		zap.String("destination", string(destID)),
		zap.Int64("amount", amount))
	return res, nil
}

// =============================================================================
// RESET
// =============================================================================

// Resetter is implemented by stores that can drop all their data.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Reset empties the store. It fails when the store does not support it.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.store.(Resetter)
	if !ok {
		return errors.New("store does not support reset")
	}

	ctx, cancel := e.bound(ctx)
	defer cancel()
	if err := r.Reset(ctx); err != nil {
		return e.reject("reset", wrapStore("reset", err))
	}
	e.log.Info("ledger reset")
	return nil
}

// =============================================================================
// SHARED WRITE STEPS
// =============================================================================

// recordEntry appends a single standalone mutation and applies its effects.
func (e *Engine) recordEntry(ctx context.Context, tx Tx, desc string, entry Entry) (Result, error) {
	muts, err := e.appendMutations(ctx, tx, e.now(), "", []PendingMutation{{Description: desc, Entry: entry}})
	if err != nil {
		return Result{}, err
	}
	deltas := entry.Effects()
	if err := adjust(ctx, tx, deltas); err != nil {
		return Result{}, err
	}
	ids := make([]AccountID, 0, len(deltas))
	for _, d := range deltas {
		ids = append(ids, d.AccountID)
	}
	accounts, err := reload(ctx, tx, ids)
	if err != nil {
		return Result{}, err
	}
	return Result{Mutations: muts, Accounts: accounts}, nil
}

func (e *Engine) appendMutations(ctx context.Context, tx Tx, at time.Time, txID TransactionID, pending []PendingMutation) ([]Mutation, error) {
	muts := make([]Mutation, 0, len(pending))
	for _, p := range pending {
		if err := validateEntry(p.Entry); err != nil {
			return nil, err
		}
		m := Mutation{
			ID:            MutationID(e.newID("mut")),
			Timestamp:     at,
			Description:   p.Description,
			TransactionID: txID,
			Entry:         p.Entry,
		}
		if err := tx.AppendMutation(ctx, m); err != nil {
			return nil, err
		}
		muts = append(muts, m)
	}
	return muts, nil
}

func adjust(ctx context.Context, tx Tx, deltas []Delta) error {
	for _, d := range deltas {
		if d.Amount == 0 {
			continue
		}
		err := tx.AdjustBalance(ctx, d.AccountID, d.Amount)
		if errors.Is(err, ErrAccountNotFound) {
			return notFound(d.AccountID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func reload(ctx context.Context, tx Tx, ids []AccountID) ([]Account, error) {
	accounts := make([]Account, 0, len(ids))
	for _, id := range ids {
		a, err := lookup(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}
