/*
Package ledger provides the double-entry mutation engine for an agent kiosk.

PURPOSE:
  A cash-and-digital-account agent (bank transfer / bill payment kiosk) keeps
  float in several places at once: the cash drawer, bank and e-wallet
  accounts, and merchant (EDC/QRIS) accounts. Every customer transaction
  moves money across those accounts. This package derives the movements,
  applies them atomically and keeps running balances correct.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account:     A named, typed store of value with a running balance
  - Mutation:    An immutable record of one balance-affecting event
  - Entry:       The kind-specific body of a mutation (In, Out, Transfer, ...)
  - Transaction: A customer-facing service event, kept apart from mutations
  - Delta:       A signed balance change for one account

DESIGN PRINCIPLES:
  1. Integers only: balances and amounts are int64 in the smallest unit
  2. Immutability: mutations and transactions never change after creation
  3. Tagged variants: each mutation kind carries exactly its valid fields
  4. One writer: only the Engine changes balances or appends to the log

USAGE:
  engine := ledger.NewEngine(store.NewTxMemory())
  cash, _ := engine.CreateAccount(ctx, ledger.AccountSpec{Name: "Drawer", Kind: ledger.KindCash})
  engine.ApplyCapitalInjection(ctx, cash.ID, 100000, "opening float")

SEE ALSO:
  - classifier.go: Transaction intent -> pending mutations + deltas
  - engine.go: Atomic application of mutation sets
  - store.go: Persistence contract
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type MutationID string
type TransactionID string

// =============================================================================
// ACCOUNT - A named store of value
// =============================================================================

type AccountKind string

const (
	KindCash     AccountKind = "cash"
	KindDigital  AccountKind = "digital"
	KindPPOB     AccountKind = "ppob" // exists in the enum, unused by any flow
	KindMerchant AccountKind = "merchant"
)

// Valid reports whether k is one of the known account kinds.
func (k AccountKind) Valid() bool {
	switch k {
	case KindCash, KindDigital, KindPPOB, KindMerchant:
		return true
	}
	return false
}

type Account struct {
	ID      AccountID
	Name    string
	Kind    AccountKind
	Balance int64

	// MinimumBalance is an advisory threshold. It never blocks an operation.
	MinimumBalance *int64

	// ExternalReference is the bank account or card number, display only.
	ExternalReference string

	// Merchant-only. Cleared for every other kind.
	MerchantFeePercent decimal.Decimal
	SettlementTargetID AccountID

	CreatedAt time.Time
}

// IsLowBalance reports whether the balance is under the configured minimum.
func (a Account) IsLowBalance() bool {
	return a.MinimumBalance != nil && a.Balance < *a.MinimumBalance
}

// AccountSpec describes a new account.
type AccountSpec struct {
	Name               string
	Kind               AccountKind
	Balance            int64
	MinimumBalance     *int64
	ExternalReference  string
	MerchantFeePercent decimal.Decimal
	SettlementTargetID AccountID
}

// AccountPatch lists the fields an edit replaces. Nil fields are kept.
// Balance is a raw overwrite, not a delta.
type AccountPatch struct {
	Name                *string
	Kind                *AccountKind
	Balance             *int64
	MinimumBalance      *int64
	ClearMinimumBalance bool
	ExternalReference   *string
	MerchantFeePercent  *decimal.Decimal
	SettlementTargetID  *AccountID
}

// =============================================================================
// DELTA - Signed balance change for one account
// =============================================================================

type Delta struct {
	AccountID AccountID
	Amount    int64
}

// =============================================================================
// MUTATION - Immutable balance-affecting event
// =============================================================================

type MutationKind string

const (
	MutationIn               MutationKind = "in"
	MutationOut              MutationKind = "out"
	MutationTransfer         MutationKind = "transfer"
	MutationSettlement       MutationKind = "settlement"
	MutationCapitalInjection MutationKind = "capital_in"
)

// Mutation is one entry of the append-only log.
type Mutation struct {
	ID          MutationID
	Timestamp   time.Time
	Description string

	// TransactionID links the mutation to the customer transaction that
	// produced it. Empty for transfers, settlements and capital injections.
	TransactionID TransactionID

	Entry Entry
}

func (m Mutation) Kind() MutationKind { return m.Entry.Kind() }
func (m Mutation) Amount() int64      { return m.Entry.Magnitude() }
func (m Mutation) Fee() int64         { return m.Entry.FeeAmount() }

func (m Mutation) SourceAccountID() AccountID      { return m.Entry.Source() }
func (m Mutation) DestinationAccountID() AccountID { return m.Entry.Destination() }

// Touches reports whether the mutation debits or credits the account.
func (m Mutation) Touches(id AccountID) bool {
	return m.Entry.Source() == id || m.Entry.Destination() == id
}

// PendingMutation is a mutation that has been derived but not yet recorded.
type PendingMutation struct {
	Description string
	Entry       Entry
}

// =============================================================================
// TRANSACTION - Customer-facing service event
// =============================================================================

type TransactionType string

const (
	TypeTransferBank          TransactionType = "transfer_bank"
	TypeBankCashWithdrawal    TransactionType = "bank_cash_withdrawal"
	TypeEWalletTopUp          TransactionType = "ewallet_topup"
	TypeEWalletWithdrawal     TransactionType = "ewallet_withdrawal"
	TypeVirtualAccountPayment TransactionType = "virtual_account_payment"
	TypeEMoneyTopUp           TransactionType = "emoney_topup"
	TypeKJPWithdrawal         TransactionType = "kjp_withdrawal"
	TypeEDCRental             TransactionType = "edc_rental"
	TypePLNToken              TransactionType = "pln_token"
	TypePLNBill               TransactionType = "pln_bill"
	TypeMobileCredit          TransactionType = "mobile_credit"
	TypeDataPackage           TransactionType = "data_package"
	TypePDAM                  TransactionType = "pdam"
	TypeBPJS                  TransactionType = "bpjs"
)

var transactionTypes = map[TransactionType]bool{
	TypeTransferBank: true, TypeBankCashWithdrawal: true, TypeEWalletTopUp: true,
	TypeEWalletWithdrawal: true, TypeVirtualAccountPayment: true, TypeEMoneyTopUp: true,
	TypeKJPWithdrawal: true, TypeEDCRental: true, TypePLNToken: true, TypePLNBill: true,
	TypeMobileCredit: true, TypeDataPackage: true, TypePDAM: true, TypeBPJS: true,
}

// Valid reports whether t is one of the enumerated service types.
func (t TransactionType) Valid() bool { return transactionTypes[t] }

type TransactionStatus string

const (
	StatusSuccess TransactionStatus = "success"
	StatusPending TransactionStatus = "pending"
	StatusFailed  TransactionStatus = "failed"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentSplit    PaymentMethod = "split"
)

// TransactionIntent is what a collaborator submits: already-validated
// primitive values describing one customer transaction.
type TransactionIntent struct {
	Type          TransactionType
	CustomerName  string
	AccountNumber string
	Provider      string

	PrincipalAmount int64 // nominal value moved on the customer's behalf
	BankAdminFee    int64 // third-party fee passed through
	AgentFee        int64 // agent's own margin
	Status          TransactionStatus

	SourceAccountID   AccountID
	PaymentMethod     PaymentMethod
	PaymentReceiverID AccountID

	SplitCashAmount     int64
	SplitTransferAmount int64
}

// Total is the amount billed to the customer.
func (i TransactionIntent) Total() int64 {
	return i.PrincipalAmount + i.BankAdminFee + i.AgentFee
}

// Transaction is the recorded customer event. It never changes after creation.
type Transaction struct {
	ID            TransactionID
	Timestamp     time.Time
	Type          TransactionType
	CustomerName  string
	AccountNumber string
	Provider      string

	PrincipalAmount int64
	BankAdminFee    int64
	AgentFee        int64
	Total           int64
	Status          TransactionStatus

	// Audit trail of how funds moved
	SourceAccountID     AccountID
	PaymentMethod       PaymentMethod
	PaymentReceiverID   AccountID
	SplitCashAmount     int64
	SplitTransferAmount int64
}

// =============================================================================
// CLASSIFICATION - Classifier output
// =============================================================================

// Classification is what should happen for one transaction intent.
type Classification struct {
	Mutations []PendingMutation
	Deltas    []Delta
}

// =============================================================================
// RESULT - Post-state returned by Engine operations
// =============================================================================

// Result carries what an Engine operation recorded and the post-state of
// every account it touched.
type Result struct {
	Transaction *Transaction
	Mutations   []Mutation
	Accounts    []Account
}

// State is a consistent read of all three collections.
type State struct {
	Accounts     []Account
	Mutations    []Mutation
	Transactions []Transaction
}
