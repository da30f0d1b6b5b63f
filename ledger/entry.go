/*
entry.go - Tagged mutation variants

PURPOSE:
  Each mutation kind carries exactly the fields valid for it. An In entry
  has no source, an Out entry has no destination, a Transfer and a
  Settlement have both, a CapitalInjection only has a destination. The
  compiler enforces what used to be a convention.

BALANCE EFFECTS:
  In:               destination += Amount
  Out:              source      -= Amount
  Transfer:         source      -= Amount (+ Fee when the source pays it)
                    destination += Amount (- Fee when the destination pays it)
  Settlement:       source      -= Amount (gross)
                    destination += Amount - Fee (net; the fee leaves the ledger)
  CapitalInjection: destination += Amount

SEE ALSO:
  - types.go: Mutation wraps an Entry with id, timestamp and description
  - classifier.go: Builds In/Out entries for customer transactions
*/
package ledger

import "fmt"

// Entry is the kind-specific body of a mutation.
type Entry interface {
	Kind() MutationKind
	Magnitude() int64
	FeeAmount() int64
	Source() AccountID      // empty when the kind has no source
	Destination() AccountID // empty when the kind has no destination

	// Effects returns the balance changes this entry causes.
	Effects() []Delta

	// Validate checks the account references required by the kind.
	Validate() error
}

// =============================================================================
// IN / OUT
// =============================================================================

type InEntry struct {
	Amount int64
	To     AccountID
}

func (e InEntry) Kind() MutationKind     { return MutationIn }
func (e InEntry) Magnitude() int64       { return e.Amount }
func (e InEntry) FeeAmount() int64       { return 0 }
func (e InEntry) Source() AccountID      { return "" }
func (e InEntry) Destination() AccountID { return e.To }
func (e InEntry) Effects() []Delta       { return []Delta{{AccountID: e.To, Amount: e.Amount}} }

func (e InEntry) Validate() error {
	if e.To == "" {
		return ErrMissingDestination
	}
	return checkMagnitude(e.Amount, 0)
}

type OutEntry struct {
	Amount int64
	From   AccountID
}

func (e OutEntry) Kind() MutationKind     { return MutationOut }
func (e OutEntry) Magnitude() int64       { return e.Amount }
func (e OutEntry) FeeAmount() int64       { return 0 }
func (e OutEntry) Source() AccountID      { return e.From }
func (e OutEntry) Destination() AccountID { return "" }
func (e OutEntry) Effects() []Delta       { return []Delta{{AccountID: e.From, Amount: -e.Amount}} }

func (e OutEntry) Validate() error {
	if e.From == "" {
		return ErrMissingSource
	}
	return checkMagnitude(e.Amount, 0)
}

// =============================================================================
// TRANSFER
// =============================================================================

// FeeBearer says which side of an internal transfer pays its fee.
type FeeBearer string

const (
	ChargeSource      FeeBearer = "source"
	ChargeDestination FeeBearer = "destination"
)

type TransferEntry struct {
	Amount    int64
	Fee       int64
	From      AccountID
	To        AccountID
	ChargedTo FeeBearer
}

func (e TransferEntry) Kind() MutationKind     { return MutationTransfer }
func (e TransferEntry) Magnitude() int64       { return e.Amount }
func (e TransferEntry) FeeAmount() int64       { return e.Fee }
func (e TransferEntry) Source() AccountID      { return e.From }
func (e TransferEntry) Destination() AccountID { return e.To }

// Debit is what leaves the source account.
func (e TransferEntry) Debit() int64 {
	if e.ChargedTo == ChargeSource {
		return e.Amount + e.Fee
	}
	return e.Amount
}

// Credit is what reaches the destination account.
func (e TransferEntry) Credit() int64 {
	if e.ChargedTo == ChargeDestination {
		return e.Amount - e.Fee
	}
	return e.Amount
}

func (e TransferEntry) Effects() []Delta {
	return []Delta{
		{AccountID: e.From, Amount: -e.Debit()},
		{AccountID: e.To, Amount: e.Credit()},
	}
}

func (e TransferEntry) Validate() error {
	if err := checkPair(e.From, e.To); err != nil {
		return err
	}
	return checkMagnitude(e.Amount, e.Fee)
}

// =============================================================================
// SETTLEMENT
// =============================================================================

type SettlementEntry struct {
	Amount int64 // gross
	Fee    int64 // merchant discount, retained by the external acquirer
	From   AccountID
	To     AccountID
}

func (e SettlementEntry) Kind() MutationKind     { return MutationSettlement }
func (e SettlementEntry) Magnitude() int64       { return e.Amount }
func (e SettlementEntry) FeeAmount() int64       { return e.Fee }
func (e SettlementEntry) Source() AccountID      { return e.From }
func (e SettlementEntry) Destination() AccountID { return e.To }

// Net is what the settlement target receives.
func (e SettlementEntry) Net() int64 { return e.Amount - e.Fee }

func (e SettlementEntry) Effects() []Delta {
	return []Delta{
		{AccountID: e.From, Amount: -e.Amount},
		{AccountID: e.To, Amount: e.Net()},
	}
}

func (e SettlementEntry) Validate() error {
	if err := checkPair(e.From, e.To); err != nil {
		return err
	}
	if err := checkMagnitude(e.Amount, e.Fee); err != nil {
		return err
	}
	if e.Fee > e.Amount {
		return fmt.Errorf("settlement fee %d above gross %d: %w", e.Fee, e.Amount, ErrInvalidFee)
	}
	return nil
}

// =============================================================================
// CAPITAL INJECTION
// =============================================================================

type CapitalInjectionEntry struct {
	Amount int64
	To     AccountID
}

func (e CapitalInjectionEntry) Kind() MutationKind     { return MutationCapitalInjection }
func (e CapitalInjectionEntry) Magnitude() int64       { return e.Amount }
func (e CapitalInjectionEntry) FeeAmount() int64       { return 0 }
func (e CapitalInjectionEntry) Source() AccountID      { return "" }
func (e CapitalInjectionEntry) Destination() AccountID { return e.To }

func (e CapitalInjectionEntry) Effects() []Delta {
	return []Delta{{AccountID: e.To, Amount: e.Amount}}
}

func (e CapitalInjectionEntry) Validate() error {
	if e.To == "" {
		return ErrMissingDestination
	}
	return checkMagnitude(e.Amount, 0)
}

// checkMagnitude enforces unsigned amounts and fees. The sign of a balance
// change comes from the kind, never from the amount.
func checkMagnitude(amount, fee int64) error {
	if amount < 0 {
		return fmt.Errorf("entry amount %d: %w", amount, ErrInvalidAmount)
	}
	if fee < 0 {
		return fmt.Errorf("entry fee %d: %w", fee, ErrInvalidFee)
	}
	return nil
}

func checkPair(from, to AccountID) error {
	switch {
	case from == "":
		return ErrMissingSource
	case to == "":
		return ErrMissingDestination
	case from == to:
		return ErrSameAccount
	}
	return nil
}

// =============================================================================
// REBUILD - Flat storage row back to a variant
// =============================================================================

// EntryFields is the flat shape stores persist.
type EntryFields struct {
	Kind        MutationKind
	Amount      int64
	Fee         int64
	Source      AccountID
	Destination AccountID
	ChargedTo   FeeBearer
}

// Flatten converts an entry to its storage shape.
func Flatten(e Entry) EntryFields {
	f := EntryFields{
		Kind:        e.Kind(),
		Amount:      e.Magnitude(),
		Fee:         e.FeeAmount(),
		Source:      e.Source(),
		Destination: e.Destination(),
	}
	if t, ok := e.(TransferEntry); ok {
		f.ChargedTo = t.ChargedTo
	}
	return f
}

// Rebuild converts a storage row back to the variant for its kind.
func Rebuild(f EntryFields) (Entry, error) {
	switch f.Kind {
	case MutationIn:
		return InEntry{Amount: f.Amount, To: f.Destination}, nil
	case MutationOut:
		return OutEntry{Amount: f.Amount, From: f.Source}, nil
	case MutationTransfer:
		return TransferEntry{Amount: f.Amount, Fee: f.Fee, From: f.Source, To: f.Destination, ChargedTo: f.ChargedTo}, nil
	case MutationSettlement:
		return SettlementEntry{Amount: f.Amount, Fee: f.Fee, From: f.Source, To: f.Destination}, nil
	case MutationCapitalInjection:
		return CapitalInjectionEntry{Amount: f.Amount, To: f.Destination}, nil
	}
	return nil, fmt.Errorf("unknown mutation kind %q", f.Kind)
}
