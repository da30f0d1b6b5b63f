package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// newAccount turns a spec into an account without id or timestamp.
func newAccount(spec AccountSpec) Account {
	return normalize(Account{
		Name:               spec.Name,
		Kind:               spec.Kind,
		Balance:            spec.Balance,
		MinimumBalance:     cloneInt(spec.MinimumBalance),
		ExternalReference:  spec.ExternalReference,
		MerchantFeePercent: spec.MerchantFeePercent,
		SettlementTargetID: spec.SettlementTargetID,
	})
}

// applyPatch merges non-nil patch fields into a copy of a.
func applyPatch(a Account, p AccountPatch) Account {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Kind != nil {
		a.Kind = *p.Kind
	}
	if p.Balance != nil {
		a.Balance = *p.Balance
	}
	if p.ClearMinimumBalance {
		a.MinimumBalance = nil
	} else if p.MinimumBalance != nil {
		a.MinimumBalance = cloneInt(p.MinimumBalance)
	}
	if p.ExternalReference != nil {
		a.ExternalReference = *p.ExternalReference
	}
	if p.MerchantFeePercent != nil {
		a.MerchantFeePercent = *p.MerchantFeePercent
	}
	if p.SettlementTargetID != nil {
		a.SettlementTargetID = *p.SettlementTargetID
	}
	return normalize(a)
}

// normalize trims the name and clears merchant-only fields on other kinds.
func normalize(a Account) Account {
	a.Name = strings.TrimSpace(a.Name)
	if a.Kind != KindMerchant {
		a.MerchantFeePercent = decimal.Zero
		a.SettlementTargetID = ""
	}
	return a
}

func validateAccount(a Account) error {
	if a.Name == "" {
		return fmt.Errorf("name is required: %w", ErrInvalidAccount)
	}
	if !a.Kind.Valid() {
		return fmt.Errorf("kind %q: %w", a.Kind, ErrInvalidAccount)
	}
	if a.MerchantFeePercent.IsNegative() || a.MerchantFeePercent.GreaterThan(hundred) {
		return fmt.Errorf("merchant fee percent %s: %w", a.MerchantFeePercent, ErrInvalidFee)
	}
	if a.ID != "" && a.SettlementTargetID == a.ID {
		return ErrSameAccount
	}
	return nil
}

// checkSingleCash rejects a as cash when another account already is.
func checkSingleCash(existing []Account, a Account) error {
	if a.Kind != KindCash {
		return nil
	}
	for _, other := range existing {
		if other.Kind == KindCash && other.ID != a.ID {
			return ErrDuplicateCashAccount
		}
	}
	return nil
}

func cashAccountID(accounts []Account) AccountID {
	for _, a := range accounts {
		if a.Kind == KindCash {
			return a.ID
		}
	}
	return ""
}

// LowBalance filters the accounts under their minimum, keeping order.
func LowBalance(accounts []Account) []Account {
	var low []Account
	for _, a := range accounts {
		if a.IsLowBalance() {
			low = append(low, a)
		}
	}
	return low
}

func findAccount(accounts []Account, id AccountID) (Account, bool) {
	for _, a := range accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

func cloneInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
