/*
Package factory provides JSON to ledger seed conversion.

PURPOSE:
  Converts a JSON description of a kiosk's opening position into account
  specs and capital injections, and applies them to an Engine. Lets an
  agent set up (or a demo reset to) a known state without code changes.

JSON SCHEMA:
  {
    "accounts": [
      {"key": "cash", "name": "Cash drawer", "kind": "cash",
       "balance": "2.500.000", "minimum_balance": 1000000},
      {"key": "edc", "name": "EDC BRI", "kind": "merchant",
       "balance": 2000000, "merchant_fee_percent": "0.5",
       "settlement_target": "bri"}
    ],
    "capital": [
      {"account": "cash", "amount": 500000, "description": "Opening float"}
    ]
  }

  Amounts are JSON numbers or Indonesian-grouped strings ("2.500.000").
  Keys are local to the seed: settlement_target and capital.account refer to
  them, never to engine ids.

KEY FEATURES:
  - Validates keys, kinds and references before anything is created
  - Creates targets before the merchants that settle into them
  - Returns the key -> account id mapping for callers that need it

USAGE:
  seed, err := factory.ParseSeed(data)
  ids, err := factory.ApplySeed(ctx, engine, seed)

SEE ALSO:
  - ledger/engine.go: CreateAccount, ApplyCapitalInjection
  - money/money.go: Amount string parsing
*/
package factory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/agenlink/kasledger/ledger"
	"github.com/agenlink/kasledger/money"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SeedJSON is the JSON representation of an opening position.
type SeedJSON struct {
	Accounts []AccountJSON `json:"accounts"`
	Capital  []CapitalJSON `json:"capital,omitempty"`
}

// AccountJSON describes one account to create.
type AccountJSON struct {
	Key                string           `json:"key"`
	Name               string           `json:"name"`
	Kind               string           `json:"kind"`
	Balance            Amount           `json:"balance"`
	MinimumBalance     *Amount          `json:"minimum_balance,omitempty"`
	ExternalReference  string           `json:"external_reference,omitempty"`
	MerchantFeePercent *decimal.Decimal `json:"merchant_fee_percent,omitempty"`
	SettlementTarget   string           `json:"settlement_target,omitempty"`
}

// CapitalJSON is a capital injection applied after all accounts exist.
type CapitalJSON struct {
	Account     string `json:"account"`
	Amount      Amount `json:"amount"`
	Description string `json:"description,omitempty"`
}

// Amount unmarshals from a JSON number or a grouped string like "1.500.000".
type Amount int64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := money.Parse(s)
		if err != nil {
			return err
		}
		*a = Amount(n)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("amount %s: %w", data, money.ErrInvalidAmount)
	}
	*a = Amount(n)
	return nil
}

// ErrInvalidSeed marks a seed that refers to itself inconsistently.
var ErrInvalidSeed = errors.New("invalid seed")

// =============================================================================
// PARSING
// =============================================================================

// ParseSeed decodes and validates a seed document.
func ParseSeed(data []byte) (*SeedJSON, error) {
	var seed SeedJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	if err := Validate(&seed); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Validate checks keys, kinds and references without touching any engine.
func Validate(seed *SeedJSON) error {
	keys := make(map[string]ledger.AccountKind, len(seed.Accounts))
	cash := 0
	for i, a := range seed.Accounts {
		if a.Key == "" {
			return fmt.Errorf("account %d: key is required: %w", i, ErrInvalidSeed)
		}
		if _, dup := keys[a.Key]; dup {
			return fmt.Errorf("account %q: duplicate key: %w", a.Key, ErrInvalidSeed)
		}
		kind := ledger.AccountKind(a.Kind)
		if !kind.Valid() {
			return fmt.Errorf("account %q: unknown kind %q: %w", a.Key, a.Kind, ErrInvalidSeed)
		}
		if kind == ledger.KindCash {
			cash++
		}
		keys[a.Key] = kind
	}
	if cash > 1 {
		return fmt.Errorf("%d cash accounts: %w", cash, ledger.ErrDuplicateCashAccount)
	}

	for _, a := range seed.Accounts {
		if a.SettlementTarget == "" {
			continue
		}
		if _, ok := keys[a.SettlementTarget]; !ok {
			return fmt.Errorf("account %q: unknown settlement target %q: %w", a.Key, a.SettlementTarget, ErrInvalidSeed)
		}
		if a.SettlementTarget == a.Key {
			return fmt.Errorf("account %q settles into itself: %w", a.Key, ErrInvalidSeed)
		}
	}
	if _, err := creationOrder(seed.Accounts); err != nil {
		return err
	}
	for i, c := range seed.Capital {
		if _, ok := keys[c.Account]; !ok {
			return fmt.Errorf("capital %d: unknown account %q: %w", i, c.Account, ErrInvalidSeed)
		}
		if c.Amount <= 0 {
			return fmt.Errorf("capital %d: amount %d: %w", i, c.Amount, ErrInvalidSeed)
		}
	}
	return nil
}

// =============================================================================
// APPLYING
// =============================================================================

// ApplySeed creates every account and then applies every capital injection.
// It stops at the first engine error; accounts created before it remain.
func ApplySeed(ctx context.Context, engine *ledger.Engine, seed *SeedJSON) (map[string]ledger.AccountID, error) {
	ordered, err := creationOrder(seed.Accounts)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]ledger.AccountID, len(seed.Accounts))
	for _, a := range ordered {
		spec := ledger.AccountSpec{
			Name:              a.Name,
			Kind:              ledger.AccountKind(a.Kind),
			Balance:           int64(a.Balance),
			ExternalReference: a.ExternalReference,
		}
		if a.MinimumBalance != nil {
			v := int64(*a.MinimumBalance)
			spec.MinimumBalance = &v
		}
		if a.MerchantFeePercent != nil {
			spec.MerchantFeePercent = *a.MerchantFeePercent
		}
		if a.SettlementTarget != "" {
			target, ok := ids[a.SettlementTarget]
			if !ok {
				return ids, fmt.Errorf("account %q: settlement target %q not created: %w", a.Key, a.SettlementTarget, ErrInvalidSeed)
			}
			spec.SettlementTargetID = target
		}

		acct, err := engine.CreateAccount(ctx, spec)
		if err != nil {
			return ids, fmt.Errorf("seed account %q: %w", a.Key, err)
		}
		ids[a.Key] = acct.ID
	}

	for _, c := range seed.Capital {
		if _, err := engine.ApplyCapitalInjection(ctx, ids[c.Account], int64(c.Amount), c.Description); err != nil {
			return ids, fmt.Errorf("seed capital into %q: %w", c.Account, err)
		}
	}
	return ids, nil
}

// creationOrder sorts accounts so every settlement target comes before the
// accounts that settle into it, keeping listing order otherwise. A chain that
// loops back on itself is refused.
func creationOrder(accounts []AccountJSON) ([]AccountJSON, error) {
	ordered := make([]AccountJSON, 0, len(accounts))
	placed := make(map[string]bool, len(accounts))
	pending := slices.Clone(accounts)

	for len(pending) > 0 {
		var next []AccountJSON
		for _, a := range pending {
			if a.SettlementTarget == "" || placed[a.SettlementTarget] {
				ordered = append(ordered, a)
				placed[a.Key] = true
				continue
			}
			next = append(next, a)
		}
		if len(next) == len(pending) {
			return nil, fmt.Errorf("settlement targets form a cycle through %q: %w", next[0].Key, ErrInvalidSeed)
		}
		pending = next
	}
	return ordered, nil
}

// =============================================================================
// PRESETS
// =============================================================================

// KioskDefaultJSON is a typical single-agent opening position: a cash drawer,
// two bank apps and an EDC terminal settling into the main bank account.
const KioskDefaultJSON = `{
  "accounts": [
    {"key": "cash", "name": "Cash drawer", "kind": "cash",
     "balance": "2.500.000", "minimum_balance": "1.000.000"},
    {"key": "bri", "name": "BRImo Ops", "kind": "digital",
     "balance": "15.000.000", "minimum_balance": "5.000.000",
     "external_reference": "1234-56-7890"},
    {"key": "bca", "name": "myBCA", "kind": "digital",
     "balance": "5.000.000", "minimum_balance": "2.000.000",
     "external_reference": "8800112233"},
    {"key": "edc", "name": "EDC BRI", "kind": "merchant",
     "balance": "2.000.000", "merchant_fee_percent": "0.5",
     "settlement_target": "bri"}
  ]
}`

// KioskDefault parses KioskDefaultJSON.
func KioskDefault() *SeedJSON {
	seed, err := ParseSeed([]byte(KioskDefaultJSON))
	if err != nil {
		panic(err)
	}
	return seed
}
