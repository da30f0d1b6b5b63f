/*
fees.go - Fee presets and fee arithmetic

PURPOSE:
  Internal transfers carry a fixed or manual fee, merchant settlements lose
  a merchant discount rate (MDR), and the agent's own margin on a customer
  transaction has a default schedule the counter UI pre-fills.

TRANSFER PRESETS:
  free    ->     0
  bifast  -> 2,500
  online  -> 6,500
  manual  -> caller-supplied, must be >= 0

SETTLEMENT FEE:
  fee = amount * percent / 100, rounded half away from zero to the unit.
  Computed with decimal arithmetic so 0.5% of 2,000,000 is exactly 10,000.

SEE ALSO:
  - engine.go: ApplyInternalTransfer, ApplySettlement
*/
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type FeePreset string

const (
	FeeFree   FeePreset = "free"
	FeeBIFAST FeePreset = "bifast"
	FeeOnline FeePreset = "online"
	FeeManual FeePreset = "manual"
)

var presetFees = map[FeePreset]int64{
	FeeFree:   0,
	FeeBIFAST: 2500,
	FeeOnline: 6500,
}

// TransferFee resolves a preset to its fee. manual is only read for FeeManual.
func TransferFee(preset FeePreset, manual int64) (int64, error) {
	if preset == FeeManual {
		if manual < 0 {
			return 0, ErrInvalidFee
		}
		return manual, nil
	}
	fee, ok := presetFees[preset]
	if !ok {
		return 0, fmt.Errorf("unknown fee preset %q: %w", preset, ErrInvalidFee)
	}
	return fee, nil
}

var hundred = decimal.NewFromInt(100)

// SettlementFee is the merchant discount withheld from a settlement.
func SettlementFee(amount int64, percent decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(percent).Div(hundred).Round(0).IntPart()
}

// SuggestAgentFee is the default agent margin for a service and principal.
// Types without a schedule return 0 and are priced by hand.
func SuggestAgentFee(t TransactionType, principal int64) int64 {
	if principal <= 0 {
		return 0
	}
	switch t {
	case TypeKJPWithdrawal:
		if principal <= 512000 {
			return 5000
		}
	case TypeEWalletTopUp, TypeTransferBank:
		switch {
		case principal <= 1000000:
			return 5000
		case principal <= 3000000:
			return 10000
		default:
			return 15000
		}
	}
	return 0
}
