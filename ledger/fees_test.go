package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferFee_Presets(t *testing.T) {
	tests := []struct {
		preset FeePreset
		manual int64
		want   int64
	}{
		{FeeFree, 999, 0},
		{FeeBIFAST, 0, 2500},
		{FeeOnline, 0, 6500},
		{FeeManual, 1234, 1234},
		{FeeManual, 0, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			fee, err := TransferFee(tt.preset, tt.manual)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fee)
		})
	}
}

func TestTransferFee_Rejects(t *testing.T) {
	_, err := TransferFee(FeeManual, -1)
	assert.ErrorIs(t, err, ErrInvalidFee)

	_, err = TransferFee("rtgs", 0)
	assert.ErrorIs(t, err, ErrInvalidFee)
}

func TestSettlementFee(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		percent string
		want    int64
	}{
		{"half percent of two million", 2000000, "0.5", 10000},
		{"zero rate", 2000000, "0", 0},
		{"rounds half away from zero", 1100, "0.5", 6},
		{"rounds down below half", 1099, "0.5", 5},
		{"fractional rate", 333333, "0.7", 2333},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SettlementFee(tt.amount, decimal.RequireFromString(tt.percent)))
		})
	}
}

func TestSuggestAgentFee(t *testing.T) {
	tests := []struct {
		typ       TransactionType
		principal int64
		want      int64
	}{
		{TypeTransferBank, 0, 0},
		{TypeTransferBank, 500000, 5000},
		{TypeTransferBank, 1000000, 5000},
		{TypeTransferBank, 1000001, 10000},
		{TypeEWalletTopUp, 3000000, 10000},
		{TypeEWalletTopUp, 3000001, 15000},
		{TypeKJPWithdrawal, 512000, 5000},
		{TypeKJPWithdrawal, 512001, 0},
		{TypePLNToken, 100000, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SuggestAgentFee(tt.typ, tt.principal), "%s %d", tt.typ, tt.principal)
	}
}
