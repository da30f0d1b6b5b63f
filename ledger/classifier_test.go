package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	cashID    AccountID = "acc-cash"
	briID     AccountID = "acc-bri"
	bcaID     AccountID = "acc-bca"
	unknownID AccountID = "acc-missing"
)

func transferIntent(method PaymentMethod) TransactionIntent {
	return TransactionIntent{
		Type:            TypeTransferBank,
		CustomerName:    "Budi",
		Provider:        "BCA",
		PrincipalAmount: 500000,
		BankAdminFee:    6500,
		AgentFee:        5000,
		SourceAccountID: briID,
		PaymentMethod:   method,
	}
}

func deltaOf(c Classification, id AccountID) int64 {
	for _, d := range c.Deltas {
		if d.AccountID == id {
			return d.Amount
		}
	}
	return 0
}

// =============================================================================
// DOMINANT FLOW: transfer_bank with a source account
// =============================================================================

func TestClassify_TransferBank_CashFromCashDrawer(t *testing.T) {
	// GIVEN: The cash drawer itself pays the bank transfer
	// WHEN: The customer pays in cash
	// THEN: Out 506,500 and In 511,500 on the drawer, net +5,000

	intent := transferIntent(PaymentCash)
	intent.SourceAccountID = cashID

	c, err := Classify(intent, cashID)
	require.NoError(t, err)
	require.Len(t, c.Mutations, 2)

	out := c.Mutations[0].Entry
	assert.Equal(t, MutationOut, out.Kind())
	assert.Equal(t, int64(506500), out.Magnitude())
	assert.Equal(t, cashID, out.Source())

	in := c.Mutations[1].Entry
	assert.Equal(t, MutationIn, in.Kind())
	assert.Equal(t, int64(511500), in.Magnitude())
	assert.Equal(t, cashID, in.Destination())

	require.Len(t, c.Deltas, 1, "source == destination nets into one delta")
	assert.Equal(t, int64(5000), c.Deltas[0].Amount)
	assert.Equal(t, "Outbound: Budi (BCA)", c.Mutations[0].Description)
	assert.Equal(t, "Cash payment: Budi", c.Mutations[1].Description)
}

func TestClassify_TransferBank_Cash(t *testing.T) {
	c, err := Classify(transferIntent(PaymentCash), cashID)
	require.NoError(t, err)

	assert.Equal(t, int64(-506500), deltaOf(c, briID))
	assert.Equal(t, int64(511500), deltaOf(c, cashID))
	assert.Equal(t, int64(5000), SumDeltas(c.Deltas), "only the agent margin enters the ledger")
}

func TestClassify_TransferBank_CashWithoutCashAccount(t *testing.T) {
	// GIVEN: No cash account is configured
	// WHEN: Classifying a cash-paid transfer
	// THEN: Only the Out leg is emitted, no error

	c, err := Classify(transferIntent(PaymentCash), "")
	require.NoError(t, err)
	require.Len(t, c.Mutations, 1)
	assert.Equal(t, MutationOut, c.Mutations[0].Entry.Kind())
}

func TestClassify_TransferBank_Transfer(t *testing.T) {
	intent := transferIntent(PaymentTransfer)
	intent.PaymentReceiverID = bcaID

	c, err := Classify(intent, cashID)
	require.NoError(t, err)
	require.Len(t, c.Mutations, 2)

	assert.Equal(t, bcaID, c.Mutations[1].Entry.Destination())
	assert.Equal(t, int64(511500), deltaOf(c, bcaID))
	assert.Equal(t, int64(0), deltaOf(c, cashID))
	assert.Equal(t, "Transfer payment: Budi", c.Mutations[1].Description)
}

func TestClassify_TransferBank_TransferRequiresReceiver(t *testing.T) {
	_, err := Classify(transferIntent(PaymentTransfer), cashID)
	assert.ErrorIs(t, err, ErrMissingReceiver)
}

func TestClassify_TransferBank_Split(t *testing.T) {
	// GIVEN: 511,500 billed, 300,000 in cash and 211,500 by transfer
	// THEN: Two In legs plus the Out leg

	intent := transferIntent(PaymentSplit)
	intent.PaymentReceiverID = bcaID
	intent.SplitCashAmount = 300000
	intent.SplitTransferAmount = 211500

	c, err := Classify(intent, cashID)
	require.NoError(t, err)
	require.Len(t, c.Mutations, 3)

	assert.Equal(t, int64(300000), deltaOf(c, cashID))
	assert.Equal(t, int64(211500), deltaOf(c, bcaID))
	assert.Equal(t, int64(-506500), deltaOf(c, briID))
	assert.Equal(t, "Split (cash): Budi", c.Mutations[1].Description)
	assert.Equal(t, "Split (transfer): Budi", c.Mutations[2].Description)
}

func TestClassify_TransferBank_SplitAllCash(t *testing.T) {
	intent := transferIntent(PaymentSplit)
	intent.SplitCashAmount = 511500

	c, err := Classify(intent, cashID)
	require.NoError(t, err, "no receiver needed when the transfer leg is zero")
	require.Len(t, c.Mutations, 2)
	assert.Equal(t, cashID, c.Mutations[1].Entry.Destination())
}

func TestClassify_TransferBank_SplitMismatch(t *testing.T) {
	intent := transferIntent(PaymentSplit)
	intent.PaymentReceiverID = bcaID
	intent.SplitCashAmount = 300000
	intent.SplitTransferAmount = 200000

	_, err := Classify(intent, cashID)
	require.ErrorIs(t, err, ErrSplitMismatch)

	var mismatch *SplitMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(511500), mismatch.Total)
}

func TestClassify_TransferBank_SplitTransferRequiresReceiver(t *testing.T) {
	intent := transferIntent(PaymentSplit)
	intent.SplitCashAmount = 11500
	intent.SplitTransferAmount = 500000

	_, err := Classify(intent, cashID)
	assert.ErrorIs(t, err, ErrMissingReceiver)
}

func TestClassify_TransferBank_UnknownPaymentMethod(t *testing.T) {
	_, err := Classify(transferIntent("qris"), cashID)
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
	assert.True(t, IsValidation(err))
}

// =============================================================================
// SIMPLE PATH
// =============================================================================

func TestClassify_OtherType_CreditsCashWithTotal(t *testing.T) {
	// GIVEN: A PLN token sale, 100,000 + 2,500 margin
	// THEN: One In of the total to cash; the whole total is new money

	intent := TransactionIntent{
		Type:            TypePLNToken,
		CustomerName:    "Siti",
		PrincipalAmount: 100000,
		AgentFee:        2500,
		SourceAccountID: briID,
		PaymentMethod:   PaymentTransfer,
	}

	c, err := Classify(intent, cashID)
	require.NoError(t, err)
	require.Len(t, c.Mutations, 1)
	assert.Equal(t, MutationIn, c.Mutations[0].Entry.Kind())
	assert.Equal(t, "Inbound: pln_token", c.Mutations[0].Description)
	assert.Equal(t, intent.Total(), SumDeltas(c.Deltas))
}

func TestClassify_TransferBankWithoutSource_TakesSimplePath(t *testing.T) {
	intent := transferIntent(PaymentTransfer)
	intent.SourceAccountID = ""

	c, err := Classify(intent, cashID)
	require.NoError(t, err, "receiver is not needed on the simple path")
	require.Len(t, c.Mutations, 1)
	assert.Equal(t, int64(511500), deltaOf(c, cashID))
}

func TestClassify_OtherType_NoCashAccount(t *testing.T) {
	c, err := Classify(TransactionIntent{Type: TypeBPJS, PrincipalAmount: 150000}, "")
	require.NoError(t, err)
	assert.Empty(t, c.Mutations)
	assert.Empty(t, c.Deltas)
}

func TestClassify_NegativeAmount(t *testing.T) {
	intent := transferIntent(PaymentCash)
	intent.AgentFee = -1

	_, err := Classify(intent, cashID)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestClassify_Deterministic(t *testing.T) {
	intent := transferIntent(PaymentSplit)
	intent.PaymentReceiverID = bcaID
	intent.SplitCashAmount = 11500
	intent.SplitTransferAmount = 500000

	a, err := Classify(intent, cashID)
	require.NoError(t, err)
	b, err := Classify(intent, cashID)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// =============================================================================
// NET DELTAS
// =============================================================================

func TestNetDeltas_FirstTouchedOrder(t *testing.T) {
	pending := []PendingMutation{
		{Entry: OutEntry{Amount: 100, From: briID}},
		{Entry: InEntry{Amount: 40, To: cashID}},
		{Entry: InEntry{Amount: 70, To: briID}},
		{Entry: TransferEntry{Amount: 10, Fee: 2, From: cashID, To: bcaID, ChargedTo: ChargeSource}},
	}

	assert.Equal(t, []Delta{
		{AccountID: briID, Amount: -30},
		{AccountID: cashID, Amount: 28},
		{AccountID: bcaID, Amount: 10},
	}, NetDeltas(pending))
}
