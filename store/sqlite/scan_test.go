package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenlink/kasledger/ledger"
)

func TestScan_CorruptTimestamp(t *testing.T) {
	// GIVEN: Rows whose timestamps were hand-edited into garbage
	// WHEN: They are read back
	// THEN: Each read fails instead of returning a zero time

	for _, driver := range []string{DriverCGO, DriverPureGo} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			store, err := Open(driver, ":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })

			now := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)
			require.NoError(t, store.WithTx(ctx, func(tx ledger.Tx) error {
				if err := tx.InsertAccount(ctx, ledger.Account{ID: "acc-a", Name: "A", Kind: ledger.KindDigital,
					MerchantFeePercent: decimal.Zero, CreatedAt: now}); err != nil {
					return err
				}
				return tx.AppendMutation(ctx, ledger.Mutation{ID: "mut-a", Timestamp: now,
					Entry: ledger.InEntry{Amount: 10, To: "acc-a"}})
			}))

			_, err = store.db.ExecContext(ctx, `UPDATE accounts SET created_at = 'yesterday'`)
			require.NoError(t, err)
			_, err = store.db.ExecContext(ctx, `UPDATE mutations SET occurred_at = '2025-13-45'`)
			require.NoError(t, err)

			_, err = store.GetAccount(ctx, "acc-a")
			assert.ErrorContains(t, err, "bad timestamp")
			_, err = store.ListAccounts(ctx)
			assert.ErrorContains(t, err, "bad timestamp")
			_, err = store.ListMutations(ctx)
			assert.ErrorContains(t, err, "bad timestamp")
		})
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2025, time.March, 1, 8, 0, 0, 123, time.UTC)
	got, err := parseTime(formatTime(want))
	require.NoError(t, err)
	assert.True(t, got.Equal(want))

	_, err = parseTime("")
	assert.Error(t, err)
}
