package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenlink/kasledger/factory"
	"github.com/agenlink/kasledger/ledger"
	"github.com/agenlink/kasledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	router *chi.Mux
	engine *ledger.Engine
	ids    map[string]ledger.AccountID
}

// newTestServer serves an engine seeded with the default kiosk accounts.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	engine := ledger.NewEngine(store.NewTxMemory())
	ids, err := factory.ApplySeed(context.Background(), engine, factory.KioskDefault())
	require.NoError(t, err)
	return &testServer{router: NewRouter(NewHandler(engine, nil)), engine: engine, ids: ids}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) balance(t *testing.T, key string) int64 {
	t.Helper()
	a, err := s.engine.GetAccount(context.Background(), s.ids[key])
	require.NoError(t, err)
	return a.Balance
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestAccounts_ListInCreationOrder(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	accounts := decode[[]AccountDTO](t, rec)
	require.Len(t, accounts, 4)
	assert.Equal(t, "Cash drawer", accounts[0].Name)
	assert.Equal(t, "Rp 2.500.000", accounts[0].BalanceDisplay)
	assert.Nil(t, accounts[0].MerchantFeePercent)

	edc := accounts[3]
	require.NotNil(t, edc.MerchantFeePercent)
	assert.Equal(t, "0.5", *edc.MerchantFeePercent)
	assert.Equal(t, string(s.ids["bri"]), edc.SettlementTargetID)
}

func TestAccounts_CreateUpdateDelete(t *testing.T) {
	s := newTestServer(t)

	// GIVEN: A new e-wallet account with a grouped-string balance
	rec := s.do(t, http.MethodPost, "/api/accounts", `{"name":" DANA ","kind":"digital","balance":"750.000","minimum_balance":1000000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[AccountDTO](t, rec)
	assert.Equal(t, "DANA", created.Name)
	assert.Equal(t, int64(750000), created.Balance)
	assert.True(t, created.LowBalance)

	// WHEN: Its minimum is cleared
	rec = s.do(t, http.MethodPut, "/api/accounts/"+created.ID, `{"clear_minimum_balance":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[AccountDTO](t, rec)

	// THEN: It is no longer low and can be deleted
	assert.Nil(t, updated.MinimumBalance)
	assert.False(t, updated.LowBalance)

	rec = s.do(t, http.MethodDelete, "/api/accounts/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/accounts/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccounts_ErrorStatuses(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"second cash account", http.MethodPost, "/api/accounts", `{"name":"Drawer 2","kind":"cash"}`, http.StatusConflict},
		{"empty name", http.MethodPost, "/api/accounts", `{"name":"  ","kind":"digital"}`, http.StatusBadRequest},
		{"unknown kind", http.MethodPost, "/api/accounts", `{"name":"Vault","kind":"vault"}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/accounts", `{"name":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/accounts", `{"name":"X","kind":"digital","colour":"red"}`, http.StatusBadRequest},
		{"get unknown", http.MethodGet, "/api/accounts/acc-none", "", http.StatusNotFound},
		{"delete unknown", http.MethodDelete, "/api/accounts/acc-none", "", http.StatusNotFound},
		{"history of unknown", http.MethodGet, "/api/accounts/acc-none/mutations", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body any
			if tt.body != "" {
				body = tt.body
			}
			rec := s.do(t, tt.method, tt.path, body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestSubmitTransaction_TransferBankPaidInCash(t *testing.T) {
	// GIVEN: BRImo Ops sends 500.000 with 6.500 bank fee and 5.000 margin
	// WHEN: The customer pays cash at the counter
	// THEN: BRImo loses 506.500 and the drawer gains the 511.500 total

	s := newTestServer(t)
	body := map[string]any{
		"type":              "transfer_bank",
		"customer_name":     "Budi",
		"provider":          "BCA",
		"principal_amount":  "500.000",
		"bank_admin_fee":    6500,
		"agent_fee":         5000,
		"source_account_id": string(s.ids["bri"]),
		"payment_method":    "cash",
	}

	rec := s.do(t, http.MethodPost, "/api/transactions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	res := decode[ResultDTO](t, rec)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, int64(511500), res.Transaction.Total)
	assert.Equal(t, "success", res.Transaction.Status)
	require.Len(t, res.Mutations, 2)
	assert.Equal(t, "out", res.Mutations[0].Kind)
	assert.Equal(t, "Outbound: Budi (BCA)", res.Mutations[0].Description)
	assert.Equal(t, "Cash payment: Budi", res.Mutations[1].Description)
	assert.Equal(t, res.Transaction.ID, res.Mutations[1].TransactionID)
	assert.Len(t, res.Accounts, 2)

	assert.Equal(t, int64(15000000-506500), s.balance(t, "bri"))
	assert.Equal(t, int64(2500000+511500), s.balance(t, "cash"))

	rec = s.do(t, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]TransactionDTO](t, rec), 1)
}

func TestSubmitTransaction_Rejections(t *testing.T) {
	s := newTestServer(t)
	bri := string(s.ids["bri"])

	tests := []struct {
		name string
		body map[string]any
	}{
		{"transfer without receiver", map[string]any{
			"type": "transfer_bank", "principal_amount": 100, "source_account_id": bri, "payment_method": "transfer",
		}},
		{"split mismatch", map[string]any{
			"type": "transfer_bank", "principal_amount": 100, "source_account_id": bri, "payment_method": "split",
			"payment_receiver_id": bri, "split_cash_amount": 10, "split_transfer_amount": 10,
		}},
		{"unknown type", map[string]any{"type": "lottery", "principal_amount": 100, "payment_method": "cash"}},
		{"negative amount", map[string]any{"type": "pdam", "principal_amount": -1, "payment_method": "cash"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	state, err := s.engine.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state.Mutations)
	assert.Empty(t, state.Transactions)
}

func TestSubmitTransaction_UnknownReceiverIsNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"type": "transfer_bank", "principal_amount": 100, "source_account_id": string(s.ids["bri"]),
		"payment_method": "transfer", "payment_receiver_id": "acc-none",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	assert.Equal(t, int64(15000000), s.balance(t, "bri"))
}

func TestClassifyTransaction_PreviewOnly(t *testing.T) {
	// GIVEN: A split payment from myBCA
	// WHEN: It is classified
	// THEN: Three legs and net deltas come back, and nothing is recorded

	s := newTestServer(t)
	bca := string(s.ids["bca"])
	rec := s.do(t, http.MethodPost, "/api/transactions/classify", map[string]any{
		"type": "transfer_bank", "customer_name": "Agus", "principal_amount": 200000, "agent_fee": 5000,
		"source_account_id": bca, "payment_method": "split", "payment_receiver_id": bca,
		"split_cash_amount": 105000, "split_transfer_amount": 100000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	c := decode[ClassificationDTO](t, rec)
	require.Len(t, c.Mutations, 3)
	assert.Equal(t, "Split (cash): Agus", c.Mutations[1].Description)
	assert.Equal(t, []DeltaDTO{
		{AccountID: bca, Amount: -100000},
		{AccountID: string(s.ids["cash"]), Amount: 105000},
	}, c.Deltas)

	assert.Equal(t, int64(5000000), s.balance(t, "bca"))
}

func TestSuggestFee(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/fees/suggest?type=transfer_bank&principal=1.500.000", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[FeeSuggestionDTO](t, rec)
	assert.Equal(t, int64(1500000), got.Principal)
	assert.Equal(t, int64(10000), got.AgentFee)

	rec = s.do(t, http.MethodGet, "/api/fees/suggest?type=lottery&principal=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/fees/suggest?type=pdam&principal=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// TRANSFERS, SETTLEMENTS, CAPITAL
// =============================================================================

func TestApplyTransfer(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/transfers", map[string]any{
		"source_id": string(s.ids["bri"]), "destination_id": string(s.ids["cash"]),
		"amount": "1.000.000", "fee_type": "online",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	res := decode[ResultDTO](t, rec)
	require.Len(t, res.Mutations, 1)
	assert.Equal(t, "transfer", res.Mutations[0].Kind)
	assert.Equal(t, int64(6500), res.Mutations[0].Fee)
	assert.Equal(t, "source", res.Mutations[0].ChargedTo)
	assert.Equal(t, "Internal transfer (online)", res.Mutations[0].Description)
	assert.Nil(t, res.Transaction)

	assert.Equal(t, int64(15000000-1006500), s.balance(t, "bri"))
	assert.Equal(t, int64(3500000), s.balance(t, "cash"))
}

func TestApplyTransfer_InsufficientBalance(t *testing.T) {
	// GIVEN: myBCA holds 5.000.000
	// WHEN: 5.000.000 is moved out with the BI-FAST fee on the source
	// THEN: 422 and nothing changes

	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/transfers", map[string]any{
		"source_id": string(s.ids["bca"]), "destination_id": string(s.ids["bri"]),
		"amount": 5000000, "fee_type": "bifast",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "required 5002500")
	assert.Equal(t, int64(5000000), s.balance(t, "bca"))
}

func TestApplySettlement(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/settlements", map[string]any{
		"merchant_id": string(s.ids["edc"]), "amount": "2.000.000",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[ResultDTO](t, rec)
	require.Len(t, res.Mutations, 1)
	assert.Equal(t, int64(10000), res.Mutations[0].Fee)
	assert.Equal(t, "Settlement EDC BRI", res.Mutations[0].Description)

	assert.Equal(t, int64(0), s.balance(t, "edc"))
	assert.Equal(t, int64(15000000+1990000), s.balance(t, "bri"))

	rec = s.do(t, http.MethodPost, "/api/settlements", map[string]any{
		"merchant_id": string(s.ids["edc"]), "amount": 1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestApplyCapital(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/capital", map[string]any{
		"account_id": string(s.ids["cash"]), "amount": 100000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Capital injection", decode[ResultDTO](t, rec).Mutations[0].Description)
	assert.Equal(t, int64(2600000), s.balance(t, "cash"))

	rec = s.do(t, http.MethodPost, "/api/capital", map[string]any{
		"account_id": string(s.ids["cash"]), "amount": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/capital", map[string]any{"amount": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// READ MODELS
// =============================================================================

func TestMutations_FilterByAccount(t *testing.T) {
	s := newTestServer(t)
	cash := string(s.ids["cash"])
	for _, amount := range []int{1000, 2000} {
		rec := s.do(t, http.MethodPost, "/api/capital", map[string]any{"account_id": cash, "amount": amount})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/api/capital", map[string]any{"account_id": string(s.ids["bca"]), "amount": 3000})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/mutations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]MutationDTO](t, rec)
	require.Len(t, all, 3)
	assert.Equal(t, int64(1000), all[0].Amount, "insertion order")

	rec = s.do(t, http.MethodGet, "/api/accounts/"+cash+"/mutations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]MutationDTO](t, rec)
	require.Len(t, history, 2)
	assert.Equal(t, int64(2000), history[0].Amount, "newest first")

	rec = s.do(t, http.MethodGet, "/api/mutations?account_id="+cash, nil)
	assert.Equal(t, history, decode[[]MutationDTO](t, rec))
}

func TestSummaryAndLowBalance(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[SummaryDTO](t, rec)
	assert.Equal(t, 4, sum.AccountCount)
	assert.Equal(t, "Rp 24.500.000", sum.TotalAssetsDisplay)
	assert.Empty(t, sum.LowBalance)

	// Draining the drawer below its minimum marks it low
	rec = s.do(t, http.MethodPost, "/api/transfers", map[string]any{
		"source_id": string(s.ids["cash"]), "destination_id": string(s.ids["bri"]), "amount": 2000000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/accounts/low-balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	low := decode[[]AccountDTO](t, rec)
	require.Len(t, low, 1)
	assert.Equal(t, string(s.ids["cash"]), low[0].ID)
	assert.True(t, low[0].LowBalance)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
