package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_List(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]ScenarioDTO](t, rec)
	require.Len(t, list, len(scenarioLoaders))
	for _, sc := range list {
		assert.Contains(t, scenarioLoaders, sc.ID)
	}
}

func TestScenarios_LoadBusyDay(t *testing.T) {
	// GIVEN: A ledger with leftover activity
	// WHEN: The busy-day scenario is loaded
	// THEN: The ledger is replaced by the seed plus the replayed morning

	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/capital", map[string]any{"account_id": string(s.ids["cash"]), "amount": 1})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"busy-day"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	state, err := s.engine.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, state.Accounts, 4)
	assert.Len(t, state.Transactions, 4)
	assert.Len(t, state.Mutations, 10)

	balances := map[string]int64{}
	for _, a := range state.Accounts {
		balances[a.Name] = a.Balance
	}
	assert.Equal(t, int64(4219500), balances["Cash drawer"])
	assert.Equal(t, int64(16789500), balances["BRImo Ops"])
	assert.Equal(t, int64(3597500), balances["myBCA"])
	assert.Equal(t, int64(0), balances["EDC BRI"])

	rec = s.do(t, http.MethodGet, "/api/summary", nil)
	sum := decode[SummaryDTO](t, rec)
	assert.Equal(t, int64(24606500), sum.TotalAssets)
	assert.Equal(t, int64(2300000), sum.PrincipalVolume)
	assert.Equal(t, int64(23000), sum.AgentFeeIncome)

	rec = s.do(t, http.MethodGet, "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "busy-day", decode[ScenarioDTO](t, rec).ID)
}

func TestScenarios_UnknownAndReset(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	accounts, err := s.engine.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)

	rec = s.do(t, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "null\n", rec.Body.String())
}
