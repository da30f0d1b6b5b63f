/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
	Provides pre-built kiosk positions that populate the ledger with
	realistic accounts and a few days of activity, for demos and manual
	testing of the counter UI.

AVAILABLE SCENARIOS:
	empty:          No accounts at all
	kiosk-default:  Cash drawer, BRImo Ops, myBCA and an EDC terminal
	busy-day:       kiosk-default plus a morning of counter activity

HOW SCENARIOS WORK:
 1. Reset the ledger (engine.Reset)
 2. Apply a factory seed
 3. Optionally replay customer transactions, transfers and settlements
    through the same engine operations the API exposes

USAGE VIA API:
	POST /api/scenarios/load
	{"scenario_id": "busy-day"}

NOTE:
	Scenarios reset the ledger. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: The endpoints the replayed activity mirrors
  - factory/seed.go: Seed JSON definitions
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/agenlink/kasledger/factory"
	"github.com/agenlink/kasledger/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "empty",
		Name:        "Empty Ledger",
		Description: "No accounts, no history",
	},
	{
		ID:          "kiosk-default",
		Name:        "Kiosk Opening Position",
		Description: "Cash drawer, two bank apps and an EDC terminal settling into BRImo",
	},
	{
		ID:          "busy-day",
		Name:        "Busy Morning",
		Description: "Opening position plus bank transfers, a split payment, a bill, a restock and an EDC settlement",
	},
}

type scenarioLoader func(ctx context.Context, engine *ledger.Engine) error

var scenarioLoaders = map[string]scenarioLoader{
	"empty":         func(context.Context, *ledger.Engine) error { return nil },
	"kiosk-default": loadKioskDefault,
	"busy-day":      loadBusyDay,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the ledger and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.Engine.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset ledger", err)
		return
	}
	if err := load(ctx, h.Engine); err != nil {
		h.log.Error("scenario load failed", zap.String("scenario", req.ScenarioID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.log.Info("scenario loaded", zap.String("scenario", req.ScenarioID))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetLedger empties the ledger.
func (h *Handler) ResetLedger(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Engine.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset ledger", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadKioskDefault(ctx context.Context, engine *ledger.Engine) error {
	_, err := factory.ApplySeed(ctx, engine, factory.KioskDefault())
	return err
}

func loadBusyDay(ctx context.Context, engine *ledger.Engine) error {
	ids, err := factory.ApplySeed(ctx, engine, factory.KioskDefault())
	if err != nil {
		return err
	}
	cash, bri, bca, edc := ids["cash"], ids["bri"], ids["bca"], ids["edc"]

	// Customer sends 500k to another bank from BRImo, pays cash
	intents := []ledger.TransactionIntent{
		{
			Type: ledger.TypeTransferBank, CustomerName: "Budi", Provider: "BCA",
			AccountNumber: "5210998877", PrincipalAmount: 500000, BankAdminFee: 6500,
			AgentFee: ledger.SuggestAgentFee(ledger.TypeTransferBank, 500000),
			SourceAccountID: bri, PaymentMethod: ledger.PaymentCash,
		},
		// Sent from myBCA, paid by transfer into BRImo
		{
			Type: ledger.TypeTransferBank, CustomerName: "Sari", Provider: "Mandiri",
			AccountNumber: "1370012345678", PrincipalAmount: 1500000, BankAdminFee: 2500,
			AgentFee: ledger.SuggestAgentFee(ledger.TypeTransferBank, 1500000),
			SourceAccountID: bca, PaymentMethod: ledger.PaymentTransfer, PaymentReceiverID: bri,
		},
		// Transfer to a DANA wallet paid partly in cash, partly by transfer
		{
			Type: ledger.TypeTransferBank, CustomerName: "Agus", Provider: "DANA",
			PrincipalAmount: 200000, AgentFee: ledger.SuggestAgentFee(ledger.TypeTransferBank, 200000),
			SourceAccountID: bri, PaymentMethod: ledger.PaymentSplit, PaymentReceiverID: bca,
			SplitCashAmount: 105000, SplitTransferAmount: 100000,
		},
		// Bill payment on the simple path
		{
			Type: ledger.TypePLNToken, CustomerName: "Wati", AccountNumber: "32123456789",
			PrincipalAmount: 100000, AgentFee: 3000, PaymentMethod: ledger.PaymentCash,
		},
	}
	for _, in := range intents {
		if _, err := engine.SubmitTransaction(ctx, in); err != nil {
			return fmt.Errorf("replay %s for %s: %w", in.Type, in.CustomerName, err)
		}
	}

	if _, err := engine.ApplyInternalTransfer(ctx, ledger.TransferRequest{
		SourceID: bri, DestinationID: cash, Amount: 1000000, FeeType: ledger.FeeOnline,
		Description: "Restock drawer",
	}); err != nil {
		return fmt.Errorf("replay restock: %w", err)
	}
	if _, err := engine.ApplySettlement(ctx, edc, 2000000); err != nil {
		return fmt.Errorf("replay settlement: %w", err)
	}
	return nil
}
