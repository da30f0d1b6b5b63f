/*
handlers.go - HTTP API handlers for the kiosk ledger

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response and
  JSON serialization, and delegates every decision to ledger.Engine. No
  handler touches a balance itself.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                 List accounts (creation order)
    POST   /api/accounts                 Create account
    GET    /api/accounts/low-balance     Accounts under their minimum
    GET    /api/accounts/{id}            Get account
    PUT    /api/accounts/{id}            Edit account (partial)
    DELETE /api/accounts/{id}            Delete account
    GET    /api/accounts/{id}/mutations  Account history, newest first

  Ledger:
    GET    /api/mutations                Whole log (insertion order)
    GET    /api/transactions             Customer transactions, newest first
    POST   /api/transactions             Classify and record a transaction
    POST   /api/transactions/classify    Preview mutations and deltas
    GET    /api/fees/suggest             Default agent fee (?type=&principal=)
    POST   /api/transfers                Internal transfer
    POST   /api/settlements              Merchant settlement
    POST   /api/capital                  Capital injection
    GET    /api/summary                  Dashboard figures

  Scenarios:
    GET    /api/scenarios                List demo scenarios
    GET    /api/scenarios/current        Currently loaded scenario
    POST   /api/scenarios/load           Reset and load a scenario
    POST   /api/scenarios/reset          Reset to an empty ledger

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Account not found
  - 409: Second cash account
  - 422: Insufficient balance on a checked path
  - 503: Persistence unavailable or concurrent modification (retryable)
  - 500: Anything else

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/agenlink/kasledger/ledger"
	"github.com/agenlink/kasledger/money"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *ledger.Engine
	log    *zap.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over engine. A nil logger discards output.
func NewHandler(engine *ledger.Engine, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Engine: engine, log: log}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Engine.ListAccounts(r.Context())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTOs(accounts))
}

// GetAccount returns a single account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.Engine.GetAccount(r.Context(), accountParam(r))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(acct))
}

// CreateAccount creates a new account.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	acct, err := h.Engine.CreateAccount(r.Context(), req.spec())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(acct))
}

// UpdateAccount applies a partial edit.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req UpdateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	acct, err := h.Engine.UpdateAccount(r.Context(), accountParam(r), req.patch())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(acct))
}

// DeleteAccount removes an account. Its mutations stay in the log.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteAccount(r.Context(), accountParam(r)); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLowBalance returns accounts under their advisory minimum.
func (h *Handler) ListLowBalance(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Engine.FindLowBalance(r.Context())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTOs(accounts))
}

// GetAccountMutations returns one account's history, newest first.
func (h *Handler) GetAccountMutations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := accountParam(r)
	if _, err := h.Engine.GetAccount(ctx, id); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	muts, err := h.Engine.ListMutations(ctx, id)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMutationDTOs(muts))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// ListMutations returns the log. ?account_id= narrows it to one account,
// newest first; deleted accounts keep their history here.
func (h *Handler) ListMutations(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(r.URL.Query().Get("account_id"))
	muts, err := h.Engine.ListMutations(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMutationDTOs(muts))
}

// ListTransactions returns customer transactions, newest first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Engine.ListTransactions(r.Context())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	dtos := make([]TransactionDTO, len(txs))
	for i, t := range txs {
		dtos[i] = toTransactionDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ClassifyTransaction previews what a transaction would record.
func (h *Handler) ClassifyTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.Engine.Classify(r.Context(), req.intent())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClassificationDTO(c))
}

// SubmitTransaction classifies and records a customer transaction.
func (h *Handler) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.Engine.SubmitTransaction(r.Context(), req.intent())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResultDTO(res))
}

// SuggestFee returns the default agent fee.
// GET /api/fees/suggest?type=transfer_bank&principal=1.500.000
func (h *Handler) SuggestFee(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t := ledger.TransactionType(q.Get("type"))
	if !t.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown transaction type", fmt.Errorf("type %q", t))
		return
	}
	principal, err := money.Parse(q.Get("principal"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid principal", err)
		return
	}
	writeJSON(w, http.StatusOK, FeeSuggestionDTO{
		Type:      string(t),
		Principal: principal,
		AgentFee:  ledger.SuggestAgentFee(t, principal),
	})
}

// ApplyTransfer moves money between two of the agent's accounts.
func (h *Handler) ApplyTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.Engine.ApplyInternalTransfer(r.Context(), req.request())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResultDTO(res))
}

// ApplySettlement cashes out a merchant account.
func (h *Handler) ApplySettlement(w http.ResponseWriter, r *http.Request) {
	var req SettlementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.Engine.ApplySettlement(r.Context(), ledger.AccountID(req.MerchantID), int64(req.Amount))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResultDTO(res))
}

// ApplyCapital credits external funds to an account.
func (h *Handler) ApplyCapital(w http.ResponseWriter, r *http.Request) {
	var req CapitalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.Engine.ApplyCapitalInjection(r.Context(), ledger.AccountID(req.AccountID), int64(req.Amount), req.Description)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResultDTO(res))
}

// GetSummary returns the dashboard figures.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Engine.Summary(r.Context())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(s))
}

// =============================================================================
// HELPERS
// =============================================================================

func accountParam(r *http.Request) ledger.AccountID {
	return ledger.AccountID(chi.URLParam(r, "id"))
}

// decodeJSON reads the body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// statusFor maps the ledger error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrDuplicateCashAccount):
		return http.StatusConflict
	case ledger.IsValidation(err):
		return http.StatusBadRequest
	case ledger.IsBusinessRule(err):
		return http.StatusUnprocessableEntity
	case ledger.IsRetryable(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, status, http.StatusText(status), err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
