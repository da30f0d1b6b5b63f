/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger's data model from the external API contract: ids become plain
  strings, mutation variants flatten to one shape and every amount carries
  a display string next to the integer.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Request amounts accept a JSON number or an Indonesian-grouped string
  ("1.500.000"), see factory.Amount. Responses always send the integer plus
  a "Rp 1.500.000" display field.

SEE ALSO:
  - handlers.go: Uses these types
  - money/money.go: Display formatting
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/agenlink/kasledger/factory"
	"github.com/agenlink/kasledger/ledger"
	"github.com/agenlink/kasledger/money"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

type AccountDTO struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Kind               string  `json:"kind"`
	Balance            int64   `json:"balance"`
	BalanceDisplay     string  `json:"balance_display"`
	MinimumBalance     *int64  `json:"minimum_balance,omitempty"`
	LowBalance         bool    `json:"low_balance"`
	ExternalReference  string  `json:"external_reference,omitempty"`
	MerchantFeePercent *string `json:"merchant_fee_percent,omitempty"`
	SettlementTargetID string  `json:"settlement_target_id,omitempty"`
	CreatedAt          string  `json:"created_at"`
}

type CreateAccountRequest struct {
	Name               string           `json:"name"`
	Kind               string           `json:"kind"`
	Balance            factory.Amount   `json:"balance"`
	MinimumBalance     *factory.Amount  `json:"minimum_balance,omitempty"`
	ExternalReference  string           `json:"external_reference,omitempty"`
	MerchantFeePercent *decimal.Decimal `json:"merchant_fee_percent,omitempty"`
	SettlementTargetID string           `json:"settlement_target_id,omitempty"`
}

// UpdateAccountRequest replaces only the fields present in the body.
type UpdateAccountRequest struct {
	Name                *string          `json:"name,omitempty"`
	Kind                *string          `json:"kind,omitempty"`
	Balance             *factory.Amount  `json:"balance,omitempty"`
	MinimumBalance      *factory.Amount  `json:"minimum_balance,omitempty"`
	ClearMinimumBalance bool             `json:"clear_minimum_balance,omitempty"`
	ExternalReference   *string          `json:"external_reference,omitempty"`
	MerchantFeePercent  *decimal.Decimal `json:"merchant_fee_percent,omitempty"`
	SettlementTargetID  *string          `json:"settlement_target_id,omitempty"`
}

func toAccountDTO(a ledger.Account) AccountDTO {
	dto := AccountDTO{
		ID:                 string(a.ID),
		Name:               a.Name,
		Kind:               string(a.Kind),
		Balance:            a.Balance,
		BalanceDisplay:     money.FormatRupiah(a.Balance),
		MinimumBalance:     a.MinimumBalance,
		LowBalance:         a.IsLowBalance(),
		ExternalReference:  a.ExternalReference,
		SettlementTargetID: string(a.SettlementTargetID),
		CreatedAt:          a.CreatedAt.Format(time.RFC3339),
	}
	if a.Kind == ledger.KindMerchant {
		pct := a.MerchantFeePercent.String()
		dto.MerchantFeePercent = &pct
	}
	return dto
}

func toAccountDTOs(accounts []ledger.Account) []AccountDTO {
	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	return dtos
}

func (r CreateAccountRequest) spec() ledger.AccountSpec {
	spec := ledger.AccountSpec{
		Name:               r.Name,
		Kind:               ledger.AccountKind(r.Kind),
		Balance:            int64(r.Balance),
		ExternalReference:  r.ExternalReference,
		SettlementTargetID: ledger.AccountID(r.SettlementTargetID),
	}
	if r.MinimumBalance != nil {
		v := int64(*r.MinimumBalance)
		spec.MinimumBalance = &v
	}
	if r.MerchantFeePercent != nil {
		spec.MerchantFeePercent = *r.MerchantFeePercent
	}
	return spec
}

func (r UpdateAccountRequest) patch() ledger.AccountPatch {
	p := ledger.AccountPatch{
		Name:                r.Name,
		ClearMinimumBalance: r.ClearMinimumBalance,
		ExternalReference:   r.ExternalReference,
		MerchantFeePercent:  r.MerchantFeePercent,
	}
	if r.Kind != nil {
		k := ledger.AccountKind(*r.Kind)
		p.Kind = &k
	}
	if r.Balance != nil {
		v := int64(*r.Balance)
		p.Balance = &v
	}
	if r.MinimumBalance != nil {
		v := int64(*r.MinimumBalance)
		p.MinimumBalance = &v
	}
	if r.SettlementTargetID != nil {
		id := ledger.AccountID(*r.SettlementTargetID)
		p.SettlementTargetID = &id
	}
	return p
}

// =============================================================================
// MUTATIONS
// =============================================================================

type MutationDTO struct {
	ID                   string `json:"id"`
	Timestamp            string `json:"timestamp"`
	Kind                 string `json:"kind"`
	Amount               int64  `json:"amount"`
	AmountDisplay        string `json:"amount_display"`
	Fee                  int64  `json:"fee,omitempty"`
	ChargedTo            string `json:"charged_to,omitempty"`
	Description          string `json:"description"`
	TransactionID        string `json:"transaction_id,omitempty"`
	SourceAccountID      string `json:"source_account_id,omitempty"`
	DestinationAccountID string `json:"destination_account_id,omitempty"`
}

func toMutationDTO(m ledger.Mutation) MutationDTO {
	dto := MutationDTO{
		ID:                   string(m.ID),
		Timestamp:            m.Timestamp.Format(time.RFC3339Nano),
		Kind:                 string(m.Kind()),
		Amount:               m.Amount(),
		AmountDisplay:        money.FormatRupiah(m.Amount()),
		Fee:                  m.Fee(),
		Description:          m.Description,
		TransactionID:        string(m.TransactionID),
		SourceAccountID:      string(m.SourceAccountID()),
		DestinationAccountID: string(m.DestinationAccountID()),
	}
	if t, ok := m.Entry.(ledger.TransferEntry); ok {
		dto.ChargedTo = string(t.ChargedTo)
	}
	return dto
}

func toMutationDTOs(muts []ledger.Mutation) []MutationDTO {
	dtos := make([]MutationDTO, len(muts))
	for i, m := range muts {
		dtos[i] = toMutationDTO(m)
	}
	return dtos
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionRequest is a customer transaction as entered at the counter.
type TransactionRequest struct {
	Type          string `json:"type"`
	CustomerName  string `json:"customer_name"`
	AccountNumber string `json:"account_number,omitempty"`
	Provider      string `json:"provider,omitempty"`

	PrincipalAmount factory.Amount `json:"principal_amount"`
	BankAdminFee    factory.Amount `json:"bank_admin_fee"`
	AgentFee        factory.Amount `json:"agent_fee"`
	Status          string         `json:"status,omitempty"`

	SourceAccountID   string `json:"source_account_id,omitempty"`
	PaymentMethod     string `json:"payment_method"`
	PaymentReceiverID string `json:"payment_receiver_id,omitempty"`

	SplitCashAmount     factory.Amount `json:"split_cash_amount,omitempty"`
	SplitTransferAmount factory.Amount `json:"split_transfer_amount,omitempty"`
}

func (r TransactionRequest) intent() ledger.TransactionIntent {
	return ledger.TransactionIntent{
		Type:                ledger.TransactionType(r.Type),
		CustomerName:        r.CustomerName,
		AccountNumber:       r.AccountNumber,
		Provider:            r.Provider,
		PrincipalAmount:     int64(r.PrincipalAmount),
		BankAdminFee:        int64(r.BankAdminFee),
		AgentFee:            int64(r.AgentFee),
		Status:              ledger.TransactionStatus(r.Status),
		SourceAccountID:     ledger.AccountID(r.SourceAccountID),
		PaymentMethod:       ledger.PaymentMethod(r.PaymentMethod),
		PaymentReceiverID:   ledger.AccountID(r.PaymentReceiverID),
		SplitCashAmount:     int64(r.SplitCashAmount),
		SplitTransferAmount: int64(r.SplitTransferAmount),
	}
}

type TransactionDTO struct {
	ID            string `json:"id"`
	Timestamp     string `json:"timestamp"`
	Type          string `json:"type"`
	CustomerName  string `json:"customer_name"`
	AccountNumber string `json:"account_number,omitempty"`
	Provider      string `json:"provider,omitempty"`

	PrincipalAmount int64  `json:"principal_amount"`
	BankAdminFee    int64  `json:"bank_admin_fee"`
	AgentFee        int64  `json:"agent_fee"`
	Total           int64  `json:"total"`
	TotalDisplay    string `json:"total_display"`
	Status          string `json:"status"`

	SourceAccountID     string `json:"source_account_id,omitempty"`
	PaymentMethod       string `json:"payment_method"`
	PaymentReceiverID   string `json:"payment_receiver_id,omitempty"`
	SplitCashAmount     int64  `json:"split_cash_amount,omitempty"`
	SplitTransferAmount int64  `json:"split_transfer_amount,omitempty"`
}

func toTransactionDTO(t ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:                  string(t.ID),
		Timestamp:           t.Timestamp.Format(time.RFC3339Nano),
		Type:                string(t.Type),
		CustomerName:        t.CustomerName,
		AccountNumber:       t.AccountNumber,
		Provider:            t.Provider,
		PrincipalAmount:     t.PrincipalAmount,
		BankAdminFee:        t.BankAdminFee,
		AgentFee:            t.AgentFee,
		Total:               t.Total,
		TotalDisplay:        money.FormatRupiah(t.Total),
		Status:              string(t.Status),
		SourceAccountID:     string(t.SourceAccountID),
		PaymentMethod:       string(t.PaymentMethod),
		PaymentReceiverID:   string(t.PaymentReceiverID),
		SplitCashAmount:     t.SplitCashAmount,
		SplitTransferAmount: t.SplitTransferAmount,
	}
}

// PendingMutationDTO is one derived movement before it is recorded.
type PendingMutationDTO struct {
	Kind                 string `json:"kind"`
	Amount               int64  `json:"amount"`
	Description          string `json:"description"`
	SourceAccountID      string `json:"source_account_id,omitempty"`
	DestinationAccountID string `json:"destination_account_id,omitempty"`
}

type DeltaDTO struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
}

// ClassificationDTO is the preview returned by the classify endpoint.
type ClassificationDTO struct {
	Mutations []PendingMutationDTO `json:"mutations"`
	Deltas    []DeltaDTO           `json:"deltas"`
}

func toClassificationDTO(c ledger.Classification) ClassificationDTO {
	dto := ClassificationDTO{
		Mutations: make([]PendingMutationDTO, len(c.Mutations)),
		Deltas:    make([]DeltaDTO, len(c.Deltas)),
	}
	for i, p := range c.Mutations {
		dto.Mutations[i] = PendingMutationDTO{
			Kind:                 string(p.Entry.Kind()),
			Amount:               p.Entry.Magnitude(),
			Description:          p.Description,
			SourceAccountID:      string(p.Entry.Source()),
			DestinationAccountID: string(p.Entry.Destination()),
		}
	}
	for i, d := range c.Deltas {
		dto.Deltas[i] = DeltaDTO{AccountID: string(d.AccountID), Amount: d.Amount}
	}
	return dto
}

// ResultDTO is what every write endpoint returns.
type ResultDTO struct {
	Transaction *TransactionDTO `json:"transaction,omitempty"`
	Mutations   []MutationDTO   `json:"mutations"`
	Accounts    []AccountDTO    `json:"accounts"`
}

func toResultDTO(res ledger.Result) ResultDTO {
	dto := ResultDTO{
		Mutations: toMutationDTOs(res.Mutations),
		Accounts:  toAccountDTOs(res.Accounts),
	}
	if res.Transaction != nil {
		t := toTransactionDTO(*res.Transaction)
		dto.Transaction = &t
	}
	return dto
}

// =============================================================================
// TRANSFERS, SETTLEMENTS, CAPITAL
// =============================================================================

type TransferRequest struct {
	SourceID      string         `json:"source_id"`
	DestinationID string         `json:"destination_id"`
	Amount        factory.Amount `json:"amount"`
	FeeType       string         `json:"fee_type,omitempty"`
	ManualFee     factory.Amount `json:"manual_fee,omitempty"`
	ChargedTo     string         `json:"charged_to,omitempty"`
	Description   string         `json:"description,omitempty"`
}

func (r TransferRequest) request() ledger.TransferRequest {
	return ledger.TransferRequest{
		SourceID:      ledger.AccountID(r.SourceID),
		DestinationID: ledger.AccountID(r.DestinationID),
		Amount:        int64(r.Amount),
		FeeType:       ledger.FeePreset(r.FeeType),
		ManualFee:     int64(r.ManualFee),
		ChargedTo:     ledger.FeeBearer(r.ChargedTo),
		Description:   r.Description,
	}
}

type SettlementRequest struct {
	MerchantID string         `json:"merchant_id"`
	Amount     factory.Amount `json:"amount"`
}

type CapitalRequest struct {
	AccountID   string         `json:"account_id"`
	Amount      factory.Amount `json:"amount"`
	Description string         `json:"description,omitempty"`
}

type FeeSuggestionDTO struct {
	Type      string `json:"type"`
	Principal int64  `json:"principal"`
	AgentFee  int64  `json:"agent_fee"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

type SummaryDTO struct {
	AccountCount          int          `json:"account_count"`
	TotalAssets           int64        `json:"total_assets"`
	TotalAssetsDisplay    string       `json:"total_assets_display"`
	LowBalance            []AccountDTO `json:"low_balance"`
	TransactionCount      int          `json:"transaction_count"`
	PrincipalVolume       int64        `json:"principal_volume"`
	AgentFeeIncome        int64        `json:"agent_fee_income"`
	AgentFeeIncomeDisplay string       `json:"agent_fee_income_display"`
}

func toSummaryDTO(s ledger.Summary) SummaryDTO {
	return SummaryDTO{
		AccountCount:          s.AccountCount,
		TotalAssets:           s.TotalAssets,
		TotalAssetsDisplay:    money.FormatRupiah(s.TotalAssets),
		LowBalance:            toAccountDTOs(s.LowBalance),
		TransactionCount:      s.TransactionCount,
		PrincipalVolume:       s.PrincipalVolume,
		AgentFeeIncome:        s.AgentFeeIncome,
		AgentFeeIncomeDisplay: money.FormatRupiah(s.AgentFeeIncome),
	}
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
