/*
classifier.go - Transaction intent to mutation set

PURPOSE:
  Decides which mutations a customer transaction produces and which
  accounts they touch. Pure and deterministic: it reads nothing but its
  arguments and changes nothing.

DECISION TABLE (type == transfer_bank with a source account):
  1. One Out of principal + bank admin fee from the source account.
     The agent's own float pays the bank transfer.
  2. The customer pays back the total, by payment method:
     cash:      In of total to the cash account
                (no cash account configured -> no inbound leg)
     transfer:  In of total to the payment receiver (required)
     split:     In of split cash to the cash account (when > 0 and one exists)
                In of split transfer to the receiver (when > 0, receiver required)
                split cash + split transfer must equal the total

EVERY OTHER CASE:
  One In of the total to the cash account, no Out leg. Informal collection
  with no separate banking step recorded. No cash account -> nothing.

NET DELTAS:
  The per-account algebraic sum of all entry effects. An account that is
  both source and destination (source == cash drawer) nets both.

EXAMPLE:
  Cash drawer pays a 500,000 transfer with 6,500 bank fee and 5,000 margin,
  customer pays cash: Out 506,500 + In 511,500, net +5,000 on the drawer.

SEE ALSO:
  - engine.go: Classify looks up the cash account and calls this
  - entry.go: Effects per entry kind
*/
package ledger

import "fmt"

// Classify derives the pending mutations and net deltas for an intent.
// cashAccount is the id of the single cash account, or "" when none exists.
func Classify(intent TransactionIntent, cashAccount AccountID) (Classification, error) {
	if err := checkIntentAmounts(intent); err != nil {
		return Classification{}, err
	}

	var pending []PendingMutation
	total := intent.Total()

	if intent.Type == TypeTransferBank && intent.SourceAccountID != "" {
		pending = append(pending, PendingMutation{
			Description: fmt.Sprintf("Outbound: %s (%s)", intent.CustomerName, intent.Provider),
			Entry: OutEntry{
				Amount: intent.PrincipalAmount + intent.BankAdminFee,
				From:   intent.SourceAccountID,
			},
		})

		inbound, err := inboundLegs(intent, cashAccount, total)
		if err != nil {
			return Classification{}, err
		}
		pending = append(pending, inbound...)
	} else if cashAccount != "" {
		pending = append(pending, PendingMutation{
			Description: fmt.Sprintf("Inbound: %s", intent.Type),
			Entry:       InEntry{Amount: total, To: cashAccount},
		})
	}

	return Classification{Mutations: pending, Deltas: NetDeltas(pending)}, nil
}

func inboundLegs(intent TransactionIntent, cashAccount AccountID, total int64) ([]PendingMutation, error) {
	var legs []PendingMutation

	switch intent.PaymentMethod {
	case PaymentCash:
		if cashAccount != "" {
			legs = append(legs, PendingMutation{
				Description: fmt.Sprintf("Cash payment: %s", intent.CustomerName),
				Entry:       InEntry{Amount: total, To: cashAccount},
			})
		}

	case PaymentTransfer:
		if intent.PaymentReceiverID == "" {
			return nil, ErrMissingReceiver
		}
		legs = append(legs, PendingMutation{
			Description: fmt.Sprintf("Transfer payment: %s", intent.CustomerName),
			Entry:       InEntry{Amount: total, To: intent.PaymentReceiverID},
		})

	case PaymentSplit:
		cash, transfer := intent.SplitCashAmount, intent.SplitTransferAmount
		if transfer > 0 && intent.PaymentReceiverID == "" {
			return nil, ErrMissingReceiver
		}
		if cash+transfer != total {
			return nil, &SplitMismatchError{Cash: cash, Transfer: transfer, Total: total}
		}
		if cash > 0 && cashAccount != "" {
			legs = append(legs, PendingMutation{
				Description: fmt.Sprintf("Split (cash): %s", intent.CustomerName),
				Entry:       InEntry{Amount: cash, To: cashAccount},
			})
		}
		if transfer > 0 {
			legs = append(legs, PendingMutation{
				Description: fmt.Sprintf("Split (transfer): %s", intent.CustomerName),
				Entry:       InEntry{Amount: transfer, To: intent.PaymentReceiverID},
			})
		}

	default:
		return nil, fmt.Errorf("payment method %q: %w", intent.PaymentMethod, ErrInvalidPaymentMethod)
	}

	return legs, nil
}

func checkIntentAmounts(intent TransactionIntent) error {
	for _, v := range []int64{
		intent.PrincipalAmount, intent.BankAdminFee, intent.AgentFee,
		intent.SplitCashAmount, intent.SplitTransferAmount,
	} {
		if v < 0 {
			return fmt.Errorf("negative transaction amount %d: %w", v, ErrInvalidAmount)
		}
	}
	return nil
}

// NetDeltas sums entry effects per account, in first-touched order.
func NetDeltas(pending []PendingMutation) []Delta {
	var (
		order []AccountID
		sums  = make(map[AccountID]int64)
	)
	for _, p := range pending {
		for _, d := range p.Entry.Effects() {
			if _, seen := sums[d.AccountID]; !seen {
				order = append(order, d.AccountID)
			}
			sums[d.AccountID] += d.Amount
		}
	}

	deltas := make([]Delta, 0, len(order))
	for _, id := range order {
		deltas = append(deltas, Delta{AccountID: id, Amount: sums[id]})
	}
	return deltas
}

// SumDeltas is the net amount entering (positive) or leaving the tracked
// accounts.
func SumDeltas(deltas []Delta) int64 {
	var sum int64
	for _, d := range deltas {
		sum += d.Amount
	}
	return sum
}
