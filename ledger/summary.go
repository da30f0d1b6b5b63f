package ledger

import "context"

// Summary is the dashboard view of one consistent state.
type Summary struct {
	AccountCount     int
	TotalAssets      int64 // sum of all balances, negatives included
	LowBalance       []Account
	TransactionCount int
	PrincipalVolume  int64
	AgentFeeIncome   int64
}

// Summarize folds a state into its dashboard figures. Failed transactions
// count towards TransactionCount but not towards volume or income.
func Summarize(s State) Summary {
	sum := Summary{
		AccountCount:     len(s.Accounts),
		LowBalance:       LowBalance(s.Accounts),
		TransactionCount: len(s.Transactions),
	}
	for _, a := range s.Accounts {
		sum.TotalAssets += a.Balance
	}
	for _, t := range s.Transactions {
		if t.Status == StatusFailed {
			continue
		}
		sum.PrincipalVolume += t.PrincipalAmount
		sum.AgentFeeIncome += t.AgentFee
	}
	return sum
}

func (e *Engine) Summary(ctx context.Context) (Summary, error) {
	s, err := e.Snapshot(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(s), nil
}
