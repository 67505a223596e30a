package ledger

import (
	"fmt"
	"time"
)

// balanceEpsilon absorbs float64 rounding drift when replaying histories.
const balanceEpsilon = 1e-6

// ValidationResult reports the outcome of one consistency check.
type ValidationResult struct {
	IsValid        bool      `json:"is_valid"`
	ValidationType string    `json:"validation_type"`
	Message        string    `json:"message"`
	AccountID      string    `json:"account_id,omitempty"`
	TransactionID  string    `json:"transaction_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// signedAmount is the balance delta a record represents.
func signedAmount(t Transaction) float64 {
	switch t.Kind {
	case KindDeposit, KindTransferIn:
		return t.Amount
	case KindWithdrawal, KindTransferOut:
		return -t.Amount
	}
	return 0
}

// CheckConsistency replays every account's history from its initial balance
// and verifies the reconstructible invariants: each record's BalanceAfter
// equals the running sum, the replayed final balance matches the live one, and
// no balance is negative. It returns one result per violation; an empty slice
// means the ledger is consistent.
func (s *Service) CheckConsistency() []ValidationResult {
	var results []ValidationResult

	for _, a := range s.store.all() {
		a.mu.Lock()
		balance := a.balance
		initial := a.initialBalance
		history := make([]Transaction, len(a.history))
		copy(history, a.history)
		a.mu.Unlock()

		if balance < 0 {
			results = append(results, ValidationResult{
				ValidationType: "non_negative_balance",
				Message:        fmt.Sprintf("balance is negative: %.2f", balance),
				AccountID:      a.ID,
				Timestamp:      time.Now().UTC(),
			})
		}

		running := initial
		for _, t := range history {
			running += signedAmount(t)
			if drift := running - t.BalanceAfter; drift > balanceEpsilon || drift < -balanceEpsilon {
				results = append(results, ValidationResult{
					ValidationType: "history_replay",
					Message:        fmt.Sprintf("replayed balance %.2f does not match recorded balance_after %.2f", running, t.BalanceAfter),
					AccountID:      a.ID,
					TransactionID:  t.ID,
					Timestamp:      time.Now().UTC(),
				})
			}
		}
		if drift := running - balance; drift > balanceEpsilon || drift < -balanceEpsilon {
			results = append(results, ValidationResult{
				ValidationType: "history_replay",
				Message:        fmt.Sprintf("replayed final balance %.2f does not match live balance %.2f", running, balance),
				AccountID:      a.ID,
				Timestamp:      time.Now().UTC(),
			})
		}
	}

	return results
}

// TotalBalance sums all account balances. Transfers leave this invariant;
// deposits and withdrawals move it by exactly the signed amount.
func (s *Service) TotalBalance() float64 {
	var total float64
	for _, a := range s.store.all() {
		a.mu.Lock()
		total += a.balance
		a.mu.Unlock()
	}
	return total
}
