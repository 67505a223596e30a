package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TransactionKind classifies a history record.
type TransactionKind string

const (
	KindDeposit     TransactionKind = "DEPOSIT"
	KindWithdrawal  TransactionKind = "WITHDRAWAL"
	KindTransferOut TransactionKind = "TRANSFER_OUT"
	KindTransferIn  TransactionKind = "TRANSFER_IN"
)

// Transaction is one record in an account's history. Records are immutable
// once appended; CounterpartyID is set only for transfer legs.
type Transaction struct {
	ID             string          `json:"id"`
	Kind           TransactionKind `json:"kind"`
	Amount         float64         `json:"amount"`
	CounterpartyID string          `json:"counterparty_account_id,omitempty"`
	BalanceAfter   float64         `json:"balance_after"`
	Timestamp      time.Time       `json:"timestamp"`
}

// AccountSummary is the detached view of an account handed to callers.
// The live entity never leaves the service.
type AccountSummary struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Balance          float64   `json:"balance"`
	CreatedAt        time.Time `json:"created_at"`
	TransactionCount int       `json:"transaction_count"`
}

// Account holds a balance and an append-only transaction log. ID, Name,
// CreatedAt and the initial balance are immutable after creation. The balance
// and history are mutated only by the single operation holding the matching
// admission grant; mu additionally keeps concurrent snapshot reads consistent
// with in-flight mutations.
type Account struct {
	ID        string
	Name      string
	CreatedAt time.Time

	mu             sync.Mutex
	balance        float64
	initialBalance float64
	history        []Transaction
}

func newAccount(id, name string, initialBalance float64) *Account {
	return &Account{
		ID:             id,
		Name:           name,
		CreatedAt:      time.Now().UTC(),
		balance:        initialBalance,
		initialBalance: initialBalance,
	}
}

// deposit credits the account and logs a DEPOSIT record. The new balance is
// returned so the caller can build its result without a second read.
func (a *Account) deposit(amount float64) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: deposit amount must be positive", ErrInvalidArgument)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance += amount
	a.appendRecordLocked(KindDeposit, amount, "")
	return a.balance, nil
}

// withdraw debits the account and logs a WITHDRAWAL record. The balance never
// goes negative: a withdrawal exceeding it is rejected with no side effects.
func (a *Account) withdraw(amount float64) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: withdrawal amount must be positive", ErrInvalidArgument)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if amount > a.balance {
		return 0, fmt.Errorf("%w: balance %.2f, requested %.2f", ErrInsufficientFunds, a.balance, amount)
	}
	a.balance -= amount
	a.appendRecordLocked(KindWithdrawal, amount, "")
	return a.balance, nil
}

// recordTransferLeg logs one side of a transfer whose balance delta the
// service has already applied. Callers hold a.mu.
func (a *Account) recordTransferLeg(kind TransactionKind, amount float64, counterpartyID string) {
	a.appendRecordLocked(kind, amount, counterpartyID)
}

// appendRecordLocked captures the running balance as BalanceAfter, so the
// history replays to the live balance from the initial one. Callers hold a.mu.
func (a *Account) appendRecordLocked(kind TransactionKind, amount float64, counterpartyID string) {
	a.history = append(a.history, Transaction{
		ID:             uuid.NewString(),
		Kind:           kind,
		Amount:         amount,
		CounterpartyID: counterpartyID,
		BalanceAfter:   a.balance,
		Timestamp:      time.Now().UTC(),
	})
}

// History returns an ordered copy of the transaction log. The live slice is
// never exposed.
func (a *Account) History() []Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Transaction, len(a.history))
	copy(out, a.history)
	return out
}

func (a *Account) summary() *AccountSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &AccountSummary{
		ID:               a.ID,
		Name:             a.Name,
		Balance:          a.balance,
		CreatedAt:        a.CreatedAt,
		TransactionCount: len(a.history),
	}
}

// lockPair takes both account locks in canonical ID order and returns the
// matching unlock. Admission already excludes a second writer on either
// account; the ordering keeps the locks deadlock-free against readers.
func lockPair(a, b *Account) func() {
	if b.ID < a.ID {
		a, b = b, a
	}
	a.mu.Lock()
	b.mu.Lock()
	return func() {
		b.mu.Unlock()
		a.mu.Unlock()
	}
}
