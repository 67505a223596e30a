package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service is the in-process ledger. It owns the account store and the lock
// coordinator and orchestrates every operation as admit -> validate -> mutate
// -> log -> release, with release deferred so it runs on every exit path.
//
// The service knows nothing about wire formats or HTTP status codes: it takes
// plain arguments and returns plain results or one of the four error kinds.
type Service struct {
	store  *store
	locks  *lockCoordinator
	logger *slog.Logger
}

// NewService creates an empty ledger. A nil logger falls back to
// slog.Default().
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  newStore(),
		locks:  newLockCoordinator(),
		logger: logger,
	}
}

// OperationResult is returned by Deposit and Withdraw.
type OperationResult struct {
	AccountID  string    `json:"account_id"`
	NewBalance float64   `json:"new_balance"`
	Timestamp  time.Time `json:"timestamp"`
}

// TransferResult is returned by Transfer.
type TransferResult struct {
	TransferID    string    `json:"transfer_id"`
	FromAccountID string    `json:"from_account_id"`
	ToAccountID   string    `json:"to_account_id"`
	Amount        float64   `json:"amount"`
	FromBalance   float64   `json:"from_balance"`
	ToBalance     float64   `json:"to_balance"`
	Timestamp     time.Time `json:"timestamp"`
}

// CreateAccount validates the name and initial balance, then inserts a new
// account. No admission is needed: the identifier is freshly generated, so no
// concurrent operation can contend on it.
func (s *Service) CreateAccount(ctx context.Context, name string, initialBalance float64) (*AccountSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: account name is required", ErrInvalidArgument)
	}
	if initialBalance < 0 {
		return nil, fmt.Errorf("%w: initial balance cannot be negative", ErrInvalidArgument)
	}

	a := newAccount(uuid.NewString(), name, initialBalance)
	s.store.insert(a)

	s.logger.InfoContext(ctx, "account_created",
		"account_id", a.ID,
		"name", a.Name,
		"initial_balance", initialBalance,
	)
	return a.summary(), nil
}

// GetAccount returns a detached snapshot of the account.
func (s *Service) GetAccount(ctx context.Context, accountID string) (*AccountSummary, error) {
	a, err := s.store.get(accountID)
	if err != nil {
		return nil, err
	}
	return a.summary(), nil
}

// Deposit credits an account under a single-account admission grant.
func (s *Service) Deposit(ctx context.Context, accountID string, amount float64) (*OperationResult, error) {
	if !s.locks.tryAcquireAccount(accountID) {
		return nil, fmt.Errorf("%w: account %s", ErrOperationInProgress, accountID)
	}
	defer s.locks.releaseAccount(accountID)

	a, err := s.store.get(accountID)
	if err != nil {
		return nil, err
	}
	newBalance, err := a.deposit(amount)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "transaction",
		"action", KindDeposit,
		"account_id", accountID,
		"amount", amount,
		"balance_after", newBalance,
	)
	return &OperationResult{AccountID: accountID, NewBalance: newBalance, Timestamp: time.Now().UTC()}, nil
}

// Withdraw debits an account under a single-account admission grant.
func (s *Service) Withdraw(ctx context.Context, accountID string, amount float64) (*OperationResult, error) {
	if !s.locks.tryAcquireAccount(accountID) {
		return nil, fmt.Errorf("%w: account %s", ErrOperationInProgress, accountID)
	}
	defer s.locks.releaseAccount(accountID)

	a, err := s.store.get(accountID)
	if err != nil {
		return nil, err
	}
	newBalance, err := a.withdraw(amount)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "transaction",
		"action", KindWithdrawal,
		"account_id", accountID,
		"amount", amount,
		"balance_after", newBalance,
	)
	return &OperationResult{AccountID: accountID, NewBalance: newBalance, Timestamp: time.Now().UTC()}, nil
}

// Transfer moves amount between two accounts under a pair admission grant.
// Self-transfers and non-positive amounts are rejected before any lock is
// taken. Both balance deltas land as one step with no observable intermediate
// state, and only then is a leg logged on each side: a committed transfer
// debits from and credits to by exactly amount, so the sum of all balances is
// unchanged.
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount float64) (*TransferResult, error) {
	if fromID == toID {
		return nil, fmt.Errorf("%w: cannot transfer to the same account", ErrInvalidArgument)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive", ErrInvalidArgument)
	}

	if !s.locks.tryAcquireTransfer(fromID, toID) {
		return nil, fmt.Errorf("%w: transfer between %s and %s", ErrOperationInProgress, fromID, toID)
	}
	defer s.locks.releaseTransfer(fromID, toID)

	from, err := s.store.get(fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.store.get(toID)
	if err != nil {
		return nil, err
	}

	unlock := lockPair(from, to)
	if from.balance < amount {
		unlock()
		return nil, fmt.Errorf("%w: balance %.2f, requested %.2f", ErrInsufficientFunds, from.balance, amount)
	}

	from.balance -= amount
	to.balance += amount
	from.recordTransferLeg(KindTransferOut, amount, to.ID)
	to.recordTransferLeg(KindTransferIn, amount, from.ID)
	fromBalance, toBalance := from.balance, to.balance
	unlock()

	transferID := uuid.NewString()
	s.logger.InfoContext(ctx, "transfer_completed",
		"transfer_id", transferID,
		"from_account_id", fromID,
		"to_account_id", toID,
		"amount", amount,
		"from_balance", fromBalance,
		"to_balance", toBalance,
	)
	return &TransferResult{
		TransferID:    transferID,
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        amount,
		FromBalance:   fromBalance,
		ToBalance:     toBalance,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// GetHistory returns an ordered snapshot of the account's transaction log.
func (s *Service) GetHistory(ctx context.Context, accountID string) ([]Transaction, error) {
	a, err := s.store.get(accountID)
	if err != nil {
		return nil, err
	}
	return a.History(), nil
}

// Reset clears the store and all admission bookkeeping in one step, holding
// both coordination boundaries so no operation can admit against a half-wiped
// ledger. Test hook.
func (s *Service) Reset() {
	s.locks.mu.Lock()
	s.store.mu.Lock()
	s.locks.clearLocked()
	s.store.accounts = make(map[string]*Account)
	s.store.mu.Unlock()
	s.locks.mu.Unlock()
}
