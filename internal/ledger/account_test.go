package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountDeposit(t *testing.T) {
	a := newAccount("acc-1", "Alice", 100)

	balance, err := a.deposit(40)
	require.NoError(t, err)
	assert.Equal(t, 140.0, balance)

	history := a.History()
	require.Len(t, history, 1)
	assert.Equal(t, KindDeposit, history[0].Kind)
	assert.Equal(t, 40.0, history[0].Amount)
	assert.Equal(t, 140.0, history[0].BalanceAfter)
	assert.Empty(t, history[0].CounterpartyID)
	assert.NotEmpty(t, history[0].ID)
}

func TestAccountDepositRejectsNonPositiveAmount(t *testing.T) {
	a := newAccount("acc-1", "Alice", 100)

	for _, amount := range []float64{0, -5} {
		_, err := a.deposit(amount)
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
	assert.Equal(t, 100.0, a.summary().Balance)
	assert.Empty(t, a.History())
}

func TestAccountWithdraw(t *testing.T) {
	a := newAccount("acc-1", "Alice", 100)

	balance, err := a.withdraw(60)
	require.NoError(t, err)
	assert.Equal(t, 40.0, balance)

	history := a.History()
	require.Len(t, history, 1)
	assert.Equal(t, KindWithdrawal, history[0].Kind)
	assert.Equal(t, 40.0, history[0].BalanceAfter)
}

func TestAccountWithdrawInsufficientFunds(t *testing.T) {
	a := newAccount("acc-1", "Alice", 100)

	_, err := a.withdraw(150)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 100.0, a.summary().Balance)
	assert.Empty(t, a.History())
}

func TestAccountHistoryIsDetached(t *testing.T) {
	a := newAccount("acc-1", "Alice", 100)
	_, err := a.deposit(10)
	require.NoError(t, err)

	history := a.History()
	history[0].Amount = 9999

	fresh := a.History()
	assert.Equal(t, 10.0, fresh[0].Amount)
}

func TestAccountSummaryCountsTransactions(t *testing.T) {
	a := newAccount("acc-1", "Alice", 0)
	_, err := a.deposit(1)
	require.NoError(t, err)
	_, err = a.deposit(2)
	require.NoError(t, err)

	s := a.summary()
	assert.Equal(t, "acc-1", s.ID)
	assert.Equal(t, "Alice", s.Name)
	assert.Equal(t, 3.0, s.Balance)
	assert.Equal(t, 2, s.TransactionCount)
}
