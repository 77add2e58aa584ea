package ledger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raikusim/slotmarket/pkg/sol"
)

func TestStartingBalanceOnFirstTouch(t *testing.T) {
	l := NewInMemory(sol.FromSOL(100_000), logrus.New())

	assert.Equal(t, sol.FromSOL(100_000), l.Balance("fresh"))
	assert.Equal(t, 0, l.Sessions(), "reads do not materialize sessions")

	require.NoError(t, l.Debit("fresh", sol.FromLamports(1)))
	assert.Equal(t, 1, l.Sessions())
}

func TestDebitInsufficient(t *testing.T) {
	l := NewInMemory(sol.FromLamports(500_000), logrus.New())

	err := l.Debit("a", sol.FromLamports(1_000_000))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, sol.FromLamports(500_000), l.Balance("a"), "failed debit leaves the balance unchanged")
}

func TestDebitCredit(t *testing.T) {
	l := NewInMemory(sol.FromSOL(1), logrus.New())

	require.NoError(t, l.Debit("a", sol.FromLamports(2_000_000)))
	assert.Equal(t, sol.FromLamports(998_000_000), l.Balance("a"))

	l.Credit("a", sol.FromLamports(2_000_000))
	assert.Equal(t, sol.FromSOL(1), l.Balance("a"))
}

func TestTotalConservedAcrossTransfers(t *testing.T) {
	l := NewInMemory(sol.FromSOL(10), logrus.New())

	require.NoError(t, l.Debit("a", sol.FromLamports(3_000_000)))
	require.NoError(t, l.Debit("b", sol.FromLamports(4_000_000)))
	l.Credit("a", sol.FromLamports(3_000_000))
	l.Credit("b", sol.FromLamports(4_000_000))

	assert.Equal(t, sol.FromSOL(20), l.Total())
}
