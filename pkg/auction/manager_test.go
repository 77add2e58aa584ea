package auction

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raikusim/slotmarket/pkg/sol"
)

var (
	minBid = sol.FromLamports(1_000_000)
	t0     = time.Unix(1000, 0)
)

func bid(session string, lamports int64, tx string, at time.Time) Bid {
	return Bid{Session: session, Amount: sol.FromLamports(lamports), TxID: tx, SubmittedAt: at}
}

func TestOpenJitIdempotent(t *testing.T) {
	m := NewManager(logrus.New())

	a1, created := m.OpenJit(11, minBid, t0)
	assert.True(t, created)

	a2, created := m.OpenJit(11, minBid, t0.Add(time.Second))
	assert.False(t, created)
	assert.Same(t, a1, a2)
	assert.Equal(t, 1, m.CountJit())
}

func TestSubmitJitBelowMinimum(t *testing.T) {
	m := NewManager(logrus.New())
	m.OpenJit(11, minBid, t0)

	_, err := m.SubmitJit(11, bid("a", 999_999, "tx-1", t0))
	assert.ErrorIs(t, err, ErrBelowMinimum)
}

func TestSubmitJitExactlyMinimumAccepted(t *testing.T) {
	m := NewManager(logrus.New())
	m.OpenJit(11, minBid, t0)

	outbid, err := m.SubmitJit(11, bid("a", 1_000_000, "tx-1", t0))
	require.NoError(t, err)
	assert.Nil(t, outbid)
}

func TestSubmitJitStrictOutbid(t *testing.T) {
	m := NewManager(logrus.New())
	m.OpenJit(11, minBid, t0)

	_, err := m.SubmitJit(11, bid("a", 2_000_000, "tx-a", t0))
	require.NoError(t, err)

	// Equal bid loses: first wins.
	_, err = m.SubmitJit(11, bid("b", 2_000_000, "tx-b", t0.Add(time.Millisecond)))
	assert.ErrorIs(t, err, ErrBelowMinimum)

	// Strictly higher replaces and returns the prior best for refund.
	outbid, err := m.SubmitJit(11, bid("b", 3_000_000, "tx-b2", t0.Add(2*time.Millisecond)))
	require.NoError(t, err)
	require.NotNil(t, outbid)
	assert.Equal(t, "a", outbid.Session)
	assert.Equal(t, sol.FromLamports(2_000_000), outbid.Amount)
}

func TestSubmitJitWrongSlot(t *testing.T) {
	m := NewManager(logrus.New())
	m.OpenJit(11, minBid, t0)

	_, err := m.SubmitJit(12, bid("a", 2_000_000, "tx-1", t0))
	assert.ErrorIs(t, err, ErrWrongSlot)
}

func TestSubmitJitNoAuction(t *testing.T) {
	m := NewManager(logrus.New())

	_, err := m.SubmitJit(11, bid("a", 2_000_000, "tx-1", t0))
	assert.ErrorIs(t, err, ErrNoSuchAuction)
}

func TestResolveJit(t *testing.T) {
	m := NewManager(logrus.New())
	m.OpenJit(11, minBid, t0)

	_, err := m.SubmitJit(11, bid("a", 2_000_000, "tx-1", t0))
	require.NoError(t, err)

	res, err := m.ResolveJit(11)
	require.NoError(t, err)
	require.NotNil(t, res.Winner)
	assert.Equal(t, "a", res.Winner.Session)
	assert.Empty(t, res.Losers, "JIT losers are refunded at outbid time")
	assert.Equal(t, 0, m.CountJit())

	_, err = m.ResolveJit(11)
	assert.ErrorIs(t, err, ErrNoSuchAuction)
}

func TestResolveJitNoBids(t *testing.T) {
	m := NewManager(logrus.New())
	m.OpenJit(11, minBid, t0)

	res, err := m.ResolveJit(11)
	require.NoError(t, err)
	assert.Nil(t, res.Winner)
}

func TestOpenAotOncePerSlot(t *testing.T) {
	m := NewManager(logrus.New())

	endsAt := t0.Add(35 * time.Second)

	a1, created := m.OpenAot(50, minBid, endsAt, t0)
	assert.True(t, created)

	a2, created := m.OpenAot(50, minBid, endsAt.Add(time.Hour), t0)
	assert.False(t, created)
	assert.Same(t, a1, a2)
	assert.Equal(t, endsAt, a2.EndsAt)
}

func TestSubmitAotEndedAtDeadline(t *testing.T) {
	m := NewManager(logrus.New())

	endsAt := t0.Add(35 * time.Second)
	m.OpenAot(50, minBid, endsAt, t0)

	// A bid arriving exactly at ends_at is rejected.
	err := m.SubmitAot(50, bid("a", 2_000_000, "tx-1", endsAt), endsAt)
	assert.ErrorIs(t, err, ErrAuctionEnded)

	err = m.SubmitAot(50, bid("a", 2_000_000, "tx-1", t0), t0)
	assert.NoError(t, err)
}

func TestSubmitAotBelowMinimum(t *testing.T) {
	m := NewManager(logrus.New())
	m.OpenAot(50, minBid, t0.Add(35*time.Second), t0)

	err := m.SubmitAot(50, bid("a", 999_999, "tx-1", t0), t0)
	assert.ErrorIs(t, err, ErrBelowMinimum)

	err = m.SubmitAot(50, bid("a", 1_000_000, "tx-2", t0), t0)
	assert.NoError(t, err, "bid exactly at minimum is accepted")
}

func TestResolveAotHighestWinsEarliestTie(t *testing.T) {
	m := NewManager(logrus.New())
	m.OpenAot(50, minBid, t0.Add(35*time.Second), t0)

	require.NoError(t, m.SubmitAot(50, bid("a", 2_000_000, "tx-a", t0), t0))
	require.NoError(t, m.SubmitAot(50, bid("b", 2_000_000, "tx-b", t0.Add(time.Second)), t0.Add(time.Second)))

	res, err := m.ResolveAot(50)
	require.NoError(t, err)
	require.NotNil(t, res.Winner)
	assert.Equal(t, "a", res.Winner.Session, "earliest of equal bids wins")
	require.Len(t, res.Losers, 1)
	assert.Equal(t, "b", res.Losers[0].Session)
	assert.Equal(t, 0, m.CountAot())
}

func TestResolveAotSameSessionLowerBidIsLoser(t *testing.T) {
	m := NewManager(logrus.New())
	m.OpenAot(50, minBid, t0.Add(35*time.Second), t0)

	require.NoError(t, m.SubmitAot(50, bid("a", 1_000_000, "tx-a1", t0), t0))
	require.NoError(t, m.SubmitAot(50, bid("b", 1_500_000, "tx-b", t0.Add(time.Second)), t0.Add(time.Second)))
	require.NoError(t, m.SubmitAot(50, bid("a", 2_000_000, "tx-a2", t0.Add(2*time.Second)), t0.Add(2*time.Second)))

	res, err := m.ResolveAot(50)
	require.NoError(t, err)
	require.NotNil(t, res.Winner)
	assert.Equal(t, "tx-a2", res.Winner.TxID)

	// Both the rival bid and the winner's own lower bid are refunded.
	require.Len(t, res.Losers, 2)
	assert.Equal(t, "tx-a1", res.Losers[0].TxID)
	assert.Equal(t, "tx-b", res.Losers[1].TxID)
}

func TestReadyAotOrder(t *testing.T) {
	m := NewManager(logrus.New())

	now := t0.Add(40 * time.Second)

	// Ended by time.
	m.OpenAot(80, minBid, t0.Add(35*time.Second), t0)
	m.OpenAot(60, minBid, t0.Add(35*time.Second), t0)

	// Still running.
	m.OpenAot(70, minBid, now.Add(time.Hour), t0)

	// Imminent: slot equals the new current slot.
	m.OpenAot(51, minBid, now.Add(time.Hour), t0)

	ready := m.ReadyAot(51, now)
	require.Len(t, ready, 3)
	assert.EqualValues(t, 51, ready[0], "imminent slot resolves first")
	assert.EqualValues(t, 60, ready[1])
	assert.EqualValues(t, 80, ready[2])
}
