package txstore

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raikusim/slotmarket/pkg/sol"
)

func newTx(id, sender string, createdAt time.Time) *Transaction {
	return &Transaction{
		ID:            id,
		Sender:        sender,
		InclusionType: InclusionType{Kind: InclusionJit},
		Status:        Pending(),
		ComputeUnits:  200_000,
		PriorityFee:   sol.FromLamports(2_000_000),
		CreatedAt:     createdAt,
	}
}

func TestPutDuplicate(t *testing.T) {
	s := NewStore(logrus.New())

	require.NoError(t, s.Put(newTx("tx-1", "a", time.Unix(1, 0))))

	err := s.Put(newTx("tx-1", "a", time.Unix(2, 0)))
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, 1, s.Len())
}

func TestGetMissing(t *testing.T) {
	s := NewStore(logrus.New())

	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNoSuchTx)
}

func TestStatusLifecycle(t *testing.T) {
	s := NewStore(logrus.New())
	require.NoError(t, s.Put(newTx("tx-1", "a", time.Unix(1, 0))))

	// Pending -> Included skips AuctionWon: forbidden.
	err := s.SetStatus("tx-1", Included(5, time.Unix(10, 0)))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, s.SetStatus("tx-1", AuctionWon(5)))
	require.NoError(t, s.SetStatus("tx-1", Included(5, time.Unix(10, 0))))

	tx, err := s.Get("tx-1")
	require.NoError(t, err)
	require.NotNil(t, tx.IncludedAt)
	assert.Equal(t, time.Unix(10, 0), *tx.IncludedAt)

	// Included is terminal.
	err = s.SetStatus("tx-1", Failed(FailReasonExpired))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStatusFailedPaths(t *testing.T) {
	s := NewStore(logrus.New())

	require.NoError(t, s.Put(newTx("tx-1", "a", time.Unix(1, 0))))
	require.NoError(t, s.SetStatus("tx-1", Failed(FailReasonOutbid)))

	require.NoError(t, s.Put(newTx("tx-2", "a", time.Unix(1, 0))))
	require.NoError(t, s.SetStatus("tx-2", AuctionWon(5)))
	require.NoError(t, s.SetStatus("tx-2", Failed(FailReasonExpired)))

	// Failed is terminal.
	err := s.SetStatus("tx-1", AuctionWon(6))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestListOrderingAndPagination(t *testing.T) {
	s := NewStore(logrus.New())

	// Two share a timestamp to exercise the id tie-breaker.
	require.NoError(t, s.Put(newTx("tx-b", "a", time.Unix(5, 0))))
	require.NoError(t, s.Put(newTx("tx-a", "a", time.Unix(5, 0))))
	require.NoError(t, s.Put(newTx("tx-c", "b", time.Unix(9, 0))))
	require.NoError(t, s.Put(newTx("tx-d", "b", time.Unix(1, 0))))

	all := s.ListAll(0, 10)
	require.Len(t, all, 4)
	assert.Equal(t, "tx-c", all[0].ID)
	assert.Equal(t, "tx-a", all[1].ID)
	assert.Equal(t, "tx-b", all[2].ID)
	assert.Equal(t, "tx-d", all[3].ID)

	page := s.ListAll(1, 2)
	require.Len(t, page, 2)
	assert.Equal(t, "tx-b", page[0].ID)
	assert.Equal(t, "tx-d", page[1].ID)

	assert.Empty(t, s.ListAll(5, 2))
}

func TestListBySession(t *testing.T) {
	s := NewStore(logrus.New())

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Put(newTx(fmt.Sprintf("tx-%d", i), "a", time.Unix(int64(i), 0))))
	}

	require.NoError(t, s.Put(newTx("tx-other", "b", time.Unix(9, 0))))

	txs := s.ListBySession("a", 0, 10)
	require.Len(t, txs, 3)
	assert.Equal(t, "tx-2", txs[0].ID)
	assert.Equal(t, 3, s.CountBySession("a"))
	assert.Equal(t, 1, s.CountBySession("b"))
	assert.Empty(t, s.ListBySession("nobody", 0, 10))
}

func TestTxStatusJSON(t *testing.T) {
	data, err := json.Marshal(Pending())
	require.NoError(t, err)
	assert.Equal(t, `"Pending"`, string(data))

	data, err = json.Marshal(AuctionWon(11))
	require.NoError(t, err)
	assert.JSONEq(t, `{"AuctionWon":{"slot":11}}`, string(data))

	var status TxStatus
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, StatusAuctionWon, status.Kind)
	assert.EqualValues(t, 11, status.Slot)

	data, err = json.Marshal(Failed(FailReasonOutbid))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Failed":{"reason":"Outbid"}}`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`"Bogus"`), &status))
}
