package txstore

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

var (
	// ErrDuplicate is returned when inserting a transaction whose id exists.
	ErrDuplicate = errors.New("duplicate transaction id")

	// ErrNoSuchTx is returned when the transaction id is unknown.
	ErrNoSuchTx = errors.New("no such transaction")

	// ErrInvalidTransition is returned for status changes the lifecycle
	// forbids.
	ErrInvalidTransition = errors.New("invalid transaction status transition")
)

// Store owns transaction records keyed by id, with a per-session index.
//
// The store is a pure data structure; the coordinator serializes access.
type Store struct {
	byID      map[string]*Transaction
	bySession map[string][]string
	log       logrus.FieldLogger
}

// NewStore creates an empty transaction store.
func NewStore(log logrus.FieldLogger) *Store {
	return &Store{
		byID:      make(map[string]*Transaction, 128),
		bySession: make(map[string][]string, 32),
		log:       log.WithField("component", "txstore"),
	}
}

// Put inserts the transaction. Fails with ErrDuplicate if the id exists.
func (s *Store) Put(tx *Transaction) error {
	if _, ok := s.byID[tx.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, tx.ID)
	}

	s.byID[tx.ID] = tx
	s.bySession[tx.Sender] = append(s.bySession[tx.Sender], tx.ID)

	return nil
}

// Get returns the transaction with the given id, or ErrNoSuchTx.
func (s *Store) Get(id string) (*Transaction, error) {
	tx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchTx, id)
	}

	return tx, nil
}

// Len returns the number of stored transactions.
func (s *Store) Len() int {
	return len(s.byID)
}

// statusAllowed implements the monotone status lifecycle:
// Pending -> AuctionWon -> Included; Pending -> Failed; AuctionWon -> Failed.
func statusAllowed(from, to StatusKind) bool {
	switch from {
	case StatusPending:
		return to == StatusAuctionWon || to == StatusFailed
	case StatusAuctionWon:
		return to == StatusIncluded || to == StatusFailed
	default:
		return false
	}
}

// SetStatus transitions the transaction to the new status, enforcing
// monotonicity. Included transactions also record their inclusion time.
func (s *Store) SetStatus(id string, status TxStatus) error {
	tx, err := s.Get(id)
	if err != nil {
		return err
	}

	if !statusAllowed(tx.Status.Kind, status.Kind) {
		return fmt.Errorf("%w: tx %s %s -> %s", ErrInvalidTransition, id, tx.Status.Kind, status.Kind)
	}

	tx.Status = status

	if status.Kind == StatusIncluded {
		t := status.ExecutionTime
		tx.IncludedAt = &t
	}

	return nil
}

// sortStable orders transactions by created_at descending, id ascending for
// ties, so pagination is stable.
func sortStable(txs []*Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.After(txs[j].CreatedAt)
		}

		return txs[i].ID < txs[j].ID
	})
}

func paginate(txs []*Transaction, page, limit int) []*Transaction {
	if limit <= 0 {
		return nil
	}

	start := page * limit
	if start >= len(txs) {
		return nil
	}

	end := start + limit
	if end > len(txs) {
		end = len(txs)
	}

	return txs[start:end]
}

// ListBySession returns the session's transactions, newest first.
func (s *Store) ListBySession(session string, page, limit int) []*Transaction {
	ids := s.bySession[session]

	txs := make([]*Transaction, 0, len(ids))
	for _, id := range ids {
		txs = append(txs, s.byID[id])
	}

	sortStable(txs)

	return paginate(txs, page, limit)
}

// CountBySession returns how many transactions the session has submitted.
func (s *Store) CountBySession(session string) int {
	return len(s.bySession[session])
}

// ListAll returns all transactions, newest first.
func (s *Store) ListAll(page, limit int) []*Transaction {
	txs := make([]*Transaction, 0, len(s.byID))
	for _, tx := range s.byID {
		txs = append(txs, tx)
	}

	sortStable(txs)

	return paginate(txs, page, limit)
}
