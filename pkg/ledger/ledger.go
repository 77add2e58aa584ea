// Package ledger implements the minimal balance contract the auctions need:
// debit on bid, credit on refund.
package ledger

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/raikusim/slotmarket/pkg/sol"
)

// ErrInsufficientBalance is returned when a debit exceeds the balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Ledger is the debit/credit contract. Implementations are pure data
// structures; the coordinator serializes access.
type Ledger interface {
	// Debit removes amount from the session balance, failing with
	// ErrInsufficientBalance without any change if the balance is too low.
	Debit(session string, amount sol.Amount) error

	// Credit adds amount to the session balance.
	Credit(session string, amount sol.Amount)

	// Balance returns the session's current balance.
	Balance(session string) sol.Amount
}

// InMemory is a map-backed ledger. Sessions are granted the starting
// balance on first touch.
type InMemory struct {
	balances map[string]sol.Amount
	starting sol.Amount
	log      logrus.FieldLogger
}

// NewInMemory creates an in-memory ledger.
func NewInMemory(starting sol.Amount, log logrus.FieldLogger) *InMemory {
	return &InMemory{
		balances: make(map[string]sol.Amount, 32),
		starting: starting,
		log:      log.WithField("component", "ledger"),
	}
}

func (l *InMemory) touch(session string) sol.Amount {
	bal, ok := l.balances[session]
	if !ok {
		bal = l.starting
		l.balances[session] = bal
	}

	return bal
}

// Debit implements Ledger.
func (l *InMemory) Debit(session string, amount sol.Amount) error {
	bal := l.touch(session)
	if bal < amount {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, bal, amount)
	}

	l.balances[session] = bal - amount

	return nil
}

// Credit implements Ledger.
func (l *InMemory) Credit(session string, amount sol.Amount) {
	l.balances[session] = l.touch(session) + amount
}

// Balance implements Ledger. Untouched sessions report the starting balance
// without being materialized, so reads stay read-only.
func (l *InMemory) Balance(session string) sol.Amount {
	if bal, ok := l.balances[session]; ok {
		return bal
	}

	return l.starting
}

// Sessions returns the number of sessions that have touched the ledger.
func (l *InMemory) Sessions() int {
	return len(l.balances)
}

// Total returns the sum of all balances. Together with the amounts held by
// active auctions and the winning bids of reserved and filled slots this is
// conserved.
func (l *InMemory) Total() sol.Amount {
	var total sol.Amount
	for _, bal := range l.balances {
		total += bal
	}

	return total
}
