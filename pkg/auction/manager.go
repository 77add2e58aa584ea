package auction

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/raikusim/slotmarket/pkg/market"
	"github.com/raikusim/slotmarket/pkg/sol"
)

// Manager owns the active auction set: at most one JIT auction (keyed by the
// next slot) and any number of AoT auctions keyed by distinct future slots.
//
// Like the marketplace, the manager is a pure data structure with no
// internal locking; the coordinator serializes access.
type Manager struct {
	jit *JitAuction
	aot map[market.SlotNumber]*AotAuction
	log logrus.FieldLogger
}

// NewManager creates an empty auction manager.
func NewManager(log logrus.FieldLogger) *Manager {
	return &Manager{
		aot: make(map[market.SlotNumber]*AotAuction, 16),
		log: log.WithField("component", "auctions"),
	}
}

// Jit returns the active JIT auction, if any.
func (m *Manager) Jit() *JitAuction {
	return m.jit
}

// Aot returns the active AoT auction for the slot, if any.
func (m *Manager) Aot(slot market.SlotNumber) *AotAuction {
	return m.aot[slot]
}

// ActiveAot returns the active AoT auctions in ascending slot order.
func (m *Manager) ActiveAot() []*AotAuction {
	out := make([]*AotAuction, 0, len(m.aot))
	for _, a := range m.aot {
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].SlotNumber < out[j].SlotNumber
	})

	return out
}

// CountJit returns the number of active JIT auctions (0 or 1).
func (m *Manager) CountJit() int {
	if m.jit == nil {
		return 0
	}

	return 1
}

// CountAot returns the number of active AoT auctions.
func (m *Manager) CountAot() int {
	return len(m.aot)
}

// OpenJit creates the JIT auction for the slot if none exists. The call is
// idempotent: an existing auction for the same slot is returned unchanged.
// It returns whether the auction was newly created.
func (m *Manager) OpenJit(slot market.SlotNumber, minBid sol.Amount, now time.Time) (a *JitAuction, created bool) {
	if m.jit != nil && m.jit.SlotNumber == slot {
		return m.jit, false
	}

	m.jit = &JitAuction{
		SlotNumber: slot,
		MinBid:     minBid,
		CreatedAt:  now,
	}

	m.log.WithFields(logrus.Fields{
		"slot":    slot,
		"min_bid": minBid,
	}).Debug("JIT auction opened")

	return m.jit, true
}

// SubmitJit admits a bid to the JIT auction for the target slot. The outbid
// prior best, if any, is returned for the caller to refund.
func (m *Manager) SubmitJit(target market.SlotNumber, bid Bid) (outbid *Bid, err error) {
	if m.jit == nil {
		return nil, fmt.Errorf("%w: jit slot %d", ErrNoSuchAuction, target)
	}

	if m.jit.SlotNumber != target {
		return nil, fmt.Errorf("%w: jit auction is for slot %d, bid targets %d", ErrWrongSlot, m.jit.SlotNumber, target)
	}

	return m.jit.submit(bid)
}

// ResolveJit resolves and removes the JIT auction for the slot. JIT losers
// are always empty: outbid bidders were refunded at outbid time.
func (m *Manager) ResolveJit(slot market.SlotNumber) (Resolution, error) {
	if m.jit == nil || m.jit.SlotNumber != slot {
		return Resolution{}, fmt.Errorf("%w: jit slot %d", ErrNoSuchAuction, slot)
	}

	res := Resolution{
		SlotNumber: slot,
		Winner:     m.jit.Best,
	}
	m.jit = nil

	return res, nil
}

// OpenAot creates the AoT auction for the slot if none exists and returns
// whether it was newly created. The lead-time check is the coordinator's
// responsibility, since only it knows the current slot.
func (m *Manager) OpenAot(slot market.SlotNumber, minBid sol.Amount, endsAt, now time.Time) (a *AotAuction, created bool) {
	if existing, ok := m.aot[slot]; ok {
		return existing, false
	}

	a = &AotAuction{
		SlotNumber: slot,
		MinBid:     minBid,
		EndsAt:     endsAt,
		CreatedAt:  now,
	}
	m.aot[slot] = a

	m.log.WithFields(logrus.Fields{
		"slot":    slot,
		"min_bid": minBid,
		"ends_at": endsAt,
	}).Debug("AoT auction opened")

	return a, true
}

// SubmitAot admits a bid to the AoT auction for the slot.
func (m *Manager) SubmitAot(slot market.SlotNumber, bid Bid, now time.Time) error {
	a, ok := m.aot[slot]
	if !ok {
		return fmt.Errorf("%w: aot slot %d", ErrNoSuchAuction, slot)
	}

	return a.submit(bid, now)
}

// ResolveAot resolves and removes the AoT auction for the slot. The winner
// is the highest bid (earliest submission on ties); every other admitted bid
// is returned as a loser for refunding, including lower bids from the
// winning session.
func (m *Manager) ResolveAot(slot market.SlotNumber) (Resolution, error) {
	a, ok := m.aot[slot]
	if !ok {
		return Resolution{}, fmt.Errorf("%w: aot slot %d", ErrNoSuchAuction, slot)
	}

	winner := a.winner()

	res := Resolution{
		SlotNumber: slot,
		Winner:     winner,
	}

	for i := range a.Bids {
		if winner != nil && &a.Bids[i] == winner {
			continue
		}

		res.Losers = append(res.Losers, a.Bids[i])
	}

	a.HasEnded = true
	delete(m.aot, slot)

	return res, nil
}

// ReadyAot returns the slots of AoT auctions due for resolution, in
// ascending slot order: first the auction for the imminent slot (next ==
// slot), then every auction whose deadline has passed.
func (m *Manager) ReadyAot(next market.SlotNumber, now time.Time) []market.SlotNumber {
	var imminent, ended []market.SlotNumber

	for slot, a := range m.aot {
		switch {
		case slot == next:
			imminent = append(imminent, slot)
		case !now.Before(a.EndsAt):
			ended = append(ended, slot)
		}
	}

	sort.Slice(ended, func(i, j int) bool { return ended[i] < ended[j] })

	return append(imminent, ended...)
}
