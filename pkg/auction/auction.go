// Package auction implements the JIT and AoT auction disciplines.
//
// A JIT auction is a sealed first-price auction for the next slot: only the
// best bid is held, and an outbid bidder is refunded immediately. An AoT
// auction is an open English-style auction for a future slot: every admitted
// bid is held until resolution, when all non-winning bids are refunded.
package auction

import (
	"errors"
	"time"

	"github.com/raikusim/slotmarket/pkg/market"
	"github.com/raikusim/slotmarket/pkg/sol"
)

var (
	// ErrBelowMinimum is returned when a bid is below the auction minimum.
	ErrBelowMinimum = errors.New("bid below auction minimum")

	// ErrWrongSlot is returned when a JIT bid targets a slot other than the
	// one the active JIT auction is for.
	ErrWrongSlot = errors.New("bid targets wrong slot")

	// ErrAuctionEnded is returned when an AoT bid arrives at or after the
	// auction deadline.
	ErrAuctionEnded = errors.New("auction has ended")

	// ErrLeadTooSmall is returned when an AoT auction targets a slot too
	// close to the current slot.
	ErrLeadTooSmall = errors.New("target slot lead too small")

	// ErrNoSuchAuction is returned when no auction exists for the slot.
	ErrNoSuchAuction = errors.New("no such auction")
)

// Bid is a single admitted bid. Bids are immutable once admitted.
type Bid struct {
	Session     string     `json:"session"`
	Amount      sol.Amount `json:"amount"`
	TxID        string     `json:"tx_id"`
	SubmittedAt time.Time  `json:"submitted_at"`
}

// JitAuction is the sealed first-price auction for the next slot.
type JitAuction struct {
	SlotNumber market.SlotNumber `json:"slot_number"`
	MinBid     sol.Amount        `json:"min_bid"`
	Best       *Bid              `json:"best,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// submit admits the bid iff it strictly exceeds the current best (or there
// is none). It returns the outbid prior best, which the caller must refund.
func (a *JitAuction) submit(bid Bid) (outbid *Bid, err error) {
	if bid.Amount < a.MinBid {
		return nil, ErrBelowMinimum
	}

	if a.Best != nil && bid.Amount <= a.Best.Amount {
		// Strict comparison: the earlier of two equal bids wins.
		return nil, ErrBelowMinimum
	}

	outbid = a.Best
	a.Best = &bid

	return outbid, nil
}

// AotAuction is the open English-style auction for a future slot.
type AotAuction struct {
	SlotNumber market.SlotNumber `json:"slot_number"`
	MinBid     sol.Amount        `json:"min_bid"`
	Bids       []Bid             `json:"bids"`
	EndsAt     time.Time         `json:"ends_at"`
	HasEnded   bool              `json:"has_ended"`
	CreatedAt  time.Time         `json:"created_at"`
}

// submit appends the bid to the ordered bid list. No refunds happen here;
// losers are enumerated at resolution.
func (a *AotAuction) submit(bid Bid, now time.Time) error {
	if a.HasEnded || !now.Before(a.EndsAt) {
		return ErrAuctionEnded
	}

	if bid.Amount < a.MinBid {
		return ErrBelowMinimum
	}

	a.Bids = append(a.Bids, bid)

	return nil
}

// winner returns the highest bid, ties broken by earliest submission.
// Submission order is insertion order, so the first maximum wins.
func (a *AotAuction) winner() *Bid {
	var best *Bid

	for i := range a.Bids {
		if best == nil || a.Bids[i].Amount > best.Amount {
			best = &a.Bids[i]
		}
	}

	return best
}

// Resolution is the outcome of resolving an auction. Winner is nil when no
// bids were admitted. Losers holds every admitted bid that must be refunded,
// including lower bids by the winning session.
type Resolution struct {
	SlotNumber market.SlotNumber
	Winner     *Bid
	Losers     []Bid
}
