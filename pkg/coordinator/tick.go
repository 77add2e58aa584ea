package coordinator

import (
	"github.com/sirupsen/logrus"

	"github.com/raikusim/slotmarket/pkg/auction"
	"github.com/raikusim/slotmarket/pkg/events"
	"github.com/raikusim/slotmarket/pkg/market"
	"github.com/raikusim/slotmarket/pkg/txstore"
)

// Tick advances the marketplace by one slot and resolves due auctions.
//
// Order of operations: fill the reserved current slot, advance the window
// (refunding a reserved-but-unfilled retiree), then resolve the JIT auction
// for the new current slot, AoT auctions keyed by it, and AoT auctions whose
// deadline passed. Events are published after all state is committed, in the
// order: SlotAdvanced, per-auction resolution events, fill/expiry
// transaction updates, SlotsUpdated, MarketplaceStats.
func (c *Coordinator) Tick() {
	now := c.clk.Now()

	var (
		resolutionEvs []*events.Event
		txUpdateEvs   []*events.Event
	)

	// Step 1: fill the current slot if it is reserved.
	c.mktMu.RLock()
	current := c.mkt.Current()
	curSlot, _ := c.mkt.Get(current)

	var fillTxID string
	if curSlot != nil && curSlot.State.Kind == market.StateReserved {
		fillTxID = curSlot.State.TxID
	}
	c.mktMu.RUnlock()

	if fillTxID != "" {
		included := txstore.Included(current, now)

		var cu uint64

		c.txMu.Lock()
		tx, err := c.txs.Get(fillTxID)
		if err == nil {
			err = c.txs.SetStatus(fillTxID, included)
			cu = tx.ComputeUnits
		}
		c.txMu.Unlock()

		if err != nil {
			c.log.WithError(err).WithField("tx", fillTxID).Error("Failed to include winning transaction")
		} else {
			c.mktMu.Lock()
			if serr := c.mkt.SetState(current, market.Filled(fillTxID)); serr != nil {
				c.log.WithError(serr).WithField("slot", current).Error("Failed to fill slot")
			} else if uerr := c.mkt.RecordUsage(current, cu); uerr != nil {
				c.log.WithError(uerr).WithField("slot", current).Warn("Compute usage not recorded")
			}
			c.mktMu.Unlock()

			txUpdateEvs = append(txUpdateEvs, c.event(events.TypeTransactionUpdated, events.TransactionUpdated{
				TxID:   fillTxID,
				Status: included,
			}))

			c.log.WithFields(logrus.Fields{
				"slot": current,
				"tx":   fillTxID,
			}).Info("Slot filled")
		}
	}

	// Step 2: advance the window. The retired slot's pre-retirement state
	// decides whether a reserved winner must be refunded.
	c.mktMu.Lock()
	var prior market.SlotState

	if retiree, err := c.mkt.Get(current); err == nil {
		prior = retiree.State
	}

	c.mkt.Advance(now)
	next := c.mkt.Current()

	// Take the auctions lock before releasing the marketplace (lock order
	// holds) so no JIT bid can target next+1 and replace the auction for
	// next before step 3 resolves it.
	c.aucMu.Lock()
	c.mktMu.Unlock()

	c.metrics.CurrentSlot.Set(float64(next))

	if prior.Kind == market.StateReserved {
		// Winner funds are kept only on execution.
		failed := txstore.Failed(txstore.FailReasonExpired)

		c.txMu.Lock()
		if serr := c.txs.SetStatus(prior.TxID, failed); serr != nil {
			c.log.WithError(serr).WithField("tx", prior.TxID).Error("Failed to expire reserved transaction")
		}
		c.txMu.Unlock()

		c.ledMu.Lock()
		c.ledger.Credit(prior.WinnerSession, prior.WinningBid)
		c.ledMu.Unlock()

		c.metrics.RefundsTotal.Inc()

		txUpdateEvs = append(txUpdateEvs, c.event(events.TypeTransactionUpdated, events.TransactionUpdated{
			TxID:   prior.TxID,
			Status: failed,
		}))

		c.log.WithFields(logrus.Fields{
			"slot":    current,
			"session": prior.WinnerSession,
			"amount":  prior.WinningBid,
		}).Warn("Reserved slot expired unfilled, winner refunded")
	}

	// Step 3: resolve due auctions for the new current slot. The auctions
	// lock has been held since step 2.
	var resolutions []resolved

	if jit := c.auctions.Jit(); jit != nil && jit.SlotNumber == next {
		if res, err := c.auctions.ResolveJit(next); err == nil {
			resolutions = append(resolutions, resolved{kind: "jit", res: res})
		}
	}

	for _, slot := range c.auctions.ReadyAot(next, now) {
		if res, err := c.auctions.ResolveAot(slot); err == nil {
			resolutions = append(resolutions, resolved{kind: "aot", res: res})
		}
	}
	c.aucMu.Unlock()

	for _, r := range resolutions {
		resolutionEvs = append(resolutionEvs, c.applyResolution(r)...)
	}

	// Step 4: publish, preserving the documented order.
	evs := make([]*events.Event, 0, 4+len(resolutionEvs)+len(txUpdateEvs))

	evs = append(evs, c.event(events.TypeSlotAdvanced, events.SlotAdvanced{CurrentSlot: next}))
	evs = append(evs, resolutionEvs...)
	evs = append(evs, txUpdateEvs...)
	evs = append(evs, c.event(events.TypeSlotsUpdated, events.SlotsUpdated{Slots: c.WindowSnapshot()}))
	evs = append(evs, c.event(events.TypeMarketplaceStats, c.Stats()))

	c.broadcaster.PublishAll(evs)
}

type resolved struct {
	kind string
	res  auction.Resolution
}

// applyResolution applies one auction outcome: reserve the slot for the
// winner, refund every loser, expire the slot when nobody bid. The returned
// events already include the resolution event followed by its transaction
// updates.
func (c *Coordinator) applyResolution(r resolved) []*events.Event {
	res := r.res
	slot := res.SlotNumber

	var evs []*events.Event

	var winner *events.Winner
	if res.Winner != nil {
		winner = &events.Winner{
			Session:    res.Winner.Session,
			TxID:       res.Winner.TxID,
			WinningBid: res.Winner.Amount,
		}
	}

	if r.kind == "jit" {
		evs = append(evs, c.event(events.TypeJitAuctionResolved, events.JitAuctionResolved{
			SlotNumber: slot,
			Winner:     winner,
		}))
	} else {
		evs = append(evs, c.event(events.TypeAotAuctionResolved, events.AotAuctionResolved{
			SlotNumber: slot,
			Winner:     winner,
			LoserCount: len(res.Losers),
		}))
	}

	c.metrics.AuctionsResolved.WithLabelValues(r.kind).Inc()

	if res.Winner == nil {
		c.mktMu.Lock()
		if serr := c.mkt.SetState(slot, market.Expired()); serr != nil {
			c.log.WithError(serr).WithField("slot", slot).Error("Failed to expire unwon slot")
		}
		c.mktMu.Unlock()

		c.log.WithFields(logrus.Fields{
			"slot":    slot,
			"auction": r.kind,
		}).Info("Auction resolved without bids")
	} else {
		c.mktMu.Lock()
		serr := c.mkt.SetState(slot, market.Reserved(res.Winner.Session, res.Winner.TxID, res.Winner.Amount))
		c.mktMu.Unlock()

		won := txstore.AuctionWon(slot)

		if serr != nil {
			// The slot cannot take the reservation; treat the winner as a
			// loser so no funds are lost.
			c.log.WithError(serr).WithField("slot", slot).Error("Failed to reserve slot for winner")

			res.Losers = append([]auction.Bid{*res.Winner}, res.Losers...)
		} else {
			c.txMu.Lock()
			txErr := c.txs.SetStatus(res.Winner.TxID, won)
			c.txMu.Unlock()

			if txErr != nil {
				c.log.WithError(txErr).WithField("tx", res.Winner.TxID).Error("Failed to mark winning transaction")
			}

			evs = append(evs, c.event(events.TypeTransactionUpdated, events.TransactionUpdated{
				TxID:   res.Winner.TxID,
				Status: won,
			}))

			c.log.WithFields(logrus.Fields{
				"slot":    slot,
				"auction": r.kind,
				"session": res.Winner.Session,
				"amount":  res.Winner.Amount,
				"losers":  len(res.Losers),
			}).Info("Auction resolved")
		}
	}

	// Refund losers in submission order.
	failed := txstore.Failed(txstore.FailReasonOutbid)

	for _, loser := range res.Losers {
		c.txMu.Lock()
		if serr := c.txs.SetStatus(loser.TxID, failed); serr != nil {
			c.log.WithError(serr).WithField("tx", loser.TxID).Error("Failed to fail losing transaction")
		}
		c.txMu.Unlock()

		c.ledMu.Lock()
		c.ledger.Credit(loser.Session, loser.Amount)
		c.ledMu.Unlock()

		c.metrics.RefundsTotal.Inc()

		evs = append(evs, c.event(events.TypeTransactionUpdated, events.TransactionUpdated{
			TxID:   loser.TxID,
			Status: failed,
		}))
	}

	return evs
}
