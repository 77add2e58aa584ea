package coordinator

import (
	"github.com/raikusim/slotmarket/pkg/auction"
	"github.com/raikusim/slotmarket/pkg/events"
	"github.com/raikusim/slotmarket/pkg/market"
	"github.com/raikusim/slotmarket/pkg/sol"
	"github.com/raikusim/slotmarket/pkg/txstore"
)

// CurrentSlot returns the current slot number.
func (c *Coordinator) CurrentSlot() market.SlotNumber {
	c.mktMu.RLock()
	defer c.mktMu.RUnlock()

	return c.mkt.Current()
}

// GetSlot returns a copy of the slot, or market.ErrNoSuchSlot.
func (c *Coordinator) GetSlot(n market.SlotNumber) (*market.Slot, error) {
	c.mktMu.RLock()
	defer c.mktMu.RUnlock()

	slot, err := c.mkt.Get(n)
	if err != nil {
		return nil, err
	}

	cp := *slot

	return &cp, nil
}

// WindowSnapshot returns copies of the tracked slots in ascending order.
func (c *Coordinator) WindowSnapshot() []*market.Slot {
	c.mktMu.RLock()
	defer c.mktMu.RUnlock()

	window := c.mkt.Window()

	out := make([]*market.Slot, 0, len(window))
	for _, s := range window {
		cp := *s
		out = append(out, &cp)
	}

	return out
}

// JitAuction returns a copy of the active JIT auction, if any.
func (c *Coordinator) JitAuction() *auction.JitAuction {
	c.aucMu.RLock()
	defer c.aucMu.RUnlock()

	jit := c.auctions.Jit()
	if jit == nil {
		return nil
	}

	cp := *jit

	if jit.Best != nil {
		best := *jit.Best
		cp.Best = &best
	}

	return &cp
}

// AotAuctions returns copies of the active AoT auctions in slot order.
func (c *Coordinator) AotAuctions() []*auction.AotAuction {
	c.aucMu.RLock()
	defer c.aucMu.RUnlock()

	active := c.auctions.ActiveAot()

	out := make([]*auction.AotAuction, 0, len(active))

	for _, a := range active {
		cp := *a
		cp.Bids = append([]auction.Bid(nil), a.Bids...)
		out = append(out, &cp)
	}

	return out
}

// GetTransaction returns a copy of the transaction, or txstore.ErrNoSuchTx.
func (c *Coordinator) GetTransaction(id string) (*txstore.Transaction, error) {
	c.txMu.RLock()
	defer c.txMu.RUnlock()

	tx, err := c.txs.Get(id)
	if err != nil {
		return nil, err
	}

	cp := *tx

	return &cp, nil
}

func copyTxs(txs []*txstore.Transaction) []*txstore.Transaction {
	out := make([]*txstore.Transaction, 0, len(txs))
	for _, tx := range txs {
		cp := *tx
		out = append(out, &cp)
	}

	return out
}

// ListTransactionsBySession returns the session's transactions, newest first.
func (c *Coordinator) ListTransactionsBySession(session string, page, limit int) []*txstore.Transaction {
	c.txMu.RLock()
	defer c.txMu.RUnlock()

	return copyTxs(c.txs.ListBySession(session, page, limit))
}

// ListTransactions returns all transactions, newest first.
func (c *Coordinator) ListTransactions(page, limit int) []*txstore.Transaction {
	c.txMu.RLock()
	defer c.txMu.RUnlock()

	return copyTxs(c.txs.ListAll(page, limit))
}

// Balance returns the session's ledger balance.
func (c *Coordinator) Balance(session string) sol.Amount {
	c.ledMu.RLock()
	defer c.ledMu.RUnlock()

	return c.ledger.Balance(session)
}

// Stats returns the aggregate marketplace counters.
func (c *Coordinator) Stats() events.MarketplaceStats {
	c.mktMu.RLock()
	current := c.mkt.Current()
	c.mktMu.RUnlock()

	c.aucMu.RLock()
	jit := c.auctions.CountJit()
	aot := c.auctions.CountAot()
	c.aucMu.RUnlock()

	c.txMu.RLock()
	total := c.txs.Len()
	c.txMu.RUnlock()

	return events.MarketplaceStats{
		CurrentSlot:       current,
		ActiveJitAuctions: jit,
		ActiveAotAuctions: aot,
		TotalTransactions: total,
	}
}
