// Package coordinator composes the marketplace, auctions, transaction store
// and ledger under a fixed lock order and drives the per-tick resolution.
//
// Lock order is marketplace -> auctions -> transactions -> ledger. Critical
// sections are short and never emit events; events produced during a
// multi-step operation are buffered and published only after every lock has
// been released, so subscribers never observe uncommitted state.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/raikusim/slotmarket/pkg/auction"
	"github.com/raikusim/slotmarket/pkg/config"
	"github.com/raikusim/slotmarket/pkg/events"
	"github.com/raikusim/slotmarket/pkg/ledger"
	"github.com/raikusim/slotmarket/pkg/market"
	"github.com/raikusim/slotmarket/pkg/sol"
	"github.com/raikusim/slotmarket/pkg/txstore"
)

// ErrCUOverflow is returned when a bid requests more compute units than a
// slot provides.
var ErrCUOverflow = errors.New("compute units exceed slot capacity")

// Coordinator is the sole entry point for cross-component mutations.
type Coordinator struct {
	cfg *config.Config

	baseFee     sol.Amount
	jitMinBid   sol.Amount
	aotDuration time.Duration
	aotMinLead  market.SlotNumber

	clk clock.Clock

	mktMu sync.RWMutex
	mkt   *market.Marketplace

	aucMu    sync.RWMutex
	auctions *auction.Manager

	txMu sync.RWMutex
	txs  *txstore.Store

	ledMu  sync.RWMutex
	ledger ledger.Ledger

	broadcaster *events.Broadcaster
	metrics     *Metrics
	log         logrus.FieldLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a coordinator with a freshly initialized marketplace window.
func New(cfg *config.Config, clk clock.Clock, led ledger.Ledger, metrics *Metrics, log logrus.FieldLogger) *Coordinator {
	baseFee := cfg.Marketplace.BaseFee()

	return &Coordinator{
		cfg:         cfg,
		baseFee:     baseFee,
		jitMinBid:   baseFee.MulRatio(cfg.Auction.JitPremiumNum, cfg.Auction.JitPremiumDen),
		aotDuration: time.Duration(cfg.Auction.AotDurationSec) * time.Second,
		aotMinLead:  market.SlotNumber(cfg.Auction.AotMinLeadSlots),
		clk:         clk,
		mkt: market.NewMarketplace(
			cfg.Marketplace.SlotWindow,
			time.Duration(cfg.Marketplace.SlotDurationMS)*time.Millisecond,
			baseFee,
			cfg.Marketplace.CUPerSlot,
			clk.Now(),
			log,
		),
		auctions:    auction.NewManager(log),
		txs:         txstore.NewStore(log),
		ledger:      led,
		broadcaster: events.NewBroadcaster(cfg.Events.BufferSize, log),
		metrics:     metrics,
		log:         log.WithField("component", "coordinator"),
	}
}

// Start begins the tick loop at the configured advance interval.
func (c *Coordinator) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	interval := time.Duration(c.cfg.Marketplace.AdvanceSlotIntervalMS) * time.Millisecond
	ticker := c.clk.Ticker(interval)

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Tick()
			}
		}
	}()

	c.log.WithField("interval", interval).Info("Coordinator started")
}

// Stop stops the tick loop and waits for it to exit.
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}

	c.wg.Wait()

	c.log.Info("Coordinator stopped")
}

// Subscribe attaches an event subscriber.
func (c *Coordinator) Subscribe() *events.Subscription {
	return c.broadcaster.Subscribe()
}

func (c *Coordinator) event(t events.Type, data any) *events.Event {
	return &events.Event{
		Type:      t,
		Timestamp: c.clk.Now().UnixMilli(),
		Data:      data,
	}
}

// BidReceipt is returned to the caller of a successful bid submission.
type BidReceipt struct {
	TxID string
	Slot market.SlotNumber
}

// SubmitJitBid submits a sealed first-price bid for the next slot.
//
// The ledger is debited up front; every later rejection credits the debit
// back, so a failed call leaves state unchanged.
func (c *Coordinator) SubmitJitBid(session string, amount sol.Amount, cu uint64, data string) (*BidReceipt, error) {
	if cu > c.cfg.Marketplace.CUPerSlot {
		return nil, fmt.Errorf("%w: %d > %d", ErrCUOverflow, cu, c.cfg.Marketplace.CUPerSlot)
	}

	now := c.clk.Now()

	c.ledMu.Lock()
	err := c.ledger.Debit(session, amount)
	c.ledMu.Unlock()

	if err != nil {
		c.metrics.BidsRejected.WithLabelValues("jit").Inc()
		return nil, err
	}

	txID := uuid.NewString()
	bid := auction.Bid{
		Session:     session,
		Amount:      amount,
		TxID:        txID,
		SubmittedAt: now,
	}

	// The target is read and the auction opened under both locks (in lock
	// order) so a concurrent tick cannot strand an auction keyed to a slot
	// that already passed.
	c.mktMu.RLock()
	c.aucMu.Lock()
	target := c.mkt.Current() + 1
	_, created := c.auctions.OpenJit(target, c.jitMinBid, now)
	outbid, err := c.auctions.SubmitJit(target, bid)
	c.aucMu.Unlock()
	c.mktMu.RUnlock()

	if err != nil {
		c.ledMu.Lock()
		c.ledger.Credit(session, amount)
		c.ledMu.Unlock()

		c.metrics.BidsRejected.WithLabelValues("jit").Inc()

		return nil, err
	}

	// Mark the slot as auctioned. The slot may already carry the state when
	// an earlier bid opened the auction.
	c.mktMu.Lock()
	if slotObj, gerr := c.mkt.Get(target); gerr == nil && slotObj.State.Kind == market.StateAvailable {
		if serr := c.mkt.SetState(target, market.JitAuction()); serr != nil {
			c.log.WithError(serr).WithField("slot", target).Error("Failed to mark slot in JIT auction")
		}
	}
	c.mktMu.Unlock()

	tx := &txstore.Transaction{
		ID:            txID,
		Sender:        session,
		InclusionType: txstore.InclusionType{Kind: txstore.InclusionJit},
		Status:        txstore.Pending(),
		ComputeUnits:  cu,
		PriorityFee:   amount,
		Data:          data,
		CreatedAt:     now,
	}

	c.txMu.Lock()
	if perr := c.txs.Put(tx); perr != nil {
		c.log.WithError(perr).WithField("tx", txID).Error("Failed to store transaction")
	}

	if outbid != nil {
		if serr := c.txs.SetStatus(outbid.TxID, txstore.Failed(txstore.FailReasonOutbid)); serr != nil {
			c.log.WithError(serr).WithField("tx", outbid.TxID).Error("Failed to fail outbid transaction")
		}
	}
	c.txMu.Unlock()

	if outbid != nil {
		c.ledMu.Lock()
		c.ledger.Credit(outbid.Session, outbid.Amount)
		c.ledMu.Unlock()

		c.metrics.RefundsTotal.Inc()
	}

	c.metrics.BidsSubmitted.WithLabelValues("jit").Inc()
	c.metrics.TransactionsTotal.Inc()

	var evs []*events.Event

	if created {
		evs = append(evs, c.event(events.TypeJitAuctionStarted, events.JitAuctionStarted{
			SlotNumber: target,
			MinBid:     c.jitMinBid,
		}))
	}

	if outbid != nil {
		evs = append(evs, c.event(events.TypeTransactionUpdated, events.TransactionUpdated{
			TxID:   outbid.TxID,
			Status: txstore.Failed(txstore.FailReasonOutbid),
		}))
	}

	evs = append(evs, c.event(events.TypeJitBidSubmitted, events.JitBidSubmitted{
		SlotNumber: target,
		Session:    session,
		Amount:     amount,
		TxID:       txID,
	}))

	c.broadcaster.PublishAll(evs)

	c.log.WithFields(logrus.Fields{
		"slot":    target,
		"session": session,
		"amount":  amount,
		"tx":      txID,
	}).Info("JIT bid submitted")

	return &BidReceipt{TxID: txID, Slot: target}, nil
}

// SubmitAotBid submits an open-auction bid for a future slot.
func (c *Coordinator) SubmitAotBid(session string, slot market.SlotNumber, amount sol.Amount, cu uint64, data string) (*BidReceipt, error) {
	if cu > c.cfg.Marketplace.CUPerSlot {
		return nil, fmt.Errorf("%w: %d > %d", ErrCUOverflow, cu, c.cfg.Marketplace.CUPerSlot)
	}

	now := c.clk.Now()

	c.mktMu.RLock()
	current := c.mkt.Current()
	slotObj, slotErr := c.mkt.Get(slot)

	var slotState market.StateKind
	if slotErr == nil {
		slotState = slotObj.State.Kind
	}
	c.mktMu.RUnlock()

	if slot < current+c.aotMinLead {
		c.metrics.BidsRejected.WithLabelValues("aot").Inc()
		return nil, fmt.Errorf("%w: slot %d, need >= %d", auction.ErrLeadTooSmall, slot, current+c.aotMinLead)
	}

	if slotErr != nil {
		c.metrics.BidsRejected.WithLabelValues("aot").Inc()
		return nil, slotErr
	}

	if slotState != market.StateAvailable && slotState != market.StateAotAuction {
		c.metrics.BidsRejected.WithLabelValues("aot").Inc()
		return nil, fmt.Errorf("%w: slot %d is %s", market.ErrInvalidTransition, slot, slotState)
	}

	c.ledMu.Lock()
	err := c.ledger.Debit(session, amount)
	c.ledMu.Unlock()

	if err != nil {
		c.metrics.BidsRejected.WithLabelValues("aot").Inc()
		return nil, err
	}

	txID := uuid.NewString()
	bid := auction.Bid{
		Session:     session,
		Amount:      amount,
		TxID:        txID,
		SubmittedAt: now,
	}

	endsAt := now.Add(c.aotDuration)

	c.aucMu.Lock()
	opened, created := c.auctions.OpenAot(slot, c.baseFee, endsAt, now)
	endsAt = opened.EndsAt
	err = c.auctions.SubmitAot(slot, bid, now)

	if err != nil && created {
		// The auction was opened solely for this rejected bid; discard it.
		_, _ = c.auctions.ResolveAot(slot)
		created = false
	}
	c.aucMu.Unlock()

	if err != nil {
		c.ledMu.Lock()
		c.ledger.Credit(session, amount)
		c.ledMu.Unlock()

		c.metrics.BidsRejected.WithLabelValues("aot").Inc()

		return nil, err
	}

	if created {
		c.mktMu.Lock()
		if serr := c.mkt.SetState(slot, market.AotAuction(endsAt)); serr != nil {
			c.log.WithError(serr).WithField("slot", slot).Error("Failed to mark slot in AoT auction")
		}
		c.mktMu.Unlock()
	}

	tx := &txstore.Transaction{
		ID:            txID,
		Sender:        session,
		InclusionType: txstore.InclusionType{Kind: txstore.InclusionAot, ReservedSlot: slot},
		Status:        txstore.Pending(),
		ComputeUnits:  cu,
		PriorityFee:   amount,
		Data:          data,
		CreatedAt:     now,
	}

	c.txMu.Lock()
	if perr := c.txs.Put(tx); perr != nil {
		c.log.WithError(perr).WithField("tx", txID).Error("Failed to store transaction")
	}
	c.txMu.Unlock()

	c.metrics.BidsSubmitted.WithLabelValues("aot").Inc()
	c.metrics.TransactionsTotal.Inc()

	var evs []*events.Event

	if created {
		evs = append(evs, c.event(events.TypeAotAuctionStarted, events.AotAuctionStarted{
			SlotNumber: slot,
			MinBid:     c.baseFee,
			EndsAt:     endsAt,
		}))
	}

	evs = append(evs, c.event(events.TypeAotBidSubmitted, events.AotBidSubmitted{
		SlotNumber: slot,
		Session:    session,
		Amount:     amount,
		TxID:       txID,
	}))

	c.broadcaster.PublishAll(evs)

	c.log.WithFields(logrus.Fields{
		"slot":    slot,
		"session": session,
		"amount":  amount,
		"tx":      txID,
	}).Info("AoT bid submitted")

	return &BidReceipt{TxID: txID, Slot: slot}, nil
}
