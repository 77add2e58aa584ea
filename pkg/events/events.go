// Package events defines the typed marketplace events and their fan-out to
// subscribers.
package events

import (
	"time"

	"github.com/raikusim/slotmarket/pkg/market"
	"github.com/raikusim/slotmarket/pkg/sol"
	"github.com/raikusim/slotmarket/pkg/txstore"
)

// Type identifies an event payload.
type Type string

const (
	TypeSlotAdvanced       Type = "SlotAdvanced"
	TypeSlotsUpdated       Type = "SlotsUpdated"
	TypeJitAuctionStarted  Type = "JitAuctionStarted"
	TypeAotAuctionStarted  Type = "AotAuctionStarted"
	TypeJitBidSubmitted    Type = "JitBidSubmitted"
	TypeAotBidSubmitted    Type = "AotBidSubmitted"
	TypeJitAuctionResolved Type = "JitAuctionResolved"
	TypeAotAuctionResolved Type = "AotAuctionResolved"
	TypeTransactionUpdated Type = "TransactionUpdated"
	TypeMarketplaceStats   Type = "MarketplaceStats"
)

// Event is the wrapper delivered to subscribers and serialized on the wire.
type Event struct {
	Type      Type  `json:"type"`
	Timestamp int64 `json:"timestamp"`
	Data      any   `json:"data"`
}

// SlotAdvanced is emitted once per tick after the slot counter moves.
type SlotAdvanced struct {
	CurrentSlot market.SlotNumber `json:"current_slot"`
}

// SlotsUpdated carries a snapshot of the tracked window.
type SlotsUpdated struct {
	Slots []*market.Slot `json:"slots"`
}

// JitAuctionStarted is emitted when a JIT auction opens.
type JitAuctionStarted struct {
	SlotNumber market.SlotNumber `json:"slot_number"`
	MinBid     sol.Amount        `json:"min_bid"`
}

// AotAuctionStarted is emitted when an AoT auction opens.
type AotAuctionStarted struct {
	SlotNumber market.SlotNumber `json:"slot_number"`
	MinBid     sol.Amount        `json:"min_bid"`
	EndsAt     time.Time         `json:"ends_at"`
}

// JitBidSubmitted is emitted when a JIT bid is admitted.
type JitBidSubmitted struct {
	SlotNumber market.SlotNumber `json:"slot_number"`
	Session    string            `json:"session"`
	Amount     sol.Amount        `json:"amount"`
	TxID       string            `json:"tx_id"`
}

// AotBidSubmitted is emitted when an AoT bid is admitted.
type AotBidSubmitted struct {
	SlotNumber market.SlotNumber `json:"slot_number"`
	Session    string            `json:"session"`
	Amount     sol.Amount        `json:"amount"`
	TxID       string            `json:"tx_id"`
}

// Winner describes a winning bid in a resolution event.
type Winner struct {
	Session    string     `json:"session"`
	TxID       string     `json:"tx_id"`
	WinningBid sol.Amount `json:"winning_bid"`
}

// JitAuctionResolved is emitted when the JIT auction resolves. Winner is nil
// when no bids were admitted.
type JitAuctionResolved struct {
	SlotNumber market.SlotNumber `json:"slot_number"`
	Winner     *Winner           `json:"winner,omitempty"`
}

// AotAuctionResolved is emitted when an AoT auction resolves.
type AotAuctionResolved struct {
	SlotNumber market.SlotNumber `json:"slot_number"`
	Winner     *Winner           `json:"winner,omitempty"`
	LoserCount int               `json:"loser_count"`
}

// TransactionUpdated is emitted when a transaction changes status.
type TransactionUpdated struct {
	TxID   string          `json:"tx_id"`
	Status txstore.TxStatus `json:"status"`
}

// MarketplaceStats is emitted periodically with aggregate counters.
type MarketplaceStats struct {
	CurrentSlot       market.SlotNumber `json:"current_slot"`
	ActiveJitAuctions int               `json:"active_jit_auctions"`
	ActiveAotAuctions int               `json:"active_aot_auctions"`
	TotalTransactions int               `json:"total_transactions"`
}
