package api

import (
	"github.com/raikusim/slotmarket/pkg/market"
	"github.com/raikusim/slotmarket/pkg/sol"
)

// Response is the JSON envelope for every REST endpoint.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JitBidRequest is the body of POST /transactions/jit.
type JitBidRequest struct {
	SessionID    string     `json:"session_id,omitempty"`
	BidAmount    sol.Amount `json:"bid_amount"`
	ComputeUnits uint64     `json:"compute_units"`
	Data         string     `json:"data,omitempty"`
}

// AotBidRequest is the body of POST /transactions/aot.
type AotBidRequest struct {
	SessionID    string            `json:"session_id,omitempty"`
	SlotNumber   market.SlotNumber `json:"slot_number"`
	BidAmount    sol.Amount        `json:"bid_amount"`
	ComputeUnits uint64            `json:"compute_units"`
	Data         string            `json:"data,omitempty"`
}

// BidResponse is returned after a successful bid submission.
type BidResponse struct {
	TxID       string            `json:"transaction_id"`
	SlotNumber market.SlotNumber `json:"slot_number"`
}

// SessionResponse is returned by POST /sessions.
type SessionResponse struct {
	SessionID string     `json:"session_id"`
	Balance   sol.Amount `json:"balance"`
}
