// Package market implements the rolling window of blockspace slots and their
// lifecycle state machine.
package market

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/raikusim/slotmarket/pkg/sol"
)

// SlotNumber identifies a slot. Slot numbers increase monotonically and are
// never reused.
type SlotNumber uint64

// StateKind enumerates the slot lifecycle states.
type StateKind string

const (
	StateAvailable  StateKind = "Available"
	StateJitAuction StateKind = "JitAuction"
	StateAotAuction StateKind = "AotAuction"
	StateReserved   StateKind = "Reserved"
	StateFilled     StateKind = "Filled"
	StateExpired    StateKind = "Expired"
)

// SlotState is a tagged union over StateKind. Only the fields belonging to
// the active kind are meaningful.
type SlotState struct {
	Kind StateKind

	// AotAuction
	EndsAt time.Time

	// Reserved
	WinnerSession string
	WinningBid    sol.Amount

	// Reserved, Filled
	TxID string
}

// Available returns the Available state.
func Available() SlotState {
	return SlotState{Kind: StateAvailable}
}

// JitAuction returns the JitAuction state.
func JitAuction() SlotState {
	return SlotState{Kind: StateJitAuction}
}

// AotAuction returns the AotAuction state with the given deadline.
func AotAuction(endsAt time.Time) SlotState {
	return SlotState{Kind: StateAotAuction, EndsAt: endsAt}
}

// Reserved returns the Reserved state for the given winner.
func Reserved(winnerSession, txID string, winningBid sol.Amount) SlotState {
	return SlotState{
		Kind:          StateReserved,
		WinnerSession: winnerSession,
		TxID:          txID,
		WinningBid:    winningBid,
	}
}

// Filled returns the Filled state referencing the executed transaction.
func Filled(txID string) SlotState {
	return SlotState{Kind: StateFilled, TxID: txID}
}

// Expired returns the Expired state.
func Expired() SlotState {
	return SlotState{Kind: StateExpired}
}

// Terminal reports whether the state admits no further transitions.
func (s SlotState) Terminal() bool {
	return s.Kind == StateFilled || s.Kind == StateExpired
}

type aotAuctionJSON struct {
	EndsAt time.Time `json:"ends_at"`
}

type reservedJSON struct {
	WinnerSession string     `json:"winner_session"`
	TxID          string     `json:"tx_id"`
	WinningBid    sol.Amount `json:"winning_bid"`
}

type filledJSON struct {
	TxID string `json:"tx_id"`
}

// MarshalJSON encodes nullary states as string literals and states with
// payloads as single-key objects, e.g. {"Reserved": {...}}.
func (s SlotState) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case StateAvailable, StateJitAuction, StateExpired:
		return json.Marshal(string(s.Kind))
	case StateAotAuction:
		return json.Marshal(map[string]aotAuctionJSON{
			string(StateAotAuction): {EndsAt: s.EndsAt},
		})
	case StateReserved:
		return json.Marshal(map[string]reservedJSON{
			string(StateReserved): {
				WinnerSession: s.WinnerSession,
				TxID:          s.TxID,
				WinningBid:    s.WinningBid,
			},
		})
	case StateFilled:
		return json.Marshal(map[string]filledJSON{
			string(StateFilled): {TxID: s.TxID},
		})
	default:
		return nil, fmt.Errorf("unknown slot state %q", s.Kind)
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *SlotState) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		switch StateKind(tag) {
		case StateAvailable, StateJitAuction, StateExpired:
			*s = SlotState{Kind: StateKind(tag)}
			return nil
		default:
			return fmt.Errorf("unknown slot state %q", tag)
		}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid slot state: %w", err)
	}

	if len(obj) != 1 {
		return fmt.Errorf("slot state must have exactly one variant, got %d", len(obj))
	}

	for tag, raw := range obj {
		switch StateKind(tag) {
		case StateAotAuction:
			var v aotAuctionJSON
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}

			*s = AotAuction(v.EndsAt)
		case StateReserved:
			var v reservedJSON
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}

			*s = Reserved(v.WinnerSession, v.TxID, v.WinningBid)
		case StateFilled:
			var v filledJSON
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}

			*s = Filled(v.TxID)
		default:
			return fmt.Errorf("unknown slot state %q", tag)
		}
	}

	return nil
}

// Slot is a discrete execution window with a compute-unit budget.
type Slot struct {
	Number        SlotNumber `json:"slot_number"`
	State         SlotState  `json:"state"`
	EstimatedTime time.Time  `json:"estimated_time"`
	BaseFee       sol.Amount `json:"base_fee"`
	CUAvailable   uint64     `json:"cu_available"`
	CUUsed        uint64     `json:"cu_used"`
}
