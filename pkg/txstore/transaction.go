// Package txstore owns transaction records and their status lifecycle.
package txstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/raikusim/slotmarket/pkg/market"
	"github.com/raikusim/slotmarket/pkg/sol"
)

// Failure reasons attached to TxStatus Failed.
const (
	FailReasonOutbid  = "Outbid"
	FailReasonExpired = "Expired"
)

// StatusKind enumerates the transaction status variants.
type StatusKind string

const (
	StatusPending    StatusKind = "Pending"
	StatusAuctionWon StatusKind = "AuctionWon"
	StatusIncluded   StatusKind = "Included"
	StatusFailed     StatusKind = "Failed"
)

// TxStatus is a tagged union over StatusKind.
type TxStatus struct {
	Kind StatusKind

	// AuctionWon, Included
	Slot market.SlotNumber

	// Included
	ExecutionTime time.Time

	// Failed
	Reason string
}

// Pending returns the Pending status.
func Pending() TxStatus {
	return TxStatus{Kind: StatusPending}
}

// AuctionWon returns the AuctionWon status for the slot.
func AuctionWon(slot market.SlotNumber) TxStatus {
	return TxStatus{Kind: StatusAuctionWon, Slot: slot}
}

// Included returns the Included status.
func Included(slot market.SlotNumber, executionTime time.Time) TxStatus {
	return TxStatus{Kind: StatusIncluded, Slot: slot, ExecutionTime: executionTime}
}

// Failed returns the Failed status with a reason.
func Failed(reason string) TxStatus {
	return TxStatus{Kind: StatusFailed, Reason: reason}
}

// Terminal reports whether the status is immutable.
func (s TxStatus) Terminal() bool {
	return s.Kind == StatusIncluded || s.Kind == StatusFailed
}

type auctionWonJSON struct {
	Slot market.SlotNumber `json:"slot"`
}

type includedJSON struct {
	Slot          market.SlotNumber `json:"slot"`
	ExecutionTime time.Time         `json:"execution_time"`
}

type failedJSON struct {
	Reason string `json:"reason"`
}

// MarshalJSON encodes Pending as a string literal and the other variants as
// single-key objects.
func (s TxStatus) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case StatusPending:
		return json.Marshal(string(StatusPending))
	case StatusAuctionWon:
		return json.Marshal(map[string]auctionWonJSON{
			string(StatusAuctionWon): {Slot: s.Slot},
		})
	case StatusIncluded:
		return json.Marshal(map[string]includedJSON{
			string(StatusIncluded): {Slot: s.Slot, ExecutionTime: s.ExecutionTime},
		})
	case StatusFailed:
		return json.Marshal(map[string]failedJSON{
			string(StatusFailed): {Reason: s.Reason},
		})
	default:
		return nil, fmt.Errorf("unknown tx status %q", s.Kind)
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *TxStatus) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if StatusKind(tag) != StatusPending {
			return fmt.Errorf("unknown tx status %q", tag)
		}

		*s = Pending()

		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid tx status: %w", err)
	}

	if len(obj) != 1 {
		return fmt.Errorf("tx status must have exactly one variant, got %d", len(obj))
	}

	for tag, raw := range obj {
		switch StatusKind(tag) {
		case StatusAuctionWon:
			var v auctionWonJSON
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}

			*s = AuctionWon(v.Slot)
		case StatusIncluded:
			var v includedJSON
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}

			*s = Included(v.Slot, v.ExecutionTime)
		case StatusFailed:
			var v failedJSON
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}

			*s = Failed(v.Reason)
		default:
			return fmt.Errorf("unknown tx status %q", tag)
		}
	}

	return nil
}

// InclusionKind enumerates how a transaction seeks inclusion.
type InclusionKind string

const (
	InclusionJit InclusionKind = "Jit"
	InclusionAot InclusionKind = "Aot"
)

// InclusionType records the inclusion discipline; AoT carries the slot the
// bid targets.
type InclusionType struct {
	Kind         InclusionKind     `json:"kind"`
	ReservedSlot market.SlotNumber `json:"reserved_slot,omitempty"`
}

// Transaction is a blockspace inclusion request created by a bid.
type Transaction struct {
	ID            string        `json:"id"`
	Sender        string        `json:"sender"`
	InclusionType InclusionType `json:"inclusion_type"`
	Status        TxStatus      `json:"status"`
	ComputeUnits  uint64        `json:"compute_units"`
	PriorityFee   sol.Amount    `json:"priority_fee"`
	Data          string        `json:"data"`
	CreatedAt     time.Time     `json:"created_at"`
	IncludedAt    *time.Time    `json:"included_at,omitempty"`
}
