package market

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/btree"
	"github.com/sirupsen/logrus"

	"github.com/raikusim/slotmarket/pkg/sol"
)

var (
	// ErrNoSuchSlot is returned when the requested slot is outside the window.
	ErrNoSuchSlot = errors.New("no such slot")

	// ErrInvalidTransition is returned for transitions the lifecycle table forbids.
	ErrInvalidTransition = errors.New("invalid slot state transition")
)

// validTransitions is the slot lifecycle table. Absent entries are forbidden.
var validTransitions = map[StateKind][]StateKind{
	StateAvailable:  {StateJitAuction, StateAotAuction, StateReserved, StateExpired},
	StateJitAuction: {StateReserved, StateExpired},
	StateAotAuction: {StateReserved, StateExpired},
	StateReserved:   {StateFilled, StateExpired},
	StateFilled:     {},
	StateExpired:    {},
}

func transitionAllowed(from, to StateKind) bool {
	for _, k := range validTransitions[from] {
		if k == to {
			return true
		}
	}

	return false
}

// Marketplace owns the rolling window of slots [current, current+window).
//
// The marketplace is a pure data structure: it performs no locking and no
// event emission. The coordinator serializes all access.
type Marketplace struct {
	current      SlotNumber
	slots        *btree.BTreeG[*Slot]
	window       int
	baseFee      sol.Amount
	cuPerSlot    uint64
	slotDuration time.Duration
	log          logrus.FieldLogger
}

func slotLess(a, b *Slot) bool {
	return a.Number < b.Number
}

// NewMarketplace creates a marketplace with a fully populated initial window
// starting at slot 0.
func NewMarketplace(window int, slotDuration time.Duration, baseFee sol.Amount, cuPerSlot uint64, now time.Time, log logrus.FieldLogger) *Marketplace {
	m := &Marketplace{
		current:      0,
		slots:        btree.NewG(8, slotLess),
		window:       window,
		baseFee:      baseFee,
		cuPerSlot:    cuPerSlot,
		slotDuration: slotDuration,
		log:          log.WithField("component", "marketplace"),
	}

	for i := 0; i < window; i++ {
		m.admit(SlotNumber(i), now)
	}

	return m
}

// admit inserts a fresh Available slot at the given number.
func (m *Marketplace) admit(n SlotNumber, now time.Time) *Slot {
	slot := &Slot{
		Number:        n,
		State:         Available(),
		EstimatedTime: now.Add(time.Duration(int64(n)-int64(m.current)) * m.slotDuration),
		BaseFee:       m.baseFee,
		CUAvailable:   m.cuPerSlot,
		CUUsed:        0,
	}

	m.slots.ReplaceOrInsert(slot)

	return slot
}

// Current returns the current slot number.
func (m *Marketplace) Current() SlotNumber {
	return m.current
}

// Get returns the slot with the given number, or ErrNoSuchSlot.
func (m *Marketplace) Get(n SlotNumber) (*Slot, error) {
	slot, ok := m.slots.Get(&Slot{Number: n})
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchSlot, n)
	}

	return slot, nil
}

// Window returns the tracked slots in ascending slot-number order.
func (m *Marketplace) Window() []*Slot {
	out := make([]*Slot, 0, m.slots.Len())

	m.slots.Ascend(func(s *Slot) bool {
		out = append(out, s)
		return true
	})

	return out
}

// SetState transitions slot n to the new state, enforcing the lifecycle
// table. Re-reserving with the identical winner is a no-op; with a different
// winner it is an invalid transition.
func (m *Marketplace) SetState(n SlotNumber, state SlotState) error {
	slot, err := m.Get(n)
	if err != nil {
		return err
	}

	from := slot.State.Kind
	if from == StateReserved && state.Kind == StateReserved {
		if slot.State == state {
			return nil
		}

		return fmt.Errorf("%w: slot %d already reserved for another winner", ErrInvalidTransition, n)
	}

	if !transitionAllowed(from, state.Kind) {
		return fmt.Errorf("%w: slot %d %s -> %s", ErrInvalidTransition, n, from, state.Kind)
	}

	slot.State = state

	return nil
}

// RecordUsage accounts executed compute units against the slot budget.
func (m *Marketplace) RecordUsage(n SlotNumber, cu uint64) error {
	slot, err := m.Get(n)
	if err != nil {
		return err
	}

	if slot.CUUsed+cu > slot.CUAvailable {
		return fmt.Errorf("%w: slot %d usage %d exceeds budget %d", ErrInvalidTransition, n, slot.CUUsed+cu, slot.CUAvailable)
	}

	slot.CUUsed += cu

	return nil
}

// Advance retires the current slot, increments the counter and admits a
// fresh slot at the far edge of the window. The retired slot is forced to
// Expired unless it already reached a terminal state.
func (m *Marketplace) Advance(now time.Time) (retired, admitted *Slot) {
	retired, _ = m.slots.Get(&Slot{Number: m.current})
	if retired != nil {
		m.slots.Delete(retired)

		if !retired.State.Terminal() {
			retired.State = Expired()
		}
	}

	m.current++
	admitted = m.admit(m.current+SlotNumber(m.window)-1, now)

	m.log.WithFields(logrus.Fields{
		"current_slot": m.current,
		"admitted":     admitted.Number,
	}).Debug("Slot advanced")

	return retired, admitted
}
