package sim

import (
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/tap"
)

// PinBus exposes a simulated chain through the bit-bang backend's pin
// interfaces. The chain is clocked on each rising edge of the TCK pin with
// whatever TMS and TDI levels are set at that moment, so the bit-bang engine
// is exercised with real edge semantics rather than a per-call shortcut.
type PinBus struct {
	chain *Chain

	tck bool
	tms bool
	tdi bool
	tdo bool

	machine tap.Machine

	// TMSHistory holds the TMS level latched on each rising edge.
	TMSHistory []bool
	// TRSTPulses counts low pulses seen on the reset pin.
	TRSTPulses int
}

// NewPinBus wraps a chain in a pin-level view.
func NewPinBus(chain *Chain) *PinBus {
	b := &PinBus{chain: chain}
	b.machine.Reset()
	return b
}

// State reports the TAP state implied by the edges applied so far.
func (b *PinBus) State() tap.State {
	return b.machine.State()
}

// Edges reports the number of rising TCK edges applied.
func (b *PinBus) Edges() int {
	return len(b.TMSHistory)
}

func (b *PinBus) clockRise() {
	if b.tck {
		return
	}
	b.tck = true
	b.TMSHistory = append(b.TMSHistory, b.tms)
	b.machine.Clock(b.tms)
	b.tdo = b.chain.Clock(b.tms, b.tdi)
}

// TCK returns the clock pin.
func (b *PinBus) TCK() BusPin { return BusPin{b, roleTCK} }

// TMS returns the mode select pin.
func (b *PinBus) TMS() BusPin { return BusPin{b, roleTMS} }

// TDI returns the data-in pin.
func (b *PinBus) TDI() BusPin { return BusPin{b, roleTDI} }

// TDO returns the data-out pin.
func (b *PinBus) TDO() BusPin { return BusPin{b, roleTDO} }

// TRST returns the hardware reset pin.
func (b *PinBus) TRST() BusPin { return BusPin{b, roleTRST} }

type busRole uint8

const (
	roleTCK busRole = iota
	roleTMS
	roleTDI
	roleTDO
	roleTRST
)

// BusPin is one signal of a PinBus.
type BusPin struct {
	bus  *PinBus
	role busRole
}

func (p BusPin) Set()   { p.SetVal(true) }
func (p BusPin) Clear() { p.SetVal(false) }

func (p BusPin) SetVal(v bool) {
	b := p.bus
	switch p.role {
	case roleTCK:
		if v {
			b.clockRise()
		} else {
			b.tck = false
		}
	case roleTMS:
		b.tms = v
	case roleTDI:
		b.tdi = v
	case roleTRST:
		if !v {
			b.TRSTPulses++
		}
	}
}

func (p BusPin) Get() bool {
	b := p.bus
	switch p.role {
	case roleTCK:
		return b.tck
	case roleTMS:
		return b.tms
	case roleTDI:
		return b.tdi
	case roleTDO:
		return b.tdo
	}
	return true
}
