package sim

import (
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/tap"
)

// Transport drives a simulated chain through the probe.Transport operations
// while recording every clocked TMS and TDI level. Tests use the histories to
// check bit ordering and cycle counts, and the tracked TAP state to check
// where a sequence lands.
type Transport struct {
	chain *Chain
	idle  int

	machine tap.Machine

	// TMSHistory and TDIHistory hold the levels applied on each rising
	// edge since construction, in clock order.
	TMSHistory []bool
	TDIHistory []bool

	// HardResets counts Reset calls, standing in for pulses of a TRST line.
	HardResets int
}

// NewTransport wraps a chain in a recording transport reporting the given
// idle cycle requirement.
func NewTransport(chain *Chain, idleCycles int) *Transport {
	t := &Transport{chain: chain, idle: idleCycles}
	t.machine.Reset()
	return t
}

// State reports the TAP state implied by the TMS levels clocked so far.
func (t *Transport) State() tap.State {
	return t.machine.State()
}

// Clocks reports the total number of rising edges applied.
func (t *Transport) Clocks() int {
	return len(t.TMSHistory)
}

func (t *Transport) clock(tms, tdi bool) bool {
	t.TMSHistory = append(t.TMSHistory, tms)
	t.TDIHistory = append(t.TDIHistory, tdi)
	t.machine.Clock(tms)
	return t.chain.Clock(tms, tdi)
}

// Reset counts a hardware reset pulse and clocks the soft reset sequence.
func (t *Transport) Reset() {
	t.HardResets++
	t.TMSSeq(tap.SoftResetPattern, tap.SoftResetCycles)
}

// Next applies a single transition.
func (t *Transport) Next(tms, tdi bool) bool {
	return t.clock(tms, tdi)
}

// TMSSeq clocks cycles TMS levels from pattern, LSB first, TDI held high.
func (t *Transport) TMSSeq(pattern uint32, cycles int) {
	for ; cycles > 0; cycles-- {
		t.clock(pattern&1 != 0, true)
		pattern >>= 1
	}
}

// TDITDOSeq shifts cycles bits from din while capturing TDO into dout, with
// TMS raised on the final cycle when finalTMS is set. dout may be nil or
// alias din.
func (t *Transport) TDITDOSeq(dout []byte, finalTMS bool, din []byte, cycles int) {
	if cycles == 0 {
		return
	}
	if dout == nil {
		t.TDISeq(finalTMS, din, cycles)
		return
	}
	var value byte
	for cycle := 0; cycle < cycles; cycle++ {
		tdi := din[cycle>>3]&(1<<(cycle&7)) != 0
		tdo := t.clock(finalTMS && cycle == cycles-1, tdi)
		if tdo {
			value |= 1 << (cycle & 7)
		}
		if cycle&7 == 7 {
			dout[cycle>>3] = value
			value = 0
		}
	}
	if rem := cycles & 7; rem != 0 {
		dout[cycles>>3] = value
	}
}

// TDISeq shifts cycles bits from din, discarding TDO.
func (t *Transport) TDISeq(finalTMS bool, din []byte, cycles int) {
	for cycle := 0; cycle < cycles; cycle++ {
		tdi := din[cycle>>3]&(1<<(cycle&7)) != 0
		t.clock(finalTMS && cycle == cycles-1, tdi)
	}
}

// Cycle holds TMS and TDI steady for cycles clocks.
func (t *Transport) Cycle(tms, tdi bool, cycles int) {
	for ; cycles > 0; cycles-- {
		t.clock(tms, tdi)
	}
}

// IdleCycles reports the configured idle padding.
func (t *Transport) IdleCycles() int {
	return t.idle
}
