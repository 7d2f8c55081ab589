package gpio

import (
	"errors"

	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe"
)

// trstSettleSpins paces the low pulse on the hardware reset line.
const trstSettleSpins = 10000

// Config carries the signal lines and timing for a bit-banged JTAG session.
// It replaces the per-platform pin macros of classic probe firmware with one
// parameterized engine.
type Config struct {
	TCK Pin
	TMS Pin
	TDI Pin
	TDO Pin

	// TRST is the optional hardware reset line. When nil, Reset degrades to
	// the soft TMS sequence alone.
	TRST Pin

	// Delay is consulted around every clock edge.
	Delay probe.Delay

	// IdleCycles is the idle padding the attached debug controller needs
	// between certain state transitions.
	IdleCycles int
}

// JTAG drives a TAP through raw pin I/O. It implements probe.Transport.
type JTAG struct {
	tck, tms, tdi, tdo Pin
	trst               Pin
	delay              probe.Delay
	idle               int
}

// NewJTAG validates the wiring and returns the transport.
func NewJTAG(cfg Config) (*JTAG, error) {
	if cfg.TCK == nil || cfg.TMS == nil || cfg.TDI == nil || cfg.TDO == nil {
		return nil, errors.New("gpio: TCK, TMS, TDI and TDO must all be wired")
	}
	j := &JTAG{
		tck:   cfg.TCK,
		tms:   cfg.TMS,
		tdi:   cfg.TDI,
		tdo:   cfg.TDO,
		trst:  cfg.TRST,
		delay: cfg.Delay,
		idle:  cfg.IdleCycles,
	}
	j.tck.Clear()
	return j, nil
}

// IdleCycles implements probe.Transport.
func (j *JTAG) IdleCycles() int {
	return j.idle
}

// Reset pulses TRST when wired, then always runs the soft reset sequence.
func (j *JTAG) Reset() {
	if j.trst != nil {
		j.trst.Clear()
		probe.Delay{Cycles: trstSettleSpins}.Wait()
		j.trst.Set()
	}
	probe.SoftReset(j)
}

// Next implements the atomic TAP transition: TMS and TDI asserted, one TCK
// pulse, TDO captured on the rising edge.
func (j *JTAG) Next(tms, tdi bool) bool {
	j.tms.SetVal(tms)
	j.tdi.SetVal(tdi)
	if j.delay.Enabled() {
		return j.clockDelay()
	}
	return j.clockNoDelay()
}

func (j *JTAG) clockDelay() bool {
	j.tck.Set()
	j.delay.Wait()
	result := j.tdo.Get()
	j.tck.Clear()
	j.delay.Wait()
	return result
}

func (j *JTAG) clockNoDelay() bool {
	j.tck.Set()
	result := j.tdo.Get()
	j.tck.Clear()
	return result
}

// TMSSeq drives the mode line through cycles edges with TDI held high.
func (j *JTAG) TMSSeq(pattern uint32, cycles int) {
	j.tdi.Set()
	if j.delay.Enabled() {
		j.tmsSeqDelay(pattern, cycles)
	} else {
		j.tmsSeqNoDelay(pattern, cycles)
	}
}

func (j *JTAG) tmsSeqDelay(pattern uint32, cycles int) {
	for cycle := 0; cycle < cycles; cycle++ {
		j.tms.SetVal(pattern&1 != 0)
		j.tck.Set()
		j.delay.Wait()
		pattern >>= 1
		j.tck.Clear()
		j.delay.Wait()
	}
}

func (j *JTAG) tmsSeqNoDelay(pattern uint32, cycles int) {
	for cycle := 0; cycle < cycles; cycle++ {
		j.tms.SetVal(pattern&1 != 0)
		j.tck.Set()
		pattern >>= 1
		j.tck.Clear()
	}
}

// TDITDOSeq shifts cycles bits out of din while capturing TDO into dout.
// dout may be nil to discard the capture and may alias din.
func (j *JTAG) TDITDOSeq(dout []byte, finalTMS bool, din []byte, cycles int) {
	if cycles == 0 {
		return
	}
	if dout == nil {
		j.TDISeq(finalTMS, din, cycles)
		return
	}
	j.tms.Clear()
	j.tdi.Clear()
	if j.delay.Enabled() {
		j.tdiTDOSeqDelay(dout, finalTMS, din, cycles)
	} else {
		j.tdiTDOSeqNoDelay(dout, finalTMS, din, cycles)
	}
}

// The capture accumulates into a scratch byte and stores on byte boundaries,
// so dout == din aliasing never reads a bit it has already overwritten. The
// trailing partial byte is stored only when the cycle count is not a multiple
// of 8; whole bytes were already stored in the loop.

func (j *JTAG) tdiTDOSeqDelay(dout []byte, finalTMS bool, din []byte, cycles int) {
	var value byte
	for cycle := 0; cycle < cycles; cycle++ {
		bit := cycle & 7
		idx := cycle >> 3
		j.tms.SetVal(finalTMS && cycle+1 == cycles)
		j.tdi.SetVal(din[idx]&(1<<bit) != 0)
		j.tck.Set()
		j.delay.Wait()
		if j.tdo.Get() {
			value |= 1 << bit
		}
		if bit == 7 {
			dout[idx] = value
			value = 0
		}
		j.tck.Clear()
		j.delay.Wait()
	}
	if rem := cycles & 7; rem != 0 {
		dout[cycles>>3] = value
	}
}

func (j *JTAG) tdiTDOSeqNoDelay(dout []byte, finalTMS bool, din []byte, cycles int) {
	var value byte
	for cycle := 0; cycle < cycles; cycle++ {
		bit := cycle & 7
		idx := cycle >> 3
		j.tms.SetVal(finalTMS && cycle+1 == cycles)
		j.tdi.SetVal(din[idx]&(1<<bit) != 0)
		j.tck.Set()
		if j.tdo.Get() {
			value |= 1 << bit
		}
		if bit == 7 {
			dout[idx] = value
			value = 0
		}
		j.tck.Clear()
	}
	if rem := cycles & 7; rem != 0 {
		dout[cycles>>3] = value
	}
}

// TDISeq is the write-only shift.
func (j *JTAG) TDISeq(finalTMS bool, din []byte, cycles int) {
	if cycles == 0 {
		return
	}
	j.tms.Clear()
	if j.delay.Enabled() {
		j.tdiSeqDelay(finalTMS, din, cycles)
	} else {
		j.tdiSeqNoDelay(finalTMS, din, cycles)
	}
}

func (j *JTAG) tdiSeqDelay(finalTMS bool, din []byte, cycles int) {
	for cycle := 0; cycle < cycles; cycle++ {
		j.tms.SetVal(finalTMS && cycle+1 == cycles)
		j.tdi.SetVal(din[cycle>>3]&(1<<(cycle&7)) != 0)
		j.tck.Set()
		j.delay.Wait()
		j.tck.Clear()
		j.delay.Wait()
	}
}

func (j *JTAG) tdiSeqNoDelay(finalTMS bool, din []byte, cycles int) {
	for cycle := 0; cycle < cycles; cycle++ {
		j.tms.SetVal(finalTMS && cycle+1 == cycles)
		j.tdi.SetVal(din[cycle>>3]&(1<<(cycle&7)) != 0)
		j.tck.Set()
		j.tck.Clear()
	}
}

// Cycle holds TMS and TDI fixed and pulses the clock cycles times. The first
// pulse establishes the pin state through Next; the remainder are bare
// clock edges.
func (j *JTAG) Cycle(tms, tdi bool, cycles int) {
	if cycles == 0 {
		return
	}
	j.Next(tms, tdi)
	if j.delay.Enabled() {
		j.cycleDelay(cycles - 1)
	} else {
		j.cycleNoDelay(cycles - 1)
	}
}

func (j *JTAG) cycleDelay(cycles int) {
	for cycle := 0; cycle < cycles; cycle++ {
		j.tck.Set()
		j.delay.Wait()
		j.tck.Clear()
		j.delay.Wait()
	}
}

func (j *JTAG) cycleNoDelay(cycles int) {
	for cycle := 0; cycle < cycles; cycle++ {
		j.tck.Set()
		j.tck.Clear()
	}
}
