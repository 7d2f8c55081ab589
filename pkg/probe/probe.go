// Package probe defines the low-level Test Access Port transport that every
// adapter backend implements: direct GPIO bit-banging, FTDI MPSSE command
// batching and CMSIS-DAP probes all expose the same six operations. A backend
// is selected once at session start; the transport is then driven uniformly
// and is never reassigned mid-session.
package probe

// Transport is the capability set of a JTAG TAP driver.
//
// None of the operations return an error: the layer has no protocol-level
// failure mode of its own. A backend that loses its adapter (USB timeout,
// rejected command) treats that as fatal, since a TAP left mid-sequence is in
// an indeterminate state that cannot be safely recovered.
//
// Every operation is defined relative to the TAP state before and after the
// call; the transport performs no state validation. Callers sequence the TAP
// themselves, normally through the helpers in this package.
type Transport interface {
	// Reset pulses the hardware reset line when one is wired, then performs
	// the soft reset TMS sequence (five ones, one zero), landing in
	// Run-Test/Idle. Without a reset line it silently degrades to the soft
	// sequence alone.
	Reset()

	// Next executes a single TAP transition: assert TMS and TDI, pulse TCK,
	// and return the TDO value captured on the rising edge. Every other
	// operation decomposes into this conceptually, even when batched.
	Next(tms, tdi bool) bool

	// TMSSeq drives cycles TMS transitions from pattern, LSB first. TDI is
	// held high throughout, the convention for "no data intent".
	TMSSeq(pattern uint32, cycles int)

	// TDITDOSeq shifts cycles bits from tdi out of the TDI line, LSB first
	// within each byte, capturing TDO into tdo with the same packing. TMS is
	// held low except on the final cycle, where finalTMS is asserted so the
	// mode line steers the transition out of the shift state. tdo may be nil
	// to discard the capture and may alias tdi for in-place operation.
	// cycles == 0 is a no-op.
	TDITDOSeq(tdo []byte, finalTMS bool, tdi []byte, cycles int)

	// TDISeq is TDITDOSeq with the captured data discarded.
	TDISeq(finalTMS bool, tdi []byte, cycles int)

	// Cycle holds TMS and TDI at the given values and pulses TCK cycles
	// times. Used for idle and settle padding between operations.
	Cycle(tms, tdi bool, cycles int)

	// IdleCycles reports the idle padding this adapter requires between
	// certain state transitions. Debug controllers such as the RISC-V DM use
	// idle cycles as part of their function; most ARM parts need none.
	IdleCycles() int
}

// SWDSequencer is the Serial Wire Debug counterpart of Transport, layered on
// the same clock and data primitives. Implementations manage the half-duplex
// turnaround of the shared data line internally: output is released before
// reads and re-asserted before writes, with a one-cycle dead period on every
// direction change.
type SWDSequencer interface {
	// SeqIn clocks cycles bits, at most 32, in from the target, LSB first.
	SeqIn(cycles int) uint32

	// SeqInParity reads cycles data bits followed by one parity bit and
	// reports whether the odd-parity check passed. The retry policy on a
	// parity failure belongs to the caller.
	SeqInParity(cycles int) (value uint32, ok bool)

	// SeqOut clocks the low cycles bits of value out to the target.
	SeqOut(value uint32, cycles int)

	// SeqOutParity writes cycles data bits followed by their parity bit.
	SeqOutParity(value uint32, cycles int)
}
