// Package swd implements the ARM Serial Wire Debug wire protocol on top of a
// probe.SWDSequencer: mode switching, packet requests, ACK handling and the
// DP register transfers described in the ADIv5 specification (ARM IHI0031).
package swd

import (
	"errors"
	"fmt"

	"github.com/blackmagic-debug/blackmagic-sub015/pkg/bitbuf"
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe"
)

// Target ACK responses, a 3-bit field read back after every request.
const (
	ACKOK    = 0x01
	ACKWait  = 0x02
	ACKFault = 0x04
)

// JTAGToSWDPattern is the 16-bit selection sequence that switches an SWJ-DP
// from its JTAG-DP to the SW-DP.
const JTAGToSWDPattern uint32 = 0xe79e

// DP register addresses. Reads and writes at the same address select
// different registers, per the ADIv5 DPACC mapping.
const (
	RegDPIDR    = 0x0 // read
	RegAbort    = 0x0 // write
	RegCtrlStat = 0x4
	RegSelect   = 0x8 // write
	RegRDBuff   = 0xc // read
)

// CTRL/STAT sticky error flags.
const (
	CtrlStatStickyOrun = 1 << 1
	CtrlStatStickyCmp  = 1 << 4
	CtrlStatStickyErr  = 1 << 5
	CtrlStatWDataErr   = 1 << 7

	ctrlStatErrMask = CtrlStatStickyOrun | CtrlStatStickyCmp | CtrlStatStickyErr | CtrlStatWDataErr
)

// ABORT register bits.
const (
	AbortDAP        = 1 << 0
	AbortStkCmpClr  = 1 << 1
	AbortStkErrClr  = 1 << 2
	AbortWDErrClr   = 1 << 3
	AbortOrunErrClr = 1 << 4
)

var (
	// ErrParity reports a corrupted read: the data phase failed its odd
	// parity check.
	ErrParity = errors.New("swd: parity error")

	// ErrFault reports an ACK of FAULT; the target latched a sticky error
	// that must be cleared through ABORT before further access.
	ErrFault = errors.New("swd: target faulted")

	// ErrWait reports that the target answered WAIT past the retry budget.
	ErrWait = errors.New("swd: target kept waiting")
)

// Request builds the 8-bit packet request header: start and park framing
// around APnDP, RnW, the two register address bits and their parity.
func Request(apndp, rnw bool, addr uint8) byte {
	req := byte(0x81) // start and park bits
	body := uint32(addr>>2) & 0x3
	if apndp {
		req |= 1 << 1
		body |= 1 << 2
	}
	if rnw {
		req |= 1 << 2
		body |= 1 << 3
	}
	req |= (addr << 1) & 0x18
	if bitbuf.Parity32(body) {
		req |= 1 << 5
	}
	return req
}

// DP is a Serial Wire debug port on the far end of a sequencer.
type DP struct {
	seq probe.SWDSequencer

	// Retries bounds how often a WAIT response is retried before Read and
	// Write give up.
	Retries int
}

// NewDP wraps a sequencer with the default retry budget.
func NewDP(seq probe.SWDSequencer) *DP {
	return &DP{seq: seq, Retries: 8}
}

// LineReset holds the data line high for 50 clocks, the minimum run that
// forces the target's wire protocol state machine back to its reset state.
func (d *DP) LineReset() {
	d.seq.SeqOut(0xffffffff, 32)
	d.seq.SeqOut(0xffffffff, 18)
}

// JTAGToSWD performs the SWJ-DP switch into SWD mode: a line reset, the
// selection sequence, another line reset and enough idle cycles to complete
// the switch. Harmless when the target is already in SWD mode.
func (d *DP) JTAGToSWD() {
	d.seq.SeqOut(0xffffffff, 16)
	d.LineReset()
	d.seq.SeqOut(JTAGToSWDPattern, 16)
	d.LineReset()
	d.seq.SeqOut(0, 16)
}

// ReadIDCode reads DPIDR, the first transfer a freshly reset SW-DP accepts.
func (d *DP) ReadIDCode() (uint32, error) {
	d.seq.SeqOut(uint32(Request(false, true, RegDPIDR)), 8)
	if ack := d.seq.SeqIn(3); ack != ACKOK {
		return 0, fmt.Errorf("swd: DPIDR read refused, ack %#x", ack)
	}
	value, ok := d.seq.SeqInParity(32)
	if !ok {
		return 0, ErrParity
	}
	return value, nil
}

// request sends the header and collects the ACK, retrying on WAIT.
func (d *DP) request(req byte) (uint32, error) {
	for attempt := 0; ; attempt++ {
		d.seq.SeqOut(uint32(req), 8)
		ack := d.seq.SeqIn(3)
		switch {
		case ack == ACKOK:
			return ack, nil
		case ack == ACKFault:
			return ack, ErrFault
		case ack != ACKWait:
			return ack, fmt.Errorf("swd: invalid ack %#x", ack)
		case attempt >= d.Retries:
			return ack, ErrWait
		}
	}
}

// Read performs one read transfer from a DP or AP register.
func (d *DP) Read(apndp bool, addr uint8) (uint32, error) {
	if _, err := d.request(Request(apndp, true, addr)); err != nil {
		return 0, err
	}
	value, ok := d.seq.SeqInParity(32)
	if !ok {
		return 0, ErrParity
	}
	return value, nil
}

// Write performs one write transfer to a DP or AP register. The trailing two
// idle cycles push the write through the target's clock domain crossing;
// some Cortex-M parts lose the write without them.
func (d *DP) Write(apndp bool, addr uint8, value uint32) error {
	if _, err := d.request(Request(apndp, false, addr)); err != nil {
		return err
	}
	d.seq.SeqOutParity(value, 32)
	d.seq.SeqOut(0, 2)
	return nil
}

// ClearErrors reads the sticky error flags out of CTRL/STAT, writes the
// matching ABORT clear bits and returns the flags that were set.
func (d *DP) ClearErrors() (uint32, error) {
	status, err := d.Read(false, RegCtrlStat)
	if err != nil {
		return 0, err
	}
	errFlags := status & ctrlStatErrMask

	var clr uint32
	if errFlags&CtrlStatStickyOrun != 0 {
		clr |= AbortOrunErrClr
	}
	if errFlags&CtrlStatStickyCmp != 0 {
		clr |= AbortStkCmpClr
	}
	if errFlags&CtrlStatStickyErr != 0 {
		clr |= AbortStkErrClr
	}
	if errFlags&CtrlStatWDataErr != 0 {
		clr |= AbortWDErrClr
	}
	if err := d.Write(false, RegAbort, clr); err != nil {
		return errFlags, err
	}
	return errFlags, nil
}

// Connect switches the target to SWD mode and synchronises by reading
// DPIDR, returning it.
func (d *DP) Connect() (uint32, error) {
	d.JTAGToSWD()
	idcode, err := d.ReadIDCode()
	if err != nil {
		return 0, fmt.Errorf("swd: connect: %w", err)
	}
	return idcode, nil
}
