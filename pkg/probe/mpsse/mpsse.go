// Package mpsse implements the TAP transport on the FTDI Multi-Protocol
// Synchronous Serial Engine found in the FT232H/FT2232H family. Instead of
// toggling pins, operations are compiled into MPSSE command packets: the chip
// clocks whole byte streams in hardware and the driver only parses responses.
//
// Command reference: FTDI AN 108, "Command Processor for MPSSE and MCU Host
// Bus Emulation Modes".
package mpsse

import (
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe"
)

// MPSSE opcodes, limited to the JTAG subset this package emits.
const (
	// Data shifting, LSB first, write on the falling edge and read on the
	// rising edge. Long form moves [1, 65536] whole bytes:
	//   <op> <lenLo> <lenHi> <byte0> ... <byteN>      (length minus one)
	// Bit form moves [1, 8] bits:
	//   <op> <len-1> <byte>
	opWriteBytes     byte = 0x19
	opWriteBits      byte = 0x1b
	opReadWriteBytes byte = 0x39
	opReadWriteBits  byte = 0x3b

	// TMS shifting: bits 6..0 of the payload go to TMS, LSB first, while
	// payload bit 7 is held on TDI for the whole burst.
	//   <op> <len-1> <byte>
	opTMSWrite     byte = 0x4b
	opTMSReadWrite byte = 0x6b

	// Clock and engine setup.
	opLoopbackOff  byte = 0x85
	opSetClockDiv  byte = 0x86
	opFlush        byte = 0x87
	opDisableDiv5  byte = 0x8a
	opDisableAdapt byte = 0x97
	opSetPinsLow   byte = 0x80
)

// tmsChunk is the largest TMS burst one command can carry.
const tmsChunk = 7

// Channel is the byte pipe to an MPSSE engine. Write sends a command packet;
// Read blocks until the full response buffer is filled.
type Channel interface {
	Write(data []byte) error
	Read(data []byte) error
}

// Transport drives a TAP through an MPSSE channel. It implements
// probe.Transport.
//
// A channel failure is fatal: commands and responses are strictly paired, and
// once the pairing is lost the engine state is unknowable.
type Transport struct {
	ch   Channel
	idle int
}

// NewTransport wraps an initialized MPSSE channel.
func NewTransport(ch Channel, idleCycles int) *Transport {
	return &Transport{ch: ch, idle: idleCycles}
}

// IdleCycles implements probe.Transport.
func (m *Transport) IdleCycles() int {
	return m.idle
}

func (m *Transport) write(cmd []byte) {
	if err := m.ch.Write(cmd); err != nil {
		probe.Logger().WithError(err).Fatal("mpsse: command write failed")
	}
}

func (m *Transport) read(buf []byte) {
	if err := m.ch.Read(buf); err != nil {
		probe.Logger().WithError(err).Fatal("mpsse: response read failed")
	}
}

// Reset clocks the soft reset sequence. The MPSSE adapters route no TRST
// line, so the hardware pulse is skipped.
func (m *Transport) Reset() {
	probe.SoftReset(m)
}

// Next clocks one transition through the read-write TMS command and picks the
// captured bit out of the top of the response byte.
func (m *Transport) Next(tms, tdi bool) bool {
	var payload byte
	if tms {
		payload |= 0x01
	}
	if tdi {
		payload |= 0x80
	}
	m.write([]byte{opTMSReadWrite, 0, payload})
	var resp [1]byte
	m.read(resp[:])
	return resp[0]&0x80 != 0
}

// TMSSeq emits the pattern in bursts of at most seven bits, the TMS command
// payload limit, with TDI held high throughout.
func (m *Transport) TMSSeq(pattern uint32, cycles int) {
	for cycles > 0 {
		chunk := cycles
		if chunk > tmsChunk {
			chunk = tmsChunk
		}
		m.write([]byte{opTMSWrite, byte(chunk - 1), 0x80 | byte(pattern&0x7f)})
		pattern >>= tmsChunk
		cycles -= chunk
	}
}

// shiftPlan is the command split for one data shift: whole bytes, then
// leftover bits, then a final TMS-steered bit when the caller wants to leave
// the shift state.
type shiftPlan struct {
	fullBytes int
	remBits   int
	finalTMS  bool
	finalTDI  bool
}

func planShift(finalTMS bool, din []byte, cycles int) shiftPlan {
	p := shiftPlan{finalTMS: finalTMS}
	dataBits := cycles
	if finalTMS {
		dataBits--
		p.finalTDI = din[dataBits>>3]&(1<<(dataBits&7)) != 0
	}
	p.fullBytes = dataBits >> 3
	p.remBits = dataBits & 7
	return p
}

func (p shiftPlan) commands(readBack bool, din []byte) []byte {
	opBytes, opBits := opWriteBytes, opWriteBits
	if readBack {
		opBytes, opBits = opReadWriteBytes, opReadWriteBits
	}
	cmd := make([]byte, 0, p.fullBytes+9)
	if p.fullBytes > 0 {
		n := p.fullBytes - 1
		cmd = append(cmd, opBytes, byte(n), byte(n>>8))
		cmd = append(cmd, din[:p.fullBytes]...)
	}
	if p.remBits > 0 {
		cmd = append(cmd, opBits, byte(p.remBits-1), din[p.fullBytes])
	}
	if p.finalTMS {
		payload := byte(0x01)
		if p.finalTDI {
			payload |= 0x80
		}
		op := opTMSWrite
		if readBack {
			op = opTMSReadWrite
		}
		cmd = append(cmd, op, 0, payload)
	}
	return cmd
}

// respLen is the response size the read-back variant of the plan produces.
func (p shiftPlan) respLen() int {
	n := p.fullBytes
	if p.remBits > 0 {
		n++
	}
	if p.finalTMS {
		n++
	}
	return n
}

// TDITDOSeq compiles the shift into at most three commands and reassembles
// the response. Whole bytes come back verbatim; bit-mode responses arrive
// left-justified, so the leftover bits are shifted down and the final TMS
// capture, when present, lands just above them.
func (m *Transport) TDITDOSeq(dout []byte, finalTMS bool, din []byte, cycles int) {
	if cycles == 0 {
		return
	}
	if dout == nil {
		m.TDISeq(finalTMS, din, cycles)
		return
	}
	p := planShift(finalTMS, din, cycles)
	m.write(p.commands(true, din))

	resp := make([]byte, p.respLen())
	m.read(resp)

	copy(dout, resp[:p.fullBytes])
	idx := p.fullBytes

	var tail byte
	tailBits := p.remBits
	if p.remBits > 0 {
		tail = resp[idx] >> (8 - p.remBits)
		idx++
	}
	if p.finalTMS {
		if resp[idx]&0x80 != 0 {
			tail |= 1 << tailBits
		}
		tailBits++
	}
	if tailBits == 8 {
		dout[p.fullBytes] = tail
	} else if cycles&7 != 0 {
		dout[cycles>>3] = tail
	}
}

// TDISeq is the write-only shift: same command split, nothing read back.
func (m *Transport) TDISeq(finalTMS bool, din []byte, cycles int) {
	if cycles == 0 {
		return
	}
	m.write(planShift(finalTMS, din, cycles).commands(false, din))
}

// Cycle emits TMS bursts whose payload holds both lines at the requested
// levels. The dedicated clock-only opcodes are avoided because they leave
// TDI at whatever level the previous shift ended on.
func (m *Transport) Cycle(tms, tdi bool, cycles int) {
	for cycles > 0 {
		chunk := cycles
		if chunk > tmsChunk {
			chunk = tmsChunk
		}
		var payload byte
		if tms {
			payload |= byte(1<<chunk) - 1
		}
		if tdi {
			payload |= 0x80
		}
		m.write([]byte{opTMSWrite, byte(chunk - 1), payload})
		cycles -= chunk
	}
}
