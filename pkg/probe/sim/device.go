// Package sim provides behavioral stand-ins for the hardware this module
// drives: a clock-accurate JTAG device model, a chain of them, a recording
// transport, and pin buses that expose the models through the bit-bang
// backend's pin interfaces. Everything here is deterministic and exists so
// the transport engines can be tested edge by edge without a probe attached.
package sim

import (
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/tap"
)

// Device models a single JTAG device: a TAP controller, an instruction
// register and the two data registers every part has, BYPASS and IDCODE.
// Test-Logic-Reset loads the IDCODE instruction, so a freshly reset chain
// shifts out ID codes, which is exactly what chain discovery relies on.
type Device struct {
	IDCode uint32
	IRLen  int

	state    tap.State
	ir       uint64
	shift    uint64
	shiftLen int
}

// NewDevice returns a device in Test-Logic-Reset with the IDCODE
// instruction selected.
func NewDevice(idcode uint32, irlen int) *Device {
	d := &Device{
		IDCode: idcode,
		IRLen:  irlen,
		state:  tap.TestLogicReset,
	}
	d.ir = d.IDCodeOp()
	return d
}

// BypassOp is the all-ones BYPASS instruction for this device's IR width.
func (d *Device) BypassOp() uint64 {
	return 1<<d.IRLen - 1
}

// IDCodeOp is the instruction this model decodes as IDCODE: all ones except
// the LSB, which keeps it distinct from BYPASS at every IR width >= 2.
func (d *Device) IDCodeOp() uint64 {
	return d.BypassOp() &^ 1
}

// State reports the device's TAP controller state.
func (d *Device) State() tap.State {
	return d.state
}

// IR reports the currently latched instruction.
func (d *Device) IR() uint64 {
	return d.ir
}

// Clock applies one rising TCK edge with the given TMS and TDI levels and
// returns the TDO value the device presents for that cycle. Capture, shift
// and update all key off the state the controller is in when the edge
// arrives, per the IEEE 1149.1 cycle semantics.
func (d *Device) Clock(tms, tdi bool) bool {
	var tdo bool
	switch d.state {
	case tap.CaptureIR:
		// Mandatory capture pattern: the two low bits read 01.
		d.shift = 0b01
		d.shiftLen = d.IRLen
	case tap.CaptureDR:
		if d.ir == d.BypassOp() {
			d.shift = 0
			d.shiftLen = 1
		} else {
			d.shift = uint64(d.IDCode)
			d.shiftLen = 32
		}
	case tap.ShiftIR, tap.ShiftDR:
		tdo = d.shift&1 != 0
		d.shift >>= 1
		if tdi {
			d.shift |= 1 << (d.shiftLen - 1)
		}
	}

	d.state = tap.Next(d.state, tms)
	switch d.state {
	case tap.UpdateIR:
		d.ir = d.shift & d.BypassOp()
	case tap.TestLogicReset:
		d.ir = d.IDCodeOp()
	}
	return tdo
}

// Chain is a series of devices sharing TCK and TMS, with TDI feeding the
// first device and TDO taken from the last.
type Chain struct {
	devices []*Device
}

// NewChain builds a chain ordered from the probe's TDI towards its TDO.
func NewChain(devices ...*Device) *Chain {
	return &Chain{devices: devices}
}

// Devices returns the chain members in TDI-to-TDO order.
func (c *Chain) Devices() []*Device {
	return c.devices
}

// Clock applies one rising edge to every device, threading each TDO into the
// next TDI.
func (c *Chain) Clock(tms, tdi bool) bool {
	bit := tdi
	for _, d := range c.devices {
		bit = d.Clock(tms, bit)
	}
	return bit
}
