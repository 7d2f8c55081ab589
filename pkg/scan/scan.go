// Package scan discovers the devices on a JTAG chain and provides
// addressed IR and DR access to individual devices through the bypass
// registers of the others.
//
// Discovery works without prior knowledge of the chain. In Shift-IR
// every device captures a value whose least significant bit is 1, so
// shifting in ones and watching the returned bit stream reveals one
// device per observed 1 and its IR length from the run of zeros that
// follows. Once the shifted ones come back (two consecutive ones) the
// whole chain has been traversed and every device is in BYPASS. The
// device count is then cross checked against the number of one bit
// bypass registers seen in Shift-DR, and a reset puts IDCODE in each
// DR for readout.
package scan

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/blackmagic-debug/blackmagic-sub015/pkg/bitbuf"
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/idcode"
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe"
)

const (
	maxDevices = 32
	maxIRLen   = 64
)

// Device is one TAP on a scanned chain. Index 0 is the device nearest
// TDO, which is the first one whose bits appear during a shift.
type Device struct {
	Index       int
	IRLen       int
	IDCode      uint32
	Description string

	// Padding around this device's registers when the rest of the
	// chain sits in BYPASS. The ir values count IR bits of the other
	// devices, the dr values count their one bit bypass registers.
	irPrescan  int
	irPostscan int
	drPrescan  int
	drPostscan int

	currentIR uint32
	irKnown   bool
}

// Chain is a scanned JTAG chain bound to its transport.
type Chain struct {
	t       probe.Transport
	devices []*Device
}

// Devices returns the chain members in shift order, nearest TDO first.
func (c *Chain) Devices() []*Device { return c.devices }

// Run resets the chain and discovers every device on it. The transport
// is switched from SWD framing first so probes wired to SWJ-DP targets
// come up in JTAG mode.
func Run(t probe.Transport) (*Chain, error) {
	probe.SWDToJTAG(t)
	t.Reset()

	lens, err := scanIR(t)
	if err != nil {
		return nil, err
	}

	c := &Chain{t: t}
	total := 0
	for _, n := range lens {
		total += n
	}
	pre := 0
	for i, n := range lens {
		c.devices = append(c.devices, &Device{
			Index:      i,
			IRLen:      n,
			irPrescan:  pre,
			irPostscan: total - pre - n,
			drPrescan:  i,
			drPostscan: len(lens) - 1 - i,
		})
		pre += n
	}

	if got := countBypass(t, len(lens)); got != len(lens) {
		return nil, fmt.Errorf("jtag scan: IR scan found %d devices but %d bypass registers", len(lens), got)
	}

	readIDCodes(t, c.devices)
	for _, d := range c.devices {
		if d.IDCode != 0 {
			d.Description = idcode.Describe(d.IDCode)
		} else {
			d.Description = "no IDCODE, device in BYPASS"
		}
		probe.Logger().WithFields(logrus.Fields{
			"index":  d.Index,
			"irlen":  d.IRLen,
			"idcode": fmt.Sprintf("0x%08x", d.IDCode),
		}).Info(d.Description)
	}
	return c, nil
}

// scanIR walks Shift-IR clocking in ones and derives per device IR
// lengths from the returned bits. Each device contributes a 1 followed
// by IRLen-1 zeros, so a 1 right after another 1 means the ones we
// shifted in have come back around and the scan is done.
func scanIR(t probe.Transport) ([]int, error) {
	probe.EnterShiftIR(t)
	if !t.Next(false, true) {
		exitShift(t)
		return nil, fmt.Errorf("jtag scan: first IR bit shifted out as 0, check wiring")
	}
	// lens ends with the device currently being measured. The last
	// entry is always started by our own ones coming back around, so
	// it is dropped once the terminating 1 is seen.
	lens := []int{1}
	for {
		if t.Next(false, true) {
			if lens[len(lens)-1] == 1 {
				break
			}
			if len(lens) > maxDevices {
				exitShift(t)
				return nil, fmt.Errorf("jtag scan: more than %d devices", maxDevices)
			}
			lens = append(lens, 1)
		} else {
			lens[len(lens)-1]++
			if lens[len(lens)-1] > maxIRLen {
				exitShift(t)
				return nil, fmt.Errorf("jtag scan: IR longer than %d bits, chain stuck low", maxIRLen)
			}
		}
	}
	exitShift(t)
	return lens[:len(lens)-1], nil
}

// countBypass counts the one bit bypass registers on the chain. Every
// device left in BYPASS by the IR scan captures a 0, so the zeros seen
// before our ones come back equal the device count.
func countBypass(t probe.Transport, limit int) int {
	probe.EnterShiftDR(t)
	n := 0
	for n <= limit && !t.Next(false, true) {
		n++
	}
	exitShift(t)
	return n
}

// readIDCodes resets the chain so each TAP selects its identification
// register, then shifts them out in device order. A leading 0 marks a
// device without IDCODE sitting in BYPASS.
func readIDCodes(t probe.Transport, devices []*Device) {
	t.Reset()
	probe.EnterShiftDR(t)
	for _, d := range devices {
		if !t.Next(false, true) {
			continue
		}
		raw := uint32(1)
		for bit := 1; bit < 32; bit++ {
			if t.Next(false, true) {
				raw |= 1 << bit
			}
		}
		d.IDCode = raw
	}
	exitShift(t)
}

// exitShift leaves a shift state through Exit1 and Update and parks
// the TAP in Run-Test/Idle.
func exitShift(t probe.Transport) {
	t.Next(true, true)
	probe.ReturnIdle(t, idleCycles(t))
}

func idleCycles(t probe.Transport) int {
	if n := t.IdleCycles(); n > 0 {
		return n
	}
	return 1
}

// WriteIR loads an instruction into one device while holding every
// other device in BYPASS. Repeated loads of the same instruction are
// skipped.
func (c *Chain) WriteIR(d *Device, ir uint32) {
	if d.irKnown && d.currentIR == ir {
		return
	}
	for _, other := range c.devices {
		other.irKnown = false
	}
	d.currentIR = ir
	d.irKnown = true

	t := c.t
	probe.EnterShiftIR(t)
	if d.irPrescan > 0 {
		t.TDISeq(false, bitbuf.Ones(d.irPrescan), d.irPrescan)
	}
	t.TDISeq(d.irPostscan == 0, bitbuf.PackUint32(ir, d.IRLen), d.IRLen)
	if d.irPostscan > 0 {
		t.TDISeq(true, bitbuf.Ones(d.irPostscan), d.irPostscan)
	}
	probe.ReturnIdle(t, idleCycles(t))
}

// ShiftDR clocks cycles bits through one device's data register,
// padding around the bypass registers of the rest of the chain.
// din supplies the bits shifted in and dout, when non nil, receives
// the bits shifted out.
func (c *Chain) ShiftDR(d *Device, dout []byte, din []byte, cycles int) {
	t := c.t
	probe.EnterShiftDR(t)
	if d.drPrescan > 0 {
		t.TDISeq(false, bitbuf.Ones(d.drPrescan), d.drPrescan)
	}
	t.TDITDOSeq(dout, d.drPostscan == 0, din, cycles)
	if d.drPostscan > 0 {
		t.TDISeq(true, bitbuf.Ones(d.drPostscan), d.drPostscan)
	}
	probe.ReturnIdle(t, idleCycles(t))
}
