package sim

import (
	"testing"

	"github.com/blackmagic-debug/blackmagic-sub015/pkg/tap"
)

// clockTMS walks the device through a TMS pattern, TDI high.
func clockTMS(d *Device, pattern uint32, cycles int) {
	for i := 0; i < cycles; i++ {
		d.Clock(pattern&(1<<i) != 0, true)
	}
}

// shiftDR clocks n bits through Shift-DR, returning the captured TDO word.
// The device must be in Run-Test/Idle.
func shiftDR(d *Device, tdi uint64, n int) uint64 {
	clockTMS(d, tap.ShiftDRPattern, tap.ShiftDRCycles)
	var out uint64
	for i := 0; i < n; i++ {
		if d.Clock(i == n-1, tdi&(1<<i) != 0) {
			out |= 1 << i
		}
	}
	clockTMS(d, tap.ReturnIdlePattern, 2)
	return out
}

func TestDeviceResetSelectsIDCode(t *testing.T) {
	d := NewDevice(0x4ba00477, 4)
	clockTMS(d, tap.SoftResetPattern, tap.SoftResetCycles)
	if got := d.State(); got != tap.RunTestIdle {
		t.Fatalf("state after reset = %v, want %v", got, tap.RunTestIdle)
	}
	if got := d.IR(); got != d.IDCodeOp() {
		t.Fatalf("IR after reset = %#x, want IDCODE op %#x", got, d.IDCodeOp())
	}
	if got := shiftDR(d, 0, 32); got != 0x4ba00477 {
		t.Fatalf("DR scan after reset = %#x, want idcode", got)
	}
}

func TestDeviceBypass(t *testing.T) {
	d := NewDevice(0x4ba00477, 4)
	clockTMS(d, tap.SoftResetPattern, tap.SoftResetCycles)

	// Shift the all-ones BYPASS instruction in; capture reads back xxx01.
	clockTMS(d, tap.ShiftIRPattern, tap.ShiftIRCycles)
	var capture uint64
	for i := 0; i < d.IRLen; i++ {
		if d.Clock(i == d.IRLen-1, true) {
			capture |= 1 << i
		}
	}
	clockTMS(d, tap.ReturnIdlePattern, 2)
	if capture&0b11 != 0b01 {
		t.Fatalf("IR capture = %#b, want low bits 01", capture)
	}
	if got := d.IR(); got != d.BypassOp() {
		t.Fatalf("IR = %#x, want BYPASS %#x", got, d.BypassOp())
	}

	// BYPASS is a single bit initialised to zero: data reappears on TDO one
	// cycle late.
	if got := shiftDR(d, 0b1011, 4); got != 0b0110 {
		t.Fatalf("bypass DR shift = %#b, want %#b", got, 0b0110)
	}
}

func TestChainThreadsData(t *testing.T) {
	a := NewDevice(0x1ba00477, 4)
	b := NewDevice(0x2ba00477, 5)
	c := NewChain(a, b)

	for i := 0; i < tap.SoftResetCycles; i++ {
		c.Clock(tap.SoftResetPattern&(1<<i) != 0, true)
	}
	if a.State() != tap.RunTestIdle || b.State() != tap.RunTestIdle {
		t.Fatalf("chain states = %v, %v after reset", a.State(), b.State())
	}

	// After reset both devices present IDCODE, 64 bits back to back with the
	// TDO-nearest device first.
	for _, bit := range []bool{true, false, false} { // Idle -> Shift-DR
		c.Clock(bit, true)
	}
	var out [2]uint32
	for i := 0; i < 64; i++ {
		if c.Clock(i == 63, false) {
			out[i/32] |= 1 << (i % 32)
		}
	}
	if out[0] != 0x2ba00477 || out[1] != 0x1ba00477 {
		t.Fatalf("chain idcodes = %#x, %#x; want TDO-nearest first", out[0], out[1])
	}
}
