package scan_test

import (
	"testing"

	"github.com/blackmagic-debug/blackmagic-sub015/pkg/bitbuf"
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe/sim"
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/scan"
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/tap"
)

func TestRunSingleDevice(t *testing.T) {
	dev := sim.NewDevice(0x4ba00477, 4)
	tr := sim.NewTransport(sim.NewChain(dev), 1)

	c, err := scan.Run(tr)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	devs := c.Devices()
	if len(devs) != 1 {
		t.Fatalf("found %d devices, want 1", len(devs))
	}
	d := devs[0]
	if d.IRLen != 4 {
		t.Errorf("IRLen = %d, want 4", d.IRLen)
	}
	if d.IDCode != 0x4ba00477 {
		t.Errorf("IDCode = %#x, want 0x4ba00477", d.IDCode)
	}
	if d.Description != "ARM ADIv5 JTAG-DP port" {
		t.Errorf("Description = %q", d.Description)
	}
	if tr.State() != tap.RunTestIdle {
		t.Errorf("finished in %v, want RunTestIdle", tr.State())
	}
}

func TestRunOrdersDevicesFromTDO(t *testing.T) {
	// The chain runs TDI through the STM32 into the debug port, so
	// the debug port's bits reach TDO first and it gets index 0.
	stm := sim.NewDevice(0x16410041, 5)
	dp := sim.NewDevice(0x4ba00477, 4)
	tr := sim.NewTransport(sim.NewChain(stm, dp), 1)

	c, err := scan.Run(tr)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	devs := c.Devices()
	if len(devs) != 2 {
		t.Fatalf("found %d devices, want 2", len(devs))
	}
	if devs[0].IDCode != 0x4ba00477 || devs[0].IRLen != 4 {
		t.Errorf("device 0 = %#x/%d, want 0x4ba00477/4", devs[0].IDCode, devs[0].IRLen)
	}
	if devs[1].IDCode != 0x16410041 || devs[1].IRLen != 5 {
		t.Errorf("device 1 = %#x/%d, want 0x16410041/5", devs[1].IDCode, devs[1].IRLen)
	}
	if devs[1].Description != "STM32, medium density" {
		t.Errorf("device 1 description = %q", devs[1].Description)
	}
}

func TestRunEmptyChain(t *testing.T) {
	tr := sim.NewTransport(sim.NewChain(), 1)
	c, err := scan.Run(tr)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := len(c.Devices()); n != 0 {
		t.Errorf("found %d devices on a looped-back chain", n)
	}
}

func TestWriteIRSelectsOneDevice(t *testing.T) {
	stm := sim.NewDevice(0x16410041, 5)
	dp := sim.NewDevice(0x4ba00477, 4)
	tr := sim.NewTransport(sim.NewChain(stm, dp), 1)

	c, err := scan.Run(tr)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	target := c.Devices()[0] // the debug port

	c.WriteIR(target, 0b0101)
	if got := dp.IR(); got != 0b0101 {
		t.Errorf("target IR = %#b, want 0b0101", got)
	}
	if got := stm.IR(); got != stm.BypassOp() {
		t.Errorf("other device IR = %#b, want BYPASS %#b", got, stm.BypassOp())
	}

	// A repeated load of the same instruction is a no-op.
	clocks := tr.Clocks()
	c.WriteIR(target, 0b0101)
	if tr.Clocks() != clocks {
		t.Error("repeated WriteIR touched the chain")
	}

	// Loading another device invalidates the cache.
	c.WriteIR(c.Devices()[1], 0b00010)
	c.WriteIR(target, 0b0101)
	if got := dp.IR(); got != 0b0101 {
		t.Errorf("reloaded target IR = %#b, want 0b0101", got)
	}
	if tr.Clocks() == clocks {
		t.Error("WriteIR after a different device did not reshift")
	}
}

func TestShiftDRPadsAroundBypass(t *testing.T) {
	// Three devices, target in the middle: one bypass bit of junk
	// ahead of the payload and one bypass stage to push it through.
	stm := sim.NewDevice(0x16410041, 5)
	dp := sim.NewDevice(0x4ba00477, 4)
	l0 := sim.NewDevice(0x06416041, 6)
	tr := sim.NewTransport(sim.NewChain(stm, dp, l0), 1)

	c, err := scan.Run(tr)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	target := c.Devices()[1]
	if target.IDCode != 0x4ba00477 {
		t.Fatalf("middle device = %#x, want 0x4ba00477", target.IDCode)
	}

	// Point the target at its identification register. WriteIR fills
	// the rest of the chain with ones, leaving them in BYPASS.
	c.WriteIR(target, uint32(dp.IDCodeOp()))

	dout := bitbuf.New(32)
	c.ShiftDR(target, dout, bitbuf.New(32), 32)
	if got := bitbuf.Uint32(dout, 0, 32); got != 0x4ba00477 {
		t.Errorf("DR read %#08x, want 0x4ba00477", got)
	}
	if tr.State() != tap.RunTestIdle {
		t.Errorf("finished in %v, want RunTestIdle", tr.State())
	}
}
