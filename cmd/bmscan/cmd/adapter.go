package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	rpio "github.com/stianeikeland/go-rpio/v4"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe"
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe/cmsisdap"
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe/gpio"
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe/mpsse"
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe/sim"
)

var (
	adapterType string
	delayCycles uint32
	idleCycles  int

	// Bit-banged JTAG wiring. The periph adapter takes pin names, the
	// rpio adapter BCM numbers.
	pinTCK, pinTMS, pinTDI, pinTDO, pinTRST string

	// SWD wiring for the bit-banged adapters.
	pinSWCLK, pinSWDIO string

	// FTDI MPSSE settings.
	ftdiIndex int
	ftdiDiv   uint16

	// CMSIS-DAP settings.
	dapVID, dapPID uint16
	dapClockHz     uint32

	// Simulator settings.
	simIDCodes []string
)

func addAdapterFlags(c *cobra.Command) {
	c.Flags().StringVarP(&adapterType, "adapter", "a", "sim",
		"adapter type (sim, gpio, rpio, mpsse, cmsisdap)")
	c.Flags().Uint32Var(&delayCycles, "delay", 0,
		"bit-bang spin count per clock phase, 0 for full speed")
	c.Flags().IntVar(&idleCycles, "idle-cycles", 1,
		"Run-Test/Idle padding cycles after each shift")

	c.Flags().StringVar(&pinTCK, "tck", "GPIO11", "TCK pin name or BCM number")
	c.Flags().StringVar(&pinTMS, "tms", "GPIO25", "TMS pin name or BCM number")
	c.Flags().StringVar(&pinTDI, "tdi", "GPIO10", "TDI pin name or BCM number")
	c.Flags().StringVar(&pinTDO, "tdo", "GPIO9", "TDO pin name or BCM number")
	c.Flags().StringVar(&pinTRST, "trst", "", "optional TRST pin, empty to disable")

	c.Flags().StringVar(&pinSWCLK, "swclk", "GPIO11", "SWCLK pin name or BCM number")
	c.Flags().StringVar(&pinSWDIO, "swdio", "GPIO25", "SWDIO pin name or BCM number")

	c.Flags().IntVar(&ftdiIndex, "ftdi-index", 0, "FTDI device index")
	c.Flags().Uint16Var(&ftdiDiv, "ftdi-divisor", 5, "MPSSE clock divisor")

	c.Flags().Uint16Var(&dapVID, "vid", 0, "CMSIS-DAP USB vendor id, 0 to autodetect")
	c.Flags().Uint16Var(&dapPID, "pid", 0, "CMSIS-DAP USB product id, 0 to autodetect")
	c.Flags().Uint32Var(&dapClockHz, "clock", 1000000, "CMSIS-DAP TCK frequency in Hz")

	c.Flags().StringSliceVar(&simIDCodes, "sim-ids", nil,
		"simulator: chain IDCODEs from TDI to TDO (hex, e.g. 0x16410041,0x4ba00477)")
}

// openTransport builds the selected JTAG transport. The returned close
// function releases whatever hardware the adapter claimed.
func openTransport() (probe.Transport, func(), error) {
	switch adapterType {
	case "sim", "simulator":
		chain, err := simChain()
		if err != nil {
			return nil, nil, err
		}
		return sim.NewTransport(chain, idleCycles), func() {}, nil

	case "gpio":
		return openPeriphJTAG()

	case "rpio":
		return openRPiJTAG()

	case "mpsse":
		dev, err := mpsse.Open(mpsse.DeviceConfig{Index: ftdiIndex, ClockDivisor: ftdiDiv})
		if err != nil {
			return nil, nil, err
		}
		return mpsse.NewTransport(dev, idleCycles), func() { dev.Close() }, nil

	case "cmsisdap":
		return openCMSISDAP()

	default:
		return nil, nil, fmt.Errorf("unknown adapter type %q", adapterType)
	}
}

func simChain() (*sim.Chain, error) {
	ids := simIDCodes
	if len(ids) == 0 {
		ids = []string{"0x4ba00477"}
	}
	var devices []*sim.Device
	for _, s := range ids {
		id, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("bad simulator idcode %q: %w", s, err)
		}
		devices = append(devices, sim.NewDevice(uint32(id), 4))
	}
	return sim.NewChain(devices...), nil
}

func openPeriphJTAG() (probe.Transport, func(), error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("gpio host init: %w", err)
	}
	cfg := gpio.Config{
		Delay:      probe.Delay{Cycles: delayCycles},
		IdleCycles: idleCycles,
	}
	for _, p := range []struct {
		name string
		dst  *gpio.Pin
	}{
		{pinTCK, &cfg.TCK},
		{pinTMS, &cfg.TMS},
		{pinTDI, &cfg.TDI},
	} {
		pin := gpioreg.ByName(p.name)
		if pin == nil {
			return nil, nil, fmt.Errorf("no such pin %q", p.name)
		}
		*p.dst = gpio.PeriphPin{P: pin}
	}
	tdo := gpioreg.ByName(pinTDO)
	if tdo == nil {
		return nil, nil, fmt.Errorf("no such pin %q", pinTDO)
	}
	in := gpio.PeriphInPin{P: tdo}
	if err := in.Init(); err != nil {
		return nil, nil, fmt.Errorf("configure TDO: %w", err)
	}
	cfg.TDO = in
	if pinTRST != "" {
		trst := gpioreg.ByName(pinTRST)
		if trst == nil {
			return nil, nil, fmt.Errorf("no such pin %q", pinTRST)
		}
		cfg.TRST = gpio.PeriphPin{P: trst}
	}
	j, err := gpio.NewJTAG(cfg)
	if err != nil {
		return nil, nil, err
	}
	return j, func() {}, nil
}

func openRPiJTAG() (probe.Transport, func(), error) {
	if err := rpio.Open(); err != nil {
		return nil, nil, fmt.Errorf("rpio: %w", err)
	}
	pin := func(s string, out bool) (gpio.RPiPin, error) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return gpio.RPiPin{}, fmt.Errorf("rpio pins are BCM numbers, got %q", s)
		}
		p := rpio.Pin(n)
		if out {
			p.Output()
		} else {
			p.Input()
		}
		return gpio.RPiPin{P: p}, nil
	}
	cfg := gpio.Config{
		Delay:      probe.Delay{Cycles: delayCycles},
		IdleCycles: idleCycles,
	}
	var err error
	if cfg.TCK, err = pin(pinTCK, true); err != nil {
		return nil, nil, err
	}
	if cfg.TMS, err = pin(pinTMS, true); err != nil {
		return nil, nil, err
	}
	if cfg.TDI, err = pin(pinTDI, true); err != nil {
		return nil, nil, err
	}
	if cfg.TDO, err = pin(pinTDO, false); err != nil {
		return nil, nil, err
	}
	if pinTRST != "" {
		if cfg.TRST, err = pin(pinTRST, true); err != nil {
			return nil, nil, err
		}
	}
	j, err := gpio.NewJTAG(cfg)
	if err != nil {
		rpio.Close()
		return nil, nil, err
	}
	return j, func() { rpio.Close() }, nil
}

func openCMSISDAP() (probe.Transport, func(), error) {
	vid, pid := dapVID, dapPID
	if vid == 0 || pid == 0 {
		probes, err := cmsisdap.Enumerate()
		if err != nil {
			return nil, nil, err
		}
		if len(probes) == 0 {
			return nil, nil, fmt.Errorf("no CMSIS-DAP probe found")
		}
		vid, pid = probes[0].VID, probes[0].PID
	}
	pipe, err := cmsisdap.OpenPipe(vid, pid)
	if err != nil {
		return nil, nil, err
	}
	t := cmsisdap.NewTransport(pipe, idleCycles)
	if err := t.Connect(); err != nil {
		pipe.Close()
		return nil, nil, err
	}
	if err := t.SetClock(dapClockHz); err != nil {
		t.Disconnect()
		pipe.Close()
		return nil, nil, err
	}
	closeFn := func() {
		t.Disconnect()
		pipe.Close()
	}
	return t, closeFn, nil
}
