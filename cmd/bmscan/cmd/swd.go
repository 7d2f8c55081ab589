package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	rpio "github.com/stianeikeland/go-rpio/v4"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/blackmagic-debug/blackmagic-sub015/pkg/idcode"
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe"
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe/gpio"
	"github.com/blackmagic-debug/blackmagic-sub015/pkg/swd"
)

var swdCmd = &cobra.Command{
	Use:   "swd",
	Short: "Connect to an SWD debug port and read its IDCODE",
	Long: `Switch the target from JTAG to SWD framing, read the debug port
identification register and clear any sticky error flags.

SWD needs a bit-banged adapter with a bidirectional data line, so only
the gpio and rpio adapters are supported.

Examples:
  bmscan swd --adapter gpio --swclk GPIO11 --swdio GPIO25
  bmscan swd --adapter rpio --swclk 11 --swdio 25`,
	RunE: runSWD,
}

func init() {
	rootCmd.AddCommand(swdCmd)
	addAdapterFlags(swdCmd)
}

func runSWD(cmd *cobra.Command, args []string) error {
	seq, closeFn, err := openSWD()
	if err != nil {
		return err
	}
	defer closeFn()

	dp := swd.NewDP(seq)
	idr, err := dp.Connect()
	if err != nil {
		return err
	}
	fmt.Printf("DPIDR 0x%08x: %s\n", idr, idcode.Decode(idr))

	flags, err := dp.ClearErrors()
	if err != nil {
		return err
	}
	if flags != 0 {
		fmt.Printf("Cleared sticky error flags 0x%08x\n", flags)
	}
	return nil
}

func openSWD() (probe.SWDSequencer, func(), error) {
	switch adapterType {
	case "gpio":
		if _, err := host.Init(); err != nil {
			return nil, nil, fmt.Errorf("gpio host init: %w", err)
		}
		clk := gpioreg.ByName(pinSWCLK)
		if clk == nil {
			return nil, nil, fmt.Errorf("no such pin %q", pinSWCLK)
		}
		dio := gpioreg.ByName(pinSWDIO)
		if dio == nil {
			return nil, nil, fmt.Errorf("no such pin %q", pinSWDIO)
		}
		s, err := gpio.NewSWD(gpio.SWDConfig{
			SWCLK: gpio.PeriphPin{P: clk},
			SWDIO: &gpio.PeriphBidirPin{P: dio},
			Delay: probe.Delay{Cycles: delayCycles},
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil

	case "rpio":
		if err := rpio.Open(); err != nil {
			return nil, nil, fmt.Errorf("rpio: %w", err)
		}
		clkN, err := strconv.Atoi(pinSWCLK)
		if err != nil {
			return nil, nil, fmt.Errorf("rpio pins are BCM numbers, got %q", pinSWCLK)
		}
		dioN, err := strconv.Atoi(pinSWDIO)
		if err != nil {
			return nil, nil, fmt.Errorf("rpio pins are BCM numbers, got %q", pinSWDIO)
		}
		clk := rpio.Pin(clkN)
		clk.Output()
		dio := rpio.Pin(dioN)
		dio.Input()
		s, err := gpio.NewSWD(gpio.SWDConfig{
			SWCLK: gpio.RPiPin{P: clk},
			SWDIO: &gpio.RPiBidirPin{P: dio},
			Delay: probe.Delay{Cycles: delayCycles},
		})
		if err != nil {
			rpio.Close()
			return nil, nil, err
		}
		return s, func() { rpio.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("adapter %q cannot drive SWD, use gpio or rpio", adapterType)
	}
}
