package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackmagic-debug/blackmagic-sub015/pkg/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the JTAG chain and list its devices",
	Long: `Reset the scan chain, measure every device's IR length, cross-check
the device count against the BYPASS registers and read out IDCODEs.

Examples:
  bmscan scan --adapter sim --sim-ids 0x16410041,0x4ba00477
  bmscan scan --adapter cmsisdap --clock 4000000
  bmscan scan --adapter rpio --tck 11 --tms 25 --tdi 10 --tdo 9`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addAdapterFlags(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	t, closeFn, err := openTransport()
	if err != nil {
		return err
	}
	defer closeFn()

	c, err := scan.Run(t)
	if err != nil {
		return err
	}
	devs := c.Devices()
	if len(devs) == 0 {
		fmt.Println("No devices found on the chain.")
		return nil
	}
	fmt.Printf("%-4s %-10s %-6s %s\n", "DEV", "IDCODE", "IRLEN", "DESCRIPTION")
	for _, d := range devs {
		fmt.Printf("%-4d 0x%08x %-6d %s\n", d.Index, d.IDCode, d.IRLen, d.Description)
	}
	return nil
}
