package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe/cmsisdap"
)

var probesCmd = &cobra.Command{
	Use:   "probes",
	Short: "List connected CMSIS-DAP probes",
	RunE:  runProbes,
}

func init() {
	rootCmd.AddCommand(probesCmd)
}

func runProbes(cmd *cobra.Command, args []string) error {
	probes, err := cmsisdap.Enumerate()
	if err != nil {
		return err
	}
	if len(probes) == 0 {
		fmt.Println("No CMSIS-DAP probes found.")
		return nil
	}
	for _, p := range probes {
		fmt.Printf("%04x:%04x %-24s %s\n", p.VID, p.PID, p.SerialNumber, p.Description)
	}
	return nil
}
