package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/blackmagic-debug/blackmagic-sub015/pkg/probe"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "bmscan",
	Short: "JTAG and SWD chain scanner",
	Long: `bmscan drives a debug probe at the wire level to enumerate the
devices on a JTAG scan chain or behind an SWD debug port.

Examples:
  bmscan scan --adapter sim                      # Scan a simulated chain
  bmscan scan --adapter cmsisdap                 # Scan through a CMSIS-DAP probe
  bmscan scan --adapter mpsse --ftdi-index 0     # Scan through an FTDI cable
  bmscan swd --adapter rpio                      # Read the SW-DP IDCODE over GPIO
  bmscan probes                                  # List connected CMSIS-DAP probes`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger() {
	logger := logrus.New()
	logger.SetFormatter(&prefixed.TextFormatter{
		TimestampFormat: "15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	})
	logger.SetOutput(os.Stdout)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	probe.SetLogger(logger)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
