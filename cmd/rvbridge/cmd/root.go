package cmd

import (
	goflag "flag"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/dmi"
	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/swd"
)

var (
	// Global flags
	verbose bool

	pinsType   string
	swclkPin   uint8
	swdioPin   uint8
	halfPeriod time.Duration
	targetSel  uint32
	apSel      uint8
)

var rootCmd = &cobra.Command{
	Use:   "rvbridge",
	Short: "RISC-V debug bridge over SWD",
	Long: `A bridge between JTAG-speaking RISC-V debuggers and targets whose
Debug Module is only reachable over SWD. It exposes a virtual JTAG
Debug Transport Module to OpenOCD's remote_bitbang protocol and
forwards DMI traffic through an ARM-style DAP and Mem-AP.

Examples:
  rvbridge connect --pins sim                  # Bring up the link and probe the DM
  rvbridge serve --listen localhost:3335       # Serve OpenOCD remote_bitbang over TCP
  rvbridge run bringup.dbg --pins rpi          # Execute a debug script
  rvbridge probes                              # List attached USB debug probes`,
	Version: "0.9.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().AddGoFlagSet(goflag.CommandLine)
	rootCmd.PersistentFlags().StringVarP(&pinsType, "pins", "p", "sim",
		"pin driver (sim, rpi)")
	rootCmd.PersistentFlags().Uint8Var(&swclkPin, "swclk", 25,
		"BCM pin number for SWCLK (rpi driver)")
	rootCmd.PersistentFlags().Uint8Var(&swdioPin, "swdio", 24,
		"BCM pin number for SWDIO (rpi driver)")
	rootCmd.PersistentFlags().DurationVar(&halfPeriod, "half-period", 0,
		"SWCLK half period (rpi driver, 0 = unpaced)")
	rootCmd.PersistentFlags().Uint32Var(&targetSel, "targetsel", 0,
		"TARGETSEL value for multi-drop targets (0 = skip selection)")
	rootCmd.PersistentFlags().Uint8Var(&apSel, "apsel", 0,
		"access port number carrying the Debug Module")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		goflag.Set("logtostderr", "true")
		if verbose {
			goflag.Set("v", "2")
		}
		goflag.CommandLine.Parse(nil)
	}
}

// newPins builds the pin driver selected by --pins. The simulator carries a
// built-in target so every subcommand works without hardware.
func newPins() (swd.Pins, error) {
	switch pinsType {
	case "sim", "simulator":
		return newSimTarget(), nil
	case "rpi", "rpio":
		return &swd.RPiPins{Clk: swclkPin, Dat: swdioPin, HalfPeriod: halfPeriod}, nil
	default:
		return nil, fmt.Errorf("unknown pin driver %q (supported: sim, rpi)", pinsType)
	}
}

func newClient(pins swd.Pins) *dmi.Client {
	return dmi.NewClient(pins, dmi.Config{TargetSel: targetSel, APSel: apSel})
}
