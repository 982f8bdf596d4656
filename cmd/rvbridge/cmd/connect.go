package cmd

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/rvdebug"
)

var connectRetries int

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Bring up the SWD link and probe the Debug Module",
	Long: `Bring up the SWD link, power up the debug domain, and probe the
RISC-V Debug Module behind the Mem-AP.

The connect command will:
  1. Reset the SWD link (and select the target on multi-drop buses)
  2. Power up the debug and system domains
  3. Verify the Mem-AP identity
  4. Read the Debug Module version and count harts

Examples:
  # Probe the built-in simulator
  rvbridge connect --pins sim

  # Probe real hardware on Raspberry Pi GPIO 25/24
  rvbridge connect --pins rpi --swclk 25 --swdio 24

  # Select a multi-drop target and keep retrying a flaky link
  rvbridge connect --pins rpi --targetsel 0x01002927 --retries 5`,
	RunE: runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().IntVar(&connectRetries, "retries", 1,
		"connection attempts before giving up")
}

func runConnect(cmd *cobra.Command, args []string) error {
	pins, err := newPins()
	if err != nil {
		return err
	}
	client := newClient(pins)
	defer client.Close()

	for attempt := 1; ; attempt++ {
		err = client.Connect()
		if err == nil {
			break
		}
		if attempt >= connectRetries {
			return fmt.Errorf("connect failed after %d attempt(s): %w", attempt, err)
		}
		glog.Warningf("connect attempt %d: %v, retrying", attempt, err)
	}

	info, err := rvdebug.Probe(client)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}

	fmt.Printf("Debug Module:\n")
	fmt.Printf("  Version:  %s\n", info.Version)
	fmt.Printf("  dmstatus: 0x%08X\n", info.DMStatus)
	fmt.Printf("  Harts:    %d\n", info.Harts)

	return nil
}
