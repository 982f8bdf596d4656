package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRVBridge/internal/probe"
)

var probesCmd = &cobra.Command{
	Use:   "probes",
	Short: "List attached USB debug probes",
	Long: `Enumerate USB devices that match known debug-probe VID/PID pairs.
The simulator is always listed so the tool can be exercised without
hardware connected.`,
	RunE: runProbes,
}

func init() {
	rootCmd.AddCommand(probesCmd)
}

func runProbes(cmd *cobra.Command, args []string) error {
	probes, err := probe.Discover(cmd.Context())
	if err != nil {
		return fmt.Errorf("probe discovery failed: %w", err)
	}

	fmt.Printf("Found %d probe(s):\n", len(probes))
	for i, p := range probes {
		fmt.Printf("  %d. %s\n", i+1, p.Label())
		if verbose && p.VendorID != 0 {
			fmt.Printf("     VID:PID %04X:%04X  kind %s\n", p.VendorID, p.ProductID, p.Kind)
		}
	}
	return nil
}
