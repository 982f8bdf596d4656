package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceRVBridge/pkg/script"
)

var runCmd = &cobra.Command{
	Use:   "run <script>...",
	Short: "Execute debug script files against the target",
	Long: `Execute one or more debug scripts. A script is a line-oriented
list of DMI operations:

  # halt request smoke test
  connect
  write dmcontrol 0x80000001
  expect dmstatus 0x300 mask 0x300
  sleep 10ms
  read data0

Registers are named by their Debug Module symbolic names (dmcontrol,
dmstatus, data0, ...) or given as raw hex addresses.

Examples:
  rvbridge run bringup.dbg --pins sim
  rvbridge run halt.dbg resume.dbg --pins rpi`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	parser, err := script.NewParser()
	if err != nil {
		return err
	}

	pins, err := newPins()
	if err != nil {
		return err
	}
	client := newClient(pins)
	defer client.Close()

	runner := script.NewRunner(client)
	for _, path := range args {
		s, err := parser.ParseFile(path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if err := runner.Run(s); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Printf("%s: ok\n", path)
	}
	return nil
}
