// Package cmd implements throttlectl, the operator-facing CLI around the
// per-tenant I/O throttle engine: a simulated workload runner and a TUI
// dashboard that replays recorded snapshots, in the style of hydraidectl.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "throttlectl",
	Short:   "Per-tenant I/O throttle control CLI",
	Version: Version,
	Long: `
throttlectl (` + Version + `)

Drive and observe the per-tenant I/O throttle engine outside of a real
storage stack: run a simulated multi-tenant workload against it, record
utilization snapshots to an eventlog, and replay them in a TUI.

COMMANDS:
  run       Run a simulated workload against the throttle engine
  observe   Replay a recorded eventlog of per-tenant utilization and delay
  version   Print CLI version information

EXAMPLES:
  throttlectl run --tenants 4 --duration 30s
  throttlectl run --tenants 4 --eventlog /tmp/throttle.iotl
  throttlectl observe --eventlog /tmp/throttle.iotl
`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(observeCmd)
	rootCmd.AddCommand(versionCmd)
}
