package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hydraide/iothrottle/app/eventlog"
	"github.com/hydraide/iothrottle/cmd/throttlectl/cmd/observe"
)

var (
	observeEventlogPath string
	observeCeiling      uint32
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Replay a recorded eventlog of per-tenant utilization snapshots",
	Long: `Observe replays a sequence of utilization snapshots recorded by
"throttlectl run --eventlog" as a TUI dashboard: per-tenant io_util and
io_delay over time, stepped or auto-played.

Examples:
  throttlectl observe --eventlog /tmp/throttle.iotl
  throttlectl observe --eventlog /tmp/throttle.iotl --ceiling 100
`,
	RunE: runObserve,
}

func init() {
	observeCmd.Flags().StringVar(&observeEventlogPath, "eventlog", "", "path to a recorded eventlog (required)")
	observeCmd.Flags().Uint32Var(&observeCeiling, "ceiling", 100, "delay ceiling in microseconds, used only to color rows")
	_ = observeCmd.MarkFlagRequired("eventlog")
}

func runObserve(cmd *cobra.Command, args []string) error {
	r, err := eventlog.NewReader(observeEventlogPath)
	if err != nil {
		return fmt.Errorf("opening eventlog: %w", err)
	}
	defer r.Close()

	snapshots, err := r.All()
	if err != nil {
		return fmt.Errorf("reading eventlog: %w", err)
	}
	if len(snapshots) == 0 {
		fmt.Println("eventlog contains no snapshots")
		return nil
	}

	model := observe.NewModel(snapshots, observeCeiling)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Println("error running observe:", err)
		os.Exit(1)
	}
	return nil
}
