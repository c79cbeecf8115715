package cmd

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"
)

// Build-time variables, set via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print throttlectl version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if Version != "dev" {
			if _, err := semver.NewVersion(Version); err != nil {
				return fmt.Errorf("built with an invalid semver version %q: %w", Version, err)
			}
		}

		fmt.Printf("throttlectl %s\n", Version)
		fmt.Printf("  commit:     %s\n", Commit)
		fmt.Printf("  built:      %s\n", BuildDate)
		fmt.Printf("  go runtime: %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return nil
	},
}
