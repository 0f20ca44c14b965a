package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// envPrefix prefixes every environment override, e.g. SUBAPP_LOADING_TEXT.
const envPrefix = "SUBAPP"

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	return NewRootCommand(version, commit, buildDate).ExecuteContext(ctx)
}

// NewRootCommand creates the root command for subappctl
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subappctl",
		Short: "Load and run sub-applications",
		Long: `subappctl loads a sub-application manifest, injects its resources into a
filesystem host, wires its controllers onto the event bus and serves an admin
API for inspecting and tearing it down.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newValidateCommand())

	return cmd
}
