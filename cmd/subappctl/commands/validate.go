package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	subapp "github.com/mitchellsimoens/SubAppDemo"
	"github.com/mitchellsimoens/SubAppDemo/feeders"
)

func newValidateCommand() *cobra.Command {
	var noEnv bool

	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Load a manifest and print the resolved configuration",
		Long: `Load a YAML or TOML sub-application manifest, apply defaults and SUBAPP_
environment overrides, check it, and print the result as YAML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []subapp.Feeder
			if !noEnv {
				extra = append(extra, feeders.NewEnvFeeder(envPrefix))
			}

			cfg, err := subapp.LoadConfig(args[0], extra...)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().BoolVar(&noEnv, "no-env", false, "ignore SUBAPP_ environment overrides")

	return cmd
}
