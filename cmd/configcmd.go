package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/verity-cli/internal/config"
)

func newConfigCmd(state *appState) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and modify the resolved configuration",
	}
	configCmd.AddCommand(
		newConfigShowCmd(state),
		newConfigSetCmd(state),
		newConfigValidateCmd(state),
	)
	return configCmd
}

func newConfigShowCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "show [key]",
		Short: "Print the resolved configuration, or a single dotted key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				value, ok := config.Lookup(state.viper, args[0])
				if !ok {
					return fmt.Errorf("unknown config key %q", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%v\n", value)
				return nil
			}

			out, err := yaml.Marshal(state.cfg)
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newConfigSetCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a key in the config file and write it back",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			state.viper.Set(key, value)

			// The updated tree must still pass validation before it lands
			// on disk.
			var cfg config.Config
			if err := state.viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to apply %s=%s: %w", key, value, err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			target := state.cfgFile
			if target == "" {
				target = "config.yaml"
			}
			if err := state.viper.WriteConfigAs(target); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, target)
			return nil
		},
	}
}

func newConfigValidateCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// PersistentPreRunE already loaded and validated; getting here
			// means the config is sound.
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (environment: %s).\n",
				orDefault(state.cfg.Environment, "default"))
			return nil
		},
	}
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
