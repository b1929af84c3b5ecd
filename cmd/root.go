// Package cmd wires the CLI surface: flag parsing, configuration loading,
// and logger initialization, delegating the real work to the internal
// packages.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/verity-cli/internal/config"
	"github.com/xkilldash9x/verity-cli/internal/observability"
)

// appState carries the resolved configuration between PersistentPreRunE and
// the subcommands. Each root command owns its own state so tests stay
// isolated.
type appState struct {
	viper   *viper.Viper
	cfgFile string
	env     string
	cfg     *config.Config
}

// NewRootCommand builds the command tree.
func NewRootCommand() (*cobra.Command, *appState) {
	state := &appState{viper: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "verity",
		Short:         "Verity runs browser test suites with persistent sessions.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(state.viper, state.env, state.cfgFile)
			if err != nil {
				// A fallback logger so the failure itself is visible.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "verity"})
				return err
			}
			state.cfg = cfg

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting verity",
				zap.String("version", Version),
				zap.String("environment", cfg.Environment),
			)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&state.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&state.env, "env", "e", "", "environment overlay (config.<env>.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newRunCmd(state),
		newSessionCmd(state),
		newConfigCmd(state),
		newGenerateCmd(),
		newReportCmd(),
		newVersionCmd(),
	)
	return rootCmd, state
}

// Execute runs the CLI with the given signal-aware context and returns the
// process exit code.
func Execute(ctx context.Context) int {
	rootCmd, _ := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		observability.Sync()
		return 1
	}
	observability.Sync()
	return 0
}
