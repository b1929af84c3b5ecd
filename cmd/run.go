package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/verity-cli/internal/browser"
	"github.com/xkilldash9x/verity-cli/internal/model"
	"github.com/xkilldash9x/verity-cli/internal/observability"
	"github.com/xkilldash9x/verity-cli/internal/reporting"
	"github.com/xkilldash9x/verity-cli/internal/results"
	"github.com/xkilldash9x/verity-cli/internal/runner"
)

const browserShutdownTimeout = 30 * time.Second

func newRunCmd(state *appState) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Run test suites from YAML files or directories",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind so CLI flags override config file and environment values.
			if err := state.viper.BindPFlag("runner.parallel", cmd.Flags().Lookup("parallel")); err != nil {
				return err
			}
			if err := state.viper.BindPFlag("runner.markers", cmd.Flags().Lookup("markers")); err != nil {
				return err
			}
			if err := state.viper.BindPFlag("runner.retries", cmd.Flags().Lookup("retry")); err != nil {
				return err
			}
			if err := state.viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := state.viper.BindPFlag("browser.type", cmd.Flags().Lookup("browser")); err != nil {
				return err
			}
			if err := state.viper.BindPFlag("report.formats", cmd.Flags().Lookup("report")); err != nil {
				return err
			}
			return state.viper.BindPFlag("report.dir", cmd.Flags().Lookup("output-dir"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// Re-unmarshal so the flag bindings from PreRunE take effect.
			if err := state.viper.Unmarshal(state.cfg); err != nil {
				return fmt.Errorf("failed to apply flag overrides: %w", err)
			}
			cfg := state.cfg

			var suites []*runner.Suite
			for _, path := range args {
				loaded, err := runner.LoadSuites(path)
				if err != nil {
					return err
				}
				suites = append(suites, loaded...)
			}

			mgr, err := browser.NewManager(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), browserShutdownTimeout)
				defer cancel()
				if err := mgr.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Browser shutdown was not clean", zap.Error(err))
				}
			}()

			r := runner.New(cfg, logger, func(context.Context) (runner.PageDriver, error) {
				return mgr.NewPage()
			})

			envelope, err := r.Run(ctx, suites)
			if err != nil {
				return err
			}

			if err := writeReports(cfg.Report.Dir, cfg.Report.Formats, envelope, logger); err != nil {
				return err
			}
			if cfg.Database.URL != "" {
				if err := persistRun(ctx, cfg.Database.URL, envelope, logger); err != nil {
					// Persistence is best effort; the run verdict stands.
					logger.Warn("Could not persist run to database", zap.Error(err))
				}
			}

			s := envelope.Summary
			logger.Info("Run finished",
				zap.String("run_id", s.RunID),
				zap.Int("total", s.Total),
				zap.Int("passed", s.Passed),
				zap.Int("failed", s.Failed),
				zap.Int("skipped", s.Skipped),
				zap.Int("errors", s.Errors),
			)
			if !s.Succeeded() {
				return fmt.Errorf("run finished with %d failed and %d errored case(s)", s.Failed, s.Errors)
			}
			return nil
		},
	}

	runCmd.Flags().IntP("parallel", "p", 1, "number of cases to run concurrently")
	runCmd.Flags().StringP("markers", "m", "", "marker filter expression, e.g. 'smoke and not slow'")
	runCmd.Flags().Int("retry", 0, "retry budget per case")
	runCmd.Flags().Bool("headless", true, "run the browser headless")
	runCmd.Flags().String("browser", "chromium", "browser type (chromium, chrome, edge)")
	runCmd.Flags().StringSlice("report", []string{"json"}, "report formats (html, json, markdown, junit)")
	runCmd.Flags().StringP("output-dir", "o", "reports", "directory for report files")
	return runCmd
}

// writeReports renders the envelope once per configured format into dir.
func writeReports(dir string, formats []string, envelope *model.RunEnvelope, logger *zap.Logger) error {
	if len(formats) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}

	ext := map[string]string{"html": "html", "json": "json", "markdown": "md", "junit": "xml"}
	for _, format := range formats {
		path := filepath.Join(dir, "report."+ext[format])
		rep, err := reporting.New(format, path)
		if err != nil {
			return err
		}
		writeErr := rep.Write(envelope)
		if closeErr := rep.Close(); writeErr == nil {
			writeErr = closeErr
		}
		if writeErr != nil {
			return writeErr
		}
		logger.Info("Report written", zap.String("format", format), zap.String("path", path))
	}
	return nil
}

// persistRun stores the envelope in PostgreSQL, creating the schema on
// first contact.
func persistRun(ctx context.Context, dbURL string, envelope *model.RunEnvelope, logger *zap.Logger) error {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store, err := results.New(ctx, pool, logger)
	if err != nil {
		return err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	return store.SaveRun(ctx, envelope)
}
