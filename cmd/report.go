package cmd

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/verity-cli/internal/model"
	"github.com/xkilldash9x/verity-cli/internal/reporting"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newReportCmd re-renders a previously written JSON envelope into another
// format, so CI can keep JSON as the source of truth and derive the rest.
func newReportCmd() *cobra.Command {
	var input, format, output string

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Re-render a JSON run report into another format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", input, err)
			}

			var envelope model.RunEnvelope
			if err := json.Unmarshal(data, &envelope); err != nil {
				return fmt.Errorf("failed to parse %s: %w", input, err)
			}

			rep, err := reporting.New(format, output)
			if err != nil {
				return err
			}
			writeErr := rep.Write(&envelope)
			if closeErr := rep.Close(); writeErr == nil {
				writeErr = closeErr
			}
			return writeErr
		},
	}

	reportCmd.Flags().StringVarP(&input, "input", "i", "", "JSON report to re-render")
	reportCmd.Flags().StringVarP(&format, "format", "f", "markdown", "target format (html, json, markdown, junit)")
	reportCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	_ = reportCmd.MarkFlagRequired("input")
	return reportCmd
}
