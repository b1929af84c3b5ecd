package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/verity-cli/internal/codegen"
)

func newGenerateCmd() *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate page objects and suite skeletons",
	}
	generateCmd.AddCommand(
		newGeneratePageObjectCmd(),
		newGenerateSuiteCmd(),
		newGenerateScanCmd(),
	)
	return generateCmd
}

// outputWriter opens the --output target, defaulting to stdout.
func outputWriter(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "stdout" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return f, f.Close, nil
}

func newGeneratePageObjectCmd() *cobra.Command {
	var output, pkg string

	pageObjectCmd := &cobra.Command{
		Use:   "page-object <definition.yaml>",
		Short: "Generate a Go page object from a page definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := codegen.LoadDefinition(args[0])
			if err != nil {
				return err
			}
			w, closeFn, err := outputWriter(cmd, output)
			if err != nil {
				return err
			}
			if err := codegen.GeneratePageObject(def, pkg, w); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}
	pageObjectCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	pageObjectCmd.Flags().StringVar(&pkg, "package", "pages", "package name for the generated file")
	return pageObjectCmd
}

func newGenerateSuiteCmd() *cobra.Command {
	var output string

	suiteCmd := &cobra.Command{
		Use:   "suite <definition.yaml>",
		Short: "Generate a runner suite skeleton from a page definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := codegen.LoadDefinition(args[0])
			if err != nil {
				return err
			}
			w, closeFn, err := outputWriter(cmd, output)
			if err != nil {
				return err
			}
			if err := codegen.GenerateSuite(def, w); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}
	suiteCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return suiteCmd
}

func newGenerateScanCmd() *cobra.Command {
	var output, pageName string

	scanCmd := &cobra.Command{
		Use:   "scan <page.html>",
		Short: "Extract candidate elements from an HTML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			def, err := codegen.ScanHTML(f, pageName)
			if err != nil {
				return err
			}

			w, closeFn, err := outputWriter(cmd, output)
			if err != nil {
				return err
			}
			if err := codegen.WriteDefinition(def, w); err != nil {
				closeFn()
				return err
			}
			return closeFn()
		},
	}
	scanCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	scanCmd.Flags().StringVar(&pageName, "page", "page", "page name for the definition")
	return scanCmd
}
