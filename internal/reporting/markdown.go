package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xkilldash9x/verity-cli/internal/model"
)

// MarkdownReporter renders a summary table plus one row per test, suitable
// for pasting into a pull request or chat.
type MarkdownReporter struct {
	writer io.WriteCloser
}

// NewMarkdownReporter takes ownership of the writer.
func NewMarkdownReporter(w io.WriteCloser) *MarkdownReporter {
	return &MarkdownReporter{writer: w}
}

func (r *MarkdownReporter) Write(envelope *model.RunEnvelope) error {
	var b strings.Builder
	s := envelope.Summary

	fmt.Fprintf(&b, "# Test Run Report\n\n")
	fmt.Fprintf(&b, "Run `%s`", s.RunID)
	if s.Environment != "" {
		fmt.Fprintf(&b, " on `%s`", s.Environment)
	}
	fmt.Fprintf(&b, " with %s, %s\n\n", s.Browser, s.Duration.Round(time.Millisecond))

	fmt.Fprintf(&b, "| Total | Passed | Failed | Skipped | Errors | Pass rate |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %.1f%% |\n\n",
		s.Total, s.Passed, s.Failed, s.Skipped, s.Errors, s.PassRate*100)

	fmt.Fprintf(&b, "| Test | Suite | Status | Duration | Attempts |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|\n")
	for _, t := range envelope.TestResults {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d |\n",
			escapeCell(t.Name), escapeCell(t.Suite), t.Status,
			t.Duration.Round(time.Millisecond), t.Attempts)
	}

	failing := false
	for _, t := range envelope.TestResults {
		if t.Status != model.StatusFailed && t.Status != model.StatusError {
			continue
		}
		if !failing {
			fmt.Fprintf(&b, "\n## Failures\n\n")
			failing = true
		}
		fmt.Fprintf(&b, "### %s\n\n", t.Name)
		if t.Error != "" {
			fmt.Fprintf(&b, "%s\n\n", t.Error)
		}
		for _, f := range t.Failures {
			fmt.Fprintf(&b, "- [%s] expected %q, got %q", f.VerificationType, f.Expected, f.Actual)
			if f.Locator != "" {
				fmt.Fprintf(&b, " (`%s`)", f.Locator)
			}
			fmt.Fprintln(&b)
		}
		fmt.Fprintln(&b)
	}

	if _, err := io.WriteString(r.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}
	return nil
}

func (r *MarkdownReporter) Close() error {
	return r.writer.Close()
}

// escapeCell keeps pipes in test names from breaking the table.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
