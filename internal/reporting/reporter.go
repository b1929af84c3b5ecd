// Package reporting renders a run envelope into the configured output
// formats.
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/verity-cli/internal/model"
)

// Reporter writes one run envelope to an output.
type Reporter interface {
	// Write renders the envelope.
	Write(envelope *model.RunEnvelope) error
	// Close finalizes the report and releases the underlying writer.
	Close() error
}

// nopWriteCloser wraps an io.Writer with a no-op Close so stdout is never
// closed.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error { return nil }

// New creates a reporter for the given format. An empty or "stdout" path
// writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	cleanup := func() {
		if !isStdOut {
			writer.Close()
		}
	}

	switch format {
	case "json":
		return NewJSONReporter(writer), nil
	case "html":
		return NewHTMLReporter(writer), nil
	case "markdown":
		return NewMarkdownReporter(writer), nil
	case "junit":
		return NewJUnitReporter(writer), nil
	default:
		cleanup()
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}
