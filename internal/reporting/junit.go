package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/verity-cli/internal/model"
)

// JUnitReporter renders the envelope in the JUnit XML dialect understood by
// CI systems: one testsuite per suite name, one testcase per test.
type JUnitReporter struct {
	writer io.WriteCloser
}

// NewJUnitReporter takes ownership of the writer.
func NewJUnitReporter(w io.WriteCloser) *JUnitReporter {
	return &JUnitReporter{writer: w}
}

func (r *JUnitReporter) Write(envelope *model.RunEnvelope) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("testsuites")
	root.CreateAttr("name", "verity")
	root.CreateAttr("tests", fmt.Sprintf("%d", envelope.Summary.Total))
	root.CreateAttr("failures", fmt.Sprintf("%d", envelope.Summary.Failed))
	root.CreateAttr("errors", fmt.Sprintf("%d", envelope.Summary.Errors))
	root.CreateAttr("skipped", fmt.Sprintf("%d", envelope.Summary.Skipped))
	root.CreateAttr("time", formatSeconds(envelope.Summary.Duration))

	// Preserve execution order while grouping by suite.
	suiteElems := make(map[string]*etree.Element)
	for _, t := range envelope.TestResults {
		suite, ok := suiteElems[t.Suite]
		if !ok {
			suite = root.CreateElement("testsuite")
			suite.CreateAttr("name", t.Suite)
			suiteElems[t.Suite] = suite
		}

		tc := suite.CreateElement("testcase")
		tc.CreateAttr("name", t.Name)
		tc.CreateAttr("classname", t.Suite)
		tc.CreateAttr("time", formatSeconds(t.Duration))

		switch t.Status {
		case model.StatusFailed:
			for _, f := range t.Failures {
				failure := tc.CreateElement("failure")
				failure.CreateAttr("type", f.VerificationType)
				failure.CreateAttr("message", fmt.Sprintf("expected %q, got %q", f.Expected, f.Actual))
				failure.SetText(f.Message)
			}
			if len(t.Failures) == 0 {
				failure := tc.CreateElement("failure")
				failure.CreateAttr("message", t.Error)
			}
		case model.StatusError:
			errElem := tc.CreateElement("error")
			errElem.CreateAttr("message", t.Error)
		case model.StatusSkipped:
			tc.CreateElement("skipped")
		}
	}

	// Per-suite counts after grouping.
	for name, suite := range suiteElems {
		var tests, failures, errs, skipped int
		for _, t := range envelope.TestResults {
			if t.Suite != name {
				continue
			}
			tests++
			switch t.Status {
			case model.StatusFailed:
				failures++
			case model.StatusError:
				errs++
			case model.StatusSkipped:
				skipped++
			}
		}
		suite.CreateAttr("tests", fmt.Sprintf("%d", tests))
		suite.CreateAttr("failures", fmt.Sprintf("%d", failures))
		suite.CreateAttr("errors", fmt.Sprintf("%d", errs))
		suite.CreateAttr("skipped", fmt.Sprintf("%d", skipped))
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(r.writer); err != nil {
		return fmt.Errorf("failed to write junit report: %w", err)
	}
	return nil
}

func (r *JUnitReporter) Close() error {
	return r.writer.Close()
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
