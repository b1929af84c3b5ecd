package reporting

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/xkilldash9x/verity-cli/internal/model"
)

// htmlTemplate renders a self-contained report page; styles are embedded so
// the file can be attached to a ticket or emailed as-is.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Test Run {{.Summary.RunID}}</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 2rem; color: #1f2430; }
  h1 { font-size: 1.4rem; }
  .summary { display: flex; gap: 1.5rem; margin: 1rem 0; }
  .stat { padding: 0.6rem 1rem; border-radius: 6px; background: #f3f4f6; }
  .stat b { display: block; font-size: 1.3rem; }
  .passed b { color: #16803c; }
  .failed b { color: #b91c1c; }
  .skipped b { color: #92700c; }
  .errors b { color: #7c2d92; }
  table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
  th, td { text-align: left; padding: 0.45rem 0.7rem; border-bottom: 1px solid #e5e7eb; }
  tr.status-failed td, tr.status-error td { background: #fef2f2; }
  tr.status-skipped td { background: #fefce8; }
  .detail { font-size: 0.85rem; color: #6b7280; }
  .failure-list { margin: 0.3rem 0 0.3rem 1rem; font-size: 0.85rem; color: #b91c1c; }
</style>
</head>
<body>
<h1>Test Run Report</h1>
<p class="detail">
  Run {{.Summary.RunID}}
  {{- if .Summary.Environment}} &middot; environment {{.Summary.Environment}}{{end}}
  &middot; browser {{.Summary.Browser}}
  &middot; {{formatTime .Summary.StartedAt}}
  &middot; {{formatDuration .Summary.Duration}}
</p>
<div class="summary">
  <div class="stat"><b>{{.Summary.Total}}</b>total</div>
  <div class="stat passed"><b>{{.Summary.Passed}}</b>passed</div>
  <div class="stat failed"><b>{{.Summary.Failed}}</b>failed</div>
  <div class="stat skipped"><b>{{.Summary.Skipped}}</b>skipped</div>
  <div class="stat errors"><b>{{.Summary.Errors}}</b>errors</div>
  <div class="stat"><b>{{formatRate .Summary.PassRate}}</b>pass rate</div>
</div>
<table>
  <thead><tr><th>Test</th><th>Suite</th><th>Status</th><th>Duration</th><th>Attempts</th></tr></thead>
  <tbody>
  {{range .TestResults}}
    <tr class="status-{{.Status}}">
      <td>{{.Name}}
        {{- if .Error}}<div class="detail">{{.Error}}</div>{{end}}
        {{- if .Failures}}
        <ul class="failure-list">
          {{range .Failures}}<li>[{{.VerificationType}}] expected {{printf "%q" .Expected}}, got {{printf "%q" .Actual}}{{if .Locator}} ({{.Locator}}){{end}}</li>{{end}}
        </ul>
        {{- end}}
      </td>
      <td>{{.Suite}}</td>
      <td>{{.Status}}</td>
      <td>{{formatDuration .Duration}}</td>
      <td>{{.Attempts}}</td>
    </tr>
  {{end}}
  </tbody>
</table>
</body>
</html>
`

// HTMLReporter renders a self-contained HTML page.
type HTMLReporter struct {
	writer io.WriteCloser
	tmpl   *template.Template
}

// NewHTMLReporter takes ownership of the writer.
func NewHTMLReporter(w io.WriteCloser) *HTMLReporter {
	tmpl := template.Must(template.New("report").Funcs(template.FuncMap{
		"formatTime":     func(t time.Time) string { return t.Format(time.RFC3339) },
		"formatDuration": func(d time.Duration) string { return d.Round(time.Millisecond).String() },
		"formatRate":     func(r float64) string { return fmt.Sprintf("%.1f%%", r*100) },
	}).Parse(htmlTemplate))
	return &HTMLReporter{writer: w, tmpl: tmpl}
}

func (r *HTMLReporter) Write(envelope *model.RunEnvelope) error {
	if err := r.tmpl.Execute(r.writer, envelope); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	return nil
}

func (r *HTMLReporter) Close() error {
	return r.writer.Close()
}
