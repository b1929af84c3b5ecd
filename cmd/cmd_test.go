package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/verity-cli/internal/observability"
)

// executeCommand runs a fresh root command and captures its output. Each
// call builds its own command tree so tests stay isolated.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()

	rootCmd, _ := NewRootCommand()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version, strings.TrimSpace(out))
}

func TestConfigValidate(t *testing.T) {
	cfgFile := writeTempConfig(t, "browser:\n  type: chromium\n")

	out, err := executeCommand(t, "--config", cfgFile, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}

func TestConfigValidateRejectsBadBrowser(t *testing.T) {
	cfgFile := writeTempConfig(t, "browser:\n  type: netscape\n")

	_, err := executeCommand(t, "--config", cfgFile, "config", "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser type")
}

func TestConfigShowKey(t *testing.T) {
	cfgFile := writeTempConfig(t, "runner:\n  parallel: 7\n")

	out, err := executeCommand(t, "--config", cfgFile, "config", "show", "runner.parallel")
	require.NoError(t, err)
	assert.Equal(t, "7", strings.TrimSpace(out))
}

func TestConfigShowUnknownKey(t *testing.T) {
	_, err := executeCommand(t, "config", "show", "no.such.key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestEnvironmentVariableOverride(t *testing.T) {
	t.Setenv("VERITY_RUNNER_PARALLEL", "9")

	out, err := executeCommand(t, "config", "show", "runner.parallel")
	require.NoError(t, err)
	assert.Equal(t, "9", strings.TrimSpace(out))
}

func TestSessionListEmpty(t *testing.T) {
	sessionDir := t.TempDir()
	cfgFile := writeTempConfig(t, "session:\n  dir: "+sessionDir+"\n")

	out, err := executeCommand(t, "--config", cfgFile, "session", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved sessions")
}

func TestSessionDeleteAbsent(t *testing.T) {
	sessionDir := t.TempDir()
	cfgFile := writeTempConfig(t, "session:\n  dir: "+sessionDir+"\n")

	out, err := executeCommand(t, "--config", cfgFile, "session", "delete", "ghost")
	require.NoError(t, err, "deleting a missing session is not an error")
	assert.Contains(t, out, "No session named")
}

func TestRunRejectsMissingSuitePath(t *testing.T) {
	_, err := executeCommand(t, "run", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestRunRequiresArgs(t *testing.T) {
	_, err := executeCommand(t, "run")
	require.Error(t, err)
}

const definitionYAML = `
page: login
url: https://example.com/login
elements:
  - name: email
    locator: id=email
    kind: input
  - name: submit
    locator: css=#submit
    kind: button
`

func TestGeneratePageObjectCommand(t *testing.T) {
	dir := t.TempDir()
	defPath := filepath.Join(dir, "login.yaml")
	require.NoError(t, os.WriteFile(defPath, []byte(definitionYAML), 0o644))
	outPath := filepath.Join(dir, "login_page.go")

	_, err := executeCommand(t, "generate", "page-object", defPath, "--output", outPath, "--package", "pages")
	require.NoError(t, err)

	generated, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(generated), "package pages")
	assert.Contains(t, string(generated), "type LoginPage struct")
}

func TestGenerateSuiteCommand(t *testing.T) {
	dir := t.TempDir()
	defPath := filepath.Join(dir, "login.yaml")
	require.NoError(t, os.WriteFile(defPath, []byte(definitionYAML), 0o644))

	out, err := executeCommand(t, "generate", "suite", defPath)
	require.NoError(t, err)
	assert.Contains(t, out, "name: login")
	assert.Contains(t, out, "wait_visible")
}

func TestGenerateScanCommand(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(htmlPath,
		[]byte(`<html><body><input id="q"><button data-testid="go">Go</button></body></html>`), 0o644))

	out, err := executeCommand(t, "generate", "scan", htmlPath, "--page", "search")
	require.NoError(t, err)
	assert.Contains(t, out, "page: search")
	assert.Contains(t, out, "test-id=go")
	assert.Contains(t, out, "id=q")
}

const envelopeJSON = `{
  "summary": {
    "run_id": "run-1", "browser": "chromium",
    "started_at": "2026-08-25T10:00:00Z", "finished_at": "2026-08-25T10:00:05Z",
    "duration": 5000000000,
    "total": 1, "passed": 0, "failed": 1, "skipped": 0, "errors": 0, "pass_rate": 0
  },
  "test_results": [
    {
      "id": "t1", "name": "checkout", "suite": "cart", "status": "failed",
      "started_at": "2026-08-25T10:00:00Z", "duration": 5000000000, "attempts": 1,
      "failures": [
        {"verification_type": "text_equals", "expected": "a", "actual": "b"}
      ]
    }
  ]
}`

func TestReportRerender(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(inPath, []byte(envelopeJSON), 0o644))
	outPath := filepath.Join(dir, "report.md")

	_, err := executeCommand(t, "report", "--input", inPath, "--format", "markdown", "--output", outPath)
	require.NoError(t, err)

	rendered, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(rendered), "# Test Run Report")
	assert.Contains(t, string(rendered), "checkout")
}

func TestReportRequiresInput(t *testing.T) {
	_, err := executeCommand(t, "report")
	require.Error(t, err)
}
