package runner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSuiteYAML = `
name: checkout
base_url: https://shop.example.com
markers: [e2e]
cases:
  - name: add to cart
    markers: [smoke]
    steps:
      - type: navigate
        url: /products/42
      - type: click
        locator: "css=#add-to-cart"
      - type: assert_text
        locator: "css=.cart-count"
        expected: "1"
        soft: true
  - name: empty cart message
    steps:
      - type: navigate
        url: /cart
      - type: assert_title
        expected: "Your Cart"
      - type: sleep
        duration: 100ms
`

func writeSuite(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSuite(t *testing.T) {
	path := writeSuite(t, t.TempDir(), "checkout.yaml", sampleSuiteYAML)

	suite, err := LoadSuite(path)
	require.NoError(t, err)

	assert.Equal(t, "checkout", suite.Name)
	assert.Equal(t, "https://shop.example.com", suite.BaseURL)
	require.Len(t, suite.Cases, 2)

	first := suite.Cases[0]
	wantFirst := Case{
		Name:    "add to cart",
		Markers: []string{"smoke"},
		Steps: []Step{
			{Type: StepNavigate, URL: "/products/42"},
			{Type: StepClick, Locator: "css=#add-to-cart"},
			{Type: StepAssertText, Locator: "css=.cart-count", Expected: "1", Soft: true},
		},
	}
	if diff := cmp.Diff(wantFirst, first); diff != "" {
		t.Errorf("first case mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"e2e", "smoke"}, suite.effectiveMarkers(first))

	second := suite.Cases[1]
	assert.Equal(t, 100*time.Millisecond, second.Steps[2].Duration.Std())
	assert.Equal(t, []string{"e2e"}, suite.effectiveMarkers(second))
}

func TestLoadSuiteNameDefaultsToFilename(t *testing.T) {
	path := writeSuite(t, t.TempDir(), "smoke.yaml", `
cases:
  - name: only case
    steps:
      - type: navigate
        url: https://example.com
`)

	suite, err := LoadSuite(path)
	require.NoError(t, err)
	assert.Equal(t, "smoke", suite.Name)
}

func TestLoadSuiteValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"no cases", "name: x\ncases: []", "no cases"},
		{"unnamed case", "cases:\n  - steps:\n      - type: navigate\n        url: /a", "no name"},
		{
			"duplicate case names",
			"cases:\n  - name: a\n    steps:\n      - type: navigate\n        url: /a\n  - name: a\n    steps:\n      - type: navigate\n        url: /a",
			"duplicate",
		},
		{"unknown step", "cases:\n  - name: a\n    steps:\n      - type: hover", "unknown step"},
		{"navigate without url", "cases:\n  - name: a\n    steps:\n      - type: navigate", "needs a url"},
		{"click without locator", "cases:\n  - name: a\n    steps:\n      - type: click", "needs a locator"},
		{"sleep without duration", "cases:\n  - name: a\n    steps:\n      - type: sleep", "positive duration"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeSuite(t, t.TempDir(), "bad.yaml", tc.yaml)
			_, err := LoadSuite(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadSuitesFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "b.yaml", "cases:\n  - name: b1\n    steps:\n      - type: navigate\n        url: /b")
	writeSuite(t, dir, "a.yaml", "cases:\n  - name: a1\n    steps:\n      - type: navigate\n        url: /a")
	writeSuite(t, dir, "notes.txt", "not a suite")

	suites, err := LoadSuites(dir)
	require.NoError(t, err)
	require.Len(t, suites, 2)
	assert.Equal(t, "a", suites[0].Name, "suites load in filename order")
	assert.Equal(t, "b", suites[1].Name)
}

func TestLoadSuitesEmptyDirectory(t *testing.T) {
	_, err := LoadSuites(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no suite files")
}
