package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/verity-cli/internal/config"
	"github.com/xkilldash9x/verity-cli/internal/model"
	"github.com/xkilldash9x/verity-cli/internal/verr"
)

// fakePage is a scripted PageDriver: canned text per locator, recorded
// action order, optional injected failures.
type fakePage struct {
	mu      sync.Mutex
	actions []string

	texts    map[string]string
	title    string
	url      string
	stepErrs map[string]error
	closed   bool
}

func (f *fakePage) record(action string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	f.record("navigate " + url)
	return f.stepErrs["navigate"]
}

func (f *fakePage) Click(_ context.Context, locator string) error {
	f.record("click " + locator)
	return f.stepErrs[locator]
}

func (f *fakePage) Fill(_ context.Context, locator, value string) error {
	f.record(fmt.Sprintf("fill %s=%s", locator, value))
	return f.stepErrs[locator]
}

func (f *fakePage) WaitVisible(_ context.Context, locator string) error {
	f.record("wait " + locator)
	return f.stepErrs[locator]
}

func (f *fakePage) Text(_ context.Context, locator string) (string, error) {
	f.record("text " + locator)
	if err := f.stepErrs[locator]; err != nil {
		return "", err
	}
	return f.texts[locator], nil
}

func (f *fakePage) Title(context.Context) (string, error) { return f.title, nil }
func (f *fakePage) URL(context.Context) (string, error)   { return f.url, nil }
func (f *fakePage) Close()                                { f.closed = true }

func (f *fakePage) Screenshot(context.Context) ([]byte, error) {
	f.record("screenshot")
	if err := f.stepErrs["screenshot"]; err != nil {
		return nil, err
	}
	return []byte("png-bytes"), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Browser: config.BrowserConfig{Type: "chromium"},
		Runner:  config.RunnerConfig{Parallel: 1},
	}
}

func staticFactory(page *fakePage) PageFactory {
	return func(context.Context) (PageDriver, error) { return page, nil }
}

func suiteOf(cases ...Case) []*Suite {
	return []*Suite{{Name: "suite", BaseURL: "https://example.com", Cases: cases}}
}

func TestRunPassingCase(t *testing.T) {
	page := &fakePage{texts: map[string]string{"css=.cart-count": "1"}}
	r := New(testConfig(), zap.NewNop(), staticFactory(page))

	env, err := r.Run(context.Background(), suiteOf(Case{
		Name: "add to cart",
		Steps: []Step{
			{Type: StepNavigate, URL: "/products/42"},
			{Type: StepClick, Locator: "css=#add"},
			{Type: StepAssertText, Locator: "css=.cart-count", Expected: "1"},
		},
	}))
	require.NoError(t, err)

	require.Len(t, env.TestResults, 1)
	result := env.TestResults[0]
	assert.Equal(t, model.StatusPassed, result.Status)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, result.Failures)
	assert.True(t, page.closed, "page closes after the case")

	// Relative URLs resolve against the suite base.
	assert.Equal(t, []string{
		"navigate https://example.com/products/42",
		"click css=#add",
		"text css=.cart-count",
	}, page.actions)

	assert.Equal(t, 1, env.Summary.Passed)
	assert.True(t, env.Summary.Succeeded())
}

func TestSoftAssertionsCollectEveryFailure(t *testing.T) {
	page := &fakePage{
		texts: map[string]string{"css=.price": "$41.00", "css=.qty": "2"},
		url:   "https://example.com/cart",
	}
	r := New(testConfig(), zap.NewNop(), staticFactory(page))

	env, err := r.Run(context.Background(), suiteOf(Case{
		Name: "cart totals",
		Steps: []Step{
			{Type: StepAssertText, Locator: "css=.price", Expected: "$42.00", Soft: true},
			{Type: StepAssertText, Locator: "css=.qty", Expected: "1", Soft: true},
			{Type: StepClick, Locator: "css=#checkout"},
		},
	}))
	require.NoError(t, err)

	result := env.TestResults[0]
	assert.Equal(t, model.StatusFailed, result.Status)

	// Both mismatches recorded in encounter order, and later steps ran.
	require.Len(t, result.Failures, 2)
	assert.Equal(t, "css=.price", result.Failures[0].Locator)
	assert.Equal(t, "css=.qty", result.Failures[1].Locator)
	assert.Equal(t, "https://example.com/cart", result.Failures[0].PageURL)
	assert.Contains(t, page.actions, "click css=#checkout")
}

func TestHardAssertionStopsTheCase(t *testing.T) {
	page := &fakePage{texts: map[string]string{"css=.banner": "Welcome"}}
	r := New(testConfig(), zap.NewNop(), staticFactory(page))

	env, err := r.Run(context.Background(), suiteOf(Case{
		Name: "greeting",
		Steps: []Step{
			{Type: StepAssertText, Locator: "css=.banner", Expected: "Hello"},
			{Type: StepClick, Locator: "css=#next"},
		},
	}))
	require.NoError(t, err)

	result := env.TestResults[0]
	assert.Equal(t, model.StatusFailed, result.Status)
	require.Len(t, result.Failures, 1)
	assert.NotContains(t, page.actions, "click css=#next", "hard failure stops the case")
}

func TestElementFailureIsFailedNotError(t *testing.T) {
	page := &fakePage{stepErrs: map[string]error{
		"css=#gone": verr.ElementNotFound("css=#gone", errors.New("no node")),
	}}
	r := New(testConfig(), zap.NewNop(), staticFactory(page))

	env, err := r.Run(context.Background(), suiteOf(Case{
		Name:  "missing element",
		Steps: []Step{{Type: StepClick, Locator: "css=#gone"}},
	}))
	require.NoError(t, err)

	assert.Equal(t, model.StatusFailed, env.TestResults[0].Status)
	assert.Contains(t, env.TestResults[0].Error, "css=#gone")
}

func TestPageFactoryFailureIsError(t *testing.T) {
	r := New(testConfig(), zap.NewNop(), func(context.Context) (PageDriver, error) {
		return nil, errors.New("browser crashed")
	})

	env, err := r.Run(context.Background(), suiteOf(Case{
		Name:  "any",
		Steps: []Step{{Type: StepNavigate, URL: "/"}},
	}))
	require.NoError(t, err)

	assert.Equal(t, model.StatusError, env.TestResults[0].Status)
	assert.Equal(t, 1, env.Summary.Errors)
	assert.False(t, env.Summary.Succeeded())
}

func TestRetriesUntilPassing(t *testing.T) {
	cfg := testConfig()
	cfg.Runner.Retries = 2

	attempt := 0
	factory := func(context.Context) (PageDriver, error) {
		attempt++
		page := &fakePage{}
		if attempt < 3 {
			page.stepErrs = map[string]error{"navigate": verr.Timeout("navigation", errors.New("slow"))}
		}
		return page, nil
	}

	r := New(cfg, zap.NewNop(), factory)
	env, err := r.Run(context.Background(), suiteOf(Case{
		Name:  "flaky",
		Steps: []Step{{Type: StepNavigate, URL: "/"}},
	}))
	require.NoError(t, err)

	result := env.TestResults[0]
	assert.Equal(t, model.StatusPassed, result.Status)
	assert.Equal(t, 3, result.Attempts)
}

func TestRetryBudgetExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.Runner.Retries = 1

	page := &fakePage{stepErrs: map[string]error{
		"navigate": verr.Timeout("navigation", errors.New("slow")),
	}}
	r := New(cfg, zap.NewNop(), staticFactory(page))

	env, err := r.Run(context.Background(), suiteOf(Case{
		Name:  "always slow",
		Steps: []Step{{Type: StepNavigate, URL: "/"}},
	}))
	require.NoError(t, err)

	result := env.TestResults[0]
	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Equal(t, 2, result.Attempts)
}

func TestMarkerFilterSkips(t *testing.T) {
	cfg := testConfig()
	cfg.Runner.Markers = "smoke"

	page := &fakePage{}
	r := New(cfg, zap.NewNop(), staticFactory(page))

	env, err := r.Run(context.Background(), suiteOf(
		Case{Name: "fast", Markers: []string{"smoke"}, Steps: []Step{{Type: StepNavigate, URL: "/"}}},
		Case{Name: "slow", Markers: []string{"nightly"}, Steps: []Step{{Type: StepNavigate, URL: "/slow"}}},
	))
	require.NoError(t, err)

	require.Len(t, env.TestResults, 2)
	assert.Equal(t, model.StatusPassed, env.TestResults[0].Status)
	assert.Equal(t, model.StatusSkipped, env.TestResults[1].Status)
	assert.Equal(t, 1, env.Summary.Skipped)
	assert.NotContains(t, page.actions, "navigate https://example.com/slow")
}

func TestParallelRunPreservesDefinitionOrder(t *testing.T) {
	cfg := testConfig()
	cfg.Runner.Parallel = 4

	r := New(cfg, zap.NewNop(), func(context.Context) (PageDriver, error) {
		return &fakePage{}, nil
	})

	var cases []Case
	for i := 0; i < 12; i++ {
		cases = append(cases, Case{
			Name:  fmt.Sprintf("case-%02d", i),
			Steps: []Step{{Type: StepNavigate, URL: "/"}},
		})
	}

	env, err := r.Run(context.Background(), suiteOf(cases...))
	require.NoError(t, err)

	require.Len(t, env.TestResults, 12)
	for i, result := range env.TestResults {
		assert.Equal(t, fmt.Sprintf("case-%02d", i), result.Name)
		assert.Equal(t, model.StatusPassed, result.Status)
	}
	assert.Equal(t, 12, env.Summary.Passed)
}

func TestFailureScreenshotSaved(t *testing.T) {
	cfg := testConfig()
	cfg.Report.Dir = t.TempDir()

	page := &fakePage{texts: map[string]string{"css=.banner": "Welcome"}}
	r := New(cfg, zap.NewNop(), staticFactory(page))

	env, err := r.Run(context.Background(), suiteOf(Case{
		Name:  "Greeting Check",
		Steps: []Step{{Type: StepAssertText, Locator: "css=.banner", Expected: "Hello"}},
	}))
	require.NoError(t, err)
	require.Equal(t, model.StatusFailed, env.TestResults[0].Status)

	shot := filepath.Join(cfg.Report.Dir, "screenshots", "greeting-check-attempt-1.png")
	data, err := os.ReadFile(shot)
	require.NoError(t, err, "failed case leaves a screenshot behind")
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestPassingCaseTakesNoScreenshot(t *testing.T) {
	cfg := testConfig()
	cfg.Report.Dir = t.TempDir()

	page := &fakePage{texts: map[string]string{"css=.banner": "Hello"}}
	r := New(cfg, zap.NewNop(), staticFactory(page))

	_, err := r.Run(context.Background(), suiteOf(Case{
		Name:  "greeting",
		Steps: []Step{{Type: StepAssertText, Locator: "css=.banner", Expected: "Hello"}},
	}))
	require.NoError(t, err)

	assert.NotContains(t, page.actions, "screenshot")
	_, err = os.Stat(filepath.Join(cfg.Report.Dir, "screenshots"))
	assert.True(t, os.IsNotExist(err))
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		base, ref, want string
	}{
		{"https://example.com", "/login", "https://example.com/login"},
		{"https://example.com/app/", "settings", "https://example.com/app/settings"},
		{"https://example.com", "https://other.test/x", "https://other.test/x"},
		{"", "/login", "/login"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, resolveURL(tc.base, tc.ref), "base=%s ref=%s", tc.base, tc.ref)
	}
}
