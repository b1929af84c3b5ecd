package runner

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/verity-cli/internal/cleanup"
	"github.com/xkilldash9x/verity-cli/internal/config"
	"github.com/xkilldash9x/verity-cli/internal/model"
	"github.com/xkilldash9x/verity-cli/internal/reporting"
	"github.com/xkilldash9x/verity-cli/internal/softassert"
	"github.com/xkilldash9x/verity-cli/internal/verr"
)

// PageDriver is the subset of page operations the runner needs. The browser
// package's Page satisfies it; tests substitute a scripted fake.
type PageDriver interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, locator string) error
	Fill(ctx context.Context, locator, value string) error
	WaitVisible(ctx context.Context, locator string) error
	Text(ctx context.Context, locator string) (string, error)
	Title(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close()
}

// PageFactory opens a fresh page for one test case attempt.
type PageFactory func(ctx context.Context) (PageDriver, error)

// Runner executes suites case by case, in parallel up to the configured
// limit, pacing starts through a rate limiter so a large run does not
// stampede the browser.
type Runner struct {
	cfg     *config.Config
	logger  *zap.Logger
	newPage PageFactory
}

// New wires a runner. The factory owns page lifetime policy; the runner
// closes whatever it opens.
func New(cfg *config.Config, logger *zap.Logger, newPage PageFactory) *Runner {
	return &Runner{
		cfg:     cfg,
		logger:  logger.Named("runner"),
		newPage: newPage,
	}
}

// execution is one scheduled case with its slot in the result order.
type execution struct {
	suite   *Suite
	tc      Case
	markers []string
	index   int
}

// Run executes every case from every suite that matches the marker filter
// and returns the aggregated envelope. Case failures do not abort the run;
// only context cancellation does.
func (r *Runner) Run(ctx context.Context, suites []*Suite) (*model.RunEnvelope, error) {
	filter, err := ParseMarkerExpr(r.cfg.Runner.Markers)
	if err != nil {
		return nil, err
	}

	var execs []execution
	results := make([]model.TestResult, 0)
	for _, suite := range suites {
		for _, tc := range suite.Cases {
			markers := suite.effectiveMarkers(tc)
			idx := len(results)
			results = append(results, model.TestResult{
				ID:      uuid.NewString(),
				Name:    tc.Name,
				Suite:   suite.Name,
				Markers: markers,
			})
			if !filter.Matches(markers) {
				results[idx].Status = model.StatusSkipped
				results[idx].StartedAt = time.Now().UTC()
				continue
			}
			execs = append(execs, execution{suite: suite, tc: tc, markers: markers, index: idx})
		}
	}

	r.logger.Info("Starting run",
		zap.Int("cases", len(execs)),
		zap.Int("skipped", len(results)-len(execs)),
		zap.Int("parallel", r.cfg.Runner.Parallel),
	)

	limiter := rate.NewLimiter(rate.Limit(r.cfg.Runner.StartPerSec), 1)
	if r.cfg.Runner.StartPerSec <= 0 {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	parallel := r.cfg.Runner.Parallel
	if parallel < 1 {
		parallel = 1
	}

	var mu sync.Mutex
	g, runCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for _, e := range execs {
		e := e
		g.Go(func() error {
			if err := limiter.Wait(runCtx); err != nil {
				return err
			}
			result := r.runCase(runCtx, e)
			mu.Lock()
			results[e.index] = result
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, verr.Wrap(verr.KindTimeout, "run aborted", err)
	}

	summary := reporting.Summarize(results, r.cfg.Environment, r.cfg.Browser.Type)
	return &model.RunEnvelope{Summary: summary, TestResults: results}, nil
}

// runCase executes one case, retrying failed attempts up to the configured
// budget. The last attempt's outcome wins.
func (r *Runner) runCase(ctx context.Context, e execution) model.TestResult {
	result := model.TestResult{
		ID:      uuid.NewString(),
		Name:    e.tc.Name,
		Suite:   e.suite.Name,
		Markers: e.markers,
	}

	maxAttempts := 1 + r.cfg.Runner.Retries
	started := time.Now().UTC()
	result.StartedAt = started

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt
		status, errMsg, failures := r.runAttempt(ctx, e, attempt)
		result.Status = status
		result.Error = errMsg
		result.Failures = failures

		if status == model.StatusPassed || ctx.Err() != nil {
			break
		}
		if attempt < maxAttempts {
			r.logger.Warn("Case failed, retrying",
				zap.String("case", e.tc.Name),
				zap.Int("attempt", attempt),
				zap.String("error", errMsg),
			)
		}
	}

	result.Duration = time.Since(started)
	return result
}

func (r *Runner) runAttempt(ctx context.Context, e execution, attempt int) (model.Status, string, []model.FailureDetail) {
	page, err := r.newPage(ctx)
	if err != nil {
		return model.StatusError, fmt.Sprintf("opening page: %v", err), nil
	}

	reg := cleanup.NewRegistry(r.logger)
	reg.Register(cleanup.Task{
		Name:     "close-page",
		Priority: 30,
		Fn: func(context.Context) error {
			page.Close()
			return nil
		},
	})
	defer reg.CleanupAll(context.WithoutCancel(ctx))

	collector := softassert.NewCollector()
	for _, step := range e.tc.Steps {
		if err := r.runStep(ctx, page, e.suite, step, collector); err != nil {
			r.saveScreenshot(ctx, page, e, attempt)
			var assertErr *assertionError
			if errors.As(err, &assertErr) ||
				verr.IsKind(err, verr.KindElementNotFound) ||
				verr.IsKind(err, verr.KindTimeout) {
				return model.StatusFailed, err.Error(), failureDetails(collector)
			}
			return model.StatusError, err.Error(), failureDetails(collector)
		}
	}

	if err := collector.AssertAll(); err != nil {
		r.saveScreenshot(ctx, page, e, attempt)
		return model.StatusFailed, err.Error(), failureDetails(collector)
	}
	return model.StatusPassed, "", nil
}

// saveScreenshot captures the page state at the moment a case fails and
// writes it under the report directory. Best effort: a run never fails
// because a screenshot could not be taken.
func (r *Runner) saveScreenshot(ctx context.Context, page PageDriver, e execution, attempt int) {
	if r.cfg.Report.Dir == "" {
		return
	}
	buf, err := page.Screenshot(ctx)
	if err != nil {
		r.logger.Debug("Failure screenshot unavailable",
			zap.String("case", e.tc.Name),
			zap.Error(err),
		)
		return
	}

	dir := filepath.Join(r.cfg.Report.Dir, "screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.logger.Warn("Could not create screenshot directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-attempt-%d.png", slugify(e.tc.Name), attempt))
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		r.logger.Warn("Could not write screenshot", zap.String("path", path), zap.Error(err))
		return
	}
	r.logger.Info("Saved failure screenshot", zap.String("path", path))
}

// slugify reduces a case name to a filesystem-safe token.
func slugify(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, name)
}

func (r *Runner) runStep(ctx context.Context, page PageDriver, suite *Suite, step Step, collector *softassert.Collector) error {
	switch step.Type {
	case StepNavigate:
		return page.Navigate(ctx, resolveURL(suite.BaseURL, step.URL))

	case StepClick:
		return page.Click(ctx, step.Locator)

	case StepFill:
		return page.Fill(ctx, step.Locator, step.Value)

	case StepWaitVisible:
		return page.WaitVisible(ctx, step.Locator)

	case StepAssertText:
		actual, err := page.Text(ctx, step.Locator)
		if err != nil {
			return err
		}
		return r.verify(ctx, page, collector, step, "text_equals", step.Expected, strings.TrimSpace(actual))

	case StepAssertTitle:
		actual, err := page.Title(ctx)
		if err != nil {
			return err
		}
		return r.verify(ctx, page, collector, step, "title_equals", step.Expected, actual)

	case StepSleep:
		select {
		case <-time.After(step.Duration.Std()):
			return nil
		case <-ctx.Done():
			return verr.Timeout("sleep interrupted", ctx.Err())
		}

	default:
		return verr.New(verr.KindConfig, "unknown step type").With("type", step.Type)
	}
}

// assertionError marks a hard verification mismatch, distinct from the
// infrastructure error kinds.
type assertionError struct {
	failure softassert.Failure
}

func (e *assertionError) Error() string { return e.failure.String() }

// verify records the comparison. Soft steps go to the collector and never
// stop the case; hard steps fail immediately. Either way the mismatch lands
// in the collector so the report carries the detail.
func (r *Runner) verify(ctx context.Context, page PageDriver, collector *softassert.Collector, step Step, kind, expected, actual string) error {
	if expected == actual {
		collector.IncrementCount()
		return nil
	}

	pageURL, _ := page.URL(ctx)
	failure := softassert.Failure{
		Locator:          step.Locator,
		VerificationType: kind,
		Expected:         expected,
		Actual:           actual,
		PageURL:          pageURL,
	}
	collector.AddFailure(failure)
	if step.Soft {
		return nil
	}
	return &assertionError{failure: failure}
}

func failureDetails(collector *softassert.Collector) []model.FailureDetail {
	failures := collector.Failures()
	if len(failures) == 0 {
		return nil
	}
	out := make([]model.FailureDetail, len(failures))
	for i, f := range failures {
		out[i] = model.FailureDetail{
			Locator:          f.Locator,
			VerificationType: f.VerificationType,
			Expected:         f.Expected,
			Actual:           f.Actual,
			Message:          f.Message,
			PageURL:          f.PageURL,
		}
	}
	return out
}

// resolveURL joins a relative step URL onto the suite's base URL. Absolute
// URLs pass through untouched.
func resolveURL(base, ref string) string {
	if base == "" {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
