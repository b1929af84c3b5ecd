// Package model defines the result types shared by the runner, the
// reporters, and the results store.
package model

import (
	"time"
)

// Status is the terminal state of one test case.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	// StatusError marks infrastructure failures (browser launch, session
	// attach) as opposed to assertion failures.
	StatusError Status = "error"
)

// FailureDetail is the report-facing projection of one soft-assertion
// failure.
type FailureDetail struct {
	Locator          string `json:"locator,omitempty"`
	VerificationType string `json:"verification_type"`
	Expected         string `json:"expected"`
	Actual           string `json:"actual"`
	Message          string `json:"message,omitempty"`
	PageURL          string `json:"page_url,omitempty"`
}

// TestResult is the outcome of a single test case.
type TestResult struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Suite     string          `json:"suite"`
	Status    Status          `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Attempts  int             `json:"attempts"`
	Markers   []string        `json:"markers,omitempty"`
	Error     string          `json:"error,omitempty"`
	Failures  []FailureDetail `json:"failures,omitempty"`
}

// RunSummary aggregates the outcomes of one run.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	Environment string        `json:"environment,omitempty"`
	Browser     string        `json:"browser"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Duration    time.Duration `json:"duration"`
	Total       int           `json:"total"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Errors      int           `json:"errors"`
	PassRate    float64       `json:"pass_rate"`
}

// Succeeded reports whether the run had no failed or errored cases.
func (s RunSummary) Succeeded() bool {
	return s.Failed == 0 && s.Errors == 0
}

// RunEnvelope is the report payload: the summary plus every per-test
// outcome in execution order.
type RunEnvelope struct {
	Summary     RunSummary   `json:"summary"`
	TestResults []TestResult `json:"test_results"`
}
