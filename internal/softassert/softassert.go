// Package softassert accumulates verification failures without stopping the
// test, reporting every failure together when the test asks for a verdict.
package softassert

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Failure captures one failed verification.
type Failure struct {
	Locator          string            `json:"locator,omitempty"`
	VerificationType string            `json:"verification_type"`
	Expected         string            `json:"expected"`
	Actual           string            `json:"actual"`
	Message          string            `json:"message,omitempty"`
	PageURL          string            `json:"page_url,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
	Context          map[string]string `json:"context,omitempty"`
}

func (f Failure) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] expected %q, got %q", f.VerificationType, f.Expected, f.Actual)
	if f.Locator != "" {
		fmt.Fprintf(&b, " (locator %s)", f.Locator)
	}
	if f.Message != "" {
		fmt.Fprintf(&b, ": %s", f.Message)
	}
	if f.PageURL != "" {
		fmt.Fprintf(&b, " at %s", f.PageURL)
	}
	return b.String()
}

// AggregateError is returned by AssertAll when at least one verification
// failed. Failures keep their insertion order.
type AggregateError struct {
	Failures []Failure
}

func (e *AggregateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d soft assertion(s) failed:", len(e.Failures))
	for i, f := range e.Failures {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, f.String())
	}
	return b.String()
}

// Collector accumulates failures for one test. Construct one per test case
// and pass it down explicitly; there is no package-level instance. Safe for
// concurrent use by verification helpers.
type Collector struct {
	mu       sync.Mutex
	failures []Failure
	count    int
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// AddFailure records a failed verification. It never returns an error and
// never panics; the verdict is deferred to AssertAll.
func (c *Collector) AddFailure(f Failure) {
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, f)
	c.count++
}

// IncrementCount records a verification that passed, so Count reflects the
// total attempted rather than just the failed.
func (c *Collector) IncrementCount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

// Check records a pass or a failure depending on ok and returns ok so call
// sites can branch without re-testing the condition.
func (c *Collector) Check(ok bool, f Failure) bool {
	if ok {
		c.IncrementCount()
		return true
	}
	c.AddFailure(f)
	return false
}

// Failures returns a copy of the recorded failures in insertion order.
func (c *Collector) Failures() []Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Failure, len(c.failures))
	copy(out, c.failures)
	return out
}

// Count returns the total number of verifications attempted, pass and fail.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// AssertAll returns nil when no failures were recorded, otherwise a single
// *AggregateError enumerating every failure in the order recorded.
func (c *Collector) AssertAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.failures) == 0 {
		return nil
	}
	failures := make([]Failure, len(c.failures))
	copy(failures, c.failures)
	return &AggregateError{Failures: failures}
}

// Clear resets the failure list and the counter so the collector can be
// reused across independent test phases.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = nil
	c.count = 0
}
