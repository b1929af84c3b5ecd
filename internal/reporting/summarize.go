package reporting

import (
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/verity-cli/internal/model"
)

// Summarize aggregates per-test outcomes into a run summary. Pass rate is
// passed over total; an empty result set has a pass rate of zero.
func Summarize(results []model.TestResult, environment, browser string) model.RunSummary {
	s := model.RunSummary{
		RunID:       uuid.NewString(),
		Environment: environment,
		Browser:     browser,
		Total:       len(results),
	}

	var earliest, latest time.Time
	for _, r := range results {
		switch r.Status {
		case model.StatusPassed:
			s.Passed++
		case model.StatusFailed:
			s.Failed++
		case model.StatusSkipped:
			s.Skipped++
		case model.StatusError:
			s.Errors++
		}

		if r.StartedAt.IsZero() {
			continue
		}
		if earliest.IsZero() || r.StartedAt.Before(earliest) {
			earliest = r.StartedAt
		}
		if end := r.StartedAt.Add(r.Duration); end.After(latest) {
			latest = end
		}
	}

	s.StartedAt = earliest
	s.FinishedAt = latest
	if !earliest.IsZero() {
		s.Duration = latest.Sub(earliest)
	}
	if s.Total > 0 {
		s.PassRate = float64(s.Passed) / float64(s.Total)
	}
	return s
}
