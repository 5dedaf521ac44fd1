package runner

import (
	"sort"
	"time"

	"github.com/fixrun/fixrun/packages/core/model"
)

// Report aggregates every captured result of a run. Results are ordered
// by expanded discovery order, not arrival order, so output is
// reproducible across runs.
type Report struct {
	Results []*model.RunResult

	// FixtureFailures are teardown failures of scope-shared instances,
	// reported against the fixture rather than a single unit.
	FixtureFailures []*model.FailureDetail

	// Durations holds the observed wall-clock duration per attempted
	// unit, written back to the duration cache at run end.
	Durations map[string]time.Duration

	// Total is the number of planned units; NotRun counts units never
	// started because a stop signal arrived first.
	Total  int
	NotRun int

	// Aborted is set when the run stopped early: fail-fast or an
	// external interrupt.
	Aborted bool

	Elapsed time.Duration
}

// Counts is the per-outcome tally of a report.
type Counts struct {
	Passed  int
	Failed  int
	Errored int
	Skipped int
	XFailed int
	XPassed int
}

// Counts tallies the report's results by outcome.
func (r *Report) Counts() Counts {
	var c Counts
	for _, res := range r.Results {
		switch res.Outcome {
		case model.OutcomePass:
			c.Passed++
		case model.OutcomeFail:
			c.Failed++
		case model.OutcomeError:
			c.Errored++
		case model.OutcomeSkip:
			c.Skipped++
		case model.OutcomeXFail:
			c.XFailed++
		case model.OutcomeXPass:
			c.XPassed++
		}
	}
	return c
}

// Success reports whether the run should exit zero: every unit passed,
// was skipped, or confirmed an expected failure, and no shared fixture
// teardown raised.
func (r *Report) Success() bool {
	if len(r.FixtureFailures) > 0 {
		return false
	}
	for _, res := range r.Results {
		if res.Outcome.Failed() {
			return false
		}
	}
	return true
}

// Merge appends externally produced results (resolution failures keep
// their discovery slot) and restores discovery order.
func (r *Report) Merge(results ...*model.RunResult) {
	r.Results = append(r.Results, results...)
	r.Total += len(results)
	r.sort()
}

func (r *Report) sort() {
	sort.Slice(r.Results, func(i, j int) bool {
		return r.Results[i].Index < r.Results[j].Index
	})
}
