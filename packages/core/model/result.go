package model

import "time"

// Outcome classifies a finished execution unit.
type Outcome int

const (
	// OutcomePass means the test body succeeded.
	OutcomePass Outcome = iota
	// OutcomeFail means the test body failed after exhausting retries.
	OutcomeFail
	// OutcomeError means the unit never reached a body verdict: a
	// fixture raised, resolution failed, or the executor itself broke.
	OutcomeError
	// OutcomeSkip means the unit was skipped before execution.
	OutcomeSkip
	// OutcomeXFail means an expected-failure item failed, which counts
	// as a pass.
	OutcomeXFail
	// OutcomeXPass means an expected-failure item unexpectedly passed,
	// which counts as a failure.
	OutcomeXPass
)

func (o Outcome) String() string {
	switch o {
	case OutcomePass:
		return "pass"
	case OutcomeFail:
		return "fail"
	case OutcomeError:
		return "error"
	case OutcomeSkip:
		return "skip"
	case OutcomeXFail:
		return "xfail"
	case OutcomeXPass:
		return "xpass"
	default:
		return "unknown"
	}
}

// Failed reports whether the outcome makes the run exit non-zero.
func (o Outcome) Failed() bool {
	return o == OutcomeFail || o == OutcomeError || o == OutcomeXPass
}

// FailureDetail carries structured failure information for the
// diagnostics collaborator. The core never renders it.
type FailureDetail struct {
	// Message is the raw failure message from the executor or resolver.
	Message string

	// FixtureName is set when a fixture setup or teardown raised; the
	// failure is attributed to that fixture, not the test body.
	FixtureName string

	// Chain is the dependency chain from the test item to the failing
	// or unresolvable fixture, when resolution produced the failure.
	Chain []string

	// Infra marks executor-level failures (a crashed worker), distinct
	// from test-level failures.
	Infra bool

	// Canceled marks units that were in flight when a stop signal
	// arrived; teardown still completed before this was recorded.
	Canceled bool
}

// RunResult is the recorded outcome of one execution unit.
type RunResult struct {
	UnitID string

	// Index is the unit's expanded discovery index, used to order the
	// final report deterministically.
	Index int

	Outcome Outcome
	Elapsed time.Duration

	// Retries is the number of retry attempts consumed before the
	// recorded outcome.
	Retries int

	SkipReason string

	// Detail is non-nil for fail, error and xpass outcomes.
	Detail *FailureDetail
}
