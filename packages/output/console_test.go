package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixrun/fixrun/packages/core/model"
	"github.com/fixrun/fixrun/packages/core/runner"
)

func passResult(id string, index int) *model.RunResult {
	return &model.RunResult{
		UnitID:  id,
		Index:   index,
		Outcome: model.OutcomePass,
		Elapsed: 10 * time.Millisecond,
	}
}

func TestConsoleFormatter_ResultLines(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))

	f.FormatResult(passResult("tests/test_a::test_ok", 0))
	f.FormatResult(&model.RunResult{
		UnitID:  "tests/test_a::test_bad",
		Index:   1,
		Outcome: model.OutcomeFail,
		Elapsed: 5 * time.Millisecond,
		Retries: 2,
		Detail:  &model.FailureDetail{Message: "exit status 1"},
	})
	f.FormatResult(&model.RunResult{
		UnitID:     "tests/test_a::test_later",
		Index:      2,
		Outcome:    model.OutcomeSkip,
		SkipReason: "requires linux",
	})

	out := buf.String()
	assert.Contains(t, out, "PASS  tests/test_a::test_ok")
	assert.Contains(t, out, "FAIL  tests/test_a::test_bad (retries=2)")
	assert.Contains(t, out, "exit status 1")
	assert.Contains(t, out, "SKIP  tests/test_a::test_later (requires linux)")
}

func TestConsoleFormatter_Quiet_OnlyFailures(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithQuiet(true))

	f.FormatHeader("1.0.0")
	f.FormatResult(passResult("tests/test_a::test_ok", 0))
	f.FormatResult(&model.RunResult{
		UnitID:  "tests/test_a::test_bad",
		Index:   1,
		Outcome: model.OutcomeFail,
		Detail:  &model.FailureDetail{Message: "boom"},
	})

	out := buf.String()
	assert.NotContains(t, out, "fixrun")
	assert.NotContains(t, out, "test_ok")
	assert.Contains(t, out, "test_bad")
}

func TestConsoleFormatter_Summary(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	report := &runner.Report{
		Results: []*model.RunResult{
			passResult("a", 0),
			{UnitID: "b", Index: 1, Outcome: model.OutcomeFail},
			{UnitID: "c", Index: 2, Outcome: model.OutcomeSkip},
		},
		Total:   5,
		NotRun:  2,
		Aborted: true,
		Elapsed: 1500 * time.Millisecond,
	}
	f.FormatSummary(report)

	out := buf.String()
	assert.Contains(t, out, "1 passed")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "1 skipped")
	assert.Contains(t, out, "2 not run")
	assert.Contains(t, out, "in 1.5s")
	assert.Contains(t, out, "aborted")
}

func TestConsoleFormatter_Summary_FixtureFailures(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	report := &runner.Report{
		Results:         []*model.RunResult{passResult("a", 0)},
		FixtureFailures: []*model.FailureDetail{{FixtureName: "db", Message: "container would not stop"}},
		Total:           1,
	}
	f.FormatSummary(report)

	out := buf.String()
	assert.Contains(t, out, `teardown of fixture "db" failed`)
	assert.Contains(t, out, "container would not stop")
}

func TestConsoleFormatter_VerboseDurationStats(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))

	report := &runner.Report{
		Durations: map[string]time.Duration{},
		Total:     6,
	}
	for i, id := range []string{"a", "b", "c", "d", "e", "f"} {
		report.Results = append(report.Results, passResult(id, i))
		report.Durations[id] = time.Duration(i+1) * 10 * time.Millisecond
	}
	f.FormatSummary(report)

	require.Contains(t, buf.String(), "durations: p50=")
}
