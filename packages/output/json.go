package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fixrun/fixrun/packages/core/model"
	"github.com/fixrun/fixrun/packages/core/runner"
)

// JSONFormatter accumulates results and emits a single machine-readable
// document at the end of the run.
type JSONFormatter struct {
	writer  io.Writer
	results []jsonResult
}

// JSONOption configures a JSONFormatter.
type JSONOption func(*JSONFormatter)

// JSONWithWriter redirects output from stdout.
func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) { f.writer = w }
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type jsonResult struct {
	ID         string  `json:"id"`
	Outcome    string  `json:"outcome"`
	DurationMs float64 `json:"durationMs"`
	Retries    int     `json:"retries,omitempty"`
	SkipReason string  `json:"skipReason,omitempty"`
	Message    string  `json:"message,omitempty"`
	Fixture    string  `json:"fixture,omitempty"`
	Infra      bool    `json:"infra,omitempty"`
}

type jsonDocument struct {
	Results []jsonResult `json:"results"`
	Summary jsonSummary  `json:"summary"`
}

type jsonSummary struct {
	Passed     int     `json:"passed"`
	Failed     int     `json:"failed"`
	Errored    int     `json:"errored"`
	Skipped    int     `json:"skipped"`
	XFailed    int     `json:"xfailed"`
	XPassed    int     `json:"xpassed"`
	NotRun     int     `json:"notRun"`
	Aborted    bool    `json:"aborted"`
	DurationMs float64 `json:"durationMs"`
}

// FormatHeader is a no-op for JSON output.
func (f *JSONFormatter) FormatHeader(string) {}

// FormatResult buffers one unit result.
func (f *JSONFormatter) FormatResult(res *model.RunResult) {
	jr := jsonResult{
		ID:         res.UnitID,
		Outcome:    res.Outcome.String(),
		DurationMs: float64(res.Elapsed) / float64(time.Millisecond),
		Retries:    res.Retries,
		SkipReason: res.SkipReason,
	}
	if res.Detail != nil {
		jr.Message = res.Detail.Message
		jr.Fixture = res.Detail.FixtureName
		jr.Infra = res.Detail.Infra
	}
	f.results = append(f.results, jr)
}

// FormatError emits a run-level error object immediately.
func (f *JSONFormatter) FormatError(err error) {
	_ = json.NewEncoder(f.writer).Encode(map[string]string{"error": err.Error()})
}

// FormatSummary writes the accumulated document.
func (f *JSONFormatter) FormatSummary(report *runner.Report) {
	counts := report.Counts()
	doc := jsonDocument{
		Results: f.results,
		Summary: jsonSummary{
			Passed:     counts.Passed,
			Failed:     counts.Failed,
			Errored:    counts.Errored,
			Skipped:    counts.Skipped,
			XFailed:    counts.XFailed,
			XPassed:    counts.XPassed,
			NotRun:     report.NotRun,
			Aborted:    report.Aborted,
			DurationMs: float64(report.Elapsed) / float64(time.Millisecond),
		},
	}
	if doc.Results == nil {
		doc.Results = []jsonResult{}
	}

	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write JSON output: %v\n", err)
	}
}
