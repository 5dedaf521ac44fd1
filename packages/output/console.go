package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"golang.org/x/time/rate"

	"github.com/fixrun/fixrun/packages/core/model"
	"github.com/fixrun/fixrun/packages/core/runner"
)

// progressRate caps how often non-failing result lines are printed so
// large suites do not flood the terminal. Failures always print.
const progressRate = rate.Limit(30)

// ConsoleFormatter renders results as colored terminal lines.
type ConsoleFormatter struct {
	writer   io.Writer
	verbose  bool
	noColor  bool
	quiet    bool
	throttle *rate.Limiter

	suppressed int
}

// ConsoleOption configures a ConsoleFormatter.
type ConsoleOption func(*ConsoleFormatter)

// WithWriter redirects output from stdout.
func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) { f.writer = w }
}

// WithVerbose enables per-result detail lines.
func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) { f.verbose = v }
}

// WithNoColor disables ANSI colors.
func WithNoColor(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) { f.noColor = v }
}

// WithQuiet suppresses everything except failures and the summary.
func WithQuiet(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) { f.quiet = v }
}

// NewConsoleFormatter creates a console formatter.
func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer:   os.Stdout,
		throttle: rate.NewLimiter(progressRate, 10),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

// FormatHeader prints the run banner.
func (f *ConsoleFormatter) FormatHeader(version string) {
	if f.quiet {
		return
	}
	fmt.Fprintf(f.writer, "fixrun %s\n\n", version)
}

// FormatResult prints one unit result as it arrives. Passing results
// are throttled; failures and errors always print immediately.
func (f *ConsoleFormatter) FormatResult(res *model.RunResult) {
	failing := res.Outcome.Failed()
	if f.quiet && !failing {
		return
	}
	if !failing && !f.verbose && !f.throttle.Allow() {
		f.suppressed++
		return
	}

	label := outcomeLabel(res.Outcome)
	line := fmt.Sprintf("%s %s", label, res.UnitID)
	if res.Retries > 0 {
		line += fmt.Sprintf(" (retries=%d)", res.Retries)
	}
	if res.Elapsed > 0 {
		line += fmt.Sprintf(" [%s]", res.Elapsed.Round(time.Millisecond))
	}
	if res.Outcome == model.OutcomeSkip && res.SkipReason != "" {
		line += " (" + res.SkipReason + ")"
	}
	fmt.Fprintln(f.writer, line)

	if res.Detail == nil {
		return
	}
	if res.Detail.FixtureName != "" {
		fmt.Fprintf(f.writer, "    fixture %q failed\n", res.Detail.FixtureName)
	}
	if len(res.Detail.Chain) > 0 {
		fmt.Fprintf(f.writer, "    chain: %v\n", res.Detail.Chain)
	}
	if failing || f.verbose {
		fmt.Fprintf(f.writer, "    %s\n", res.Detail.Message)
	}
}

// FormatError prints a run-level error.
func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed, color.Bold)
	fmt.Fprintf(f.writer, "%s %v\n", red.Sprint("error:"), err)
}

// FormatSummary prints the end-of-run summary, including the duration
// distribution when the run was large enough for it to mean anything.
func (f *ConsoleFormatter) FormatSummary(report *runner.Report) {
	if f.suppressed > 0 && !f.quiet {
		fmt.Fprintf(f.writer, "... %d passing results not shown\n", f.suppressed)
	}
	fmt.Fprintln(f.writer)

	counts := report.Counts()
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	parts := []string{green.Sprintf("%d passed", counts.Passed)}
	if counts.XFailed > 0 {
		parts = append(parts, green.Sprintf("%d xfailed", counts.XFailed))
	}
	if counts.Failed > 0 {
		parts = append(parts, red.Sprintf("%d failed", counts.Failed))
	}
	if counts.XPassed > 0 {
		parts = append(parts, red.Sprintf("%d xpassed", counts.XPassed))
	}
	if counts.Errored > 0 {
		parts = append(parts, red.Sprintf("%d errored", counts.Errored))
	}
	if counts.Skipped > 0 {
		parts = append(parts, yellow.Sprintf("%d skipped", counts.Skipped))
	}
	if report.NotRun > 0 {
		parts = append(parts, yellow.Sprintf("%d not run", report.NotRun))
	}

	for i, p := range parts {
		if i > 0 {
			fmt.Fprint(f.writer, ", ")
		}
		fmt.Fprint(f.writer, p)
	}
	fmt.Fprintf(f.writer, " in %s\n", report.Elapsed.Round(time.Millisecond))

	for _, detail := range report.FixtureFailures {
		fmt.Fprintf(f.writer, "%s teardown of fixture %q failed: %s\n",
			red.Sprint("error:"), detail.FixtureName, detail.Message)
	}

	if report.Aborted {
		fmt.Fprintln(f.writer, yellow.Sprint("run aborted before all units were dispatched"))
	}

	if f.verbose {
		writeDurationStats(f.writer, report)
	}
}

func outcomeLabel(o model.Outcome) string {
	switch o {
	case model.OutcomePass:
		return color.GreenString("PASS ")
	case model.OutcomeFail:
		return color.RedString("FAIL ")
	case model.OutcomeError:
		return color.New(color.FgRed, color.Bold).Sprint("ERROR")
	case model.OutcomeSkip:
		return color.YellowString("SKIP ")
	case model.OutcomeXFail:
		return color.GreenString("XFAIL")
	case model.OutcomeXPass:
		return color.RedString("XPASS")
	default:
		return o.String()
	}
}
