package output

import (
	"fmt"
	"io"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/fixrun/fixrun/packages/core/runner"
)

// minStatsSamples is the smallest run for which percentile output is
// shown; below this the distribution is noise.
const minStatsSamples = 5

// writeDurationStats renders the run's duration distribution from the
// observed per-unit timings.
func writeDurationStats(w io.Writer, report *runner.Report) {
	if len(report.Durations) < minStatsSamples {
		return
	}

	// Track from 1ms to 1h, 3 significant figures.
	hist := hdrhistogram.New(1, time.Hour.Milliseconds(), 3)
	for _, d := range report.Durations {
		ms := d.Milliseconds()
		if ms < 1 {
			ms = 1
		}
		_ = hist.RecordValue(ms)
	}

	fmt.Fprintf(w, "\ndurations: p50=%dms p95=%dms p99=%dms max=%dms\n",
		hist.ValueAtQuantile(50),
		hist.ValueAtQuantile(95),
		hist.ValueAtQuantile(99),
		hist.Max(),
	)
}
