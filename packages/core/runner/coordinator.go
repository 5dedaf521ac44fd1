package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fixrun/fixrun/packages/core/model"
	"github.com/fixrun/fixrun/packages/ctxlog"
	"github.com/fixrun/fixrun/packages/planner"
)

// Config carries the execution settings the coordinator consumes.
// Parsing and merging of these values happens elsewhere.
type Config struct {
	// FailFast stops dispatching new units after the first definitive
	// failure; in-flight units still finish their teardown.
	FailFast bool

	// Retry is the number of times a failing test body is re-run before
	// its failure is recorded.
	Retry int
}

// Coordinator owns the worker pool. Each worker consumes one statically
// assigned queue strictly sequentially; results stream back over a
// channel as units complete so fail-fast can trigger early.
type Coordinator struct {
	invoker Invoker
	cfg     Config
}

// NewCoordinator returns a coordinator that executes units through the
// given invoker.
func NewCoordinator(inv Invoker, cfg Config) *Coordinator {
	if cfg.Retry < 0 {
		cfg.Retry = 0
	}
	return &Coordinator{invoker: inv, cfg: cfg}
}

// event is one message from a worker: a finished unit or a shared
// fixture teardown failure not attributable to a single unit.
type event struct {
	result  *model.RunResult
	fixture *model.FailureDetail
}

// Run executes the planned queues and aggregates every captured result.
// Results arrive out of submission order across workers; the returned
// report is ordered by discovery order. Run returns when every worker
// has exited and all teardown has completed.
func (c *Coordinator) Run(ctx context.Context, queues []planner.WorkerQueue) *Report {
	start := time.Now()
	logger := ctxlog.FromContext(ctx)

	total := 0
	for _, q := range queues {
		total += len(q.Units)
	}

	events := make(chan event, total+len(queues))
	stop := make(chan struct{})
	var stopOnce sync.Once
	requestStop := func() { stopOnce.Do(func() { close(stop) }) }

	var wg sync.WaitGroup
	for _, q := range queues {
		if len(q.Units) == 0 {
			continue
		}
		wg.Add(1)
		go func(q planner.WorkerQueue) {
			defer wg.Done()
			c.runWorker(ctx, q, events, stop)
		}(q)
	}

	go func() {
		wg.Wait()
		close(events)
	}()

	report := &Report{
		Total:     total,
		Durations: make(map[string]time.Duration),
	}

	for ev := range events {
		if ev.fixture != nil {
			report.FixtureFailures = append(report.FixtureFailures, ev.fixture)
			continue
		}
		res := ev.result
		report.Results = append(report.Results, res)
		// Only units that ran a body to a verdict feed the planner's
		// history; setup failures and canceled units carry truncated
		// timings.
		switch res.Outcome {
		case model.OutcomePass, model.OutcomeFail, model.OutcomeXFail, model.OutcomeXPass:
			if res.Elapsed > 0 {
				report.Durations[res.UnitID] = res.Elapsed
			}
		}
		if c.cfg.FailFast && res.Outcome.Failed() {
			logger.Debug("fail-fast triggered", "unit", res.UnitID, "outcome", res.Outcome.String())
			requestStop()
			report.Aborted = true
		}
	}

	if ctx.Err() != nil {
		report.Aborted = true
	}
	report.NotRun = total - len(report.Results)
	report.Elapsed = time.Since(start)
	report.sort()
	return report
}

// runWorker processes one queue sequentially. The stop signal is
// checked only between units, never mid-teardown, so the current unit
// always finishes releasing its fixtures. A panic out of the executor
// is reported as an infrastructure error for the in-flight unit and
// every unit still queued behind it.
func (c *Coordinator) runWorker(ctx context.Context, q planner.WorkerQueue, events chan<- event, stop <-chan struct{}) {
	scopes := newScopeState(c.invoker, q)
	idx := 0

	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("worker crashed", "worker", q.Worker, "panic", fmt.Sprint(r))
			for _, unit := range q.Units[idx:] {
				events <- event{result: &model.RunResult{
					UnitID:  unit.ID(),
					Index:   unit.Index,
					Outcome: model.OutcomeError,
					Detail: &model.FailureDetail{
						Message: fmt.Sprintf("worker %d crashed: %v", q.Worker, r),
						Infra:   true,
					},
				}}
			}
		}
	}()

	for idx < len(q.Units) {
		if stopRequested(ctx, stop) {
			break
		}
		unit := q.Units[idx]
		events <- event{result: c.runUnit(ctx, scopes, unit)}
		for _, detail := range scopes.afterUnit(ctx, unit) {
			events <- event{fixture: detail}
		}
		idx++
	}

	for _, detail := range scopes.drain(ctx) {
		events <- event{fixture: detail}
	}
}

func stopRequested(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// runUnit drives one execution unit: setup plan in order, body with
// retry, reverse teardown of function-scoped instances after every
// attempt. Scope-shared instances stay live; afterUnit releases them.
func (c *Coordinator) runUnit(ctx context.Context, scopes *scopeState, unit *model.ExecutionUnit) *model.RunResult {
	item := unit.Item

	if item.Skip {
		return &model.RunResult{
			UnitID:     unit.ID(),
			Index:      unit.Index,
			Outcome:    model.OutcomeSkip,
			SkipReason: item.SkipReason,
		}
	}

	start := time.Now()
	attempts := c.cfg.Retry + 1

	var bodyErr error
	var teardownFailures []*model.FailureDetail
	attemptsUsed := 0

	for attempt := 0; attempt < attempts; attempt++ {
		attemptsUsed = attempt
		args, funcLive, failedInst, setupErr := scopes.setupUnit(ctx, unit)
		if setupErr != nil {
			// Skip the body; unwind only what this attempt set up.
			scopes.teardownFixtures(ctx, funcLive)
			return &model.RunResult{
				UnitID:  unit.ID(),
				Index:   unit.Index,
				Outcome: model.OutcomeError,
				Elapsed: time.Since(start),
				Retries: attempt,
				Detail: &model.FailureDetail{
					Message:     setupErr.Error(),
					FixtureName: failedInst.Def.Name,
					Canceled:    ctx.Err() != nil,
				},
			}
		}

		bodyErr = c.invoker.RunTest(ctx, item, args)
		// Accumulated across attempts: a teardown failure on an early
		// attempt still surfaces when a retry later passes cleanly.
		teardownFailures = append(teardownFailures, scopes.teardownFixtures(ctx, funcLive)...)

		if bodyErr == nil || ctx.Err() != nil {
			break
		}
		if attempt < attempts-1 {
			ctxlog.FromContext(ctx).Debug("retrying test", "unit", unit.ID(), "attempt", attempt+1)
		}
	}

	res := classify(unit, item, bodyErr, ctx.Err() != nil)
	res.Elapsed = time.Since(start)
	res.Retries = attemptsUsed

	// A teardown failure turns an otherwise passing unit into an error
	// attributed to the fixture that raised.
	if len(teardownFailures) > 0 && !res.Outcome.Failed() && res.Outcome != model.OutcomeSkip {
		res.Outcome = model.OutcomeError
		res.Detail = teardownFailures[0]
	}

	return res
}

func classify(unit *model.ExecutionUnit, item *model.TestItem, bodyErr error, canceled bool) *model.RunResult {
	res := &model.RunResult{UnitID: unit.ID(), Index: unit.Index}

	switch {
	case bodyErr == nil && item.ExpectFail:
		res.Outcome = model.OutcomeXPass
		res.Detail = &model.FailureDetail{Message: "test passed but was expected to fail"}
	case bodyErr == nil:
		res.Outcome = model.OutcomePass
	case item.ExpectFail:
		res.Outcome = model.OutcomeXFail
	case canceled:
		res.Outcome = model.OutcomeError
		res.Detail = &model.FailureDetail{Message: bodyErr.Error(), Canceled: true}
	default:
		res.Outcome = model.OutcomeFail
		res.Detail = &model.FailureDetail{Message: bodyErr.Error()}
	}

	return res
}
