package runner

import (
	"context"
	"strings"

	"github.com/fixrun/fixrun/packages/core/model"
	"github.com/fixrun/fixrun/packages/ctxlog"
	"github.com/fixrun/fixrun/packages/planner"
)

// liveFixture is one set-up fixture instance together with its value.
// key is the shared-instance key the instance lives under, empty for
// function-scoped instances.
type liveFixture struct {
	key   string
	inst  *model.FixtureInstance
	value any
}

// scopeKey identifies the live shared instance a unit's fixture
// resolves to: the governing scope object, the declaring definition,
// and the chosen parameter. A module-scoped fixture gets one instance
// per consuming module, a package-scoped one per the item's enclosing
// package, a session-scoped one a single instance. The declaration
// path keeps shadowed same-name definitions apart.
func scopeKey(inst *model.FixtureInstance, item *model.TestItem) string {
	var scope string
	switch inst.Def.Scope {
	case model.ScopeModule:
		scope = item.Module
	case model.ScopePackage:
		scope = packageOf(item.Module)
	}
	return scope + "|" + inst.Def.DeclPath + "|" + inst.Key()
}

// packageOf returns the module's enclosing package path, empty at the
// suite root.
func packageOf(module string) string {
	if i := strings.LastIndex(module, "/"); i >= 0 {
		return module[:i]
	}
	return ""
}

// scopeState tracks the live scope-shared fixture instances of a single
// worker. Because units are statically partitioned per worker, no other
// goroutine ever touches these values; isolation comes from
// partitioning, not locking.
type scopeState struct {
	invoker Invoker

	// remaining counts, per shared instance key (scope object plus
	// declaring definition plus parameter), how many units in this
	// worker's queue still consume the instance. Teardown fires when
	// the count reaches zero, so a module instance goes down when that
	// module's last consumer finishes, not at queue end.
	remaining map[string]int

	// live holds set-up shared instances; liveOrder preserves setup
	// order so teardown can run in exact reverse.
	live      map[string]*liveFixture
	liveOrder []*liveFixture
}

func newScopeState(inv Invoker, q planner.WorkerQueue) *scopeState {
	s := &scopeState{
		invoker:   inv,
		remaining: make(map[string]int),
		live:      make(map[string]*liveFixture),
	}
	for _, unit := range q.Units {
		for _, inst := range unit.Plan.Setup {
			if inst.Def.Scope > model.ScopeFunction {
				s.remaining[scopeKey(inst, unit.Item)]++
			}
		}
	}
	return s
}

// setupUnit executes the unit's setup plan in order. Function-scoped
// instances are created fresh and returned for per-attempt teardown;
// wider-scoped instances are created on first use and cached until
// their consumer count reaches zero.
//
// On failure it returns the instances already set up this attempt (for
// reverse teardown), the failing instance, and the setup error. A
// failed shared setup is not cached, so a later consuming unit attempts
// it again.
func (s *scopeState) setupUnit(ctx context.Context, unit *model.ExecutionUnit) (args map[string]any, funcLive []*liveFixture, failed *model.FixtureInstance, err error) {
	args = make(map[string]any, len(unit.Plan.Setup))

	for _, inst := range unit.Plan.Setup {
		deps := make(map[string]any, len(inst.Def.DependsOn))
		for _, dep := range inst.Def.DependsOn {
			deps[dep] = args[dep]
		}

		if inst.Def.Scope == model.ScopeFunction {
			value, setupErr := s.invoker.SetupFixture(ctx, inst, deps)
			if setupErr != nil {
				return args, funcLive, inst, setupErr
			}
			funcLive = append(funcLive, &liveFixture{inst: inst, value: value})
			args[inst.Def.Name] = value
			continue
		}

		key := scopeKey(inst, unit.Item)
		if lf, ok := s.live[key]; ok {
			args[inst.Def.Name] = lf.value
			continue
		}
		value, setupErr := s.invoker.SetupFixture(ctx, inst, deps)
		if setupErr != nil {
			return args, funcLive, inst, setupErr
		}
		lf := &liveFixture{key: key, inst: inst, value: value}
		s.live[key] = lf
		s.liveOrder = append(s.liveOrder, lf)
		args[inst.Def.Name] = value
	}

	return args, funcLive, nil, nil
}

// teardownFixtures tears down the given instances in exact reverse
// setup order. Every teardown is attempted even when an earlier one
// fails; failures are reported against the specific fixture that
// raised. Teardown always runs to completion, so the context is
// detached from cancellation.
func (s *scopeState) teardownFixtures(ctx context.Context, fixtures []*liveFixture) []*model.FailureDetail {
	ctx = context.WithoutCancel(ctx)

	var failures []*model.FailureDetail
	for i := len(fixtures) - 1; i >= 0; i-- {
		lf := fixtures[i]
		if err := s.invoker.TeardownFixture(ctx, lf.inst, lf.value); err != nil {
			failures = append(failures, &model.FailureDetail{
				Message:     err.Error(),
				FixtureName: lf.inst.Def.Name,
			})
		}
	}
	return failures
}

// afterUnit releases the unit's hold on its shared instances and tears
// down any instance whose consumer count reached zero, in reverse setup
// order. Runs after every unit, including failed and canceled ones.
func (s *scopeState) afterUnit(ctx context.Context, unit *model.ExecutionUnit) []*model.FailureDetail {
	dead := make(map[string]bool)
	for _, inst := range unit.Plan.Setup {
		if inst.Def.Scope == model.ScopeFunction {
			continue
		}
		key := scopeKey(inst, unit.Item)
		s.remaining[key]--
		if s.remaining[key] <= 0 {
			dead[key] = true
		}
	}
	if len(dead) == 0 {
		return nil
	}
	return s.reap(ctx, func(lf *liveFixture) bool { return dead[lf.key] })
}

// drain tears down every remaining live instance, in reverse setup
// order. Called when the worker exits its queue, normally or after a
// stop signal, so fixtures are never left unreleased.
func (s *scopeState) drain(ctx context.Context) []*model.FailureDetail {
	if len(s.liveOrder) == 0 {
		return nil
	}
	ctxlog.FromContext(ctx).Debug("tearing down remaining scope fixtures", "count", len(s.liveOrder))
	return s.reap(ctx, func(*liveFixture) bool { return true })
}

func (s *scopeState) reap(ctx context.Context, match func(*liveFixture) bool) []*model.FailureDetail {
	var doomed []*liveFixture
	kept := s.liveOrder[:0]
	for _, lf := range s.liveOrder {
		if match(lf) {
			doomed = append(doomed, lf)
			delete(s.live, lf.key)
		} else {
			kept = append(kept, lf)
		}
	}
	s.liveOrder = kept
	return s.teardownFixtures(ctx, doomed)
}
