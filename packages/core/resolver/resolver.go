package resolver

import (
	"fmt"
	"strings"

	"github.com/fixrun/fixrun/packages/core/model"
	"github.com/fixrun/fixrun/packages/core/registry"
)

// MissingFixtureError reports a fixture name that could not be resolved
// for a test item. Chain is the full dependency path from the item to
// the unresolved name, for the diagnostics collaborator.
type MissingFixtureError struct {
	Item  string
	Name  string
	Chain []string
}

func (e *MissingFixtureError) Error() string {
	return fmt.Sprintf("fixture %q not found (required by %s)", e.Name, chainString(e.Item, e.Chain))
}

// CyclicDependencyError reports a fixture that depends, transitively,
// on itself. Chain ends with the repeated fixture name.
type CyclicDependencyError struct {
	Item  string
	Chain []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic fixture dependency: %s", chainString(e.Item, e.Chain))
}

func chainString(item string, chain []string) string {
	return strings.Join(append([]string{item}, chain...), " -> ")
}

// Resolver builds fixture setup plans for test items. It borrows
// definitions from the registry and never mutates them.
type Resolver struct {
	reg *registry.Registry
}

// New returns a resolver backed by the given registry.
func New(reg *registry.Registry) *Resolver {
	return &Resolver{reg: reg}
}

// Plan resolves the item's fixture closure into one or more setup
// plans, each a valid topological order (every dependency precedes its
// dependents). A fixture with k parametrized values multiplies the
// result by k, composing across parametrized fixtures as a cartesian
// product. Non-parametrized closures yield exactly one plan.
func (r *Resolver) Plan(item *model.TestItem) ([]*model.FixtureSetupPlan, error) {
	w := &walk{
		r:        r,
		item:     item,
		visiting: make(map[string]bool),
		resolved: make(map[string]bool),
	}

	for _, def := range r.reg.AutouseFor(item) {
		if err := w.visit(def.Name, nil); err != nil {
			return nil, err
		}
	}
	for _, name := range item.Fixtures {
		if err := w.visit(name, nil); err != nil {
			return nil, err
		}
	}

	return expandParams(w.order), nil
}

// walk is a single depth-first traversal over fixture names for one
// item. The post-order append into order is what makes the result a
// valid topological order.
type walk struct {
	r        *Resolver
	item     *model.TestItem
	visiting map[string]bool
	resolved map[string]bool
	order    []*model.FixtureDef
}

func (w *walk) visit(name string, chain []string) error {
	chain = append(chain, name)

	if w.visiting[name] {
		return &CyclicDependencyError{Item: w.item.ID(), Chain: chain}
	}
	if w.resolved[name] {
		return nil
	}

	def, ok := w.r.reg.Lookup(name, w.item)
	if !ok {
		return &MissingFixtureError{Item: w.item.ID(), Name: name, Chain: chain}
	}

	w.visiting[name] = true
	for _, dep := range def.DependsOn {
		if err := w.visit(dep, chain); err != nil {
			return err
		}
	}
	delete(w.visiting, name)

	w.resolved[name] = true
	w.order = append(w.order, def)
	return nil
}

// expandParams turns one topologically ordered definition sequence into
// the cartesian product of plans over every parametrized definition in
// it. Earlier fixtures in the order vary slowest, so plan order is
// deterministic.
func expandParams(order []*model.FixtureDef) []*model.FixtureSetupPlan {
	plans := []*model.FixtureSetupPlan{{}}

	for _, def := range order {
		if len(def.Params) == 0 {
			for _, p := range plans {
				p.Setup = append(p.Setup, &model.FixtureInstance{Def: def, ParamIndex: -1})
			}
			continue
		}

		next := make([]*model.FixtureSetupPlan, 0, len(plans)*len(def.Params))
		for _, p := range plans {
			for idx := range def.Params {
				dup := &model.FixtureSetupPlan{Setup: make([]*model.FixtureInstance, len(p.Setup), len(p.Setup)+1)}
				copy(dup.Setup, p.Setup)
				dup.Setup = append(dup.Setup, &model.FixtureInstance{Def: def, ParamIndex: idx})
				next = append(next, dup)
			}
		}
		plans = next
	}

	return plans
}

// ResolutionFailure records an item whose plan could not be built. The
// failure is fatal to that item only; it keeps its slot in expanded
// discovery order so the final report covers it.
type ResolutionFailure struct {
	Item  *model.TestItem
	Err   error
	Index int
}

// Units expands a discovered item set into execution units, one per
// item per resolved plan, numbered in expanded discovery order. Items
// whose resolution fails are returned separately and the remaining
// items still resolve.
func (r *Resolver) Units(items []*model.TestItem) (units []*model.ExecutionUnit, failures []*ResolutionFailure) {
	idx := 0
	for _, item := range items {
		plans, err := r.Plan(item)
		if err != nil {
			failures = append(failures, &ResolutionFailure{Item: item, Err: err, Index: idx})
			idx++
			continue
		}
		for _, plan := range plans {
			units = append(units, &model.ExecutionUnit{Item: item, Plan: plan, Index: idx})
			idx++
		}
	}
	return units, failures
}
