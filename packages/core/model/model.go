package model

import (
	"fmt"
	"sort"
	"strings"
)

// Scope is the lifetime boundary of a fixture instance, ordered from
// narrowest to widest. A fixture instance lives until the last test in
// its scope has finished.
type Scope int

const (
	// ScopeFunction instances are set up and torn down around every
	// consuming test.
	ScopeFunction Scope = iota
	// ScopeModule instances are shared by all tests in one module.
	ScopeModule
	// ScopePackage instances are shared by all tests under one package.
	ScopePackage
	// ScopeSession instances live for the whole run.
	ScopeSession
)

func (s Scope) String() string {
	switch s {
	case ScopeFunction:
		return "function"
	case ScopeModule:
		return "module"
	case ScopePackage:
		return "package"
	case ScopeSession:
		return "session"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// ParseScope parses a scope name as it appears in a suite manifest.
// "dynamic" is resolved at discovery time and never reaches the core,
// so it is not accepted here.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "function", "":
		return ScopeFunction, nil
	case "module":
		return ScopeModule, nil
	case "package":
		return ScopePackage, nil
	case "session":
		return ScopeSession, nil
	default:
		return ScopeFunction, fmt.Errorf("unknown fixture scope %q", s)
	}
}

// ArgSet is one parametrized argument set for a test item.
type ArgSet map[string]any

// Suffix renders the argument set as a stable bracketed suffix for test
// identities, e.g. "[user=alice,retries=3]".
func (a ArgSet) Suffix() string {
	if len(a) == 0 {
		return ""
	}
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, a[k]))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// FixtureDef is a named, scoped setup/teardown definition discovered
// from the suite manifest. Definitions are immutable after discovery;
// the registry owns them for the lifetime of a run.
type FixtureDef struct {
	// Name is unique within the declaring location (DeclPath). The same
	// name declared at a narrower location shadows a wider one.
	Name string

	// Scope is the cache lifetime of the fixture's live instance.
	Scope Scope

	// DeclPath is the module or package path the fixture was declared
	// in. Empty means the session root, visible everywhere.
	DeclPath string

	// DependsOn lists fixture names this fixture itself requests, in
	// declaration order.
	DependsOn []string

	// Params holds parametrized values. Each value produces a distinct
	// fixture instance, multiplying the plans of every consuming test.
	Params []any

	// IsAsync marks fixtures whose setup/teardown must be awaited by
	// the executor. Ordering guarantees are identical either way.
	IsAsync bool

	// Autouse fixtures are requested implicitly by every test item they
	// are visible to.
	Autouse bool

	// SetupCmd and TeardownCmd are opaque operation handles; the core
	// never interprets them.
	SetupCmd    string
	TeardownCmd string
}

// TestItem is one runnable test instance. Parametrized manifest entries
// expand into one TestItem per argument set, sharing the same identity
// prefix.
type TestItem struct {
	// Module is the slash-separated module path, e.g.
	// "tests/auth/test_login". Its ancestors are package paths.
	Module string

	// Function is the test function name within the module.
	Function string

	// ParamIndex is the index of Args among the declaring entry's
	// argument sets, -1 when the entry is not parametrized.
	ParamIndex int

	// Args is the argument set for this instance, nil when not
	// parametrized.
	Args ArgSet

	// Tags are the item's declared tag strings.
	Tags []string

	// Fixtures are the directly requested fixture names, in order.
	Fixtures []string

	// ExpectFail inverts pass/fail interpretation of the body outcome.
	ExpectFail bool

	// SkipReason, when non-empty together with Skip, short-circuits
	// execution and reports the item as skipped.
	Skip       bool
	SkipReason string

	// Command is the opaque test body handle.
	Command string

	// DiscoveryIndex is the item's position in discovery order, used to
	// make the final report deterministic regardless of arrival order.
	DiscoveryIndex int
}

// ID returns the fully qualified identity: module::function plus the
// parametrization suffix.
func (t *TestItem) ID() string {
	return t.Module + "::" + t.Function + t.Args.Suffix()
}

// HasTag reports whether the item declares the given tag.
func (t *TestItem) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// FixtureInstance is one concrete instantiation of a FixtureDef: the
// definition plus, for parametrized fixtures, the chosen value index.
type FixtureInstance struct {
	Def        *FixtureDef
	ParamIndex int // -1 when the fixture is not parametrized
}

// Key identifies the live instance within a scope, e.g. "db" or
// "db[1]" for the second parametrized value.
func (fi *FixtureInstance) Key() string {
	if fi.ParamIndex < 0 {
		return fi.Def.Name
	}
	return fmt.Sprintf("%s[%d]", fi.Def.Name, fi.ParamIndex)
}

// Param returns the chosen parametrized value, if any.
func (fi *FixtureInstance) Param() (any, bool) {
	if fi.ParamIndex < 0 || fi.ParamIndex >= len(fi.Def.Params) {
		return nil, false
	}
	return fi.Def.Params[fi.ParamIndex], true
}

// FixtureSetupPlan is a topologically ordered setup sequence: every
// dependency precedes its dependents. Teardown is the exact reverse.
type FixtureSetupPlan struct {
	Setup []*FixtureInstance
}

// Teardown returns the setup sequence reversed. The returned slice is
// a copy; the plan itself is immutable.
func (p *FixtureSetupPlan) Teardown() []*FixtureInstance {
	out := make([]*FixtureInstance, len(p.Setup))
	for i, fi := range p.Setup {
		out[len(p.Setup)-1-i] = fi
	}
	return out
}

// Suffix renders the plan's parametrized fixture choices as an identity
// suffix, empty when no fixture in the plan is parametrized.
func (p *FixtureSetupPlan) Suffix() string {
	var parts []string
	for _, fi := range p.Setup {
		if v, ok := fi.Param(); ok {
			parts = append(parts, fmt.Sprintf("%s=%v", fi.Def.Name, v))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// ExecutionUnit is an immutable pairing of a test item with one resolved
// fixture setup plan. Parametrized fixtures produce several units for
// the same item.
type ExecutionUnit struct {
	Item *TestItem
	Plan *FixtureSetupPlan

	// Index is the unit's position in expanded discovery order.
	Index int
}

// ID returns the unit identity: the item identity plus the plan's
// fixture parametrization suffix.
func (u *ExecutionUnit) ID() string {
	return u.Item.ID() + u.Plan.Suffix()
}
