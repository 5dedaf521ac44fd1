package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixrun/fixrun/packages/core/model"
	"github.com/fixrun/fixrun/packages/core/registry"
)

func buildRegistry(t *testing.T, defs ...*model.FixtureDef) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, def := range defs {
		reg.Register(context.Background(), def)
	}
	return reg
}

func planNames(plan *model.FixtureSetupPlan) []string {
	names := make([]string, len(plan.Setup))
	for i, fi := range plan.Setup {
		names[i] = fi.Def.Name
	}
	return names
}

func TestResolver_Plan_TopologicalOrder(t *testing.T) {
	reg := buildRegistry(t,
		&model.FixtureDef{Name: "db"},
		&model.FixtureDef{Name: "schema", DependsOn: []string{"db"}},
		&model.FixtureDef{Name: "user", DependsOn: []string{"schema", "db"}},
	)
	item := &model.TestItem{Module: "tests/test_users", Function: "test_create", ParamIndex: -1, Fixtures: []string{"user"}}

	plans, err := New(reg).Plan(item)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, []string{"db", "schema", "user"}, planNames(plans[0]))
}

func TestResolver_Plan_SharedDependencyOnce(t *testing.T) {
	// Diamond: both a and b depend on base; base sets up exactly once.
	reg := buildRegistry(t,
		&model.FixtureDef{Name: "base"},
		&model.FixtureDef{Name: "a", DependsOn: []string{"base"}},
		&model.FixtureDef{Name: "b", DependsOn: []string{"base"}},
	)
	item := &model.TestItem{Module: "tests/test_d", Function: "test_x", ParamIndex: -1, Fixtures: []string{"a", "b"}}

	plans, err := New(reg).Plan(item)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, []string{"base", "a", "b"}, planNames(plans[0]))
}

func TestResolver_Plan_MissingFixture(t *testing.T) {
	reg := buildRegistry(t,
		&model.FixtureDef{Name: "user", DependsOn: []string{"schema"}},
	)
	item := &model.TestItem{Module: "tests/test_users", Function: "test_create", ParamIndex: -1, Fixtures: []string{"user"}}

	_, err := New(reg).Plan(item)
	require.Error(t, err)

	var missing *MissingFixtureError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "schema", missing.Name)
	// The chain runs from the direct request down to the missing name.
	assert.Equal(t, []string{"user", "schema"}, missing.Chain)
	assert.Contains(t, err.Error(), "tests/test_users::test_create -> user -> schema")
}

func TestResolver_Plan_Cycle(t *testing.T) {
	reg := buildRegistry(t,
		&model.FixtureDef{Name: "a", DependsOn: []string{"b"}},
		&model.FixtureDef{Name: "b", DependsOn: []string{"a"}},
	)
	item := &model.TestItem{Module: "tests/test_c", Function: "test_x", ParamIndex: -1, Fixtures: []string{"a"}}

	_, err := New(reg).Plan(item)
	require.Error(t, err)

	var cyclic *CyclicDependencyError
	require.ErrorAs(t, err, &cyclic)
	assert.Equal(t, "a", cyclic.Chain[len(cyclic.Chain)-1])
}

func TestResolver_Plan_SelfCycle(t *testing.T) {
	reg := buildRegistry(t,
		&model.FixtureDef{Name: "a", DependsOn: []string{"a"}},
	)
	item := &model.TestItem{Module: "tests/test_c", Function: "test_x", ParamIndex: -1, Fixtures: []string{"a"}}

	_, err := New(reg).Plan(item)
	var cyclic *CyclicDependencyError
	require.ErrorAs(t, err, &cyclic)
}

func TestResolver_Plan_AutouseFirst(t *testing.T) {
	reg := buildRegistry(t,
		&model.FixtureDef{Name: "logcap", Autouse: true},
		&model.FixtureDef{Name: "db"},
	)
	item := &model.TestItem{Module: "tests/test_a", Function: "test_x", ParamIndex: -1, Fixtures: []string{"db"}}

	plans, err := New(reg).Plan(item)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, []string{"logcap", "db"}, planNames(plans[0]))
}

func TestResolver_Plan_ParametrizedCartesianProduct(t *testing.T) {
	reg := buildRegistry(t,
		&model.FixtureDef{Name: "backend", Params: []any{"pg", "sqlite"}},
		&model.FixtureDef{Name: "mode", Params: []any{"ro", "rw"}, DependsOn: []string{"backend"}},
	)
	item := &model.TestItem{Module: "tests/test_m", Function: "test_x", ParamIndex: -1, Fixtures: []string{"mode"}}

	plans, err := New(reg).Plan(item)
	require.NoError(t, err)
	require.Len(t, plans, 4)

	// Earlier fixtures in setup order vary slowest.
	suffixes := make([]string, len(plans))
	for i, p := range plans {
		suffixes[i] = p.Suffix()
	}
	assert.Equal(t, []string{
		"{backend=pg,mode=ro}",
		"{backend=pg,mode=rw}",
		"{backend=sqlite,mode=ro}",
		"{backend=sqlite,mode=rw}",
	}, suffixes)
}

func TestResolver_Units_FailuresKeepIndexSlot(t *testing.T) {
	reg := buildRegistry(t,
		&model.FixtureDef{Name: "db"},
	)
	items := []*model.TestItem{
		{Module: "tests/test_a", Function: "test_ok", ParamIndex: -1, Fixtures: []string{"db"}},
		{Module: "tests/test_a", Function: "test_broken", ParamIndex: -1, Fixtures: []string{"ghost"}},
		{Module: "tests/test_a", Function: "test_also_ok", ParamIndex: -1},
	}

	units, failures := New(reg).Units(items)
	require.Len(t, units, 2)
	require.Len(t, failures, 1)

	assert.Equal(t, 0, units[0].Index)
	assert.Equal(t, 1, failures[0].Index)
	assert.Equal(t, 2, units[1].Index)
	assert.Equal(t, "tests/test_a::test_broken", failures[0].Item.ID())
}
