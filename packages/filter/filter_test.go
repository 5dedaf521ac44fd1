package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixrun/fixrun/packages/core/model"
)

func testItem(module, function string, tags ...string) *model.TestItem {
	return &model.TestItem{Module: module, Function: function, ParamIndex: -1, Tags: tags}
}

func TestFilter_Empty_PassesEverything(t *testing.T) {
	f, err := New(nil, nil)
	require.NoError(t, err)
	assert.True(t, f.Empty())
	assert.True(t, f.Matches(testItem("tests/test_a", "test_x")))
}

func TestFilter_NamePatterns_PartialMatch(t *testing.T) {
	f, err := New([]string{"auth"}, nil)
	require.NoError(t, err)
	assert.True(t, f.Matches(testItem("tests/auth/test_login", "test_ok")))
	assert.False(t, f.Matches(testItem("tests/billing/test_invoice", "test_ok")))

	f, err = New([]string{"^tests/auth.*::test_ok$"}, nil)
	require.NoError(t, err)
	assert.True(t, f.Matches(testItem("tests/auth/test_login", "test_ok")))
	assert.False(t, f.Matches(testItem("tests/auth/test_login", "test_ok_extra")))
}

func TestFilter_MultiplePatterns_AnyMatches(t *testing.T) {
	f, err := New([]string{"auth", "billing"}, nil)
	require.NoError(t, err)
	assert.True(t, f.Matches(testItem("tests/auth/test_login", "test_ok")))
	assert.True(t, f.Matches(testItem("tests/billing/test_invoice", "test_ok")))
	assert.False(t, f.Matches(testItem("tests/users/test_crud", "test_ok")))
}

func TestFilter_TagExpressions(t *testing.T) {
	f, err := New(nil, []string{"db and not slow"})
	require.NoError(t, err)
	assert.True(t, f.Matches(testItem("tests/test_a", "test_x", "db")))
	assert.False(t, f.Matches(testItem("tests/test_a", "test_y", "db", "slow")))
	assert.False(t, f.Matches(testItem("tests/test_a", "test_z")))
}

func TestFilter_PatternsAndTagsCombine(t *testing.T) {
	// Both criteria must hold.
	f, err := New([]string{"auth"}, []string{"smoke"})
	require.NoError(t, err)
	assert.True(t, f.Matches(testItem("tests/auth/test_login", "test_ok", "smoke")))
	assert.False(t, f.Matches(testItem("tests/auth/test_login", "test_ok")))
	assert.False(t, f.Matches(testItem("tests/billing/test_invoice", "test_ok", "smoke")))
}

func TestFilter_InvalidInputs(t *testing.T) {
	_, err := New([]string{"("}, nil)
	assert.Error(t, err)

	_, err = New(nil, []string{"a and"})
	assert.Error(t, err)
}

func TestFilter_Apply_PreservesOrder(t *testing.T) {
	f, err := New(nil, []string{"keep"})
	require.NoError(t, err)

	units := []*model.ExecutionUnit{
		{Item: testItem("tests/test_a", "test_1", "keep"), Plan: &model.FixtureSetupPlan{}, Index: 0},
		{Item: testItem("tests/test_a", "test_2"), Plan: &model.FixtureSetupPlan{}, Index: 1},
		{Item: testItem("tests/test_b", "test_3", "keep"), Plan: &model.FixtureSetupPlan{}, Index: 2},
	}

	out := f.Apply(units)
	require.Len(t, out, 2)
	assert.Equal(t, 0, out[0].Index)
	assert.Equal(t, 2, out[1].Index)
}
