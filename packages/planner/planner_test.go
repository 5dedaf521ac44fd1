package planner

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixrun/fixrun/packages/core/model"
)

func makeUnits(n int) []*model.ExecutionUnit {
	units := make([]*model.ExecutionUnit, n)
	for i := range units {
		units[i] = &model.ExecutionUnit{
			Item: &model.TestItem{
				Module:     "tests/test_plan",
				Function:   fmt.Sprintf("test_%d", i),
				ParamIndex: -1,
			},
			Plan:  &model.FixtureSetupPlan{},
			Index: i,
		}
	}
	return units
}

func queueIDs(q WorkerQueue) []string {
	ids := make([]string, len(q.Units))
	for i, u := range q.Units {
		ids[i] = u.ID()
	}
	return ids
}

func TestPlanRun_LongestFirstBalancing(t *testing.T) {
	units := makeUnits(4)
	history := map[string]time.Duration{
		units[0].ID(): 10 * time.Millisecond,
		units[1].ID(): 9 * time.Millisecond,
		units[2].ID(): 2 * time.Millisecond,
		units[3].ID(): 1 * time.Millisecond,
	}

	queues := PlanRun(units, 2, history, 1)
	require.Len(t, queues, 2)

	// Greedy longest-first: 10 -> w0, 9 -> w1, 2 -> w1 (9 < 10),
	// 1 -> w0 (10 < 11).
	assert.Equal(t, []string{units[0].ID(), units[3].ID()}, queueIDs(queues[0]))
	assert.Equal(t, []string{units[1].ID(), units[2].ID()}, queueIDs(queues[1]))
	assert.Equal(t, 11*time.Millisecond, queues[0].Estimated)
	assert.Equal(t, 11*time.Millisecond, queues[1].Estimated)
}

func TestPlanRun_DeterministicWithHistory(t *testing.T) {
	units := makeUnits(20)
	history := make(map[string]time.Duration, len(units))
	for i, u := range units {
		history[u.ID()] = time.Duration(i+1) * time.Millisecond
	}

	first := PlanRun(units, 4, history, 42)
	second := PlanRun(units, 4, history, 99)

	// With full history the seed is irrelevant; plans are identical.
	for w := range first {
		assert.Equal(t, queueIDs(first[w]), queueIDs(second[w]), "worker %d", w)
	}
}

func TestPlanRun_SeedShufflesUnknownUnits(t *testing.T) {
	units := makeUnits(50)

	first := PlanRun(units, 4, nil, 1)
	second := PlanRun(units, 4, nil, 1)
	for w := range first {
		assert.Equal(t, queueIDs(first[w]), queueIDs(second[w]), "worker %d", w)
	}
}

func TestPlanRun_EveryUnitAssignedOnce(t *testing.T) {
	units := makeUnits(17)
	history := map[string]time.Duration{
		units[3].ID(): 5 * time.Millisecond,
		units[8].ID(): 2 * time.Millisecond,
	}

	queues := PlanRun(units, 4, history, 7)

	seen := make(map[string]int)
	total := 0
	for _, q := range queues {
		total += len(q.Units)
		for _, u := range q.Units {
			seen[u.ID()]++
		}
	}
	assert.Equal(t, len(units), total)
	for _, u := range units {
		assert.Equal(t, 1, seen[u.ID()], "unit %s", u.ID())
	}
}

func TestPlanRun_ZeroCostUnitsSpreadEvenly(t *testing.T) {
	units := makeUnits(12)
	queues := PlanRun(units, 3, nil, 5)

	for _, q := range queues {
		assert.Len(t, q.Units, 4, "worker %d", q.Worker)
	}
}

func TestPlanRun_ClampsWorkerCount(t *testing.T) {
	units := makeUnits(3)
	queues := PlanRun(units, 0, nil, 1)
	require.Len(t, queues, 1)
	assert.Len(t, queues[0].Units, 3)
}
