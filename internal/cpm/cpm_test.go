package cpm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replan/internal/graph"
	"github.com/roach88/replan/internal/plan"
)

func buildGraph(t *testing.T, edges map[plan.TaskID][]plan.Dependency, durations map[plan.TaskID]int) *graph.Graph {
	t.Helper()
	g := graph.New()
	for id := range durations {
		require.NoError(t, g.AddTask(id))
	}
	for succ, deps := range edges {
		for _, dep := range deps {
			require.NoError(t, g.AddDependency(dep.Predecessor, succ, dep.Type))
		}
	}
	return g
}

func TestCompute_LinearChain(t *testing.T) {
	durations := map[plan.TaskID]int{"permit": 30, "construction": 90}
	g := buildGraph(t, map[plan.TaskID][]plan.Dependency{
		"construction": {{Predecessor: "permit", Type: plan.FinishToStart}},
	}, durations)

	r, err := Compute(g, durations)
	require.NoError(t, err)

	assert.Equal(t, 0, r.EarliestStart["permit"])
	assert.Equal(t, 30, r.EarliestFinish["permit"])
	assert.Equal(t, 30, r.EarliestStart["construction"])
	assert.Equal(t, 120, r.EarliestFinish["construction"])
	assert.Equal(t, 120, r.ProjectFinish)
	assert.Equal(t, []plan.TaskID{"permit", "construction"}, r.CriticalPath)
	assert.Equal(t, 0, r.Float["permit"])
	assert.Equal(t, 0, r.Float["construction"])
}

func TestCompute_ParallelBranchesFloat(t *testing.T) {
	durations := map[plan.TaskID]int{"start": 10, "long": 50, "short": 20, "end": 5}
	g := buildGraph(t, map[plan.TaskID][]plan.Dependency{
		"long":  {{Predecessor: "start"}},
		"short": {{Predecessor: "start"}},
		"end":   {{Predecessor: "long"}, {Predecessor: "short"}},
	}, durations)

	r, err := Compute(g, durations)
	require.NoError(t, err)

	assert.Equal(t, 65, r.ProjectFinish)
	assert.Equal(t, 0, r.Float["long"])
	// Short branch can slip 30 days before it delays the end task.
	assert.Equal(t, 30, r.Float["short"])
	assert.Equal(t, []plan.TaskID{"start", "long", "end"}, r.CriticalPath)
}

func TestCompute_StartToStart(t *testing.T) {
	durations := map[plan.TaskID]int{"excavate": 40, "survey": 10}
	g := buildGraph(t, map[plan.TaskID][]plan.Dependency{
		"survey": {{Predecessor: "excavate", Type: plan.StartToStart}},
	}, durations)

	r, err := Compute(g, durations)
	require.NoError(t, err)

	// Survey may start when excavation starts, not when it finishes.
	assert.Equal(t, 0, r.EarliestStart["survey"])
	assert.Equal(t, 10, r.EarliestFinish["survey"])
	assert.Equal(t, 40, r.ProjectFinish)
	assert.Equal(t, 0, r.Float["excavate"])
	assert.Equal(t, 30, r.Float["survey"])
}

func TestCompute_MilestonesParticipateInFloat(t *testing.T) {
	durations := map[plan.TaskID]int{"work": 20, "gate": 0, "next": 10}
	g := buildGraph(t, map[plan.TaskID][]plan.Dependency{
		"gate": {{Predecessor: "work"}},
		"next": {{Predecessor: "gate"}},
	}, durations)

	r, err := Compute(g, durations)
	require.NoError(t, err)

	assert.Equal(t, 20, r.EarliestStart["gate"])
	assert.Equal(t, 20, r.EarliestFinish["gate"])
	assert.Equal(t, 0, r.Float["gate"])
	assert.Equal(t, []plan.TaskID{"work", "gate", "next"}, r.CriticalPath)
}

func TestCompute_DisconnectedComponents(t *testing.T) {
	durations := map[plan.TaskID]int{"main": 100, "side": 40}
	g := buildGraph(t, nil, durations)

	r, err := Compute(g, durations)
	require.NoError(t, err)

	assert.Equal(t, 100, r.ProjectFinish)
	// Only the component determining the finish is critical.
	assert.Equal(t, 0, r.Float["main"])
	assert.Equal(t, 60, r.Float["side"])
	assert.Equal(t, []plan.TaskID{"main"}, r.CriticalPath)
}

func TestCompute_FloatInvariants(t *testing.T) {
	durations := map[plan.TaskID]int{
		"a": 12, "b": 7, "c": 23, "d": 4, "e": 15, "f": 9,
	}
	g := buildGraph(t, map[plan.TaskID][]plan.Dependency{
		"b": {{Predecessor: "a"}},
		"c": {{Predecessor: "a"}},
		"d": {{Predecessor: "b"}, {Predecessor: "c"}},
		"e": {{Predecessor: "b", Type: plan.StartToStart}},
		"f": {{Predecessor: "d"}, {Predecessor: "e"}},
	}, durations)

	r, err := Compute(g, durations)
	require.NoError(t, err)

	for id, dur := range durations {
		assert.GreaterOrEqual(t, r.Float[id], 0, "float must be non-negative for %s", id)
		assert.Equal(t, r.EarliestStart[id]+dur, r.EarliestFinish[id], "EF=ES+dur for %s", id)
		assert.Equal(t, r.LatestFinish[id]-dur, r.LatestStart[id], "LS=LF-dur for %s", id)
		assert.LessOrEqual(t, r.EarliestFinish[id], r.ProjectFinish)
	}
	require.NotEmpty(t, r.CriticalPath)
	for _, id := range r.CriticalPath {
		assert.Zero(t, r.Float[id])
	}
}

func TestCompute_EmptyGraph(t *testing.T) {
	r, err := Compute(graph.New(), nil)
	require.NoError(t, err)
	assert.Zero(t, r.ProjectFinish)
	assert.Empty(t, r.CriticalPath)
}

func TestReschedule_AppliesEarliestDays(t *testing.T) {
	durations := map[plan.TaskID]int{"a": 10, "b": 5}
	g := buildGraph(t, map[plan.TaskID][]plan.Dependency{
		"b": {{Predecessor: "a"}},
	}, durations)
	r, err := Compute(g, durations)
	require.NoError(t, err)

	tasks := map[plan.TaskID]*plan.Task{
		"a": {ID: "a", DurationDays: 10},
		"b": {ID: "b", DurationDays: 5},
	}
	Reschedule(tasks, r)
	assert.Equal(t, 0, tasks["a"].StartDay)
	assert.Equal(t, 10, tasks["a"].FinishDay)
	assert.Equal(t, 10, tasks["b"].StartDay)
	assert.Equal(t, 15, tasks["b"].FinishDay)
}
