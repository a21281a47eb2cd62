package graph

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replan/internal/plan"
)

func mustAdd(t *testing.T, g *Graph, ids ...plan.TaskID) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, g.AddTask(id))
	}
}

func TestGraph_AddTask_Idempotent(t *testing.T) {
	g := New()
	mustAdd(t, g, "t1", "t1", "t1")
	assert.Equal(t, 1, g.Len())
	assert.True(t, g.Has("t1"))
}

func TestGraph_AddTask_RejectsEmptyID(t *testing.T) {
	g := New()
	err := g.AddTask("")
	assert.True(t, plan.IsCode(err, plan.CodeDanglingDependency))
}

func TestGraph_AddDependency_DanglingEndpoints(t *testing.T) {
	g := New()
	mustAdd(t, g, "t1")

	err := g.AddDependency("missing", "t1", plan.FinishToStart)
	assert.True(t, plan.IsCode(err, plan.CodeDanglingDependency))

	err = g.AddDependency("t1", "missing", plan.FinishToStart)
	assert.True(t, plan.IsCode(err, plan.CodeDanglingDependency))
}

func TestGraph_AddDependency_SelfReference(t *testing.T) {
	g := New()
	mustAdd(t, g, "t1")
	err := g.AddDependency("t1", "t1", plan.FinishToStart)
	assert.True(t, plan.IsCode(err, plan.CodeCycleDetected))
}

func TestGraph_AddDependency_RejectsCycle(t *testing.T) {
	g := New()
	mustAdd(t, g, "a", "b", "c")
	require.NoError(t, g.AddDependency("a", "b", plan.FinishToStart))
	require.NoError(t, g.AddDependency("b", "c", plan.FinishToStart))

	// c -> a closes the loop.
	err := g.AddDependency("c", "a", plan.FinishToStart)
	assert.True(t, plan.IsCode(err, plan.CodeCycleDetected))
}

func TestGraph_RejectedEdgeLeavesGraphIntact(t *testing.T) {
	g := New()
	mustAdd(t, g, "a", "b")
	require.NoError(t, g.AddDependency("a", "b", plan.FinishToStart))

	// Reject a cycle edge, then verify the valid edge survived.
	require.Error(t, g.AddDependency("b", "a", plan.FinishToStart))
	require.NoError(t, g.Validate())

	preds := g.Predecessors("b")
	require.Len(t, preds, 1)
	assert.Equal(t, plan.TaskID("a"), preds[0].ID)
	assert.Empty(t, g.Predecessors("a"))
}

func TestGraph_DefaultEdgeTypeIsFinishToStart(t *testing.T) {
	g := New()
	mustAdd(t, g, "a", "b")
	require.NoError(t, g.AddDependency("a", "b", ""))
	assert.Equal(t, plan.FinishToStart, g.Predecessors("b")[0].Type)
}

func TestGraph_TopologicalOrder_Deterministic(t *testing.T) {
	g := New()
	mustAdd(t, g, "d", "c", "b", "a")
	require.NoError(t, g.AddDependency("a", "c", plan.FinishToStart))
	require.NoError(t, g.AddDependency("b", "c", plan.FinishToStart))
	require.NoError(t, g.AddDependency("c", "d", plan.FinishToStart))

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	// Ready-set ties break by ID: a before b.
	assert.Equal(t, []plan.TaskID{"a", "b", "c", "d"}, order)

	for i := 0; i < 5; i++ {
		again, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, order, again)
	}
}

func TestGraph_TransitiveSuccessors(t *testing.T) {
	g := New()
	mustAdd(t, g, "a", "b", "c", "d", "e")
	require.NoError(t, g.AddDependency("a", "b", plan.FinishToStart))
	require.NoError(t, g.AddDependency("b", "c", plan.FinishToStart))
	require.NoError(t, g.AddDependency("b", "d", plan.FinishToStart))

	assert.Equal(t, []plan.TaskID{"b", "c", "d"}, g.TransitiveSuccessors("a"))
	assert.Empty(t, g.TransitiveSuccessors("e"))
}

func TestFromTasks_BuildsEdges(t *testing.T) {
	tasks := map[plan.TaskID]*plan.Task{
		"design": {ID: "design"},
		"build": {ID: "build", DependsOn: []plan.Dependency{
			{Predecessor: "design", Type: plan.FinishToStart},
		}},
	}
	g, err := FromTasks(tasks)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	require.Len(t, g.Predecessors("build"), 1)
}

func TestFromTasks_DanglingDependency(t *testing.T) {
	tasks := map[plan.TaskID]*plan.Task{
		"build": {ID: "build", DependsOn: []plan.Dependency{
			{Predecessor: "ghost", Type: plan.FinishToStart},
		}},
	}
	_, err := FromTasks(tasks)
	assert.True(t, plan.IsCode(err, plan.CodeDanglingDependency))
}

func TestFromTasks_CyclicTaskSet(t *testing.T) {
	tasks := map[plan.TaskID]*plan.Task{
		"a": {ID: "a", DependsOn: []plan.Dependency{{Predecessor: "b"}}},
		"b": {ID: "b", DependsOn: []plan.Dependency{{Predecessor: "a"}}},
	}
	_, err := FromTasks(tasks)
	assert.True(t, plan.IsCycle(err))
}

// Random DAGs must always be accepted and always order fully.
func TestGraph_RandomDAGAcceptance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		g := New()
		const n = 30
		ids := make([]plan.TaskID, n)
		for i := range ids {
			ids[i] = plan.TaskID(rune('a'+i/26)) + plan.TaskID(rune('a'+i%26))
			require.NoError(t, g.AddTask(ids[i]))
		}
		// Edges only from lower to higher index: acyclic by construction.
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if rng.Intn(4) == 0 {
					require.NoError(t, g.AddDependency(ids[i], ids[j], plan.FinishToStart))
				}
			}
		}
		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Len(t, order, n)
		require.NoError(t, g.Validate())
	}
}
