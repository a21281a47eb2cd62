// Package graph implements the task dependency graph.
//
// The graph is a DAG of tasks and precedence edges. Mutations are
// synchronous and atomic: an edge that would create a cycle or reference
// a missing task is rejected whole - no partial edge sets are ever
// observable. Cycle checking is incremental (reverse reachability from
// the would-be predecessor) rather than a full re-sort, so repeated edits
// stay cheap.
package graph

import (
	"sort"

	"github.com/roach88/replan/internal/plan"
)

// Graph is a directed acyclic graph of tasks and precedence edges.
//
// Not safe for concurrent mutation; the engine builds graphs from
// immutable timeline snapshots, one per operation.
type Graph struct {
	nodes map[plan.TaskID]bool
	succ  map[plan.TaskID]map[plan.TaskID]plan.DependencyType
	pred  map[plan.TaskID]map[plan.TaskID]plan.DependencyType
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[plan.TaskID]bool),
		succ:  make(map[plan.TaskID]map[plan.TaskID]plan.DependencyType),
		pred:  make(map[plan.TaskID]map[plan.TaskID]plan.DependencyType),
	}
}

// FromTimeline builds a graph from a timeline's tasks and their
// dependency edges. Returns DanglingDependency if any edge references a
// task missing from the timeline, CycleDetected if the edges do not form
// a DAG.
func FromTimeline(tl *plan.Timeline) (*Graph, error) {
	return FromTasks(tl.Tasks)
}

// FromTasks builds a graph from a task set.
func FromTasks(tasks map[plan.TaskID]*plan.Task) (*Graph, error) {
	g := New()
	for id := range tasks {
		if err := g.AddTask(id); err != nil {
			return nil, err
		}
	}
	// Deterministic edge insertion order: sorted successor ID, then
	// declaration order of its DependsOn slice.
	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		t := tasks[plan.TaskID(id)]
		for _, dep := range t.DependsOn {
			if err := g.AddDependency(dep.Predecessor, t.ID, dep.Type); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Has reports whether the task exists in the graph.
func (g *Graph) Has(id plan.TaskID) bool { return g.nodes[id] }

// AddTask adds a task node. Adding an existing task is a no-op.
func (g *Graph) AddTask(id plan.TaskID) error {
	if id == "" {
		return plan.NewError(plan.CodeDanglingDependency, "empty task id")
	}
	g.nodes[id] = true
	return nil
}

// AddDependency adds a precedence edge from pred to succ.
//
// Fails with DanglingDependency if either endpoint is missing, and with
// CycleDetected if the edge would create a cycle (including
// self-reference). On failure the graph is unchanged.
func (g *Graph) AddDependency(pred, succ plan.TaskID, typ plan.DependencyType) error {
	if !g.nodes[pred] {
		return &plan.Error{
			Code:    plan.CodeDanglingDependency,
			Message: "dependency predecessor does not exist",
			TaskID:  pred,
		}
	}
	if !g.nodes[succ] {
		return &plan.Error{
			Code:    plan.CodeDanglingDependency,
			Message: "dependency successor does not exist",
			TaskID:  succ,
		}
	}
	if pred == succ {
		return &plan.Error{
			Code:    plan.CodeCycleDetected,
			Message: "task cannot depend on itself",
			TaskID:  pred,
		}
	}
	if typ == "" {
		typ = plan.FinishToStart
	}

	// Incremental cycle check: the edge pred->succ creates a cycle iff
	// pred is already reachable from succ.
	if g.reachable(succ, pred) {
		return &plan.Error{
			Code:    plan.CodeCycleDetected,
			Message: "dependency would create a cycle",
			TaskID:  succ,
			Details: map[string]string{"predecessor": string(pred)},
		}
	}

	if g.succ[pred] == nil {
		g.succ[pred] = make(map[plan.TaskID]plan.DependencyType)
	}
	if g.pred[succ] == nil {
		g.pred[succ] = make(map[plan.TaskID]plan.DependencyType)
	}
	g.succ[pred][succ] = typ
	g.pred[succ][pred] = typ
	return nil
}

// reachable reports whether to is reachable from from via successor edges.
// Iterative DFS; O(V+E) worst case but bounded by the affected subgraph
// in practice.
func (g *Graph) reachable(from, to plan.TaskID) bool {
	if from == to {
		return true
	}
	seen := map[plan.TaskID]bool{from: true}
	stack := []plan.TaskID{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for s := range g.succ[n] {
			if s == to {
				return true
			}
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return false
}

// Predecessors returns the incoming edges of a task, sorted by
// predecessor ID for determinism.
func (g *Graph) Predecessors(id plan.TaskID) []Edge {
	return sortedEdges(g.pred[id])
}

// Successors returns the outgoing edges of a task, sorted by the far
// endpoint's ID for determinism.
func (g *Graph) Successors(id plan.TaskID) []Edge {
	return sortedEdges(g.succ[id])
}

// Edge is one precedence edge endpoint with its relation type.
type Edge struct {
	ID   plan.TaskID
	Type plan.DependencyType
}

func sortedEdges(m map[plan.TaskID]plan.DependencyType) []Edge {
	edges := make([]Edge, 0, len(m))
	for id, typ := range m {
		edges = append(edges, Edge{ID: id, Type: typ})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges
}

// TransitiveSuccessors returns every task downstream of id, excluding id
// itself, sorted by ID.
func (g *Graph) TransitiveSuccessors(id plan.TaskID) []plan.TaskID {
	seen := make(map[plan.TaskID]bool)
	stack := []plan.TaskID{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for s := range g.succ[n] {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	out := make([]plan.TaskID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TopologicalOrder returns all tasks in a deterministic topological
// order: Kahn's algorithm with the ready set kept sorted, ties broken by
// task ID. Fails with CyclicGraph if the graph is not a DAG (defensive -
// AddDependency should have prevented it).
func (g *Graph) TopologicalOrder() ([]plan.TaskID, error) {
	indegree := make(map[plan.TaskID]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = len(g.pred[id])
	}

	var ready []plan.TaskID
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	order := make([]plan.TaskID, 0, len(g.nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		for _, e := range g.Successors(n) {
			indegree[e.ID]--
			if indegree[e.ID] == 0 {
				// Insert keeping ready sorted (small sets; linear insert)
				i := sort.Search(len(ready), func(i int) bool { return ready[i] >= e.ID })
				ready = append(ready, "")
				copy(ready[i+1:], ready[i:])
				ready[i] = e.ID
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, plan.NewError(plan.CodeCyclicGraph,
			"graph contains a cycle: %d of %d tasks unorderable",
			len(g.nodes)-len(order), len(g.nodes))
	}
	return order, nil
}

// Validate re-checks structural integrity: every edge endpoint exists
// and the graph is acyclic. Graph mutations already enforce both, so a
// failure here indicates a bug or a hand-assembled task set.
func (g *Graph) Validate() error {
	for succ, preds := range g.pred {
		if !g.nodes[succ] {
			return &plan.Error{
				Code:    plan.CodeDanglingDependency,
				Message: "edge successor missing from graph",
				TaskID:  succ,
			}
		}
		for pred := range preds {
			if !g.nodes[pred] {
				return &plan.Error{
					Code:    plan.CodeDanglingDependency,
					Message: "edge predecessor missing from graph",
					TaskID:  pred,
				}
			}
		}
	}
	if _, err := g.TopologicalOrder(); err != nil {
		return err
	}
	return nil
}
