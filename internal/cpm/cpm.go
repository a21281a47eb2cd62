// Package cpm implements the Critical Path Method over a task
// dependency graph.
//
// All arithmetic is in whole days. Zero-duration tasks (milestones)
// participate fully in float calculation. Disconnected components are
// each processed; the backward pass anchors every sink at the overall
// project finish, so only the component that determines the finish date
// carries zero float.
package cpm

import (
	"sort"

	"github.com/roach88/replan/internal/graph"
	"github.com/roach88/replan/internal/plan"
)

// Result holds the full CPM schedule for a graph.
//
// All day values are offsets from the project anchor date. The critical
// path is the zero-float tasks ordered by earliest start, ties broken by
// task ID for determinism.
type Result struct {
	EarliestStart  map[plan.TaskID]int
	EarliestFinish map[plan.TaskID]int
	LatestStart    map[plan.TaskID]int
	LatestFinish   map[plan.TaskID]int
	Float          map[plan.TaskID]int
	CriticalPath   []plan.TaskID
	ProjectFinish  int
}

// TotalDuration returns the minimum project duration in days.
func (r *Result) TotalDuration() int { return r.ProjectFinish }

// Compute runs the forward and backward CPM passes.
//
// Forward: ES(t) = max over predecessors p of EF(p) (finish-to-start) or
// ES(p) (start-to-start); EF(t) = ES(t) + duration(t).
// Backward: LF(t) = min over successors s of LS(s) (finish-to-start) or
// LS(s) + duration(t) (start-to-start); sinks anchor at the overall
// project finish. Float(t) = LS(t) - ES(t).
//
// Fails with CyclicGraph if the graph is not a DAG. Durations default to
// zero for tasks missing from the map.
func Compute(g *graph.Graph, durations map[plan.TaskID]int) (*Result, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	n := len(order)
	r := &Result{
		EarliestStart:  make(map[plan.TaskID]int, n),
		EarliestFinish: make(map[plan.TaskID]int, n),
		LatestStart:    make(map[plan.TaskID]int, n),
		LatestFinish:   make(map[plan.TaskID]int, n),
		Float:          make(map[plan.TaskID]int, n),
	}
	if n == 0 {
		return r, nil
	}

	// Forward pass in topological order.
	for _, id := range order {
		es := 0
		for _, e := range g.Predecessors(id) {
			var bound int
			switch e.Type {
			case plan.StartToStart:
				bound = r.EarliestStart[e.ID]
			default: // finish-to-start
				bound = r.EarliestFinish[e.ID]
			}
			if bound > es {
				es = bound
			}
		}
		r.EarliestStart[id] = es
		r.EarliestFinish[id] = es + durations[id]
	}

	// Project finish = max EF over all tasks (covers every component).
	finish := 0
	for _, ef := range r.EarliestFinish {
		if ef > finish {
			finish = ef
		}
	}
	r.ProjectFinish = finish

	// Backward pass in reverse topological order.
	for i := n - 1; i >= 0; i-- {
		id := order[i]
		lf := finish
		for _, e := range g.Successors(id) {
			var bound int
			switch e.Type {
			case plan.StartToStart:
				// Constraint is on starts: LS(id) <= LS(succ),
				// so LF(id) <= LS(succ) + duration(id).
				bound = r.LatestStart[e.ID] + durations[id]
			default:
				bound = r.LatestStart[e.ID]
			}
			if bound < lf {
				lf = bound
			}
		}
		r.LatestFinish[id] = lf
		r.LatestStart[id] = lf - durations[id]
		r.Float[id] = r.LatestStart[id] - r.EarliestStart[id]
	}

	// Critical path: zero-float tasks ordered by earliest start, ties by ID.
	var critical []plan.TaskID
	for _, id := range order {
		if r.Float[id] == 0 {
			critical = append(critical, id)
		}
	}
	sort.Slice(critical, func(i, j int) bool {
		si, sj := r.EarliestStart[critical[i]], r.EarliestStart[critical[j]]
		if si != sj {
			return si < sj
		}
		return critical[i] < critical[j]
	})
	r.CriticalPath = critical

	return r, nil
}

// Reschedule applies a computed CPM result back onto a task set: every
// task's StartDay/FinishDay become its earliest start/finish. Tasks are
// mutated in place; callers pass a cloned task set when the source must
// stay immutable.
func Reschedule(tasks map[plan.TaskID]*plan.Task, r *Result) {
	for id, t := range tasks {
		t.StartDay = r.EarliestStart[id]
		t.FinishDay = r.EarliestFinish[id]
	}
}
