// Package wbs generates a work-breakdown structure from project facts.
//
// Each task-generating fact maps through the catalog to one task with a
// default duration; fact-specific terms (contract duration, permit lead
// time) override the default. Dependencies come from fact ordering hints
// (Fact.After). Generation is deterministic: the same fact set always
// yields the same task set, including IDs.
package wbs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/replan/internal/catalog"
	"github.com/roach88/replan/internal/cpm"
	"github.com/roach88/replan/internal/graph"
	"github.com/roach88/replan/internal/plan"
)

// Generator converts fact sets into timelines.
type Generator struct {
	catalog *catalog.Catalog
	strict  bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithStrict makes unmappable facts an error (ErrInvalidFactKind)
// instead of a logged skip.
func WithStrict() Option {
	return func(g *Generator) { g.strict = true }
}

// New creates a Generator over the given template catalog.
func New(cat *catalog.Catalog, opts ...Option) *Generator {
	g := &Generator{catalog: cat}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds version 1 of a project's timeline from facts.
//
// An empty fact set produces an empty timeline, not an error. Facts with
// an unknown kind fail with InvalidFactKind in strict mode and are
// logged and skipped otherwise.
func (g *Generator) Generate(projectID string, anchor time.Time, facts []plan.Fact) (*plan.Timeline, error) {
	tl := &plan.Timeline{
		ID:         plan.TimelineID(projectID, 1),
		ProjectID:  projectID,
		Version:    1,
		AnchorDate: plan.DateOnly(anchor),
		Tasks:      make(map[plan.TaskID]*plan.Task),
		Status:     plan.TimelineActive,
	}

	// Pass 1: create tasks for task-generating facts, remember the
	// fact->task mapping for dependency wiring and progress/attachment.
	taskByFact := make(map[string]plan.TaskID)
	for i := range facts {
		f := &facts[i]
		if !f.Kind.Known() {
			if g.strict {
				return nil, &plan.Error{
					Code:      plan.CodeInvalidFactKind,
					Message:   fmt.Sprintf("fact %s has unknown kind %q", f.ID, f.Kind),
					ProjectID: projectID,
				}
			}
			slog.Warn("skipping fact with unknown kind",
				"project", projectID,
				"fact", f.ID,
				"kind", f.Kind,
			)
			continue
		}
		if !f.Kind.GeneratesTask() {
			continue
		}

		tmpl, ok := g.catalog.Lookup(f.Kind)
		if !ok {
			if g.strict {
				return nil, &plan.Error{
					Code:      plan.CodeInvalidFactKind,
					Message:   fmt.Sprintf("no template in catalog for fact kind %q", f.Kind),
					ProjectID: projectID,
				}
			}
			slog.Warn("skipping fact without catalog template",
				"project", projectID,
				"fact", f.ID,
				"kind", f.Kind,
			)
			continue
		}

		t := &plan.Task{
			ID:            plan.DeriveTaskID(f.ID, string(f.Kind)),
			Name:          tmpl.Name(f.ID),
			DurationDays:  factDuration(f, tmpl),
			Status:        plan.TaskNotStarted,
			SourceFactIDs: []string{f.ID},
		}
		tl.Tasks[t.ID] = t
		taskByFact[f.ID] = t.ID
	}

	// Pass 2: dependencies from ordering hints. Hints pointing at
	// non-task facts (or unknown facts) are skipped - ordering against
	// a document or vendor record has no schedule meaning.
	for i := range facts {
		f := &facts[i]
		succID, ok := taskByFact[f.ID]
		if !ok {
			continue
		}
		for _, after := range f.After {
			predID, ok := taskByFact[after]
			if !ok {
				slog.Debug("ignoring ordering hint with no task",
					"fact", f.ID,
					"after", after,
				)
				continue
			}
			tl.Tasks[succID].DependsOn = append(tl.Tasks[succID].DependsOn, plan.Dependency{
				Predecessor: predID,
				Type:        plan.FinishToStart,
			})
		}
	}

	// Pass 3: progress from SAL records and provenance attachment of
	// documents (by explicit refs or vendor match).
	factByID := make(map[string]*plan.Fact, len(facts))
	for i := range facts {
		factByID[facts[i].ID] = &facts[i]
	}
	for i := range facts {
		f := &facts[i]
		switch f.Kind {
		case plan.FactSAL:
			if f.SAL == nil {
				continue
			}
			g.applySAL(tl, taskByFact, f)
		case plan.FactDocument:
			if f.Document == nil {
				continue
			}
			g.attachDocument(tl, taskByFact, factByID, f)
		}
	}

	if err := schedule(tl); err != nil {
		return nil, err
	}
	return tl, nil
}

// Refresh regenerates a project's timeline from fresh facts, carrying
// recorded progress forward for tasks whose deterministic IDs survive.
// The result keeps the existing version number; persistence assigns the
// next version when the refresh is committed.
func (g *Generator) Refresh(existing *plan.Timeline, facts []plan.Fact) (*plan.Timeline, error) {
	tl, err := g.Generate(existing.ProjectID, existing.AnchorDate, facts)
	if err != nil {
		return nil, err
	}
	tl.Version = existing.Version
	tl.ID = existing.ID

	for id, t := range tl.Tasks {
		old, ok := existing.Tasks[id]
		if !ok {
			continue
		}
		// Fresher progress from SAL facts wins; otherwise keep what the
		// previous version had recorded.
		if t.ProgressPercent == 0 && old.ProgressPercent > 0 {
			t.ProgressPercent = old.ProgressPercent
			t.Status = old.Status
		}
	}
	tl.OverallProgress = tl.WeightedProgress()
	return tl, nil
}

// applySAL records progress from a SAL fact onto the referenced task.
func (g *Generator) applySAL(tl *plan.Timeline, taskByFact map[string]plan.TaskID, f *plan.Fact) {
	taskID, ok := taskByFact[f.SAL.FactRef]
	if !ok {
		slog.Warn("SAL record references unknown fact",
			"project", tl.ProjectID,
			"sal", f.ID,
			"ref", f.SAL.FactRef,
		)
		return
	}
	t := tl.Tasks[taskID]
	p := f.SAL.ProgressPercent
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	// A task may have several SAL records; the highest reported
	// progress wins.
	if p <= t.ProgressPercent {
		t.SourceFactIDs = append(t.SourceFactIDs, f.ID)
		return
	}
	t.ProgressPercent = p
	switch {
	case p >= 100:
		t.Status = plan.TaskCompleted
	case p > 0:
		t.Status = plan.TaskInProgress
	}
	t.SourceFactIDs = append(t.SourceFactIDs, f.ID)
}

// attachDocument links a compliance document to the tasks it covers:
// explicit fact references first, vendor match otherwise. The document
// fact ID lands in SourceFactIDs so the trigger detector can find
// expiring documents per task.
func (g *Generator) attachDocument(tl *plan.Timeline, taskByFact map[string]plan.TaskID, factByID map[string]*plan.Fact, f *plan.Fact) {
	attached := false
	for _, ref := range f.Document.AppliesTo {
		if taskID, ok := taskByFact[ref]; ok {
			tl.Tasks[taskID].SourceFactIDs = append(tl.Tasks[taskID].SourceFactIDs, f.ID)
			attached = true
		}
	}
	if attached || f.Document.VendorID == "" {
		return
	}
	for factID, taskID := range taskByFact {
		src := factByID[factID]
		if src != nil && src.VendorID() == f.Document.VendorID {
			tl.Tasks[taskID].SourceFactIDs = append(tl.Tasks[taskID].SourceFactIDs, f.ID)
		}
	}
}

// factDuration picks the task duration: fact-specific terms first,
// catalog default otherwise.
func factDuration(f *plan.Fact, tmpl catalog.Template) int {
	switch f.Kind {
	case plan.FactContract:
		if f.Contract != nil && f.Contract.DurationDays > 0 {
			return f.Contract.DurationDays
		}
	case plan.FactPermit:
		if f.Permit != nil && f.Permit.LeadTimeDays > 0 {
			return f.Permit.LeadTimeDays
		}
	case plan.FactMilestone:
		if f.Milestone != nil && f.Milestone.DurationDays > 0 {
			return f.Milestone.DurationDays
		}
	}
	return tmpl.DurationDays
}

// schedule runs CPM over the generated tasks and stamps schedule
// positions, critical path, and overall progress onto the timeline.
func schedule(tl *plan.Timeline) error {
	g, err := graph.FromTimeline(tl)
	if err != nil {
		return fmt.Errorf("build dependency graph: %w", err)
	}

	durations := make(map[plan.TaskID]int, len(tl.Tasks))
	for id, t := range tl.Tasks {
		durations[id] = t.DurationDays
	}

	result, err := cpm.Compute(g, durations)
	if err != nil {
		return fmt.Errorf("compute critical path: %w", err)
	}

	cpm.Reschedule(tl.Tasks, result)
	tl.CriticalPath = result.CriticalPath
	tl.OverallProgress = tl.WeightedProgress()
	return nil
}

// Reschedule re-runs CPM over an existing task set and re-stamps the
// timeline. Used by the re-plan engine after mutating durations.
func Reschedule(tl *plan.Timeline) error {
	return schedule(tl)
}
