package plan

import (
	"fmt"
	"sort"
	"time"
)

// TaskID identifies a task within a timeline.
// Task IDs are deterministic: derived from the generating fact ID and
// template name (see DeriveTaskID), never random.
type TaskID string

// TaskStatus is the lifecycle state of a single task.
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not_started"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
)

// DependencyType is the precedence relation between two tasks.
type DependencyType string

const (
	// FinishToStart: successor may not start before the predecessor finishes.
	// This is the default relation.
	FinishToStart DependencyType = "finish_to_start"

	// StartToStart: successor may not start before the predecessor starts.
	StartToStart DependencyType = "start_to_start"
)

// Dependency is one incoming precedence edge of a task. The successor is
// implicit (the task carrying the edge).
type Dependency struct {
	Predecessor TaskID         `json:"predecessor"`
	Type        DependencyType `json:"type"`
}

// Task is a single schedulable unit of work.
//
// StartDay/FinishDay are day offsets from the owning Timeline's anchor
// date. They are derived by the CPM pass, never set by hand.
//
// INVARIANTS:
//   - FinishDay == StartDay + DurationDays
//   - StartDay >= the relevant bound of every dependency
//     (predecessor FinishDay for finish_to_start, predecessor StartDay
//     for start_to_start)
//   - DurationDays >= 0 (zero-duration tasks are milestones)
//   - no self-referential dependency, no cycles across a timeline
type Task struct {
	ID              TaskID       `json:"id"`
	Name            string       `json:"name"`
	DurationDays    int          `json:"duration_days"`
	StartDay        int          `json:"start_day"`
	FinishDay       int          `json:"finish_day"`
	ProgressPercent int          `json:"progress_percent"`
	Status          TaskStatus   `json:"status"`
	DependsOn       []Dependency `json:"depends_on,omitempty"`
	SourceFactIDs   []string     `json:"source_fact_ids,omitempty"`
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	c.DependsOn = append([]Dependency(nil), t.DependsOn...)
	c.SourceFactIDs = append([]string(nil), t.SourceFactIDs...)
	return &c
}

// TimelineStatus is the lifecycle state of a timeline version.
type TimelineStatus string

const (
	// TimelineActive is the single live version of a project's plan.
	TimelineActive TimelineStatus = "active"

	// TimelineSuperseded marks a version replaced by a later one.
	// Superseded versions are never deleted (append-only history).
	TimelineSuperseded TimelineStatus = "superseded"
)

// Timeline is one immutable version of a project's plan.
//
// Versions start at 1 and increase monotonically. Exactly one version per
// project is active at any time; applying a re-plan proposal creates
// version N+1 and marks version N superseded.
type Timeline struct {
	ID              string           `json:"id"`
	ProjectID       string           `json:"project_id"`
	Version         int              `json:"version"`
	AnchorDate      time.Time        `json:"anchor_date"`
	Tasks           map[TaskID]*Task `json:"tasks"`
	CriticalPath    []TaskID         `json:"critical_path"`
	OverallProgress int              `json:"overall_progress"`
	Status          TimelineStatus   `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
}

// TimelineID renders the deterministic ID of a project's timeline
// version: "<project>/v<version>".
func TimelineID(projectID string, version int) string {
	return fmt.Sprintf("%s/v%d", projectID, version)
}

// Clone returns a deep copy of the timeline. Re-planning operates on
// clones so the live timeline is never mutated before an explicit apply.
func (tl *Timeline) Clone() *Timeline {
	c := *tl
	c.Tasks = make(map[TaskID]*Task, len(tl.Tasks))
	for id, t := range tl.Tasks {
		c.Tasks[id] = t.Clone()
	}
	c.CriticalPath = append([]TaskID(nil), tl.CriticalPath...)
	return &c
}

// TaskIDs returns all task IDs in lexicographic order.
// Map iteration order is never exposed to callers.
func (tl *Timeline) TaskIDs() []TaskID {
	ids := make([]TaskID, 0, len(tl.Tasks))
	for id := range tl.Tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ProjectFinishDay returns the largest finish day over all tasks.
// Zero for an empty timeline.
func (tl *Timeline) ProjectFinishDay() int {
	finish := 0
	for _, t := range tl.Tasks {
		if t.FinishDay > finish {
			finish = t.FinishDay
		}
	}
	return finish
}

// WeightedProgress computes overall progress as the duration-weighted
// average of task progress, rounded to the nearest whole percent.
//
// Zero-duration milestones carry no weight. If every task is a milestone,
// the unweighted mean is used instead so completed milestones still count.
func (tl *Timeline) WeightedProgress() int {
	if len(tl.Tasks) == 0 {
		return 0
	}
	var weighted, totalWeight int
	for _, t := range tl.Tasks {
		weighted += t.ProgressPercent * t.DurationDays
		totalWeight += t.DurationDays
	}
	if totalWeight == 0 {
		sum := 0
		for _, t := range tl.Tasks {
			sum += t.ProgressPercent
		}
		return (sum + len(tl.Tasks)/2) / len(tl.Tasks)
	}
	return (weighted + totalWeight/2) / totalWeight
}

// CompletedTasks counts tasks with status completed.
func (tl *Timeline) CompletedTasks() int {
	n := 0
	for _, t := range tl.Tasks {
		if t.Status == TaskCompleted {
			n++
		}
	}
	return n
}

// DayToDate converts a day offset into a calendar date using the
// timeline's anchor.
func (tl *Timeline) DayToDate(day int) time.Time {
	return tl.AnchorDate.AddDate(0, 0, day)
}
