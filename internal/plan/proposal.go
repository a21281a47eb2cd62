package plan

import "time"

// ProposalState is the re-plan proposal state machine position.
//
// Transitions: draft -> previewed -> {applied | rejected}.
// Reject is also legal from draft. Applied and rejected are terminal.
type ProposalState string

const (
	ProposalDraft     ProposalState = "draft"
	ProposalPreviewed ProposalState = "previewed"
	ProposalApplied   ProposalState = "applied"
	ProposalRejected  ProposalState = "rejected"
)

// Terminal reports whether the state admits no further transitions.
func (s ProposalState) Terminal() bool {
	return s == ProposalApplied || s == ProposalRejected
}

// Impact summarizes what a proposal changes relative to its base timeline.
type Impact struct {
	TotalDelayDays  int      `json:"total_delay_days"`
	AffectedTaskIDs []TaskID `json:"affected_task_ids"`
	NewCriticalPath []TaskID `json:"new_critical_path"`
}

// RePlanProposal is a computed, not-yet-committed alternative timeline
// responding to a trigger.
//
// A proposal is computed against an immutable snapshot of its base
// timeline version (BaseVersion of TimelineID). If that version is
// superseded before the proposal is applied, Apply fails with
// ErrStaleBaseVersion and the proposal must be recomputed or rejected -
// never applied against a stale base.
type RePlanProposal struct {
	ID            string           `json:"id"`
	ProjectID     string           `json:"project_id"`
	TimelineID    string           `json:"timeline_id"`
	BaseVersion   int              `json:"base_version"`
	TriggerID     string           `json:"trigger_id"`
	ProposedTasks map[TaskID]*Task `json:"proposed_tasks"`
	Impact        Impact           `json:"impact"`
	State         ProposalState    `json:"state"`
	CreatedAt     time.Time        `json:"created_at"`
	AppliedAt     *time.Time       `json:"applied_at,omitempty"`
}

// TaskDelta is one row of a proposal preview: old versus new schedule for
// a task whose dates or duration changed.
type TaskDelta struct {
	TaskID       TaskID `json:"task_id"`
	Name         string `json:"name"`
	OldStartDay  int    `json:"old_start_day"`
	NewStartDay  int    `json:"new_start_day"`
	OldFinishDay int    `json:"old_finish_day"`
	NewFinishDay int    `json:"new_finish_day"`
	OldDuration  int    `json:"old_duration_days"`
	NewDuration  int    `json:"new_duration_days"`
}
