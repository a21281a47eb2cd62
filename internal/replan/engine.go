// Package replan computes and applies re-plan proposals.
//
// The engine never mutates a live timeline: Propose works on a clone of
// the base version, Preview is a read-only diff, and only Apply - through
// the store's optimistic version check - commits a new version. The
// proposal state machine is draft -> previewed -> {applied | rejected}.
package replan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/roach88/replan/internal/plan"
	"github.com/roach88/replan/internal/wbs"
)

// Config holds the recovery heuristics used when computing a proposal.
//
// The re-procurement lead time applied after a vendor disqualification is
// not dictated by the business rules upstream; 45 days is the chosen
// default and projects override it in their config file.
type Config struct {
	// RecoveryLeadDays is added to a disqualified vendor's tasks to
	// cover re-procurement.
	RecoveryLeadDays int `yaml:"recovery_lead_days"`

	// RenewalLeadDays is added to tasks gated on an expiring document.
	RenewalLeadDays int `yaml:"renewal_lead_days"`

	// AwardGraceDays is added on top of the overdue gap when an
	// expected award has not landed.
	AwardGraceDays int `yaml:"award_grace_days"`
}

// Defaults for the recovery heuristics.
const (
	DefaultRecoveryLeadDays = 45
	DefaultRenewalLeadDays  = 10
	DefaultAwardGraceDays   = 7
)

// DefaultConfig returns the stock recovery heuristics.
func DefaultConfig() Config {
	return Config{
		RecoveryLeadDays: DefaultRecoveryLeadDays,
		RenewalLeadDays:  DefaultRenewalLeadDays,
		AwardGraceDays:   DefaultAwardGraceDays,
	}
}

func (c Config) normalize() Config {
	if c.RecoveryLeadDays <= 0 {
		c.RecoveryLeadDays = DefaultRecoveryLeadDays
	}
	if c.RenewalLeadDays <= 0 {
		c.RenewalLeadDays = DefaultRenewalLeadDays
	}
	if c.AwardGraceDays <= 0 {
		c.AwardGraceDays = DefaultAwardGraceDays
	}
	return c
}

// Applier commits a previewed proposal as a new timeline version.
// Implemented by the SQLite store; the interface keeps the engine free
// of persistence concerns and testable with fakes.
//
// ApplyProposal must be atomic: verify the base version is still active,
// insert the new version, supersede the base, mark the proposal applied,
// and resolve its trigger - or fail without side effects. A superseded
// base fails with StaleBaseVersion.
type Applier interface {
	ApplyProposal(ctx context.Context, p *plan.RePlanProposal) (*plan.Timeline, error)
}

// Engine computes re-plan proposals.
type Engine struct {
	cfg Config
	ids plan.IDGenerator
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithNow overrides the wall clock for deterministic tests.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine. A nil IDGenerator defaults to UUIDv7.
func New(cfg Config, ids plan.IDGenerator, opts ...Option) *Engine {
	if ids == nil {
		ids = plan.UUIDv7Generator{}
	}
	e := &Engine{cfg: cfg.normalize(), ids: ids, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Propose computes a draft proposal against an immutable snapshot of the
// base timeline. The base is never mutated.
//
// The recovery heuristic depends on the trigger type:
//   - vendor_disqualified: related tasks are blocked and extended by the
//     re-procurement lead time, shifting all transitive successors
//   - document_expiry: related tasks extended by the renewal lead time
//   - sal_delay: the delayed task's duration grows by the progress gap
//     converted to days
//   - award_delay: the awaiting task grows by the overdue gap plus grace
//   - manual: no structural change; the schedule is recomputed as-is
func (e *Engine) Propose(base *plan.Timeline, trg *plan.Trigger) (*plan.RePlanProposal, error) {
	if trg.TimelineID != base.ID {
		return nil, &plan.Error{
			Code:      plan.CodeStaleBaseVersion,
			Message:   fmt.Sprintf("trigger was detected against %s, not %s", trg.TimelineID, base.ID),
			ProjectID: base.ProjectID,
		}
	}

	candidate := base.Clone()
	for _, taskID := range trg.RelatedTaskIDs {
		t, ok := candidate.Tasks[taskID]
		if !ok {
			return nil, &plan.Error{
				Code:      plan.CodeDanglingDependency,
				Message:   "trigger references a task missing from the base timeline",
				ProjectID: base.ProjectID,
				TaskID:    taskID,
			}
		}
		e.adjustTask(t, trg)
	}

	if err := wbs.Reschedule(candidate); err != nil {
		return nil, fmt.Errorf("reschedule candidate: %w", err)
	}

	impact := computeImpact(base, candidate)
	return &plan.RePlanProposal{
		ID:            e.ids.Generate(),
		ProjectID:     base.ProjectID,
		TimelineID:    base.ID,
		BaseVersion:   base.Version,
		TriggerID:     trg.ID,
		ProposedTasks: candidate.Tasks,
		Impact:        impact,
		State:         plan.ProposalDraft,
		CreatedAt:     e.now().UTC(),
	}, nil
}

// adjustTask applies the per-trigger recovery heuristic to one task.
func (e *Engine) adjustTask(t *plan.Task, trg *plan.Trigger) {
	switch trg.Type {
	case plan.TriggerVendorDisqualified:
		t.DurationDays += e.cfg.RecoveryLeadDays
		t.Status = plan.TaskBlocked
	case plan.TriggerDocumentExpiry:
		t.DurationDays += e.cfg.RenewalLeadDays
	case plan.TriggerSALDelay:
		// Convert the progress gap into days of extra work, rounding up
		// so a detected delay never maps to a zero-day extension.
		gapDays := (trg.Detail.ProgressGapPoints*t.DurationDays + 99) / 100
		t.DurationDays += gapDays
	case plan.TriggerAwardDelay:
		t.DurationDays += trg.Detail.DaysOverdue + e.cfg.AwardGraceDays
	case plan.TriggerManual:
		// No structural change; CPM recompute only.
	}
}

// Preview transitions a proposal to previewed and returns the read-only
// diff of old versus new schedule per affected task. Pure function of
// its inputs; callable repeatedly without side effects beyond the
// (idempotent) state transition.
func (e *Engine) Preview(p *plan.RePlanProposal, base *plan.Timeline) ([]plan.TaskDelta, error) {
	if p.State.Terminal() {
		return nil, fmt.Errorf("proposal %s is %s, cannot preview", p.ID, p.State)
	}
	if base.ID != p.TimelineID {
		return nil, &plan.Error{
			Code:      plan.CodeStaleBaseVersion,
			Message:   fmt.Sprintf("proposal %s was computed against %s, not %s", p.ID, p.TimelineID, base.ID),
			ProjectID: p.ProjectID,
		}
	}

	var deltas []plan.TaskDelta
	for _, id := range sortedTaskIDs(p.ProposedTasks) {
		nt := p.ProposedTasks[id]
		ot, ok := base.Tasks[id]
		if !ok {
			deltas = append(deltas, plan.TaskDelta{
				TaskID: id, Name: nt.Name,
				NewStartDay: nt.StartDay, NewFinishDay: nt.FinishDay, NewDuration: nt.DurationDays,
			})
			continue
		}
		if ot.StartDay == nt.StartDay && ot.FinishDay == nt.FinishDay && ot.DurationDays == nt.DurationDays {
			continue
		}
		deltas = append(deltas, plan.TaskDelta{
			TaskID:       id,
			Name:         nt.Name,
			OldStartDay:  ot.StartDay,
			NewStartDay:  nt.StartDay,
			OldFinishDay: ot.FinishDay,
			NewFinishDay: nt.FinishDay,
			OldDuration:  ot.DurationDays,
			NewDuration:  nt.DurationDays,
		})
	}

	p.State = plan.ProposalPreviewed
	return deltas, nil
}

// Apply commits a previewed proposal through the store. Only legal from
// previewed: applying a draft fails with ProposalNotPreviewed. Staleness
// (base superseded by a concurrent apply) surfaces from the store as
// StaleBaseVersion; callers re-propose against the new active version.
func (e *Engine) Apply(ctx context.Context, st Applier, p *plan.RePlanProposal) (*plan.Timeline, error) {
	if p.State != plan.ProposalPreviewed {
		return nil, &plan.Error{
			Code:      plan.CodeProposalNotPreviewed,
			Message:   fmt.Sprintf("proposal %s is %s; apply requires previewed", p.ID, p.State),
			ProjectID: p.ProjectID,
		}
	}

	tl, err := st.ApplyProposal(ctx, p)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	p.State = plan.ProposalApplied
	p.AppliedAt = &now
	return tl, nil
}

// Reject moves a proposal to rejected. Legal from draft or previewed;
// no side effects on any timeline.
func (e *Engine) Reject(p *plan.RePlanProposal) error {
	if p.State.Terminal() {
		return fmt.Errorf("proposal %s is already %s", p.ID, p.State)
	}
	p.State = plan.ProposalRejected
	return nil
}

// CanAutoApply reports whether a trigger of this severity may take the
// chained Propose -> Preview -> Apply path without human confirmation.
// Only low severity qualifies; everything else requires an explicit
// confirm step.
func CanAutoApply(s plan.Severity) bool {
	return !s.RequiresConfirmation()
}

// computeImpact diffs the candidate against the base: project-finish
// delta plus the sorted list of tasks whose schedule changed.
func computeImpact(base, candidate *plan.Timeline) plan.Impact {
	var affected []plan.TaskID
	for _, id := range sortedTaskIDs(candidate.Tasks) {
		nt := candidate.Tasks[id]
		ot, ok := base.Tasks[id]
		if !ok || ot.StartDay != nt.StartDay || ot.FinishDay != nt.FinishDay || ot.DurationDays != nt.DurationDays {
			affected = append(affected, id)
		}
	}
	return plan.Impact{
		TotalDelayDays:  candidate.ProjectFinishDay() - base.ProjectFinishDay(),
		AffectedTaskIDs: affected,
		NewCriticalPath: append([]plan.TaskID(nil), candidate.CriticalPath...),
	}
}

func sortedTaskIDs(tasks map[plan.TaskID]*plan.Task) []plan.TaskID {
	ids := make([]plan.TaskID, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
