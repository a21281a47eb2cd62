package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/replan/internal/plan"
)

// InsertProposal persists a draft proposal.
//
// A trigger produces exactly one proposal unless earlier ones were
// rejected; inserting a second open proposal for the same trigger, or a
// proposal for an already-resolved trigger, fails with
// TriggerAlreadyResolved.
func (s *Store) InsertProposal(ctx context.Context, p *plan.RePlanProposal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert proposal: begin tx: %w", err)
	}
	defer tx.Rollback()

	var resolved int
	err = tx.QueryRowContext(ctx, `SELECT resolved FROM triggers WHERE id = ?`, p.TriggerID).Scan(&resolved)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("insert proposal: trigger %s: %w", p.TriggerID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("insert proposal: check trigger: %w", err)
	}
	if resolved != 0 {
		return &plan.Error{
			Code:    plan.CodeTriggerAlreadyResolved,
			Message: fmt.Sprintf("trigger %s is already resolved", p.TriggerID),
		}
	}

	var open int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM proposals WHERE trigger_id = ? AND state != 'rejected'
	`, p.TriggerID).Scan(&open)
	if err != nil {
		return fmt.Errorf("insert proposal: check open proposals: %w", err)
	}
	if open > 0 {
		return &plan.Error{
			Code:    plan.CodeTriggerAlreadyResolved,
			Message: fmt.Sprintf("trigger %s already has an open proposal", p.TriggerID),
		}
	}

	tasksJSON, err := marshalTasks(p.ProposedTasks)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}
	affectedJSON, err := marshalTaskIDs(p.Impact.AffectedTaskIDs)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}
	cpJSON, err := marshalTaskIDs(p.Impact.NewCriticalPath)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO proposals
		(id, project_id, timeline_id, base_version, trigger_id, state, proposed_tasks,
		 total_delay_days, affected_task_ids, new_critical_path, created_at, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`,
		p.ID,
		p.ProjectID,
		p.TimelineID,
		p.BaseVersion,
		p.TriggerID,
		string(p.State),
		tasksJSON,
		p.Impact.TotalDelayDays,
		affectedJSON,
		cpJSON,
		formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert proposal %s: %w", p.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert proposal: commit: %w", err)
	}
	return nil
}

// UpdateProposalState records a non-apply state transition (previewed,
// rejected). Apply goes through ApplyProposal.
func (s *Store) UpdateProposalState(ctx context.Context, id string, state plan.ProposalState) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE proposals SET state = ?
		WHERE id = ? AND state IN ('draft', 'previewed')
	`, string(state), id)
	if err != nil {
		return fmt.Errorf("update proposal %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update proposal %s: rows affected: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("update proposal %s to %s: no open proposal: %w", id, state, ErrNotFound)
	}
	return nil
}

// ProposalByID returns a single proposal.
func (s *Store) ProposalByID(ctx context.Context, id string) (*plan.RePlanProposal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, timeline_id, base_version, trigger_id, state, proposed_tasks,
		       total_delay_days, affected_task_ids, new_critical_path, created_at, applied_at
		FROM proposals
		WHERE id = ?
	`, id)
	return scanProposal(row)
}

// ProposalsForProject returns a project's proposal history, oldest first.
func (s *Store) ProposalsForProject(ctx context.Context, projectID string) ([]*plan.RePlanProposal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, timeline_id, base_version, trigger_id, state, proposed_tasks,
		       total_delay_days, affected_task_ids, new_critical_path, created_at, applied_at
		FROM proposals
		WHERE project_id = ?
		ORDER BY created_at, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}
	defer rows.Close()

	var out []*plan.RePlanProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ApplyProposal commits a previewed proposal as the project's next
// timeline version in a single transaction:
//
//  1. supersede the base version - an optimistic check: zero rows
//     updated means the base was already superseded by a concurrent
//     apply, which fails with StaleBaseVersion
//  2. insert the proposed task set as version base+1, active
//  3. mark the proposal applied
//  4. resolve the trigger
//
// Either all four happen or none. Implements replan.Applier.
func (s *Store) ApplyProposal(ctx context.Context, p *plan.RePlanProposal) (*plan.Timeline, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("apply proposal: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Step 1: optimistic check - the base must still be the active version.
	result, err := tx.ExecContext(ctx, `
		UPDATE timelines SET status = 'superseded'
		WHERE id = ? AND status = 'active'
	`, p.TimelineID)
	if err != nil {
		return nil, fmt.Errorf("apply proposal: supersede base: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("apply proposal: rows affected: %w", err)
	}
	if rows == 0 {
		return nil, &plan.Error{
			Code:      plan.CodeStaleBaseVersion,
			Message:   fmt.Sprintf("base timeline %s is no longer active", p.TimelineID),
			ProjectID: p.ProjectID,
		}
	}

	// Need the base's anchor date for the new version.
	var anchor string
	err = tx.QueryRowContext(ctx, `SELECT anchor_date FROM timelines WHERE id = ?`, p.TimelineID).Scan(&anchor)
	if err != nil {
		return nil, fmt.Errorf("apply proposal: read base anchor: %w", err)
	}
	anchorDate, err := parseTime(anchor)
	if err != nil {
		return nil, err
	}

	// Step 2: insert the new version.
	next := &plan.Timeline{
		ID:           plan.TimelineID(p.ProjectID, p.BaseVersion+1),
		ProjectID:    p.ProjectID,
		Version:      p.BaseVersion + 1,
		AnchorDate:   anchorDate,
		Tasks:        p.ProposedTasks,
		CriticalPath: p.Impact.NewCriticalPath,
		Status:       plan.TimelineActive,
		CreatedAt:    time.Now().UTC(),
	}
	next.OverallProgress = next.WeightedProgress()
	if err := insertTimeline(ctx, tx, next); err != nil {
		return nil, fmt.Errorf("apply proposal: %w", err)
	}

	// Step 3: mark the proposal applied. The proposal must exist in the
	// previewed state - the engine enforces the state machine before
	// calling, this is the durable record of it.
	result, err = tx.ExecContext(ctx, `
		UPDATE proposals SET state = 'applied', applied_at = ?
		WHERE id = ? AND state = 'previewed'
	`, formatTime(time.Now()), p.ID)
	if err != nil {
		return nil, fmt.Errorf("apply proposal: mark applied: %w", err)
	}
	rows, err = result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("apply proposal: rows affected: %w", err)
	}
	if rows == 0 {
		return nil, &plan.Error{
			Code:      plan.CodeProposalNotPreviewed,
			Message:   fmt.Sprintf("proposal %s is not in the previewed state", p.ID),
			ProjectID: p.ProjectID,
		}
	}

	// Step 4: the trigger is consumed by this apply.
	if err := resolveTrigger(ctx, tx, p.TriggerID); err != nil {
		return nil, fmt.Errorf("apply proposal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("apply proposal: commit: %w", err)
	}
	return next, nil
}

func scanProposal(row scanner) (*plan.RePlanProposal, error) {
	var (
		p            plan.RePlanProposal
		state        string
		tasksJSON    string
		affectedJSON string
		cpJSON       string
		createdAt    string
		appliedAt    sql.NullString
	)
	err := row.Scan(&p.ID, &p.ProjectID, &p.TimelineID, &p.BaseVersion, &p.TriggerID, &state, &tasksJSON,
		&p.Impact.TotalDelayDays, &affectedJSON, &cpJSON, &createdAt, &appliedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("proposal: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan proposal: %w", err)
	}

	p.State = plan.ProposalState(state)
	if p.ProposedTasks, err = unmarshalTasks(tasksJSON); err != nil {
		return nil, err
	}
	if p.Impact.AffectedTaskIDs, err = unmarshalTaskIDs(affectedJSON); err != nil {
		return nil, err
	}
	if p.Impact.NewCriticalPath, err = unmarshalTaskIDs(cpJSON); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if appliedAt.Valid {
		t, err := parseTime(appliedAt.String)
		if err != nil {
			return nil, err
		}
		p.AppliedAt = &t
	}
	return &p, nil
}
