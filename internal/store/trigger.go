package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/replan/internal/plan"
)

// RecordTriggers inserts detected triggers, deduplicating on
// (timeline_id, dedupe_key) with ON CONFLICT DO NOTHING for idempotency.
// Re-scanning unchanged facts inserts nothing. Returns only the triggers
// that were actually new.
func (s *Store) RecordTriggers(ctx context.Context, triggers []plan.Trigger) ([]plan.Trigger, error) {
	var recorded []plan.Trigger
	for i := range triggers {
		trg := &triggers[i]
		detailJSON, err := marshalDetail(trg.Detail)
		if err != nil {
			return nil, fmt.Errorf("record trigger: %w", err)
		}
		relatedJSON, err := marshalTaskIDs(trg.RelatedTaskIDs)
		if err != nil {
			return nil, fmt.Errorf("record trigger: %w", err)
		}

		result, err := s.db.ExecContext(ctx, `
			INSERT INTO triggers
			(id, project_id, timeline_id, type, severity, cause, detail, related_task_ids, dedupe_key, detected_at, resolved)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
			ON CONFLICT(timeline_id, dedupe_key) DO NOTHING
		`,
			trg.ID,
			trg.ProjectID,
			trg.TimelineID,
			string(trg.Type),
			string(trg.Severity),
			trg.Cause,
			detailJSON,
			relatedJSON,
			trg.DedupeKey,
			formatTime(trg.DetectedAt),
		)
		if err != nil {
			return nil, fmt.Errorf("record trigger %s: %w", trg.ID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("record trigger %s: rows affected: %w", trg.ID, err)
		}
		if rows > 0 {
			recorded = append(recorded, *trg)
		}
	}
	return recorded, nil
}

// ActiveTriggers returns a project's unresolved triggers, oldest first,
// ties broken by ID for a stable listing.
func (s *Store) ActiveTriggers(ctx context.Context, projectID string) ([]plan.Trigger, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, timeline_id, type, severity, cause, detail, related_task_ids, dedupe_key, detected_at
		FROM triggers
		WHERE project_id = ? AND resolved = 0
		ORDER BY detected_at, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query active triggers: %w", err)
	}
	defer rows.Close()

	var out []plan.Trigger
	for rows.Next() {
		trg, err := scanTrigger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, trg)
	}
	return out, rows.Err()
}

// TriggerByID returns a single trigger.
func (s *Store) TriggerByID(ctx context.Context, id string) (plan.Trigger, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, timeline_id, type, severity, cause, detail, related_task_ids, dedupe_key, detected_at
		FROM triggers
		WHERE id = ?
	`, id)
	return scanTrigger(row)
}

// ResolveTrigger marks a trigger resolved (its proposal was applied, or
// it was dismissed). Fails with TriggerAlreadyResolved when the flag is
// already set - a trigger resolves exactly once.
func (s *Store) ResolveTrigger(ctx context.Context, id string) error {
	return resolveTrigger(ctx, s.db, id)
}

func resolveTrigger(ctx context.Context, db execer, id string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE triggers SET resolved = 1 WHERE id = ? AND resolved = 0
	`, id)
	if err != nil {
		return fmt.Errorf("resolve trigger %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve trigger %s: rows affected: %w", id, err)
	}
	if rows == 0 {
		return &plan.Error{
			Code:    plan.CodeTriggerAlreadyResolved,
			Message: fmt.Sprintf("trigger %s is already resolved or does not exist", id),
		}
	}
	return nil
}

func scanTrigger(row scanner) (plan.Trigger, error) {
	var (
		trg         plan.Trigger
		typ         string
		severity    string
		detailJSON  string
		relatedJSON string
		detectedAt  string
	)
	err := row.Scan(&trg.ID, &trg.ProjectID, &trg.TimelineID, &typ, &severity, &trg.Cause, &detailJSON, &relatedJSON, &trg.DedupeKey, &detectedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return trg, fmt.Errorf("trigger: %w", ErrNotFound)
	}
	if err != nil {
		return trg, fmt.Errorf("scan trigger: %w", err)
	}

	trg.Type = plan.TriggerType(typ)
	trg.Severity = plan.Severity(severity)
	if trg.Detail, err = unmarshalDetail(detailJSON); err != nil {
		return trg, err
	}
	if trg.RelatedTaskIDs, err = unmarshalTaskIDs(relatedJSON); err != nil {
		return trg, err
	}
	if trg.DetectedAt, err = parseTime(detectedAt); err != nil {
		return trg, err
	}
	return trg, nil
}
