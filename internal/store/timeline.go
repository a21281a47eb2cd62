package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/replan/internal/plan"
)

// InsertTimeline inserts a timeline version.
//
// The schema's constraints do the enforcement: a duplicate
// (project, version) or a second active version for the project fails
// the insert. Timeline history is append-only - there is deliberately no
// update or delete for timeline rows outside of status supersession.
func (s *Store) InsertTimeline(ctx context.Context, tl *plan.Timeline) error {
	return insertTimeline(ctx, s.db, tl)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTimeline(ctx context.Context, db execer, tl *plan.Timeline) error {
	tasksJSON, err := marshalTasks(tl.Tasks)
	if err != nil {
		return fmt.Errorf("insert timeline: %w", err)
	}
	cpJSON, err := marshalTaskIDs(tl.CriticalPath)
	if err != nil {
		return fmt.Errorf("insert timeline: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO timelines
		(id, project_id, version, status, anchor_date, tasks, critical_path, overall_progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tl.ID,
		tl.ProjectID,
		tl.Version,
		string(tl.Status),
		formatTime(tl.AnchorDate),
		tasksJSON,
		cpJSON,
		tl.OverallProgress,
		formatTime(tl.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert timeline %s: %w", tl.ID, err)
	}
	return nil
}

// ActiveTimeline returns the single active version for a project, or
// ErrNotFound when the project has no plan yet.
func (s *Store) ActiveTimeline(ctx context.Context, projectID string) (*plan.Timeline, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, version, status, anchor_date, tasks, critical_path, overall_progress, created_at
		FROM timelines
		WHERE project_id = ? AND status = 'active'
	`, projectID)
	return scanTimeline(row)
}

// TimelineByID returns a specific timeline version.
func (s *Store) TimelineByID(ctx context.Context, id string) (*plan.Timeline, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, version, status, anchor_date, tasks, critical_path, overall_progress, created_at
		FROM timelines
		WHERE id = ?
	`, id)
	return scanTimeline(row)
}

// TimelineVersions returns all versions for a project, oldest first.
// The append-only history: enough to reconstruct every past plan
// without recomputation.
func (s *Store) TimelineVersions(ctx context.Context, projectID string) ([]*plan.Timeline, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, version, status, anchor_date, tasks, critical_path, overall_progress, created_at
		FROM timelines
		WHERE project_id = ?
		ORDER BY version
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query timeline versions: %w", err)
	}
	defer rows.Close()

	var out []*plan.Timeline
	for rows.Next() {
		tl, err := scanTimeline(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tl)
	}
	return out, rows.Err()
}

// SupersedeAndInsert atomically supersedes a project's current active
// version (if any) and inserts a fresh timeline as the next version.
// Used by forced regeneration; proposal application goes through
// ApplyProposal instead.
//
// The passed timeline's Version and ID are overwritten with the
// allocated version. Returns the stored timeline.
func (s *Store) SupersedeAndInsert(ctx context.Context, tl *plan.Timeline) (*plan.Timeline, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("supersede timeline: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var maxVersion sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT MAX(version) FROM timelines WHERE project_id = ?
	`, tl.ProjectID).Scan(&maxVersion)
	if err != nil {
		return nil, fmt.Errorf("supersede timeline: max version: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE timelines SET status = 'superseded'
		WHERE project_id = ? AND status = 'active'
	`, tl.ProjectID); err != nil {
		return nil, fmt.Errorf("supersede timeline: %w", err)
	}

	next := int(maxVersion.Int64) + 1
	tl.Version = next
	tl.ID = plan.TimelineID(tl.ProjectID, next)
	tl.Status = plan.TimelineActive
	if tl.CreatedAt.IsZero() {
		tl.CreatedAt = time.Now().UTC()
	}

	if err := insertTimeline(ctx, tx, tl); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("supersede timeline: commit: %w", err)
	}
	return tl, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTimeline(row scanner) (*plan.Timeline, error) {
	var (
		tl         plan.Timeline
		status     string
		anchor     string
		tasksJSON  string
		cpJSON     string
		createdAt  string
	)
	err := row.Scan(&tl.ID, &tl.ProjectID, &tl.Version, &status, &anchor, &tasksJSON, &cpJSON, &tl.OverallProgress, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("timeline: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan timeline: %w", err)
	}

	tl.Status = plan.TimelineStatus(status)
	if tl.AnchorDate, err = parseTime(anchor); err != nil {
		return nil, err
	}
	if tl.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if tl.Tasks, err = unmarshalTasks(tasksJSON); err != nil {
		return nil, err
	}
	if tl.CriticalPath, err = unmarshalTaskIDs(cpJSON); err != nil {
		return nil, err
	}
	return &tl, nil
}
