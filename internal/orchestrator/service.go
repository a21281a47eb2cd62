// Package orchestrator sequences the engine's pure functions against
// the store. Each operation takes already-fetched facts and performs
// its own store reads and writes; no operation holds state across
// calls, so concurrent use is safe up to the store's own serialization
// of applies.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/replan/internal/catalog"
	"github.com/roach88/replan/internal/facts"
	"github.com/roach88/replan/internal/gantt"
	"github.com/roach88/replan/internal/plan"
	"github.com/roach88/replan/internal/replan"
	"github.com/roach88/replan/internal/store"
	"github.com/roach88/replan/internal/trigger"
	"github.com/roach88/replan/internal/wbs"
)

// Service wires the generator, detector, and re-plan engine to a store.
type Service struct {
	store  *store.Store
	cat    *catalog.Catalog
	ids    plan.IDGenerator
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator replaces the UUIDv7 generator, for tests.
func WithIDGenerator(ids plan.IDGenerator) Option {
	return func(s *Service) { s.ids = ids }
}

// WithNow replaces the wall clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New returns a Service over st using the given task catalog.
func New(st *store.Store, cat *catalog.Catalog, opts ...Option) *Service {
	s := &Service{
		store:  st,
		cat:    cat,
		ids:    plan.UUIDv7Generator{},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateResult summarizes a generate-timeline call.
type GenerateResult struct {
	TimelineID         string `json:"timeline_id"`
	Version            int    `json:"version"`
	TasksGenerated     int    `json:"tasks_generated"`
	CriticalPathLength int    `json:"critical_path_length"`
	Regenerated        bool   `json:"regenerated"`
}

// GenerateTimeline builds a project's timeline from its fact file and
// persists it. When an active timeline already exists the call is a
// no-op unless force is set, in which case the timeline is regenerated
// (preserving recorded progress) as the next version.
func (s *Service) GenerateTimeline(ctx context.Context, f *facts.File, force bool) (*GenerateResult, error) {
	gen := wbs.New(s.cat)

	active, err := s.store.ActiveTimeline(ctx, f.Project)
	switch {
	case errors.Is(err, store.ErrNotFound):
		tl, err := gen.Generate(f.Project, f.Anchor, f.Facts)
		if err != nil {
			return nil, err
		}
		if err := s.store.InsertTimeline(ctx, tl); err != nil {
			return nil, err
		}
		s.logger.Info("timeline generated",
			"project", f.Project, "version", tl.Version, "tasks", len(tl.Tasks))
		return result(tl, true), nil

	case err != nil:
		return nil, err

	case !force:
		return result(active, false), nil
	}

	next, err := gen.Refresh(active, f.Facts)
	if err != nil {
		return nil, err
	}
	inserted, err := s.store.SupersedeAndInsert(ctx, next)
	if err != nil {
		return nil, err
	}
	s.logger.Info("timeline regenerated",
		"project", f.Project, "version", inserted.Version, "tasks", len(inserted.Tasks))
	return result(inserted, true), nil
}

func result(tl *plan.Timeline, regenerated bool) *GenerateResult {
	return &GenerateResult{
		TimelineID:         tl.ID,
		Version:            tl.Version,
		TasksGenerated:     len(tl.Tasks),
		CriticalPathLength: len(tl.CriticalPath),
		Regenerated:        regenerated,
	}
}

// DetectTriggers scans the project's active timeline against its facts
// and persists what it finds. Only triggers not seen before (by dedupe
// key) are returned; re-detections of an already-recorded condition are
// silently absorbed.
func (s *Service) DetectTriggers(ctx context.Context, f *facts.File) ([]plan.Trigger, error) {
	tl, err := s.store.ActiveTimeline(ctx, f.Project)
	if err != nil {
		return nil, err
	}

	det := trigger.New(f.Config.Trigger(), s.ids, trigger.WithNow(s.now))
	found, err := det.Scan(tl, f.Facts)
	if err != nil {
		return nil, err
	}
	recorded, err := s.store.RecordTriggers(ctx, found)
	if err != nil {
		return nil, err
	}
	if len(recorded) > 0 {
		s.logger.Info("triggers detected",
			"project", f.Project, "new", len(recorded), "scanned", len(found))
	}
	return recorded, nil
}

// RePlanResult summarizes a replan call.
type RePlanResult struct {
	ProposalID string           `json:"proposal_id"`
	Impact     plan.Impact      `json:"impact"`
	Deltas     []plan.TaskDelta `json:"deltas,omitempty"`
	Applied    bool             `json:"applied"`
	NewVersion int              `json:"new_version,omitempty"`
}

// RePlan computes a re-plan proposal for a recorded trigger, previews
// it, and persists it. With autoApply set, proposals for low severity
// triggers are applied immediately; everything medium and above always
// stops at previewed and waits for confirmation.
//
// A failure to compute a proposal for a critical trigger is escalated
// in the log before being returned - it must never disappear.
func (s *Service) RePlan(ctx context.Context, projectID, triggerID string, cfg facts.Config, autoApply bool) (*RePlanResult, error) {
	trg, err := s.store.TriggerByID(ctx, triggerID)
	if err != nil {
		return nil, err
	}
	base, err := s.store.ActiveTimeline(ctx, projectID)
	if err != nil {
		return nil, err
	}

	eng := replan.New(cfg.RePlan(), s.ids, replan.WithNow(s.now))
	p, err := eng.Propose(base, &trg)
	if err != nil {
		if trg.Severity == plan.SeverityCritical {
			s.logger.Error("re-plan failed for critical trigger",
				"event", "escalation", "project", projectID, "trigger", triggerID, "error", err)
		}
		return nil, err
	}
	if err := s.store.InsertProposal(ctx, p); err != nil {
		return nil, err
	}
	deltas, err := eng.Preview(p, base)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateProposalState(ctx, p.ID, plan.ProposalPreviewed); err != nil {
		return nil, err
	}

	res := &RePlanResult{ProposalID: p.ID, Impact: p.Impact, Deltas: deltas}
	if autoApply && replan.CanAutoApply(trg.Severity) {
		tl, err := eng.Apply(ctx, s.store, p)
		if err != nil {
			return nil, err
		}
		res.Applied = true
		res.NewVersion = tl.Version
		s.logger.Info("proposal auto-applied",
			"project", projectID, "proposal", p.ID, "version", tl.Version)
	}
	return res, nil
}

// ApplyProposal confirms a previewed proposal, committing it as the
// project's next timeline version. Fails with StaleBaseVersion when the
// base was superseded since the proposal was computed.
func (s *Service) ApplyProposal(ctx context.Context, proposalID string) (*plan.Timeline, error) {
	p, err := s.store.ProposalByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	eng := replan.New(replan.DefaultConfig(), s.ids, replan.WithNow(s.now))
	tl, err := eng.Apply(ctx, s.store, p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("proposal applied",
		"project", p.ProjectID, "proposal", p.ID, "version", tl.Version)
	return tl, nil
}

// RejectProposal discards an open proposal, leaving its trigger active.
func (s *Service) RejectProposal(ctx context.Context, proposalID string) error {
	p, err := s.store.ProposalByID(ctx, proposalID)
	if err != nil {
		return err
	}
	eng := replan.New(replan.DefaultConfig(), s.ids)
	if err := eng.Reject(p); err != nil {
		return err
	}
	return s.store.UpdateProposalState(ctx, p.ID, plan.ProposalRejected)
}

// StatusReport is the timeline-status view of a project.
type StatusReport struct {
	TimelineID         string `json:"timeline_id"`
	Version            int    `json:"version"`
	OverallProgress    int    `json:"overall_progress"`
	CompletedTasks     int    `json:"completed_tasks"`
	TotalTasks         int    `json:"total_tasks"`
	CriticalPathLength int    `json:"critical_path_length"`
	ActiveTriggerCount int    `json:"active_trigger_count"`
	FinishDate         string `json:"finish_date"`
}

// Status reports summary figures for a project's active timeline.
func (s *Service) Status(ctx context.Context, projectID string) (*StatusReport, error) {
	tl, err := s.store.ActiveTimeline(ctx, projectID)
	if err != nil {
		return nil, err
	}
	triggers, err := s.store.ActiveTriggers(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &StatusReport{
		TimelineID:         tl.ID,
		Version:            tl.Version,
		OverallProgress:    tl.OverallProgress,
		CompletedTasks:     tl.CompletedTasks(),
		TotalTasks:         len(tl.Tasks),
		CriticalPathLength: len(tl.CriticalPath),
		ActiveTriggerCount: len(triggers),
		FinishDate:         tl.DayToDate(tl.ProjectFinishDay()).Format("2006-01-02"),
	}, nil
}

// CriticalPathReport lists the zero-float chain of a timeline.
type CriticalPathReport struct {
	TotalDurationDays int           `json:"total_duration_days"`
	CriticalPath      []plan.TaskID `json:"critical_path"`
	CriticalTasks     []*plan.Task  `json:"critical_tasks"`
}

// CriticalPath reports the active timeline's critical path in order.
func (s *Service) CriticalPath(ctx context.Context, projectID string) (*CriticalPathReport, error) {
	tl, err := s.store.ActiveTimeline(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tasks := make([]*plan.Task, 0, len(tl.CriticalPath))
	for _, id := range tl.CriticalPath {
		if t, ok := tl.Tasks[id]; ok {
			tasks = append(tasks, t)
		}
	}
	return &CriticalPathReport{
		TotalDurationDays: tl.ProjectFinishDay(),
		CriticalPath:      tl.CriticalPath,
		CriticalTasks:     tasks,
	}, nil
}

// RenderGantt draws the active timeline as SVG.
func (s *Service) RenderGantt(ctx context.Context, projectID string, opts gantt.Options) ([]byte, error) {
	tl, err := s.store.ActiveTimeline(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return gantt.RenderSVG(tl, opts)
}

// RenderGanttText draws the active timeline as a terminal chart.
func (s *Service) RenderGanttText(ctx context.Context, projectID string, opts gantt.Options) (string, error) {
	tl, err := s.store.ActiveTimeline(ctx, projectID)
	if err != nil {
		return "", err
	}
	return gantt.RenderText(tl, opts)
}

// ScanAll runs trigger detection across many projects with bounded
// parallelism. A project without a stored timeline is skipped. The scan
// stops early on context cancellation or the first hard error;
// per-project results collected so far are returned alongside the error.
func (s *Service) ScanAll(ctx context.Context, files []*facts.File, parallelism int) (map[string][]plan.Trigger, error) {
	if parallelism <= 0 {
		parallelism = 4
	}

	var mu sync.Mutex
	out := make(map[string][]plan.Trigger)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			break
		}
		f := f
		g.Go(func() error {
			recorded, err := s.DetectTriggers(ctx, f)
			if errors.Is(err, store.ErrNotFound) {
				s.logger.Warn("scan skipped, no timeline", "project", f.Project)
				return nil
			}
			if err != nil {
				return fmt.Errorf("scan %s: %w", f.Project, err)
			}
			mu.Lock()
			out[f.Project] = recorded
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return out, err
}
