package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/replan/internal/catalog"
	"github.com/roach88/replan/internal/facts"
	"github.com/roach88/replan/internal/orchestrator"
	"github.com/roach88/replan/internal/plan"
	"github.com/roach88/replan/internal/store"
)

// seqGenerator issues "h-001", "h-002", ... so traces stay identical
// across runs without a predetermined ID list.
type seqGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *seqGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("h-%03d", g.n)
}

// Harness executes one scenario against an isolated store.
type Harness struct {
	store    *store.Store
	svc      *orchestrator.Service
	file     *facts.File
	day      int
	triggers []plan.Trigger
	proposal string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with
// a fixed clock and sequential IDs for reproducible traces. Expect and
// assertion mismatches are reported on the result; the returned error
// covers infrastructure failures only (unreadable fact file, unusable
// database).
func Run(scenario *Scenario) (*Result, error) {
	f, err := facts.Load(scenario.Facts)
	if err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{store: st, file: f, day: scenario.AtDay}
	h.svc = orchestrator.New(st, catalog.Default(),
		orchestrator.WithIDGenerator(&seqGenerator{}),
		orchestrator.WithNow(h.now),
		orchestrator.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		if step.AtDay != nil {
			h.day = *step.AtDay
		}
		detail, err := h.executeStep(ctx, step)
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Op, err))
			break
		}
		result.AddEvent(step.Op, detail)
		if step.Op == OpScan {
			// Record each newly surfaced trigger as its own event so
			// assertions can target it.
			start := len(h.triggers) - detail["new"].(int)
			for _, trg := range h.triggers[start:] {
				result.AddEvent("trigger", map[string]any{
					"id":       trg.ID,
					"type":     string(trg.Type),
					"severity": string(trg.Severity),
				})
			}
		}
		if step.Expect != nil {
			if err := matchFields(detail, step.Expect); err != nil {
				result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Op, err))
			}
		}
	}

	evaluateAssertions(ctx, h, scenario.Assertions, result)
	return result, nil
}

// now is the scenario clock: the fact anchor plus the current day
// offset.
func (h *Harness) now() time.Time {
	return h.file.Anchor.AddDate(0, 0, h.day)
}

// executeStep dispatches one flow step and returns its trace detail.
func (h *Harness) executeStep(ctx context.Context, step Step) (map[string]any, error) {
	switch step.Op {
	case OpGenerate, OpRegenerate:
		res, err := h.svc.GenerateTimeline(ctx, h.file, step.Op == OpRegenerate)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"timeline_id":   res.TimelineID,
			"version":       res.Version,
			"tasks":         res.TasksGenerated,
			"critical_path": res.CriticalPathLength,
			"regenerated":   res.Regenerated,
		}, nil

	case OpScan:
		recorded, err := h.svc.DetectTriggers(ctx, h.file)
		if err != nil {
			return nil, err
		}
		h.triggers = append(h.triggers, recorded...)
		return map[string]any{"new": len(recorded)}, nil

	case OpRePlan:
		if step.Trigger >= len(h.triggers) {
			return nil, fmt.Errorf("trigger index %d out of range (%d recorded)",
				step.Trigger, len(h.triggers))
		}
		trg := h.triggers[step.Trigger]
		res, err := h.svc.RePlan(ctx, h.file.Project, trg.ID, h.file.Config, step.AutoApply)
		if err != nil {
			return nil, err
		}
		h.proposal = res.ProposalID
		detail := map[string]any{
			"proposal_id": res.ProposalID,
			"delay_days":  res.Impact.TotalDelayDays,
			"affected":    len(res.Impact.AffectedTaskIDs),
			"applied":     res.Applied,
		}
		if res.Applied {
			detail["new_version"] = res.NewVersion
		}
		return detail, nil

	case OpApply:
		if h.proposal == "" {
			return nil, fmt.Errorf("no proposal to apply")
		}
		tl, err := h.svc.ApplyProposal(ctx, h.proposal)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"timeline_id": tl.ID,
			"version":     tl.Version,
		}, nil

	case OpReject:
		if h.proposal == "" {
			return nil, fmt.Errorf("no proposal to reject")
		}
		if err := h.svc.RejectProposal(ctx, h.proposal); err != nil {
			return nil, err
		}
		detail := map[string]any{"proposal_id": h.proposal, "state": "rejected"}
		h.proposal = ""
		return detail, nil

	case OpStatus:
		rep, err := h.svc.Status(ctx, h.file.Project)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"version":         rep.Version,
			"progress":        rep.OverallProgress,
			"finish_date":     rep.FinishDate,
			"active_triggers": rep.ActiveTriggerCount,
		}, nil
	}
	return nil, fmt.Errorf("unknown op %q", step.Op)
}
