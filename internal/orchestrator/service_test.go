package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replan/internal/catalog"
	"github.com/roach88/replan/internal/facts"
	"github.com/roach88/replan/internal/gantt"
	"github.com/roach88/replan/internal/plan"
	"github.com/roach88/replan/internal/store"
	"github.com/roach88/replan/internal/testutil"
	"github.com/roach88/replan/internal/trigger"
)

func newService(t *testing.T, now time.Time) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "replan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ids := make([]string, 32)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%02d", i+1)
	}
	clock := testutil.NewClock(now)
	return New(st, catalog.Default(),
		WithIDGenerator(plan.NewFixedGenerator(ids...)),
		WithNow(clock.Now),
	)
}

// metroFile is a permit feeding a contract, with a SAL report putting
// the contract at the given progress.
func metroFile(progress int) *facts.File {
	fs := []plan.Fact{
		testutil.PermitFact("permit-1", "city", 30),
		testutil.ContractFact("contract-1", "acme", 60, "permit-1"),
	}
	if progress >= 0 {
		fs = append(fs,
			testutil.SALFact("sal-0", "permit-1", 100, testutil.Anchor.AddDate(0, 0, 30)),
			testutil.SALFact("sal-1", "contract-1", progress, testutil.Anchor.AddDate(0, 0, 60)),
		)
	}
	return &facts.File{Project: "metro", Anchor: testutil.Anchor, Facts: fs}
}

// =============================================================================
// GenerateTimeline
// =============================================================================

func TestService_GenerateTimeline_NewProject(t *testing.T) {
	svc := newService(t, testutil.Anchor)
	ctx := context.Background()

	res, err := svc.GenerateTimeline(ctx, metroFile(-1), false)
	require.NoError(t, err)
	assert.Equal(t, plan.TimelineID("metro", 1), res.TimelineID)
	assert.Equal(t, 1, res.Version)
	assert.Equal(t, 2, res.TasksGenerated)
	assert.Equal(t, 2, res.CriticalPathLength)
	assert.True(t, res.Regenerated)
}

func TestService_GenerateTimeline_SecondCallIsNoOp(t *testing.T) {
	svc := newService(t, testutil.Anchor)
	ctx := context.Background()

	_, err := svc.GenerateTimeline(ctx, metroFile(-1), false)
	require.NoError(t, err)

	res, err := svc.GenerateTimeline(ctx, metroFile(-1), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)
	assert.False(t, res.Regenerated)
}

func TestService_GenerateTimeline_ForceRegenerates(t *testing.T) {
	svc := newService(t, testutil.Anchor)
	ctx := context.Background()

	_, err := svc.GenerateTimeline(ctx, metroFile(-1), false)
	require.NoError(t, err)

	// Fresh facts carry a progress report; the forced regeneration picks
	// it up as version 2.
	res, err := svc.GenerateTimeline(ctx, metroFile(40), true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Version)
	assert.True(t, res.Regenerated)

	status, err := svc.Status(ctx, "metro")
	require.NoError(t, err)
	assert.Equal(t, 2, status.Version)
	assert.Greater(t, status.OverallProgress, 0)
}

// =============================================================================
// DetectTriggers
// =============================================================================

func TestService_DetectTriggers_RecordsOnce(t *testing.T) {
	// Day 75: the contract should be 75% done but reports 10%.
	svc := newService(t, testutil.Anchor.AddDate(0, 0, 75))
	ctx := context.Background()
	f := metroFile(10)

	_, err := svc.GenerateTimeline(ctx, f, false)
	require.NoError(t, err)

	first, err := svc.DetectTriggers(ctx, f)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, plan.TriggerSALDelay, first[0].Type)

	second, err := svc.DetectTriggers(ctx, f)
	require.NoError(t, err)
	assert.Empty(t, second, "re-detection of a recorded condition")
}

func TestService_DetectTriggers_NoTimeline(t *testing.T) {
	svc := newService(t, testutil.Anchor)

	_, err := svc.DetectTriggers(context.Background(), metroFile(-1))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// =============================================================================
// RePlan / ApplyProposal / RejectProposal
// =============================================================================

// seedTrigger generates the timeline and records one SAL delay trigger
// of the severity implied by the progress gap.
func seedTrigger(t *testing.T, svc *Service, f *facts.File) plan.Trigger {
	t.Helper()
	ctx := context.Background()
	_, err := svc.GenerateTimeline(ctx, f, false)
	require.NoError(t, err)
	recorded, err := svc.DetectTriggers(ctx, f)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	return recorded[0]
}

func TestService_RePlan_PreviewThenConfirm(t *testing.T) {
	// Gap 65 - 10 = wait: day 69 of the contract (start 30): expected
	// 65%, reported 10%, gap 55, critical.
	svc := newService(t, testutil.Anchor.AddDate(0, 0, 69))
	ctx := context.Background()
	trg := seedTrigger(t, svc, metroFile(10))
	require.Equal(t, plan.SeverityCritical, trg.Severity)

	res, err := svc.RePlan(ctx, "metro", trg.ID, facts.Config{}, false)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.NotEmpty(t, res.Deltas)
	assert.Greater(t, res.Impact.TotalDelayDays, 0)

	// Still version 1 until confirmed.
	status, err := svc.Status(ctx, "metro")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Version)
	assert.Equal(t, 1, status.ActiveTriggerCount)

	tl, err := svc.ApplyProposal(ctx, res.ProposalID)
	require.NoError(t, err)
	assert.Equal(t, 2, tl.Version)

	status, err = svc.Status(ctx, "metro")
	require.NoError(t, err)
	assert.Equal(t, 2, status.Version)
	assert.Equal(t, 0, status.ActiveTriggerCount, "apply consumes the trigger")
}

func TestService_RePlan_AutoAppliesLowSeverity(t *testing.T) {
	svc := newService(t, testutil.Anchor)
	ctx := context.Background()
	_, err := svc.GenerateTimeline(ctx, metroFile(-1), false)
	require.NoError(t, err)

	tl, err := svc.store.ActiveTimeline(ctx, "metro")
	require.NoError(t, err)
	det := trigger.New(facts.Config{}.Trigger(), svc.ids, trigger.WithNow(svc.now))
	trg, err := det.Manual(tl, plan.SeverityLow, "minor scope note", nil)
	require.NoError(t, err)
	recorded, err := svc.store.RecordTriggers(ctx, []plan.Trigger{trg})
	require.NoError(t, err)
	require.Len(t, recorded, 1)

	res, err := svc.RePlan(ctx, "metro", trg.ID, facts.Config{}, true)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 2, res.NewVersion)
}

func TestService_RePlan_MediumSeverityWaitsForConfirm(t *testing.T) {
	// Day 42 of the contract's 60: expected 20%, reported 0 - gap 20,
	// medium severity.
	svc := newService(t, testutil.Anchor.AddDate(0, 0, 42))
	ctx := context.Background()
	trg := seedTrigger(t, svc, metroFile(0))
	require.Equal(t, plan.SeverityMedium, trg.Severity)

	res, err := svc.RePlan(ctx, "metro", trg.ID, facts.Config{}, true)
	require.NoError(t, err)
	assert.False(t, res.Applied, "medium severity waits for confirmation")
	assert.Zero(t, res.NewVersion)

	status, err := svc.Status(ctx, "metro")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Version)
}

func TestService_RePlan_NeverAutoAppliesCritical(t *testing.T) {
	svc := newService(t, testutil.Anchor.AddDate(0, 0, 75))
	ctx := context.Background()
	trg := seedTrigger(t, svc, metroFile(10))
	require.Equal(t, plan.SeverityCritical, trg.Severity)

	res, err := svc.RePlan(ctx, "metro", trg.ID, facts.Config{}, true)
	require.NoError(t, err)
	assert.False(t, res.Applied, "critical severity waits for confirmation")

	status, err := svc.Status(ctx, "metro")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Version)
}

func TestService_RejectProposal_KeepsTriggerActive(t *testing.T) {
	svc := newService(t, testutil.Anchor.AddDate(0, 0, 75))
	ctx := context.Background()
	trg := seedTrigger(t, svc, metroFile(10))

	res, err := svc.RePlan(ctx, "metro", trg.ID, facts.Config{}, false)
	require.NoError(t, err)
	require.NoError(t, svc.RejectProposal(ctx, res.ProposalID))

	status, err := svc.Status(ctx, "metro")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Version)
	assert.Equal(t, 1, status.ActiveTriggerCount)

	// A rejected proposal frees the trigger for a recompute.
	_, err = svc.RePlan(ctx, "metro", trg.ID, facts.Config{}, false)
	assert.NoError(t, err)
}

// =============================================================================
// Reports and rendering
// =============================================================================

func TestService_Status(t *testing.T) {
	svc := newService(t, testutil.Anchor)
	ctx := context.Background()
	_, err := svc.GenerateTimeline(ctx, metroFile(-1), false)
	require.NoError(t, err)

	got, err := svc.Status(ctx, "metro")
	require.NoError(t, err)
	assert.Equal(t, plan.TimelineID("metro", 1), got.TimelineID)
	assert.Equal(t, 2, got.TotalTasks)
	assert.Equal(t, 0, got.CompletedTasks)
	assert.Equal(t, "2026-05-31", got.FinishDate)
}

func TestService_CriticalPath(t *testing.T) {
	svc := newService(t, testutil.Anchor)
	ctx := context.Background()
	_, err := svc.GenerateTimeline(ctx, metroFile(-1), false)
	require.NoError(t, err)

	got, err := svc.CriticalPath(ctx, "metro")
	require.NoError(t, err)
	assert.Equal(t, 90, got.TotalDurationDays)
	require.Len(t, got.CriticalTasks, 2)
	assert.Equal(t, got.CriticalPath[0], got.CriticalTasks[0].ID)
}

func TestService_RenderGantt(t *testing.T) {
	svc := newService(t, testutil.Anchor)
	ctx := context.Background()
	_, err := svc.GenerateTimeline(ctx, metroFile(-1), false)
	require.NoError(t, err)

	svg, err := svc.RenderGantt(ctx, "metro", gantt.Options{ShowCriticalPath: true})
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	text, err := svc.RenderGanttText(ctx, "metro", gantt.Options{})
	require.NoError(t, err)
	assert.Contains(t, text, "metro v1")

	_, err = svc.RenderGantt(ctx, "ghost", gantt.Options{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// =============================================================================
// ScanAll
// =============================================================================

func TestService_ScanAll_SkipsProjectsWithoutTimeline(t *testing.T) {
	svc := newService(t, testutil.Anchor.AddDate(0, 0, 75))
	ctx := context.Background()
	metro := metroFile(10)
	_, err := svc.GenerateTimeline(ctx, metro, false)
	require.NoError(t, err)

	ghost := &facts.File{Project: "ghost", Anchor: testutil.Anchor}

	out, err := svc.ScanAll(ctx, []*facts.File{metro, ghost}, 2)
	require.NoError(t, err)
	require.Contains(t, out, "metro")
	assert.NotContains(t, out, "ghost")
	assert.Len(t, out["metro"], 1)
}
