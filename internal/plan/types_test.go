package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimelineID_Format(t *testing.T) {
	assert.Equal(t, "metro-line/v1", TimelineID("metro-line", 1))
	assert.Equal(t, "metro-line/v12", TimelineID("metro-line", 12))
}

func TestTimeline_Clone_Independent(t *testing.T) {
	tl := &Timeline{
		ID:        "p/v1",
		ProjectID: "p",
		Version:   1,
		Tasks: map[TaskID]*Task{
			"t1": {ID: "t1", DurationDays: 10, DependsOn: []Dependency{{Predecessor: "t0", Type: FinishToStart}}},
		},
		CriticalPath: []TaskID{"t1"},
	}

	c := tl.Clone()
	c.Tasks["t1"].DurationDays = 99
	c.Tasks["t1"].DependsOn[0].Predecessor = "x"
	c.CriticalPath[0] = "other"

	assert.Equal(t, 10, tl.Tasks["t1"].DurationDays)
	assert.Equal(t, TaskID("t0"), tl.Tasks["t1"].DependsOn[0].Predecessor)
	assert.Equal(t, TaskID("t1"), tl.CriticalPath[0])
}

func TestTimeline_TaskIDs_Sorted(t *testing.T) {
	tl := &Timeline{Tasks: map[TaskID]*Task{
		"charlie": {}, "alpha": {}, "bravo": {},
	}}
	assert.Equal(t, []TaskID{"alpha", "bravo", "charlie"}, tl.TaskIDs())
}

func TestTimeline_ProjectFinishDay(t *testing.T) {
	tl := &Timeline{Tasks: map[TaskID]*Task{
		"t1": {FinishDay: 30},
		"t2": {FinishDay: 90},
		"t3": {FinishDay: 45},
	}}
	assert.Equal(t, 90, tl.ProjectFinishDay())

	empty := &Timeline{}
	assert.Equal(t, 0, empty.ProjectFinishDay())
}

func TestTimeline_WeightedProgress_DurationWeighted(t *testing.T) {
	tl := &Timeline{Tasks: map[TaskID]*Task{
		"long":  {DurationDays: 90, ProgressPercent: 100},
		"short": {DurationDays: 10, ProgressPercent: 0},
	}}
	// 90*100 / 100 = 90
	assert.Equal(t, 90, tl.WeightedProgress())
}

func TestTimeline_WeightedProgress_MilestonesCarryNoWeight(t *testing.T) {
	tl := &Timeline{Tasks: map[TaskID]*Task{
		"work":      {DurationDays: 50, ProgressPercent: 40},
		"milestone": {DurationDays: 0, ProgressPercent: 100},
	}}
	assert.Equal(t, 40, tl.WeightedProgress())
}

func TestTimeline_WeightedProgress_AllMilestones(t *testing.T) {
	tl := &Timeline{Tasks: map[TaskID]*Task{
		"m1": {DurationDays: 0, ProgressPercent: 100},
		"m2": {DurationDays: 0, ProgressPercent: 0},
	}}
	// Falls back to the unweighted mean.
	assert.Equal(t, 50, tl.WeightedProgress())
}

func TestTimeline_WeightedProgress_Empty(t *testing.T) {
	tl := &Timeline{}
	assert.Equal(t, 0, tl.WeightedProgress())
}

func TestTimeline_CompletedTasks(t *testing.T) {
	tl := &Timeline{Tasks: map[TaskID]*Task{
		"t1": {Status: TaskCompleted},
		"t2": {Status: TaskInProgress},
		"t3": {Status: TaskCompleted},
	}}
	assert.Equal(t, 2, tl.CompletedTasks())
}

func TestTimeline_DayToDate(t *testing.T) {
	tl := &Timeline{AnchorDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), tl.DayToDate(0))
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), tl.DayToDate(30))
}

func TestSeverity_RequiresConfirmation(t *testing.T) {
	assert.True(t, SeverityCritical.RequiresConfirmation())
	assert.True(t, SeverityHigh.RequiresConfirmation())
	assert.True(t, SeverityMedium.RequiresConfirmation())
	assert.False(t, SeverityLow.RequiresConfirmation())
}

func TestProposalState_Terminal(t *testing.T) {
	assert.False(t, ProposalDraft.Terminal())
	assert.False(t, ProposalPreviewed.Terminal())
	assert.True(t, ProposalApplied.Terminal())
	assert.True(t, ProposalRejected.Terminal())
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)
	b := time.Date(2026, 3, 12, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 10, DaysBetween(a, b))
	assert.Equal(t, -10, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}

func TestDateOnly_StripsTime(t *testing.T) {
	in := time.Date(2026, 3, 2, 23, 59, 59, 0, time.FixedZone("CET", 3600))
	out := DateOnly(in)
	require.Equal(t, time.UTC, out.Location())
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), out)
}
