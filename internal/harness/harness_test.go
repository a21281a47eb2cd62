package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenarioFile(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	return s
}

func traceOps(trace []StepEvent) []string {
	ops := make([]string, len(trace))
	for i, e := range trace {
		ops[i] = e.Op
	}
	return ops
}

// ============================================================================
// Scenario execution
// ============================================================================

func TestRun_VendorScenarioPasses(t *testing.T) {
	result, err := Run(loadScenarioFile(t, "vendor_disqualified_replan.yaml"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{"generate", "scan", "trigger", "replan", "apply"}, traceOps(result.Trace))
}

func TestRun_SALDelayScenarioPasses(t *testing.T) {
	result, err := Run(loadScenarioFile(t, "sal_delay_requires_confirm.yaml"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []string{"generate", "scan", "trigger", "replan", "apply", "status"}, traceOps(result.Trace))
}

func TestRun_SequenceNumbersAscend(t *testing.T) {
	result, err := Run(loadScenarioFile(t, "vendor_disqualified_replan.yaml"))
	require.NoError(t, err)

	for i, event := range result.Trace {
		assert.Equal(t, i+1, event.Seq)
	}
}

func TestRun_ExpectMismatchFailsScenario(t *testing.T) {
	s := &Scenario{
		Name:        "expect_mismatch",
		Description: "generate cannot produce version 99",
		Facts:       filepath.Join("testdata", "metro.yaml"),
		Steps: []Step{
			{Op: OpGenerate, Expect: map[string]any{"version": 99}},
		},
		Assertions: []Assertion{
			{Type: AssertEventCount, Op: OpGenerate, Count: 1},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `field "version"`)
	// The step itself still executed and is on the trace.
	assert.Equal(t, []string{"generate"}, traceOps(result.Trace))
}

func TestRun_StepErrorStopsFlow(t *testing.T) {
	s := &Scenario{
		Name:        "replan_without_trigger",
		Description: "replan before any scan has recorded a trigger",
		Facts:       filepath.Join("testdata", "metro.yaml"),
		Steps: []Step{
			{Op: OpRePlan},
			{Op: OpGenerate},
		},
		Assertions: []Assertion{
			{Type: AssertEventCount, Op: OpGenerate, Count: 0},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "trigger index 0 out of range")
	// The flow stopped, so the generate step never ran.
	assert.Empty(t, result.Trace)
}

func TestRun_MissingFactFileIsInfrastructureError(t *testing.T) {
	s := &Scenario{
		Name:        "no_facts",
		Description: "fact file vanished between load and run",
		Facts:       filepath.Join("testdata", "ghost.yaml"),
		Steps:       []Step{{Op: OpGenerate}},
		Assertions:  []Assertion{{Type: AssertEventCount, Op: OpGenerate, Count: 1}},
	}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load facts")
}

func TestRun_RejectLeavesTriggerOpen(t *testing.T) {
	s := &Scenario{
		Name:        "reject_keeps_trigger",
		Description: "a rejected proposal leaves the trigger for another attempt",
		Facts:       filepath.Join("testdata", "metro.yaml"),
		Steps: []Step{
			{Op: OpGenerate},
			{Op: OpScan, Expect: map[string]any{"new": 1}},
			{Op: OpRePlan},
			{Op: OpReject, Expect: map[string]any{"state": "rejected"}},
			{Op: OpRePlan, Expect: map[string]any{"delay_days": 45}},
		},
		Assertions: []Assertion{
			{Type: AssertFinalTimeline, Expect: map[string]any{"version": 1, "active_triggers": 1}},
			{Type: AssertEventCount, Op: OpRePlan, Count: 2},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_StepClockOverride(t *testing.T) {
	day := 60
	s := &Scenario{
		Name:        "clock_override",
		Description: "a step-level at_day moves the scan into the delay window",
		Facts:       filepath.Join("testdata", "harbor.yaml"),
		Steps: []Step{
			{Op: OpGenerate},
			// At the anchor nothing has started, so nothing fires.
			{Op: OpScan, Expect: map[string]any{"new": 0}},
			{Op: OpScan, AtDay: &day, Expect: map[string]any{"new": 1}},
		},
		Assertions: []Assertion{
			{Type: AssertEventContains, Op: "trigger", Expect: map[string]any{"type": "sal_delay"}},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

// ============================================================================
// ID generation
// ============================================================================

func TestSeqGenerator_Sequence(t *testing.T) {
	gen := &seqGenerator{}
	assert.Equal(t, "h-001", gen.Generate())
	assert.Equal(t, "h-002", gen.Generate())
	assert.Equal(t, "h-003", gen.Generate())
}
