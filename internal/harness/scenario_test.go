package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes a scenario file plus a stub fact file into a
// temp dir and returns the scenario path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	facts := "project: metro\nanchor: 2026-03-02T00:00:00Z\nfacts:\n  - id: p1\n    kind: permit\n    permit:\n      authority: city\n      lead_days: 30\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metro.yaml"), []byte(facts), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalScenario = `
name: minimal
description: "tiny but complete"
facts: metro.yaml
steps:
  - op: generate
assertions:
  - type: event_count
    op: generate
    count: 1
`

// ============================================================================
// Loading
// ============================================================================

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "vendor_disqualified_replan.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "vendor_disqualified_replan", s.Name)
	assert.Len(t, s.Steps, 4)
	assert.Len(t, s.Assertions, 4)
	assert.Equal(t, OpGenerate, s.Steps[0].Op)
	assert.Equal(t, map[string]any{"version": 1, "tasks": 2, "critical_path": 2}, s.Steps[0].Expect)

	// The fact file path is resolved relative to the scenario file.
	assert.Equal(t, filepath.Join("testdata", "metro.yaml"), s.Facts)
}

func TestLoadScenario_MinimalValid(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, minimalScenario))
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	assert.Nil(t, s.Steps[0].Expect)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/ghost.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario file")
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, `
name: typo
description: "assertion instead of assertions"
facts: metro.yaml
steps:
  - op: generate
assertion:
  - type: event_count
    op: generate
    count: 1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse scenario YAML")
}

// ============================================================================
// Validation
// ============================================================================

func TestLoadScenario_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nfacts: metro.yaml\nsteps:\n  - op: generate\nassertions:\n  - type: event_count\n    op: generate\n    count: 1\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nfacts: metro.yaml\nsteps:\n  - op: generate\nassertions:\n  - type: event_count\n    op: generate\n    count: 1\n",
			wantErr: "description is required",
		},
		{
			name:    "missing facts",
			yaml:    "name: n\ndescription: d\nsteps:\n  - op: generate\nassertions:\n  - type: event_count\n    op: generate\n    count: 1\n",
			wantErr: "facts is required",
		},
		{
			name:    "fact file not found",
			yaml:    "name: n\ndescription: d\nfacts: ghost.yaml\nsteps:\n  - op: generate\nassertions:\n  - type: event_count\n    op: generate\n    count: 1\n",
			wantErr: "fact file not found",
		},
		{
			name:    "empty steps",
			yaml:    "name: n\ndescription: d\nfacts: metro.yaml\nassertions:\n  - type: event_count\n    op: generate\n    count: 1\n",
			wantErr: "steps list is required",
		},
		{
			name:    "empty assertions",
			yaml:    "name: n\ndescription: d\nfacts: metro.yaml\nsteps:\n  - op: generate\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "unknown op",
			yaml:    "name: n\ndescription: d\nfacts: metro.yaml\nsteps:\n  - op: teleport\nassertions:\n  - type: event_count\n    op: generate\n    count: 1\n",
			wantErr: `unknown op "teleport"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_BadAssertions(t *testing.T) {
	base := "name: n\ndescription: d\nfacts: metro.yaml\nsteps:\n  - op: generate\nassertions:\n"
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing type",
			yaml:    base + "  - op: generate\n",
			wantErr: "type is required",
		},
		{
			name:    "unknown type",
			yaml:    base + "  - type: trace_contains\n    op: generate\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "event_contains without op",
			yaml:    base + "  - type: event_contains\n    expect: { version: 1 }\n",
			wantErr: "op is required for event_contains",
		},
		{
			name:    "event_order without ops",
			yaml:    base + "  - type: event_order\n",
			wantErr: "ops list is required for event_order",
		},
		{
			name:    "event_count negative",
			yaml:    base + "  - type: event_count\n    op: generate\n    count: -1\n",
			wantErr: "count must be non-negative",
		},
		{
			name:    "final_timeline without expect",
			yaml:    base + "  - type: final_timeline\n",
			wantErr: "expect is required for final_timeline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
