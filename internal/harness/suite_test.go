package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverScenarios(t *testing.T) {
	paths, err := DiscoverScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	require.Len(t, paths, 2)
	// Sorted for a stable run order.
	assert.Equal(t, filepath.Join("testdata", "scenarios", "sal_delay_requires_confirm.yaml"), paths[0])
	assert.Equal(t, filepath.Join("testdata", "scenarios", "vendor_disqualified_replan.yaml"), paths[1])
}

func TestRunSuite_AllScenariosPass(t *testing.T) {
	suite, err := RunSuite(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	assert.Equal(t, 2, suite.TotalScenarios)
	assert.Equal(t, 2, suite.Passed)
	assert.Equal(t, 0, suite.Failed)
	assert.True(t, suite.Pass())
	assert.Empty(t, suite.Failures)
}

func TestRunSuite_BrokenFileDoesNotMaskRest(t *testing.T) {
	dir := t.TempDir()
	factsPath := filepath.Join(t.TempDir(), "metro.yaml")
	facts := "project: metro\nanchor: 2026-03-02T00:00:00Z\nfacts:\n  - id: p1\n    kind: permit\n    permit:\n      authority: city\n      lead_days: 30\n"
	require.NoError(t, os.WriteFile(factsPath, []byte(facts), 0o644))

	good := `
name: good
description: "generates one version"
facts: ` + factsPath + `
steps:
  - op: generate
    expect: { version: 1, tasks: 1 }
assertions:
  - type: final_timeline
    expect: { version: 1, tasks: 1 }
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_broken.yaml"), []byte("name: broken\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_good.yaml"), []byte(good), 0o644))

	suite, err := RunSuite(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, suite.TotalScenarios)
	assert.Equal(t, 1, suite.Passed)
	assert.Equal(t, 1, suite.Failed)
	assert.False(t, suite.Pass())
	require.Len(t, suite.Failures, 1)
	assert.Equal(t, "a_broken.yaml", suite.Failures[0].Scenario)
}

func TestRunSuite_EmptyDir(t *testing.T) {
	_, err := RunSuite(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files")
}

func TestRunSuite_MissingDir(t *testing.T) {
	_, err := RunSuite(filepath.Join(t.TempDir(), "ghost"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario dir")
}
