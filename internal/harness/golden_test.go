package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_VendorScenario(t *testing.T) {
	s := loadScenarioFile(t, "vendor_disqualified_replan.yaml")
	require.NoError(t, RunWithGolden(t, s))
}

func TestTraceSnapshot_Marshal(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "tiny",
		Trace: []StepEvent{
			{Op: "scan", Detail: map[string]any{"new": 0}, Seq: 1},
		},
	}

	data, err := snapshot.marshal()
	require.NoError(t, err)

	want := `{
  "scenario_name": "tiny",
  "trace": [
    {
      "detail": {
        "new": 0
      },
      "op": "scan",
      "seq": 1
    }
  ]
}
`
	assert.Equal(t, want, string(data))
}

func TestTraceSnapshot_MarshalOmitsNilDetail(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "bare",
		Trace:        []StepEvent{{Op: "status", Seq: 1}},
	}

	data, err := snapshot.marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "detail")
}

func TestTraceSnapshot_Deterministic(t *testing.T) {
	s := loadScenarioFile(t, "vendor_disqualified_replan.yaml")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := (&TraceSnapshot{ScenarioName: s.Name, Trace: first.Trace}).marshal()
	require.NoError(t, err)
	b, err := (&TraceSnapshot{ScenarioName: s.Name, Trace: second.Trace}).marshal()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
