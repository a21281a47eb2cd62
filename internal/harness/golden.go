package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the complete trace of a scenario execution.
// Marshalled through map[string]any so keys serialize in sorted order,
// keeping snapshots byte-deterministic.
type TraceSnapshot struct {
	ScenarioName string      `json:"scenario_name"`
	Trace        []StepEvent `json:"trace"`
}

// toCanonicalMap converts the snapshot to nested maps, which
// encoding/json serializes with sorted keys.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"op":  event.Op,
			"seq": event.Seq,
		}
		if event.Detail != nil {
			eventMap["detail"] = event.Detail
		}
		traceList[i] = eventMap
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

// marshal renders the snapshot as indented, newline-terminated JSON.
func (s *TraceSnapshot) marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s.toCanonicalMap(), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares the trace against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if scenario execution fails; trace mismatches fail
// the test via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-computed result's trace against the
// golden file for scenarioName. Useful when the caller needs the result
// for its own assertions as well.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: scenarioName, Trace: result.Trace}
	data, err := snapshot.marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
