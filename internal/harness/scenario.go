package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one scripted run of the re-planning pipeline.
// Scenarios execute a flow of operations against a fresh store and
// assert on the resulting event trace and final timeline state.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the golden
	// file name when the scenario runs under RunWithGolden.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Facts is the path to the project fact file, relative to the
	// scenario file location.
	Facts string `yaml:"facts"`

	// AtDay positions the clock that many days after the fact file's
	// anchor date. Individual steps may move it further with their own
	// at_day fields.
	AtDay int `yaml:"at_day,omitempty"`

	// Steps contains the operations to execute, in order. Each step
	// can specify expected result values.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and timeline state.
	// Supported types: event_contains, event_order, event_count,
	// final_timeline.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation in the scenario flow.
type Step struct {
	// Op names the operation: generate, regenerate, scan, replan,
	// apply, reject, or status.
	Op string `yaml:"op"`

	// Trigger selects which recorded trigger a replan step targets, by
	// position in detection order. Defaults to the first.
	Trigger int `yaml:"trigger,omitempty"`

	// AutoApply lets a replan step commit immediately when the
	// trigger's severity allows it.
	AutoApply bool `yaml:"auto_apply,omitempty"`

	// AtDay moves the clock to that many days after the anchor before
	// the step executes. Nil leaves the clock where it is.
	AtDay *int `yaml:"at_day,omitempty"`

	// Expect contains expected result field values. Subset match -
	// only specified fields are validated. Nil skips validation.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion validates the trace or the final timeline.
type Assertion struct {
	// Type specifies the assertion type:
	// - "event_contains": an operation appears with matching detail
	// - "event_order": operations appear in the given relative order
	// - "event_count": an operation appears exactly N times
	// - "final_timeline": the active timeline matches expected values
	Type string `yaml:"type"`

	// Op is the operation name (event_contains, event_count).
	Op string `yaml:"op,omitempty"`

	// Ops is the expected operation order (event_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number of occurrences (event_count).
	Count int `yaml:"count,omitempty"`

	// Expect contains expected field values, matched as a subset
	// (event_contains detail fields, final_timeline summary fields).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertEventContains = "event_contains"
	AssertEventOrder    = "event_order"
	AssertEventCount    = "event_count"
	AssertFinalTimeline = "final_timeline"
)

// Step operation constants.
const (
	OpGenerate   = "generate"
	OpRegenerate = "regenerate"
	OpScan       = "scan"
	OpRePlan     = "replan"
	OpApply      = "apply"
	OpReject     = "reject"
	OpStatus     = "status"
)

var validOps = map[string]bool{
	OpGenerate:   true,
	OpRegenerate: true,
	OpScan:       true,
	OpRePlan:     true,
	OpApply:      true,
	OpReject:     true,
	OpStatus:     true,
}

// LoadScenario reads and parses a scenario YAML file. The fact file
// path is resolved relative to the scenario file's directory. Returns
// an error if the file is malformed, contains unknown fields (typos),
// or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" for
	// "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if scenario.Facts != "" && !filepath.IsAbs(scenario.Facts) {
		scenario.Facts = filepath.Join(filepath.Dir(path), scenario.Facts)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Facts == "" {
		return fmt.Errorf("facts is required")
	}
	if _, err := os.Stat(s.Facts); err != nil {
		return fmt.Errorf("fact file not found: %s", s.Facts)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if !validOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Trigger < 0 {
			return fmt.Errorf("steps[%d]: trigger must be non-negative", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for event_contains", index)
		}
	case AssertEventOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for event_order", index)
		}
	case AssertEventCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertFinalTimeline:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_timeline", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
