package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SuiteResult aggregates the outcomes of running every scenario in a
// directory.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure records one failed scenario with its messages.
type ScenarioFailure struct {
	Scenario string   `json:"scenario"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// Pass reports whether every scenario in the suite passed.
func (r *SuiteResult) Pass() bool {
	return r.Failed == 0
}

// DiscoverScenarios lists the scenario YAML files under dir, sorted by
// name for a stable run order.
func DiscoverScenarios(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// RunSuite loads and executes every scenario under dir, aggregating
// pass/fail counts. A scenario that fails to load counts as failed;
// execution continues with the remaining scenarios so one broken file
// does not mask the rest.
func RunSuite(dir string) (*SuiteResult, error) {
	paths, err := DiscoverScenarios(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}

	suite := &SuiteResult{TotalScenarios: len(paths)}
	for _, path := range paths {
		scenario, err := LoadScenario(path)
		if err != nil {
			suite.Failed++
			suite.Failures = append(suite.Failures, ScenarioFailure{
				Scenario: filepath.Base(path),
				Path:     path,
				Errors:   []string{err.Error()},
			})
			continue
		}

		result, err := Run(scenario)
		if err != nil {
			suite.Failed++
			suite.Failures = append(suite.Failures, ScenarioFailure{
				Scenario: scenario.Name,
				Path:     path,
				Errors:   []string{err.Error()},
			})
			continue
		}
		if !result.Pass {
			suite.Failed++
			suite.Failures = append(suite.Failures, ScenarioFailure{
				Scenario: scenario.Name,
				Path:     path,
				Errors:   result.Errors,
			})
			continue
		}
		suite.Passed++
	}
	return suite, nil
}
