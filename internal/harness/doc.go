// Package harness provides scenario-based conformance testing for the
// re-planning pipeline.
//
// The harness loads a fact file, executes a scripted sequence of
// operations against a fresh in-memory store, and validates the
// resulting event trace and final timeline state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	facts: metro.yaml
//	at_day: 0
//	steps:
//	  - op: generate
//	    expect: { version: 1, tasks: 2 }
//	  - op: scan
//	    expect: { new: 1 }
//	  - op: replan
//	    trigger: 0
//	    expect: { delay_days: 45, applied: false }
//	  - op: apply
//	    expect: { version: 2 }
//	assertions:
//	  - type: event_order
//	    ops: [generate, scan, replan, apply]
//	  - type: final_timeline
//	    expect: { version: 2, finish_day: 135 }
//
// # Operations
//
// The following step operations are supported:
//
//   - generate: build and persist the project's first timeline version
//   - regenerate: rebuild with force, superseding the active version
//   - scan: detect triggers against the active timeline
//   - replan: compute and preview a proposal for a recorded trigger
//   - apply: confirm the most recent proposal
//   - reject: discard the most recent proposal
//   - status: report summary figures for the active timeline
//
// # Assertion Types
//
//   - event_contains: Verifies an operation appears in the trace with
//     matching detail fields (subset match)
//   - event_order: Verifies operations appear in the given relative order
//   - event_count: Verifies an operation appears exactly N times
//   - final_timeline: Verifies the active timeline's version, finish day,
//     task count, and open trigger count after the flow completes
//
// # Deterministic Execution
//
// Every scenario runs with a fixed clock (the fact file's anchor plus
// at_day) and a sequential ID generator, against an isolated in-memory
// SQLite database. Identical runs produce identical traces, which makes
// the trace suitable for golden snapshot comparison via RunWithGolden.
package harness
