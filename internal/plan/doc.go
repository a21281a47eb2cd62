// Package plan provides the core data model for the timeline engine.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import plan; plan imports nothing internal. This keeps
// it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Durations and schedule positions are whole days (int) - no
//     fractional-day support anywhere
//   - Task schedule positions (StartDay/FinishDay) are day offsets from
//     the Timeline anchor date, never raw timestamps
//   - All JSON tags use snake_case
//   - Identity is deterministic: task IDs derive from fact IDs, trigger
//     dedupe keys derive from canonical JSON
package plan
