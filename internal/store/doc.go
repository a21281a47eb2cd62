// Package store provides durable storage for timeline versions, trigger
// history, and re-plan proposals.
//
// SQLite with WAL mode. The store owns the concurrency control the
// engine's pure functions rely on:
//
//   - timeline history is append-only: versions are inserted, never
//     updated in place and never deleted; superseding flips a status flag
//   - UNIQUE(project_id, version) makes version numbers collision-free
//   - a partial unique index keeps at most one active version per project
//   - ApplyProposal runs as a single transaction with an optimistic
//     check on the base version; a lost race surfaces StaleBaseVersion
//   - triggers are deduplicated on (timeline_id, dedupe_key) so repeated
//     scans of unchanged facts insert nothing
package store
