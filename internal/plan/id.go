package plan

import (
	"sync"

	"github.com/google/uuid"
)

// nsTask is the UUID namespace for deterministic task IDs.
// Derived once from the DNS namespace so task IDs are stable across
// builds and machines.
var nsTask = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("replan.task"))

// DeriveTaskID computes the deterministic ID of the task generated from
// a fact. The key is the fact ID plus its kind - the catalog maps each
// kind to exactly one template, so the kind pins down which template
// produced the task. Two generator runs over the same fact set produce
// identical task IDs, which makes regeneration idempotent and lets
// Refresh carry recorded progress forward.
func DeriveTaskID(factID, factKind string) TaskID {
	return TaskID(uuid.NewSHA1(nsTask, []byte(factID+"/"+factKind)).String())
}

// IDGenerator generates unique IDs for triggers, proposals, and timeline
// versions. Implemented by UUIDv7Generator (production) and
// FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, making IDs
// sortable by creation time - convenient when eyeballing trigger and
// proposal history.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined IDs for testing.
//
// This enables deterministic test execution and golden-file comparison:
// tests provide a known sequence of IDs and verify exact output.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("trg-1", "trg-2")
//	gen.Generate() // "trg-1"
//	gen.Generate() // "trg-2"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
// Panics when exhausted - fail-fast for test misconfiguration.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
