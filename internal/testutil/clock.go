package testutil

import (
	"sync"
	"time"
)

// Clock is a settable wall clock for tests.
//
// Trigger detection and re-planning take the current time as an input;
// pinning it makes scan output and proposal timestamps reproducible, so
// the same scenario always yields byte-identical golden files.
//
// Thread-safety: all methods are safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock pinned to the given instant.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now.UTC()}
}

// Now returns the pinned instant. Pass as a now-func option:
//
//	det := trigger.New(cfg, ids, trigger.WithNow(clock.Now))
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the clock to a new instant.
func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now.UTC()
}
