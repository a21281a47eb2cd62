package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replan/internal/catalog"
	"github.com/roach88/replan/internal/facts"
	"github.com/roach88/replan/internal/orchestrator"
	"github.com/roach88/replan/internal/plan"
	"github.com/roach88/replan/internal/store"
	"github.com/roach88/replan/internal/testutil"
)

const metroYAML = `
project: metro
anchor: 2026-03-02T00:00:00Z
facts:
  - id: permit-1
    kind: permit
    permit:
      authority: city
      lead_days: 30
  - id: contract-1
    kind: contract
    after: [permit-1]
    contract:
      vendor: acme
      duration_days: 60
  - id: sal-0
    kind: sal
    sal:
      ref: permit-1
      progress: 100
  - id: sal-1
    kind: sal
    sal:
      ref: contract-1
      progress: 10
`

// newWatcher returns a Watcher whose service already holds metro's
// timeline, observed at day 75 where the contract is far behind.
func newWatcher(t *testing.T, dir string) (*Watcher, chan []plan.Trigger) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "replan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewClock(testutil.Anchor.AddDate(0, 0, 75))
	svc := orchestrator.New(st, catalog.Default(), orchestrator.WithNow(clock.Now))

	f, err := facts.Parse([]byte(metroYAML))
	require.NoError(t, err)
	_, err = svc.GenerateTimeline(context.Background(), f, false)
	require.NoError(t, err)

	ch := make(chan []plan.Trigger, 4)
	w := New(svc, dir, WithDebounce(50*time.Millisecond))
	w.OnTriggers = func(_ string, triggers []plan.Trigger) { ch <- triggers }
	return w, ch
}

// start runs the watcher and returns its exit channel.
func start(ctx context.Context, t *testing.T, w *Watcher) chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	// Give the fsnotify add a moment before the test writes files.
	time.Sleep(200 * time.Millisecond)
	return done
}

func TestWatcher_ScansOnWrite(t *testing.T) {
	dir := t.TempDir()
	w, ch := newWatcher(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := start(ctx, t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "metro.yaml"), []byte(metroYAML), 0o644))

	select {
	case triggers := <-ch:
		require.Len(t, triggers, 1)
		assert.Equal(t, plan.TriggerSALDelay, triggers[0].Type)
	case <-time.After(5 * time.Second):
		t.Fatal("no scan after fact file write")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcher_IgnoresNonYAML(t *testing.T) {
	dir := t.TempDir()
	w, ch := newWatcher(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start(ctx, t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not facts"), 0o644))

	select {
	case <-ch:
		t.Fatal("scan fired for a non-YAML file")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcher_BadFactFileIsLoggedNotFatal(t *testing.T) {
	dir := t.TempDir()
	w, ch := newWatcher(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := start(ctx, t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "metro.yaml"), []byte("project: [broken"), 0o644))

	select {
	case <-ch:
		t.Fatal("scan fired for an unparsable fact file")
	case <-time.After(400 * time.Millisecond):
	}

	// The watcher is still alive and picks up the fixed file.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metro.yaml"), []byte(metroYAML), 0o644))
	select {
	case triggers := <-ch:
		assert.Len(t, triggers, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("no scan after the fact file was fixed")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcher_CancelStopsPendingScans(t *testing.T) {
	dir := t.TempDir()
	w, ch := newWatcher(t, dir)
	w.debounce = 300 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := start(ctx, t, w)

	// Arm a debounce timer, then shut down before it expires.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metro.yaml"), []byte(metroYAML), 0o644))
	time.Sleep(50 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	select {
	case <-ch:
		t.Fatal("pending scan fired after Run returned")
	case <-time.After(600 * time.Millisecond):
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	w, ch := newWatcher(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	start(ctx, t, w)

	// An editor save burst: several writes inside the debounce window.
	path := filepath.Join(dir, "metro.yaml")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(metroYAML), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("no scan after burst")
	}

	// The burst coalesced into one scan.
	select {
	case <-ch:
		t.Fatal("burst produced more than one scan")
	case <-time.After(300 * time.Millisecond):
	}
}
