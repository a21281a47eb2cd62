// Package watch re-runs trigger detection when fact files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/replan/internal/facts"
	"github.com/roach88/replan/internal/orchestrator"
	"github.com/roach88/replan/internal/plan"
)

// DefaultDebounce coalesces editor save bursts into one scan.
const DefaultDebounce = 500 * time.Millisecond

// Watcher observes a directory of fact files and scans a project when
// its file is written.
type Watcher struct {
	svc      *orchestrator.Service
	dir      string
	debounce time.Duration
	logger   *slog.Logger

	// OnTriggers, when set, receives each project's newly detected
	// triggers. Used by the CLI to print as they arrive.
	OnTriggers func(project string, triggers []plan.Trigger)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the event coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New returns a Watcher over dir, scanning through svc.
func New(svc *orchestrator.Service, dir string, opts ...Option) *Watcher {
	w := &Watcher{
		svc:      svc,
		dir:      dir,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until the context is cancelled. Write and Create events
// on YAML files are debounced per project, then the project is
// re-scanned for triggers. Scan failures are logged, never fatal.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching fact files", "dir", w.dir)
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			w.logger.Debug("fact file changed", "op", event.Op.String(), "file", event.Name)
			w.schedule(ctx, event.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// schedule arms (or re-arms) the project's debounce timer.
func (w *Watcher) schedule(ctx context.Context, path string) {
	project := facts.ProjectForFile(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[project]; ok {
		t.Stop()
	}
	w.timers[project] = time.AfterFunc(w.debounce, func() {
		w.scan(ctx, project, path)
	})
}

// stopTimers halts pending debounce timers so no scan fires against
// the store after Run returns.
func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for project, t := range w.timers {
		t.Stop()
		delete(w.timers, project)
	}
}

func (w *Watcher) scan(ctx context.Context, project, path string) {
	if ctx.Err() != nil {
		return
	}
	f, err := facts.Load(path)
	if err != nil {
		w.logger.Error("scan skipped, bad fact file", "project", project, "error", err)
		return
	}
	triggers, err := w.svc.DetectTriggers(ctx, f)
	if err != nil {
		w.logger.Error("scan failed", "project", project, "error", err)
		return
	}
	if w.OnTriggers != nil {
		w.OnTriggers(project, triggers)
	}
}
