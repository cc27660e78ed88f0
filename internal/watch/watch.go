// Package watch rescans a dataset file whenever it changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ppiankov/rulescan/internal/util"
	"github.com/ppiankov/rulescan/internal/worker"
)

// DefaultDebounce is the quiet period that ends a burst of file events.
// Editors often write a file several times per save.
const DefaultDebounce = 100 * time.Millisecond

// RescanFunc is called once per coalesced burst of changes
type RescanFunc func(ctx context.Context) error

// Watcher watches one file. The parent directory is watched so that
// atomic replace-on-save is seen as a change.
type Watcher struct {
	path     string
	debounce time.Duration
	throttle *worker.Throttle
	logger   *util.Logger
}

// New creates a watcher for path. A nil throttle means no rate limit.
func New(path string, debounce time.Duration, throttle *worker.Throttle, logger *util.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = util.Discard()
	}
	return &Watcher{path: abs, debounce: debounce, throttle: throttle, logger: logger}, nil
}

// Run calls onChange after every burst of changes until ctx ends.
// It returns nil when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, onChange RescanFunc) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("watching %s", w.path)

	return w.loop(ctx, fw.Events, fw.Errors, onChange)
}

func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, onChange RescanFunc) error {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error: %v", err)

		case <-timer.C:
			pending = false
			if w.throttle != nil {
				if err := w.throttle.Wait(ctx); err != nil {
					return nil
				}
			}
			if err := onChange(ctx); err != nil {
				w.logger.Error("rescan failed: %v", err)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
