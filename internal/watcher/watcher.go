// Package watcher triggers index rebuilds when the docs directory changes.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 2 * time.Second

// Watcher watches the docs tree recursively and invokes a single rebuild
// callback after changes settle. The index has no per-file update path, so any
// relevant change schedules a full rebuild; the debounce collapses bursts
// (editor saves, git checkouts) into one.
type Watcher struct {
	root       string
	extensions []string
	onRebuild  func()
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	logger     *zap.Logger

	mu       sync.Mutex
	timer    *time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the settle interval before a rebuild fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over root. extensions filter which file changes
// count (empty = all); onRebuild runs after the debounce interval with no
// further changes.
func NewWatcher(root string, extensions []string, onRebuild func(), opts ...Option) *Watcher {
	w := &Watcher{
		root:       root,
		extensions: extensions,
		onRebuild:  onRebuild,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	if err := w.addTreeLocked(w.root); err != nil {
		_ = watcher.Close()
		w.watcher = nil
		w.mu.Unlock()
		return err
	}
	w.started = true
	w.mu.Unlock()

	w.logger.Debug("watcher started", zap.String("root", w.root), zap.Duration("debounce", w.debounce))
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// New subdirectories must be added to the watch before their contents
	// generate events.
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			if w.watcher != nil {
				_ = w.addTreeLocked(ev.Name)
			}
			w.mu.Unlock()
			w.scheduleRebuild(ev.Name)
			return
		}
	}

	if !w.matchExtension(ev.Name) {
		return
	}
	w.scheduleRebuild(ev.Name)
}

func (w *Watcher) scheduleRebuild(path string) {
	w.logger.Debug("docs change detected", zap.String("path", path))
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		// A timer already firing when Stop runs escapes timer.Stop.
		select {
		case <-w.done:
			return
		default:
		}
		w.logger.Info("docs changed, rebuilding index")
		if w.onRebuild != nil {
			w.onRebuild()
		}
	})
}

func (w *Watcher) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// addTreeLocked adds root and every subdirectory to the fsnotify watch.
func (w *Watcher) addTreeLocked(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
