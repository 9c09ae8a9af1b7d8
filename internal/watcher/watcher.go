// Package watcher rebuilds the index when documents under the root change.
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

	"github.com/hyperjump/tansaku/pkg/utils"
)

const defaultDebounce = 2 * time.Second

// RebuildFunc runs one full rebuild.
type RebuildFunc func(ctx context.Context) error

// Filter decides which files count as documents, e.g. discovery.Walker.
type Filter interface {
	Accept(path string) bool
}

// Watcher watches a document root and runs a debounced rebuild on changes.
// Rebuilds never overlap: changes that arrive during a rebuild queue exactly one more.
type Watcher struct {
	root      string
	filter    Filter
	recursive bool
	rebuild   RebuildFunc
	debounce  time.Duration
	logger    *zap.Logger

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	dirs     map[string]bool
	pending  chan struct{}
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	wg       sync.WaitGroup
	rebuilds int
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for watch events and rebuild results.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long the watcher waits for changes to settle before rebuilding.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for root. A nil filter accepts every file.
func NewWatcher(root string, filter Filter, recursive bool, rebuild RebuildFunc, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:      filepath.Clean(root),
		filter:    filter,
		recursive: recursive,
		rebuild:   rebuild,
		debounce:  defaultDebounce,
		dirs:      make(map[string]bool),
		pending:   make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = utils.OrNop(w.logger)
	return w
}

// Start starts watching. It runs until ctx is cancelled or Stop is called.
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
	w.started = true
	w.logger.Debug("watcher starting", zap.String("root", w.root), zap.Bool("recursive", w.recursive))
	if err := w.addRootLocked(); err != nil {
		_ = w.watcher.Close()
		w.watcher = nil
		w.started = false
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()
	w.wg.Add(2)
	go w.run(ctx, watcher)
	go w.rebuildLoop(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			go w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}
}

// rebuildLoop runs queued rebuilds one at a time.
func (w *Watcher) rebuildLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-w.pending:
			start := time.Now()
			err := w.rebuild(ctx)
			w.mu.Lock()
			w.rebuilds++
			w.mu.Unlock()
			if err != nil {
				w.logger.Warn("rebuild failed", zap.Error(err))
				continue
			}
			w.logger.Info("rebuild finished", zap.Duration("elapsed", time.Since(start)))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !inDir(w.root, path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if w.accept(path) {
			w.schedule()
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.mu.Lock()
		wasDir := w.dirs[path]
		delete(w.dirs, path)
		w.mu.Unlock()
		if wasDir || w.accept(path) {
			w.schedule()
		}
	}
}

// handleNewDirectory watches a directory created (or moved) under the root and
// rebuilds when it already holds documents.
func (w *Watcher) handleNewDirectory(dirPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil || !w.recursive {
		return
	}
	found := false
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			found = found || w.accept(path)
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
			return nil
		}
		w.dirs[path] = true
		return nil
	})
	if found {
		w.scheduleLocked()
	}
}

func (w *Watcher) accept(path string) bool {
	return w.filter == nil || w.filter.Accept(path)
}

// schedule (re)starts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scheduleLocked()
}

func (w *Watcher) scheduleLocked() {
	if !w.started {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.pending <- struct{}{}:
		default:
		}
	})
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) addRootLocked() error {
	if _, err := os.Stat(w.root); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(w.root, 0755); err != nil {
			return err
		}
	}
	if !w.recursive {
		if err := w.watcher.Add(w.root); err != nil {
			return err
		}
		w.dirs[w.root] = true
		return nil
	}
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.dirs[path] = true
		return nil
	})
}

// Trigger queues a rebuild without waiting for the debounce timer.
func (w *Watcher) Trigger() {
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

// Rebuilds returns the number of rebuilds run so far.
func (w *Watcher) Rebuilds() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rebuilds
}

// Stop stops the watcher and waits for a running rebuild to return.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
}
