// Package watcher monitors directories for file changes and delivers
// debounced, filtered batches to a callback. Bursts of raw filesystem
// events are coalesced with a sliding debounce window: delivery happens
// only once no new event has arrived for the full window.
package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a set of root directories recursively and emits change
// batches. Safe for use from a single owning goroutine; the internal
// watch loop runs on its own goroutine.
type Watcher struct {
	watcher  *fsnotify.Watcher
	filter   Filter
	debounce time.Duration
	onBatch  func([]string)
	logger   *slog.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	stopped bool
}

// New creates a Watcher that delivers filtered batches to onBatch after
// the debounce window closes. A batch that filters down to nothing is
// not delivered.
func New(filter Filter, debounce time.Duration, onBatch func([]string), logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		watcher:  fsw,
		filter:   filter,
		debounce: debounce,
		onBatch:  onBatch,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Watch adds a root directory and all its subdirectories to the watch
// set. Ignored subtrees are skipped entirely.
func (w *Watcher) Watch(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}
		if !info.IsDir() {
			return nil
		}
		for _, pattern := range w.filter.IgnorePatterns {
			if pattern != "" && filepath.Base(path) == pattern {
				return filepath.SkipDir
			}
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("could not watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// Start launches the background watch loop.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop shuts down the watch loop and releases OS watch handles.
// Stop is idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	close(w.stopCh)
	_ = w.watcher.Close()
}

// loop coalesces raw events with a sliding debounce timer. A panic here
// must not take down the owning agent process; the Supervisor restarts
// at the process level if the watch becomes unrecoverable.
func (w *Watcher) loop() {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("watch loop panicked", "panic", r)
		}
	}()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	pending := make(map[string]struct{})

	for {
		select {
		case <-w.stopCh:
			timer.Stop()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			// Directories created after start join the watch set so new
			// subtrees are covered.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.Watch(event.Name)
					continue
				}
			}

			pending[event.Name] = struct{}{}
			// Sliding window: any event re-arms the timer. Drain a
			// fired-but-unread timer first or Reset races the old
			// expiry and delivers before the window closes.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]struct{})
			sort.Strings(paths)

			if filtered := w.filter.Apply(paths); len(filtered) > 0 {
				w.onBatch(filtered)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}
