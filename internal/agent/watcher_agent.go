package agent

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fixpilot/fixpilot/internal/config"
	"github.com/fixpilot/fixpilot/internal/events"
	"github.com/fixpilot/fixpilot/internal/logging"
	"github.com/fixpilot/fixpilot/internal/watcher"
)

// WatcherID is the watcher agent's identity in the shared state.
const WatcherID = "watcher"

// WatcherAgent observes the configured source roots and publishes one
// file_changed event per debounced batch.
type WatcherAgent struct {
	cfg     *config.Config
	channel *events.Channel
	logger  *logging.Logger
}

// NewWatcherAgent creates the watcher agent.
func NewWatcherAgent(cfg *config.Config, channel *events.Channel, logger *logging.Logger) *WatcherAgent {
	return &WatcherAgent{cfg: cfg, channel: channel, logger: logger}
}

// ID implements Agent.
func (a *WatcherAgent) ID() string { return WatcherID }

// Run watches until ctx is cancelled. Watch failures on individual
// roots are logged and skipped; failing to watch every root is fatal.
func (a *WatcherAgent) Run(ctx context.Context) error {
	w, err := watcher.New(
		watcher.Filter{
			Extensions:     a.cfg.Watch.Extensions,
			IgnorePatterns: a.cfg.Watch.IgnorePatterns,
		},
		a.cfg.DebounceInterval(),
		a.publish,
		a.logger.Logger,
	)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Stop()

	watched := 0
	for _, root := range a.cfg.Watch.Paths {
		path := root
		if !filepath.IsAbs(path) {
			path = filepath.Join(a.cfg.Project.Root, root)
		}
		if err := w.Watch(path); err != nil {
			a.logger.Warn("could not watch root", "path", path, "error", err)
			continue
		}
		watched++
		a.logger.Info("watching", "path", path)
	}
	if watched == 0 {
		return fmt.Errorf("no watchable roots among %v", a.cfg.Watch.Paths)
	}

	w.Start()
	<-ctx.Done()
	return nil
}

// publish emits one event per delivered batch.
func (a *WatcherAgent) publish(paths []string) {
	ev := events.NewFileChangedEvent(WatcherID, paths)
	if err := a.channel.Publish(ev); err != nil {
		a.logger.Error("could not publish change event", "files", len(paths), "error", err)
		return
	}
	a.logger.Info("published change event", "files", len(paths))
}
