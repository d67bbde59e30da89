package cmd

import (
	"log/slog"
	"path/filepath"

	"github.com/fixpilot/fixpilot/internal/config"
	"github.com/fixpilot/fixpilot/internal/events"
	"github.com/fixpilot/fixpilot/internal/logging"
	"github.com/fixpilot/fixpilot/internal/statestore"
	"github.com/fixpilot/fixpilot/internal/suggestion"
	"github.com/fixpilot/fixpilot/internal/task"
)

// stores bundles the on-disk coordination primitives every command
// operates on. All of them live under the state root.
type stores struct {
	state       *statestore.Store
	channel     *events.Channel
	tasks       *task.Store
	suggestions *suggestion.Store
	logDir      string
}

// openStores wires the filesystem layout under the configured state
// root. Directories are created lazily by the individual stores.
func openStores(cfg *config.Config, logger *logging.Logger) *stores {
	root := cfg.StateDir()

	opts := []statestore.Option{statestore.WithLockTimeout(cfg.LockTimeout())}
	var slogger *slog.Logger
	if logger != nil {
		slogger = logger.Logger
		opts = append(opts, statestore.WithLogger(slogger))
	}

	return &stores{
		state:       statestore.New(filepath.Join(root, "state"), opts...),
		channel:     events.NewChannel(filepath.Join(root, "events"), slogger),
		tasks:       task.NewStore(filepath.Join(root, "tasks"), filepath.Join(root, "results")),
		suggestions: suggestion.NewStore(filepath.Join(root, "suggestions")),
		logDir:      filepath.Join(root, "logs"),
	}
}
