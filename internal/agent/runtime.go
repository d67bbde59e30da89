// Package agent implements the fixpilot agent processes: the shared
// runtime (registration, heartbeats, shutdown flush) and the three
// concrete agents — watcher, test-runner, and fix-suggester. Each agent
// runs as its own OS process under the supervisor; all coordination
// between them goes through the filesystem.
package agent

import (
	"context"
	"time"

	"github.com/fixpilot/fixpilot/internal/logging"
	"github.com/fixpilot/fixpilot/internal/statestore"
)

// Agent is one long-running worker. Run blocks until ctx is cancelled.
type Agent interface {
	ID() string
	Run(ctx context.Context) error
}

// Runtime wraps an Agent with the lifecycle every agent shares:
// register as starting, flip to running, heartbeat on an interval, and
// perform a final synchronous status flush on shutdown.
type Runtime struct {
	store     *statestore.Store
	logger    *logging.Logger
	heartbeat time.Duration
}

// NewRuntime creates a Runtime writing liveness into the given store.
func NewRuntime(store *statestore.Store, logger *logging.Logger, heartbeat time.Duration) *Runtime {
	return &Runtime{store: store, logger: logger, heartbeat: heartbeat}
}

// Run executes the agent under lifecycle management. The returned error
// is the agent's own; lifecycle bookkeeping failures are logged but do
// not abort the agent (a state-lock timeout must never kill a worker).
func (rt *Runtime) Run(ctx context.Context, a Agent) error {
	rt.setState(a.ID(), statestore.AgentStarting)
	rt.logger.Info("agent starting", "id", a.ID())

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go rt.heartbeatLoop(hbCtx, a.ID())

	rt.setState(a.ID(), statestore.AgentRunning)

	err := a.Run(ctx)

	// Final flush happens synchronously so the supervisor and status
	// tooling see a clean stop even as the process exits.
	stopHeartbeat()
	rt.setState(a.ID(), statestore.AgentStopped)
	rt.logger.Info("agent stopped", "id", a.ID())
	return err
}

// heartbeatLoop refreshes last_heartbeat until ctx is cancelled.
func (rt *Runtime) heartbeatLoop(ctx context.Context, id string) {
	ticker := time.NewTicker(rt.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rt.setState(id, statestore.AgentRunning)
		}
	}
}

// setState writes an agent status transition, tolerating lock timeouts.
func (rt *Runtime) setState(id string, state statestore.AgentState) {
	_, err := rt.store.Update(func(s *statestore.SharedState) {
		s.SetAgent(id, state)
	})
	if err != nil {
		rt.logger.Warn("could not record agent state", "id", id, "state", state, "error", err)
	}
}
