package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fixpilot/fixpilot/internal/events"
	"github.com/fixpilot/fixpilot/internal/logging"
	"github.com/fixpilot/fixpilot/internal/statestore"
	"github.com/fixpilot/fixpilot/internal/task"
	"github.com/fixpilot/fixpilot/internal/testrunner"
)

// TestRunnerID is the test-runner agent's identity in the shared state.
const TestRunnerID = "test-runner"

// TestRunnerAgent consumes file_changed events, runs the project's test
// command, and files a test_failure task when a run fails.
//
// The seen set lives in process memory only: after a crash and restart
// the agent may reprocess events published while it was down. Rerunning
// a test suite is harmless, so this stays an accepted trade-off rather
// than a persisted cursor.
type TestRunnerAgent struct {
	channel *events.Channel
	runner  *testrunner.Runner
	tasks   *task.Store
	store   *statestore.Store
	logger  *logging.Logger
	poll    time.Duration

	seen map[string]bool
}

// NewTestRunnerAgent creates the test-runner agent.
func NewTestRunnerAgent(channel *events.Channel, runner *testrunner.Runner, tasks *task.Store,
	store *statestore.Store, logger *logging.Logger, poll time.Duration) *TestRunnerAgent {
	return &TestRunnerAgent{
		channel: channel,
		runner:  runner,
		tasks:   tasks,
		store:   store,
		logger:  logger,
		poll:    poll,
		seen:    make(map[string]bool),
	}
}

// ID implements Agent.
func (a *TestRunnerAgent) ID() string { return TestRunnerID }

// Run polls for new events until ctx is cancelled. An in-flight test
// run is not cancelled mid-run by shutdown; the loop exits at the next
// poll boundary.
func (a *TestRunnerAgent) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.cycle(ctx)
		}
	}
}

// cycle processes every unseen event in filename order.
func (a *TestRunnerAgent) cycle(ctx context.Context) {
	evs, err := a.channel.PollNew(events.TypeFileChanged, a.seen)
	if err != nil {
		a.logger.Warn("could not poll events", "error", err)
		return
	}

	for _, ev := range evs {
		// Record identity before acting: delivery is at-least-once and a
		// failed run must not be retried as if the event were new.
		a.seen[ev.ID] = true
		a.handle(ctx, ev)
	}
}

func (a *TestRunnerAgent) handle(ctx context.Context, ev events.Event) {
	a.logger.Info("change event received", "event", ev.ID, "files", ev.Count)

	result := a.runner.Run(ctx, "")
	if result.Passed {
		a.logger.Info("tests passed", "duration_seconds", result.Duration)
		return
	}

	a.logger.Warn("tests failed", "returncode", result.ReturnCode,
		"duration_seconds", result.Duration)

	t := task.NewTestFailureTask(TestRunnerID, ev.Files, result,
		fmt.Sprintf("tests failed after changes to %s", strings.Join(ev.Files, ", ")))
	if err := a.tasks.Create(t); err != nil {
		a.logger.Error("could not create task", "error", err)
		return
	}

	if _, err := a.store.Update(func(s *statestore.SharedState) {
		s.EnqueuePending(t.ID)
	}); err != nil {
		a.logger.Warn("could not enqueue task in shared state", "task", t.ID, "error", err)
	}
	a.logger.Info("task created", "task", t.ID)
}
