// Package internal contains integration tests that verify the agents
// cooperate correctly through the shared filesystem state: a source
// change flows from the watcher through the test-runner into a task,
// and from the fix-suggester into a reviewable suggestion.
package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fixpilot/fixpilot/internal/agent"
	"github.com/fixpilot/fixpilot/internal/approval"
	"github.com/fixpilot/fixpilot/internal/config"
	"github.com/fixpilot/fixpilot/internal/events"
	"github.com/fixpilot/fixpilot/internal/logging"
	"github.com/fixpilot/fixpilot/internal/statestore"
	"github.com/fixpilot/fixpilot/internal/suggestion"
	"github.com/fixpilot/fixpilot/internal/task"
	"github.com/fixpilot/fixpilot/internal/testrunner"
)

type recordedAnalyzer struct {
	mu    sync.Mutex
	calls int
}

func (r *recordedAnalyzer) Analyze(_ context.Context, files []string, _ testrunner.TestResult) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return "likely regression in " + strings.Join(files, ", "), nil
}

// TestPipelineEndToEnd drives the whole loop in-process: a file change
// becomes an event, a failing test run becomes a task, the task becomes
// a suggestion, and the suggestion passes the approval gate.
func TestPipelineEndToEnd(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "src")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatal(err)
	}
	srcFile := filepath.Join(srcDir, "app.ts")
	if err := os.WriteFile(srcFile, []byte("export const n = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Watch.Paths = []string{"src"}
	cfg.Watch.DebounceSeconds = 0.05
	cfg.Test.Command = []string{"false"} // every run fails
	cfg.Test.TimeoutSeconds = 5
	cfg.State.Dir = filepath.Join(root, ".fixpilot")

	stateDir := cfg.StateDir()
	logger, err := logging.New(filepath.Join(stateDir, "logs"), "integration", logging.LevelError)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = logger.Close() }()

	store := statestore.New(filepath.Join(stateDir, "state"))
	channel := events.NewChannel(filepath.Join(stateDir, "events"), logger.Logger)
	tasks := task.NewStore(filepath.Join(stateDir, "tasks"), filepath.Join(stateDir, "results"))
	suggestions := suggestion.NewStore(filepath.Join(stateDir, "suggestions"))

	analyzer := &recordedAnalyzer{}
	poll := 30 * time.Millisecond
	heartbeat := 50 * time.Millisecond

	runner := testrunner.New(cfg.Test.Command, root, cfg.TestTimeout())
	agents := []agent.Agent{
		agent.NewWatcherAgent(cfg, channel, logger),
		agent.NewTestRunnerAgent(channel, runner, tasks, store, logger, poll),
		agent.NewSuggesterAgent(tasks, suggestions, analyzer, store, logger, poll),
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, a := range agents {
		wg.Add(1)
		go func(a agent.Agent) {
			defer wg.Done()
			rt := agent.NewRuntime(store, logger, heartbeat)
			if err := rt.Run(ctx, a); err != nil {
				t.Errorf("agent %s: %v", a.ID(), err)
			}
		}(a)
	}

	// The watcher needs a moment to establish its fsnotify watches, so
	// keep touching the source file until an event lands.
	waitFor(t, 10*time.Second, func() bool {
		content := []byte("export const n = " + time.Now().Format("150405.000") + "\n")
		_ = os.WriteFile(srcFile, content, 0o644)
		evs, err := channel.PollNew(events.TypeFileChanged, map[string]bool{})
		return err == nil && len(evs) > 0
	})

	// Failing test run turns the change into a suggestion.
	waitFor(t, 10*time.Second, func() bool {
		sugs, err := suggestions.List()
		return err == nil && len(sugs) > 0
	})

	sugs, err := suggestions.List()
	if err != nil {
		t.Fatal(err)
	}
	sug := sugs[0]
	if sug.Status != suggestion.StatusPendingApproval {
		t.Errorf("suggestion status = %s, want pending_approval", sug.Status)
	}
	if !strings.Contains(sug.AIAnalysis, "regression") {
		t.Errorf("analysis = %q, want the analyzer's text", sug.AIAnalysis)
	}

	// The backing task was claimed and reflected in the shared queues.
	state, err := store.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Queues.InProgress) == 0 {
		t.Errorf("in_progress queue empty, want the claimed task")
	}
	for _, id := range []string{agent.WatcherID, agent.TestRunnerID, agent.SuggesterID} {
		if got := state.Agents[id].Status; got != statestore.AgentRunning {
			t.Errorf("agent %s status = %s, want running", id, got)
		}
	}

	// Human review approves the fix.
	gate := approval.NewGate(suggestions, strings.NewReader("a\n"), os.Stderr)
	outcome, err := gate.Review(sug.SuggestionID[:8])
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if outcome != approval.OutcomeApproved {
		t.Errorf("outcome = %s, want approved", outcome)
	}
	reviewed, err := suggestions.FindByPrefix(sug.SuggestionID[:8])
	if err != nil {
		t.Fatal(err)
	}
	if reviewed.Status != suggestion.StatusApproved || !reviewed.Approved {
		t.Errorf("reviewed suggestion = %+v, want approved", reviewed)
	}

	cancel()
	wg.Wait()

	// Every agent flushed a clean stopped state on the way out.
	state, err = store.Read()
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{agent.WatcherID, agent.TestRunnerID, agent.SuggesterID} {
		if got := state.Agents[id].Status; got != statestore.AgentStopped {
			t.Errorf("agent %s final status = %s, want stopped", id, got)
		}
	}

	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	if analyzer.calls == 0 {
		t.Error("analyzer was never consulted")
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
