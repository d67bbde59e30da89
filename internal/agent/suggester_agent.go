package agent

import (
	"context"
	"time"

	"github.com/fixpilot/fixpilot/internal/llm"
	"github.com/fixpilot/fixpilot/internal/logging"
	"github.com/fixpilot/fixpilot/internal/statestore"
	"github.com/fixpilot/fixpilot/internal/suggestion"
	"github.com/fixpilot/fixpilot/internal/task"
)

// SuggesterID is the fix-suggester agent's identity in the shared state.
const SuggesterID = "fix-suggester"

// SuggesterAgent picks up pending test_failure tasks, asks the language
// model for an analysis, and files a suggestion for human review. The
// task stays in_progress until an operator completes it.
type SuggesterAgent struct {
	tasks       *task.Store
	suggestions *suggestion.Store
	analyzer    llm.Analyzer
	store       *statestore.Store
	logger      *logging.Logger
	poll        time.Duration
}

// NewSuggesterAgent creates the fix-suggester agent.
func NewSuggesterAgent(tasks *task.Store, suggestions *suggestion.Store, analyzer llm.Analyzer,
	store *statestore.Store, logger *logging.Logger, poll time.Duration) *SuggesterAgent {
	return &SuggesterAgent{
		tasks:       tasks,
		suggestions: suggestions,
		analyzer:    analyzer,
		store:       store,
		logger:      logger,
		poll:        poll,
	}
}

// ID implements Agent.
func (a *SuggesterAgent) ID() string { return SuggesterID }

// Run polls for pending tasks until ctx is cancelled.
func (a *SuggesterAgent) Run(ctx context.Context) error {
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

func (a *SuggesterAgent) cycle(ctx context.Context) {
	pending, err := a.tasks.ListPending()
	if err != nil {
		a.logger.Warn("could not list pending tasks", "error", err)
		return
	}

	for _, t := range pending {
		if t.Type != task.TypeTestFailure {
			continue
		}
		a.suggest(ctx, t)
	}
}

// suggest claims one task and produces a suggestion for it.
func (a *SuggesterAgent) suggest(ctx context.Context, t *task.Task) {
	if _, err := a.tasks.SetStatus(t.ID, task.StatusInProgress); err != nil {
		a.logger.Warn("could not claim task", "task", t.ID, "error", err)
		return
	}
	a.moveQueue(t.ID, "in_progress")

	result := t.TestResult
	if result == nil {
		a.logger.Warn("task has no test result, failing it", "task", t.ID)
		a.fail(t)
		return
	}

	analysis, err := a.analyzer.Analyze(ctx, t.Files, *result)
	if err != nil {
		// Provider errors are transient from this agent's point of view;
		// release the task so a later cycle retries.
		a.logger.Warn("analysis failed, releasing task", "task", t.ID, "error", err)
		if _, err := a.tasks.SetStatus(t.ID, task.StatusPending); err != nil {
			a.logger.Error("could not release task", "task", t.ID, "error", err)
		}
		a.moveQueue(t.ID, "pending")
		return
	}

	sug := suggestion.New(t.ID, t.Files, analysis)
	if err := a.suggestions.Save(sug); err != nil {
		a.logger.Error("could not save suggestion", "task", t.ID, "error", err)
		a.fail(t)
		return
	}

	a.logger.Info("suggestion filed", "task", t.ID, "suggestion", sug.SuggestionID)
}

func (a *SuggesterAgent) fail(t *task.Task) {
	if _, err := a.tasks.SetStatus(t.ID, task.StatusFailed); err != nil {
		a.logger.Error("could not fail task", "task", t.ID, "error", err)
	}
	a.moveQueue(t.ID, "failed")
}

func (a *SuggesterAgent) moveQueue(taskID, bucket string) {
	if _, err := a.store.Update(func(s *statestore.SharedState) {
		s.MoveTask(taskID, bucket)
	}); err != nil {
		a.logger.Warn("could not update shared queues", "task", taskID, "error", err)
	}
}
