package task

import (
	"time"

	"github.com/google/uuid"

	"github.com/fixpilot/fixpilot/internal/testrunner"
)

// Status represents the current lifecycle state of a task.
type Status string

const (
	// StatusPending indicates the task is waiting to be picked up.
	StatusPending Status = "pending"

	// StatusInProgress indicates an agent is working the task.
	StatusInProgress Status = "in_progress"

	// StatusCompleted indicates the task finished and was moved to results.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the task is unrecoverable.
	StatusFailed Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TypeTestFailure is the task type created when a test run fails after a
// file change.
const TypeTestFailure = "test_failure"

// Task is a unit of follow-up work with an explicit lifecycle. It is
// owned by its creating agent until a human or downstream agent
// transitions its status.
type Task struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Status      Status                 `json:"status"`
	CreatedAt   time.Time              `json:"created_at"`
	CreatedBy   string                 `json:"created_by"`
	Files       []string               `json:"files"`
	TestResult  *testrunner.TestResult `json:"test_result,omitempty"`
	Description string                 `json:"description,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// NewTestFailureTask builds a pending test_failure task for the given
// files and failing result. IDs are UUIDv4 so prefix collisions are
// negligible.
func NewTestFailureTask(createdBy string, files []string, result testrunner.TestResult, description string) *Task {
	return &Task{
		ID:          uuid.NewString(),
		Type:        TypeTestFailure,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   createdBy,
		Files:       files,
		TestResult:  &result,
		Description: description,
	}
}
