package task

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fixpilot/fixpilot/internal/testrunner"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(filepath.Join(dir, "tasks"), filepath.Join(dir, "results"))
}

func failingResult() testrunner.TestResult {
	return testrunner.TestResult{
		Passed:     false,
		ReturnCode: 1,
		Stderr:     "FAIL src/foo.test.ts",
	}
}

func TestCreateAndListPending(t *testing.T) {
	store := newTestStore(t)

	created := NewTestFailureTask("test-runner", []string{"src/foo.ts"}, failingResult(), "tests failed after change")
	if err := store.Create(created); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	pending, err := store.ListPending()
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("ListPending() = %d tasks, want 1", len(pending))
	}

	got := pending[0]
	if got.ID != created.ID {
		t.Errorf("id = %q, want %q", got.ID, created.ID)
	}
	if got.Type != TypeTestFailure {
		t.Errorf("type = %q, want %q", got.Type, TypeTestFailure)
	}
	if got.Status != StatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	if got.TestResult == nil || got.TestResult.ReturnCode != 1 {
		t.Errorf("test result not preserved: %+v", got.TestResult)
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	store := newTestStore(t)

	tk := NewTestFailureTask("test-runner", []string{"a.ts"}, failingResult(), "")
	if err := store.Create(tk); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Create(tk); err == nil {
		t.Error("Create() with duplicate id should error")
	}
}

func TestFindByPrefix(t *testing.T) {
	store := newTestStore(t)

	tk := NewTestFailureTask("test-runner", []string{"a.ts"}, failingResult(), "")
	if err := store.Create(tk); err != nil {
		t.Fatal(err)
	}

	got, err := store.FindByPrefix(tk.ID[:8])
	if err != nil {
		t.Fatalf("FindByPrefix() error = %v", err)
	}
	if got.ID != tk.ID {
		t.Errorf("id = %q, want %q", got.ID, tk.ID)
	}
}

func TestFindByPrefixNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.FindByPrefix("zzzzzz")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByPrefix() error = %v, want ErrNotFound", err)
	}
}

func TestFindByPrefixAmbiguous(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"abc123-one", "abc123-two"} {
		tk := NewTestFailureTask("test-runner", []string{"a.ts"}, failingResult(), "")
		tk.ID = id
		if err := store.Create(tk); err != nil {
			t.Fatal(err)
		}
	}

	_, err := store.FindByPrefix("abc123")
	if !errors.Is(err, ErrAmbiguous) {
		t.Errorf("FindByPrefix() error = %v, want ErrAmbiguous", err)
	}
}

func TestCompleteMovesToResults(t *testing.T) {
	dir := t.TempDir()
	tasksDir := filepath.Join(dir, "tasks")
	resultsDir := filepath.Join(dir, "results")
	store := NewStore(tasksDir, resultsDir)

	tk := NewTestFailureTask("test-runner", []string{"a.ts"}, failingResult(), "")
	if err := store.Create(tk); err != nil {
		t.Fatal(err)
	}

	done, err := store.Complete(tk.ID[:8])
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if done.CompletedAt == nil {
		t.Error("completed_at should be set")
	}

	// Moved, not copied.
	if _, err := os.Stat(filepath.Join(tasksDir, tk.ID+".json")); !os.IsNotExist(err) {
		t.Error("active task file should be gone after completion")
	}
	if _, err := os.Stat(filepath.Join(resultsDir, tk.ID+".json")); err != nil {
		t.Errorf("result file missing: %v", err)
	}
}

func TestCompleteAlreadyCompletedIsNoop(t *testing.T) {
	store := newTestStore(t)

	tk := NewTestFailureTask("test-runner", []string{"a.ts"}, failingResult(), "")
	if err := store.Create(tk); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Complete(tk.ID); err != nil {
		t.Fatalf("first Complete() error = %v", err)
	}

	done, err := store.Complete(tk.ID)
	if err != nil {
		t.Fatalf("second Complete() error = %v, want no-op", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
}

func TestCompleteUnknownTask(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Complete("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Complete() error = %v, want ErrNotFound", err)
	}
}

func TestSetStatus(t *testing.T) {
	store := newTestStore(t)

	tk := NewTestFailureTask("test-runner", []string{"a.ts"}, failingResult(), "")
	if err := store.Create(tk); err != nil {
		t.Fatal(err)
	}

	updated, err := store.SetStatus(tk.ID, StatusInProgress)
	if err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if updated.Status != StatusInProgress {
		t.Errorf("status = %s, want in_progress", updated.Status)
	}

	pending, err := store.ListPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("ListPending() = %d tasks, want 0 after transition", len(pending))
	}
}

func TestListPendingMissingDirectory(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "also-nope"))

	pending, err := store.ListPending()
	if err != nil {
		t.Fatalf("ListPending() error = %v, want nil for missing directory", err)
	}
	if len(pending) != 0 {
		t.Errorf("ListPending() = %d, want 0", len(pending))
	}
}

func TestTaskIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tk := NewTestFailureTask("test-runner", nil, failingResult(), "")
		if seen[tk.ID] {
			t.Fatalf("duplicate id generated: %s", tk.ID)
		}
		seen[tk.ID] = true
	}
}
