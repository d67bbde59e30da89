// Package task provides the filesystem-backed task queue. Active tasks
// live one-file-per-task under the tasks directory; completed tasks are
// moved, never copied, to the results directory. Task files are
// single-writer-per-file so no locking is needed.
package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Sentinel errors surfaced to the operator through the CLI.
var (
	// ErrNotFound is returned when no task matches the given id or prefix.
	ErrNotFound = errors.New("task not found")

	// ErrAmbiguous is returned when an id prefix matches more than one task.
	ErrAmbiguous = errors.New("ambiguous task id prefix")
)

// Store persists tasks under an active directory and a results directory.
type Store struct {
	tasksDir   string
	resultsDir string
}

// NewStore creates a Store with the given active-tasks and results
// directories. Directories are created lazily.
func NewStore(tasksDir, resultsDir string) *Store {
	return &Store{tasksDir: tasksDir, resultsDir: resultsDir}
}

// Create writes a new task file. Creation is append-only: the file is
// opened with O_EXCL and an existing id is an error.
func (s *Store) Create(t *Task) error {
	if t.ID == "" {
		return fmt.Errorf("task: id is required")
	}
	if err := os.MkdirAll(s.tasksDir, 0o755); err != nil {
		return fmt.Errorf("task: create directory: %w", err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("task: marshal: %w", err)
	}

	path := filepath.Join(s.tasksDir, t.ID+".json")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("task: create file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("task: write file: %w", err)
	}
	return f.Close()
}

// ListPending returns all active tasks with status pending, ordered by
// creation time. A missing tasks directory means no tasks.
func (s *Store) ListPending() ([]*Task, error) {
	tasks, err := s.listActive()
	if err != nil {
		return nil, err
	}

	var pending []*Task
	for _, t := range tasks {
		if t.Status == StatusPending {
			pending = append(pending, t)
		}
	}
	return pending, nil
}

// ListActive returns all tasks in the active directory, ordered by
// creation time.
func (s *Store) ListActive() ([]*Task, error) {
	return s.listActive()
}

func (s *Store) listActive() ([]*Task, error) {
	entries, err := os.ReadDir(s.tasksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("task: list directory: %w", err)
	}

	var tasks []*Task
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		t, err := s.load(filepath.Join(s.tasksDir, entry.Name()))
		if err != nil {
			continue // tolerate files mid-write by another process
		}
		tasks = append(tasks, t)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// FindByPrefix locates a single active task whose id starts with prefix.
// Zero matches returns ErrNotFound; more than one returns ErrAmbiguous.
func (s *Store) FindByPrefix(prefix string) (*Task, error) {
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty prefix", ErrNotFound)
	}

	matches, err := filepath.Glob(filepath.Join(s.tasksDir, prefix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("task: glob: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return s.load(matches[0])
	default:
		return nil, fmt.Errorf("%w: %s matches %d tasks", ErrAmbiguous, prefix, len(matches))
	}
}

// Complete marks the task matching the given id prefix completed and
// moves its file from the active directory to the results directory.
// Completing a task that was already moved is a no-op.
func (s *Store) Complete(prefix string) (*Task, error) {
	t, err := s.FindByPrefix(prefix)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Already completed? Check the results directory before failing.
			if done, doneErr := s.findResult(prefix); doneErr == nil {
				return done, nil
			}
		}
		return nil, err
	}

	now := time.Now().UTC()
	t.Status = StatusCompleted
	t.CompletedAt = &now

	if err := os.MkdirAll(s.resultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("task: create results directory: %w", err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("task: marshal: %w", err)
	}

	dest := filepath.Join(s.resultsDir, t.ID+".json")
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return nil, fmt.Errorf("task: write result: %w", err)
	}
	if err := os.Remove(filepath.Join(s.tasksDir, t.ID+".json")); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("task: remove active file: %w", err)
	}
	return t, nil
}

// SetStatus rewrites an active task's status in place. Used for the
// pending → in_progress and → failed transitions; completed tasks go
// through Complete instead.
func (s *Store) SetStatus(id string, status Status) (*Task, error) {
	path := filepath.Join(s.tasksDir, id+".json")
	t, err := s.load(path)
	if err != nil {
		return nil, err
	}

	t.Status = status
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("task: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("task: write file: %w", err)
	}
	return t, nil
}

// findResult looks up a completed task by id prefix in the results directory.
func (s *Store) findResult(prefix string) (*Task, error) {
	matches, err := filepath.Glob(filepath.Join(s.resultsDir, prefix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("task: glob results: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return s.load(matches[0])
	default:
		return nil, fmt.Errorf("%w: %s matches %d results", ErrAmbiguous, prefix, len(matches))
	}
}

func (s *Store) load(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("task: read file: %w", err)
	}

	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("task: parse %s: %w", filepath.Base(path), err)
	}
	return &t, nil
}
