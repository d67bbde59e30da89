// Package statestore provides the durable shared-state document that all
// fixpilot agents coordinate through. The document lives as a single JSON
// file guarded by a flock(2) lock file; every mutation is expressed as a
// pure transform applied under the lock and written back with a
// write-temp-then-rename so concurrent readers never observe a partial
// document.
package statestore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	stateFileName = "app_state.json"
	lockFileName  = "app_state.lock"

	// DefaultLockTimeout bounds how long Read/Update wait for the lock.
	DefaultLockTimeout = 10 * time.Second
)

// Store mediates all access to the shared state document. It is safe for
// concurrent use from multiple goroutines and multiple processes.
type Store struct {
	dir         string
	lockTimeout time.Duration
	logger      *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout overrides the default lock-acquisition timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// WithLogger sets the logger used for corruption warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store rooted at the given state directory. The directory
// and the initial document are created lazily on first access.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:         dir,
		lockTimeout: DefaultLockTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the canonical path of the state document.
func (s *Store) Path() string {
	return filepath.Join(s.dir, stateFileName)
}

// Read returns the current shared state document. The lock is held for the
// duration of the read so a concurrent Update cannot interleave. A missing
// or malformed document yields the empty skeleton, never an error.
func (s *Store) Read() (*SharedState, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	fl := NewFileLock(filepath.Join(s.dir, lockFileName), s.lockTimeout)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquire state lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	return s.loadLocked(), nil
}

// Update applies the given transform to the current document and atomically
// replaces it. The transform must be pure: it receives the freshly-read
// document and mutates it in place. Returns the document as written.
func (s *Store) Update(transform func(*SharedState)) (*SharedState, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	fl := NewFileLock(filepath.Join(s.dir, lockFileName), s.lockTimeout)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquire state lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	state := s.loadLocked()
	transform(state)
	state.Version = StateVersion
	state.Timestamp = time.Now().UTC()

	if err := s.writeLocked(state); err != nil {
		return nil, err
	}
	return state, nil
}

// loadLocked reads and parses the document while the lock is held.
// Falls back to the empty skeleton on any read or parse failure.
func (s *Store) loadLocked() *SharedState {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("state document unreadable, reinitializing",
				"path", s.Path(), "error", err)
		}
		return NewSharedState()
	}

	var state SharedState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("state document corrupt, reinitializing",
			"path", s.Path(), "error", err)
		return NewSharedState()
	}
	if state.Agents == nil {
		state.Agents = make(map[string]AgentStatus)
	}
	return &state
}

// writeLocked marshals the document to a process-unique temp file in the
// state directory, forces it to stable storage, then renames it over the
// canonical path. Rename within one directory is atomic on POSIX systems,
// so readers see either the old or the new document in full.
func (s *Store) writeLocked(state *SharedState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := fmt.Sprintf("%s.%d.tmp", s.Path(), os.Getpid())
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp, s.Path()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
