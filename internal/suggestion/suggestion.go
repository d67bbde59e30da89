// Package suggestion persists AI-authored fix suggestions awaiting human
// review. Each suggestion is one JSON file, written once by the
// fix-suggester agent and mutated only by the review tooling.
package suggestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors surfaced to the operator through the CLI.
var (
	// ErrNotFound is returned when no suggestion matches the given prefix.
	ErrNotFound = errors.New("suggestion not found")

	// ErrAmbiguous is returned when a prefix matches more than one suggestion.
	ErrAmbiguous = errors.New("ambiguous suggestion id prefix")
)

// ReviewStatus represents a suggestion's position in the approval flow.
type ReviewStatus string

const (
	// StatusPendingApproval indicates the suggestion awaits human review.
	StatusPendingApproval ReviewStatus = "pending_approval"

	// StatusApproved indicates a human accepted the suggestion.
	StatusApproved ReviewStatus = "approved"

	// StatusRejected indicates a human declined the suggestion.
	StatusRejected ReviewStatus = "rejected"
)

// Suggestion is a proposed fix produced by the fix-suggester agent.
type Suggestion struct {
	SuggestionID string       `json:"suggestion_id"`
	TaskID       string       `json:"task_id"`
	CreatedAt    time.Time    `json:"created_at"`
	Files        []string     `json:"files"`
	AIAnalysis   string       `json:"ai_analysis"`
	Status       ReviewStatus `json:"status"`
	Approved     bool         `json:"approved"`
	ReviewedAt   *time.Time   `json:"reviewed_at,omitempty"`
}

// New builds a pending suggestion for the given task.
func New(taskID string, files []string, analysis string) *Suggestion {
	return &Suggestion{
		SuggestionID: uuid.NewString(),
		TaskID:       taskID,
		CreatedAt:    time.Now().UTC(),
		Files:        files,
		AIAnalysis:   analysis,
		Status:       StatusPendingApproval,
	}
}

// Store persists suggestions one-file-per-suggestion in a directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at the given directory, created lazily.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes the suggestion, overwriting any previous version. Used both
// for initial creation and for persisting review decisions.
func (s *Store) Save(sug *Suggestion) error {
	if sug.SuggestionID == "" {
		return fmt.Errorf("suggestion: id is required")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("suggestion: create directory: %w", err)
	}

	data, err := json.MarshalIndent(sug, "", "  ")
	if err != nil {
		return fmt.Errorf("suggestion: marshal: %w", err)
	}
	path := filepath.Join(s.dir, sug.SuggestionID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("suggestion: write file: %w", err)
	}
	return nil
}

// FindByPrefix locates a single suggestion whose id starts with prefix.
// Zero matches returns ErrNotFound; more than one returns ErrAmbiguous.
func (s *Store) FindByPrefix(prefix string) (*Suggestion, error) {
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty prefix", ErrNotFound)
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, prefix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("suggestion: glob: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return s.load(matches[0])
	default:
		return nil, fmt.Errorf("%w: %s matches %d suggestions", ErrAmbiguous, prefix, len(matches))
	}
}

// List returns all suggestions ordered by creation time.
func (s *Store) List() ([]*Suggestion, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("suggestion: list directory: %w", err)
	}

	var out []*Suggestion
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		sug, err := s.load(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		out = append(out, sug)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) load(path string) (*Suggestion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("suggestion: read file: %w", err)
	}

	var sug Suggestion
	if err := json.Unmarshal(data, &sug); err != nil {
		return nil, fmt.Errorf("suggestion: parse %s: %w", filepath.Base(path), err)
	}
	return &sug, nil
}
