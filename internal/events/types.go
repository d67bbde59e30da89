// Package events provides the file-backed event channel agents use for
// pub/sub. Each published event is one immutable JSON file whose name
// encodes the event type and timestamp, giving events a natural identity
// and approximate lexicographic ordering.
package events

import "time"

// EventType identifies the kind of change event.
type EventType string

const (
	// TypeFileChanged indicates one or more watched files changed.
	TypeFileChanged EventType = "file_changed"
)

// ChangeEvent is an immutable record of a batch of file changes observed
// by the watcher agent. Once published it is never mutated.
type ChangeEvent struct {
	EventType EventType `json:"event_type"`
	AgentID   string    `json:"agent_id"`
	Timestamp time.Time `json:"timestamp"`
	Files     []string  `json:"files"`
	Count     int       `json:"count"`
}

// NewFileChangedEvent builds a file_changed event for the given producer
// and batch of paths.
func NewFileChangedEvent(agentID string, files []string) ChangeEvent {
	return ChangeEvent{
		EventType: TypeFileChanged,
		AgentID:   agentID,
		Timestamp: time.Now().UTC(),
		Files:     files,
		Count:     len(files),
	}
}
