package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

// eventTimeFormat produces names whose lexicographic order matches
// chronological order at nanosecond resolution.
const eventTimeFormat = "20060102-150405.000000000"

// publishSeq disambiguates events published within the same nanosecond
// by a single process.
var publishSeq atomic.Uint64

// Event pairs a ChangeEvent with its channel identity (the filename).
type Event struct {
	// ID is the event's filename, unique within the channel.
	ID string

	ChangeEvent
}

// Channel is a one-file-per-event mailbox in a shared directory.
// Publishing is single-writer-per-file so no locking is required;
// consumers track which identities they have already processed.
type Channel struct {
	dir    string
	logger *slog.Logger
}

// NewChannel creates a Channel rooted at the given events directory.
// The directory is created lazily on first publish.
func NewChannel(dir string, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{dir: dir, logger: logger}
}

// Publish serializes one event to a uniquely named file in the channel
// directory. The filename encodes type and timestamp.
func (c *Channel) Publish(ev ChangeEvent) error {
	if len(ev.Files) == 0 {
		return fmt.Errorf("events: refusing to publish event with no files")
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("events: create directory: %w", err)
	}

	data, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}

	name := fmt.Sprintf("%s_%s-%04d.json",
		ev.EventType,
		ev.Timestamp.UTC().Format(eventTimeFormat),
		publishSeq.Add(1)%10000)

	path := filepath.Join(c.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("events: create event file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("events: write event file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("events: close event file: %w", err)
	}
	return nil
}

// PollNew lists all event files of the given type, skips identities
// already present in seen, and returns the remainder in filename order.
// The caller must add the returned IDs to its seen set; delivery is
// at-least-once and the seen set is consumer-local.
//
// A channel directory that does not exist yet means no events, not an
// error. Malformed event files are skipped with a warning.
func (c *Channel) PollNew(eventType EventType, seen map[string]bool) ([]Event, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("events: list directory: %w", err)
	}

	prefix := string(eventType) + "_"
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		if seen[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Event
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(c.dir, name))
		if err != nil {
			c.logger.Warn("event file unreadable, skipping", "file", name, "error", err)
			continue
		}
		var ev ChangeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Warn("event file malformed, skipping", "file", name, "error", err)
			continue
		}
		out = append(out, Event{ID: name, ChangeEvent: ev})
	}
	return out, nil
}
