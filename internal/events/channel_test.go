package events

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPublishAndPollNew(t *testing.T) {
	dir := t.TempDir()
	ch := NewChannel(dir, nil)

	ev := NewFileChangedEvent("watcher", []string{"src/foo.ts"})
	if err := ch.Publish(ev); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	seen := make(map[string]bool)
	got, err := ch.PollNew(TypeFileChanged, seen)
	if err != nil {
		t.Fatalf("PollNew() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("PollNew() returned %d events, want 1", len(got))
	}
	if got[0].AgentID != "watcher" {
		t.Errorf("agent_id = %q, want watcher", got[0].AgentID)
	}
	if got[0].Count != 1 || len(got[0].Files) != 1 || got[0].Files[0] != "src/foo.ts" {
		t.Errorf("files = %v count = %d, want [src/foo.ts] 1", got[0].Files, got[0].Count)
	}
	if got[0].ID == "" {
		t.Error("event ID should be the filename, got empty")
	}
}

func TestPollNewSkipsSeen(t *testing.T) {
	ch := NewChannel(t.TempDir(), nil)

	if err := ch.Publish(NewFileChangedEvent("watcher", []string{"a.ts"})); err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	first, err := ch.PollNew(TypeFileChanged, seen)
	if err != nil {
		t.Fatalf("PollNew() error = %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first poll = %d events, want 1", len(first))
	}
	for _, ev := range first {
		seen[ev.ID] = true
	}

	second, err := ch.PollNew(TypeFileChanged, seen)
	if err != nil {
		t.Fatalf("PollNew() error = %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second poll = %d events, want 0 (already seen)", len(second))
	}
}

func TestPollNewOrdering(t *testing.T) {
	ch := NewChannel(t.TempDir(), nil)

	for _, f := range []string{"first.ts", "second.ts", "third.ts"} {
		if err := ch.Publish(NewFileChangedEvent("watcher", []string{f})); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	got, err := ch.PollNew(TypeFileChanged, map[string]bool{})
	if err != nil {
		t.Fatalf("PollNew() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("PollNew() = %d events, want 3", len(got))
	}

	want := []string{"first.ts", "second.ts", "third.ts"}
	for i, ev := range got {
		if ev.Files[0] != want[i] {
			t.Errorf("event %d files = %v, want [%s]", i, ev.Files, want[i])
		}
	}
}

func TestPollNewMissingDirectory(t *testing.T) {
	ch := NewChannel(filepath.Join(t.TempDir(), "does-not-exist"), nil)

	got, err := ch.PollNew(TypeFileChanged, map[string]bool{})
	if err != nil {
		t.Fatalf("PollNew() error = %v, want nil for missing directory", err)
	}
	if len(got) != 0 {
		t.Errorf("PollNew() = %d events, want 0", len(got))
	}
}

func TestPollNewSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	ch := NewChannel(dir, nil)

	if err := ch.Publish(NewFileChangedEvent("watcher", []string{"ok.ts"})); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "file_changed_19990101-000000.000000000-0000.json")
	if err := os.WriteFile(bad, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ch.PollNew(TypeFileChanged, map[string]bool{})
	if err != nil {
		t.Fatalf("PollNew() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("PollNew() = %d events, want 1 (malformed skipped)", len(got))
	}
	if got[0].Files[0] != "ok.ts" {
		t.Errorf("files = %v, want [ok.ts]", got[0].Files)
	}
}

func TestPublishRejectsEmptyBatch(t *testing.T) {
	ch := NewChannel(t.TempDir(), nil)

	if err := ch.Publish(NewFileChangedEvent("watcher", nil)); err == nil {
		t.Error("Publish() with no files should error")
	}
}
