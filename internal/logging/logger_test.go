package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(dir, "watcher", LevelInfo)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("agent started", "pid", 1234)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "watcher.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "agent started" {
		t.Errorf("msg = %v, want 'agent started'", entry["msg"])
	}
	if entry["agent"] != "watcher" {
		t.Errorf("agent = %v, want watcher", entry["agent"])
	}
	if entry["pid"] != float64(1234) {
		t.Errorf("pid = %v, want 1234", entry["pid"])
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(dir, "test-runner", LevelWarn)
	if err != nil {
		t.Fatal(err)
	}

	logger.Debug("hidden")
	logger.Info("also hidden")
	logger.Warn("visible")
	_ = logger.Close()

	data, err := os.ReadFile(filepath.Join(dir, "test-runner.log"))
	if err != nil {
		t.Fatal(err)
	}

	content := string(data)
	if strings.Contains(content, "hidden") {
		t.Error("messages below WARN should be filtered")
	}
	if !strings.Contains(content, "visible") {
		t.Error("WARN message missing from output")
	}
}

func TestEmptyDirFallsBackToStderr(t *testing.T) {
	logger, err := New("", "supervisor", LevelInfo)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() on stderr logger error = %v, want nil", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"nonsense", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
