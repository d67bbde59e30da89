// Package logging provides structured logging for fixpilot agents.
// It wraps Go's log/slog package to produce JSON-formatted, timestamped
// log lines, one file per agent under the state root, for post-hoc
// analysis of agent behavior.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Log levels supported by the logger.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Logger wraps slog with the backing file so callers can Close it on
// shutdown. It is safe for concurrent use.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New creates a Logger writing JSON lines to {logDir}/{name}.log. The
// level parameter controls which messages are logged; unrecognized
// levels default to INFO. If logDir is empty, output goes to stderr.
//
// The agent name is attached to every record so interleaved logs from
// multiple agents remain attributable.
func New(logDir, name, level string) (*Logger, error) {
	var writer io.Writer
	var file *os.File

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		var err error
		file, err = os.OpenFile(filepath.Join(logDir, name+".log"),
			os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		writer = file
	} else {
		writer = os.Stderr
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: parseLevel(level),
	})

	return &Logger{
		Logger: slog.New(handler).With("agent", name),
		file:   file,
	}, nil
}

// Close flushes and closes the log file. A no-op for stderr loggers.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// parseLevel converts a string log level to slog.Level.
// Defaults to INFO if the level string is not recognized.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
