package watcher

import (
	"path/filepath"
	"strings"
)

// testFilePatterns flag paths that belong to test or spec files. These
// are excluded so test runs triggered by the pipeline cannot retrigger
// the watch and loop forever.
var testFilePatterns = []string{".test.", ".spec.", "_test."}

// Filter decides which changed paths are worth delivering.
type Filter struct {
	// Extensions is the allow-list of file extensions, each with its
	// leading dot (".ts", ".go"). Empty means allow everything.
	Extensions []string

	// IgnorePatterns are substrings that exclude a path when present
	// anywhere in it ("node_modules", ".git").
	IgnorePatterns []string
}

// Allow returns true if the path passes the extension allow-list, the
// ignore patterns, and the test-file exclusion.
func (f Filter) Allow(path string) bool {
	base := filepath.Base(path)

	for _, pattern := range testFilePatterns {
		if strings.Contains(base, pattern) {
			return false
		}
	}

	for _, pattern := range f.IgnorePatterns {
		if pattern != "" && strings.Contains(path, pattern) {
			return false
		}
	}

	if len(f.Extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, allowed := range f.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Apply returns the subset of paths that pass the filter, preserving order.
func (f Filter) Apply(paths []string) []string {
	var out []string
	for _, p := range paths {
		if f.Allow(p) {
			out = append(out, p)
		}
	}
	return out
}
