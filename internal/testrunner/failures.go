package testrunner

import "strings"

// failureMarkers are the substrings that flag a line as a likely test
// failure. The glyphs cover jest/vitest and mocha reporters.
var failureMarkers = []string{"FAIL", "Error:", "Failed:", "✗", "✕"}

// maxFailureLines caps the extract so a huge test log cannot balloon the
// analysis prompt.
const maxFailureLines = 20

// ExtractFailureLines scans combined test output for common failure
// markers and returns the matching lines, trimmed. An empty result is
// valid; it simply means nothing matched.
func ExtractFailureLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		for _, marker := range failureMarkers {
			if strings.Contains(trimmed, marker) {
				lines = append(lines, trimmed)
				break
			}
		}
		if len(lines) >= maxFailureLines {
			break
		}
	}
	return lines
}

// FailureLines is a convenience that extracts from a result's combined
// stdout and stderr.
func FailureLines(result TestResult) []string {
	return ExtractFailureLines(result.Stdout + "\n" + result.Stderr)
}
