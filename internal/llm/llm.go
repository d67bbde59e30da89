// Package llm abstracts the fix-suggester's only external call: asking a
// language model to analyze a test failure. The request/response contract
// is files plus a failing TestResult in, free-text analysis out; retry
// and rate-limit policy belongs to the provider implementation.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/fixpilot/fixpilot/internal/testrunner"
)

// Analyzer generates analysis text for a set of files given a failing
// test result.
type Analyzer interface {
	Analyze(ctx context.Context, files []string, result testrunner.TestResult) (string, error)
}

// maxOutputChars caps how much raw test output goes into the prompt.
const maxOutputChars = 4000

// BuildPrompt renders the analysis request sent to the model. Exported
// so tests can pin the prompt's shape without a live provider.
func BuildPrompt(files []string, result testrunner.TestResult) string {
	var sb strings.Builder

	sb.WriteString("A test run failed after the following files changed:\n")
	for _, f := range files {
		fmt.Fprintf(&sb, "  - %s\n", f)
	}

	fmt.Fprintf(&sb, "\nExit code: %d\n", result.ReturnCode)

	if lines := testrunner.FailureLines(result); len(lines) > 0 {
		sb.WriteString("\nLikely failure lines:\n")
		for _, line := range lines {
			fmt.Fprintf(&sb, "  %s\n", line)
		}
	}

	sb.WriteString("\nTest output:\n")
	sb.WriteString(truncate(result.Stdout+"\n"+result.Stderr, maxOutputChars))

	sb.WriteString("\n\nExplain the most likely cause of the failure and propose a concrete fix. " +
		"Reference specific files and lines where possible.")
	return sb.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... (output truncated)"
}
