// Package testrunner executes the project's test command and reports a
// structured outcome. Failures, timeouts, and launch errors are all
// expressed as a TestResult rather than surfaced as errors, so an agent's
// main loop never has to distinguish them.
package testrunner

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// TestResult is the structured outcome of one test invocation. It is
// produced fresh on every run and never mutated afterwards.
type TestResult struct {
	Passed     bool      `json:"passed"`
	ReturnCode int       `json:"returncode"`
	Stdout     string    `json:"stdout"`
	Stderr     string    `json:"stderr"`
	Timestamp  time.Time `json:"timestamp"`
	Duration   float64   `json:"duration_seconds"`
	TestPath   string    `json:"test_path,omitempty"`
}

// Runner invokes a configured test command with a timeout.
type Runner struct {
	// Command is the test command and its base arguments, e.g.
	// ["npm", "test"]. A selector, when given, is appended.
	Command []string

	// WorkDir is the project root the command runs in.
	WorkDir string

	// Timeout bounds the wall-clock duration of a run.
	Timeout time.Duration
}

// New creates a Runner for the given command line, project root, and timeout.
func New(command []string, workDir string, timeout time.Duration) *Runner {
	return &Runner{Command: command, WorkDir: workDir, Timeout: timeout}
}

// Run executes the test command, optionally scoped to selector, and
// returns the structured result. Success is classified strictly by exit
// code zero. A timed-out or unlaunchable command yields a failed result
// with a synthetic negative return code, never an error.
func (r *Runner) Run(ctx context.Context, selector string) TestResult {
	start := time.Now()

	result := TestResult{
		Timestamp: start.UTC(),
		TestPath:  selector,
	}

	if len(r.Command) == 0 {
		result.ReturnCode = -1
		result.Stderr = "no test command configured"
		return result
	}

	// Agent shutdown must not kill an in-flight run; the caller's ctx
	// contributes values only, and the timeout is the sole cancellation.
	runCtx := context.WithoutCancel(ctx)
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, r.Timeout)
		defer cancel()
	}

	args := append([]string(nil), r.Command[1:]...)
	if selector != "" {
		args = append(args, selector)
	}

	cmd := exec.CommandContext(runCtx, r.Command[0], args...)
	cmd.Dir = r.WorkDir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Duration = time.Since(start).Seconds()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if runCtx.Err() == context.DeadlineExceeded {
		result.ReturnCode = -1
		result.Stderr = fmt.Sprintf("test run timed out after %s", r.Timeout)
		return result
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ReturnCode = exitErr.ExitCode()
		} else {
			// Command could not be launched at all.
			result.ReturnCode = -1
			result.Stderr = fmt.Sprintf("failed to launch test command: %v", err)
		}
		return result
	}

	result.Passed = true
	return result
}
