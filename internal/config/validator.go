package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // the config field path, e.g. "watch.debounce_seconds"
	Value   any    // the invalid value
	Message string // human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// knownAgents are the agent names the supervisor can launch.
var knownAgents = []string{"watcher", "test-runner", "fix-suggester"}

// Validate checks the Config for invalid values and returns all
// validation errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Watch.DebounceSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "watch.debounce_seconds",
			Value:   c.Watch.DebounceSeconds,
			Message: "must not be negative",
		})
	}
	for _, ext := range c.Watch.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errors = append(errors, ValidationError{
				Field:   "watch.extensions",
				Value:   ext,
				Message: "extensions must include the leading dot",
			})
		}
	}

	if c.Test.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "test.timeout_seconds",
			Value:   c.Test.TimeoutSeconds,
			Message: "must be positive",
		})
	}

	if c.State.LockTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "state.lock_timeout_seconds",
			Value:   c.State.LockTimeoutSeconds,
			Message: "must be positive",
		})
	}

	if c.Supervisor.PollIntervalSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "supervisor.poll_interval_seconds",
			Value:   c.Supervisor.PollIntervalSeconds,
			Message: "must be positive",
		})
	}
	for _, name := range c.Supervisor.Agents {
		if !slices.Contains(knownAgents, name) {
			errors = append(errors, ValidationError{
				Field:   "supervisor.agents",
				Value:   name,
				Message: fmt.Sprintf("unknown agent, valid agents: %s", strings.Join(knownAgents, ", ")),
			})
		}
	}

	if c.Agent.HeartbeatSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "agent.heartbeat_seconds",
			Value:   c.Agent.HeartbeatSeconds,
			Message: "must be positive",
		})
	}

	if level := strings.ToLower(c.Logging.Level); !slices.Contains(ValidLogLevels(), level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
