// Package config defines the fixpilot configuration surface. Settings
// come from a YAML config file, FIXPILOT_* environment variables, and
// documented defaults, resolved through viper. Unknown keys are ignored.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete fixpilot configuration.
type Config struct {
	Project    ProjectConfig    `mapstructure:"project"`
	Watch      WatchConfig      `mapstructure:"watch"`
	Test       TestConfig       `mapstructure:"test"`
	State      StateConfig      `mapstructure:"state"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Agent      AgentConfig      `mapstructure:"agent"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ProjectConfig locates the project under automation.
type ProjectConfig struct {
	// Root is the project root path the test command runs in.
	Root string `mapstructure:"root"`
}

// WatchConfig controls the change detector.
type WatchConfig struct {
	// Paths are the root directories to watch, comma-separated in
	// flat-string form.
	Paths []string `mapstructure:"paths"`
	// Extensions is the allow-list of watched extensions, each with its
	// leading dot.
	Extensions []string `mapstructure:"extensions"`
	// IgnorePatterns are substrings that exclude a path entirely.
	IgnorePatterns []string `mapstructure:"ignore_patterns"`
	// DebounceSeconds is the sliding quiet window before a batch is
	// delivered.
	DebounceSeconds float64 `mapstructure:"debounce_seconds"`
}

// TestConfig controls the test execution engine.
type TestConfig struct {
	// Command is the test command and its base arguments.
	Command []string `mapstructure:"command"`
	// TimeoutSeconds bounds one test run.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// StateConfig locates the shared on-disk coordination area.
type StateConfig struct {
	// Dir is the state root; state/, events/, tasks/, results/,
	// suggestions/ and logs/ all live underneath it.
	Dir string `mapstructure:"dir"`
	// LockTimeoutSeconds bounds state-lock acquisition.
	LockTimeoutSeconds int `mapstructure:"lock_timeout_seconds"`
}

// SupervisorConfig controls agent process supervision.
type SupervisorConfig struct {
	// Agents are the agent names to launch, in start order.
	Agents []string `mapstructure:"agents"`
	// PollIntervalSeconds is how often child liveness is checked.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	// RestartDelaySeconds is the pause before relaunching a crashed agent.
	RestartDelaySeconds int `mapstructure:"restart_delay_seconds"`
	// StaggerMillis is the delay between successive agent launches.
	StaggerMillis int `mapstructure:"stagger_millis"`
	// GracePeriodSeconds is how long shutdown waits before force-killing.
	GracePeriodSeconds int `mapstructure:"grace_period_seconds"`
}

// AgentConfig controls the shared agent runtime.
type AgentConfig struct {
	// HeartbeatSeconds is the interval between heartbeat writes.
	HeartbeatSeconds int `mapstructure:"heartbeat_seconds"`
	// PollIntervalSeconds is how often consumers poll for new events
	// and tasks.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
}

// LLMConfig controls the fix-suggester's language-model call.
type LLMConfig struct {
	// Model is the model identifier passed to the provider.
	Model string `mapstructure:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `mapstructure:"api_key_env"`
	// MaxTokens bounds the analysis response.
	MaxTokens int `mapstructure:"max_tokens"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Project: ProjectConfig{
			Root: ".",
		},
		Watch: WatchConfig{
			Paths:           []string{"src"},
			Extensions:      []string{".ts", ".tsx", ".js", ".jsx"},
			IgnorePatterns:  []string{"node_modules", ".git", "dist", "build"},
			DebounceSeconds: 5.0,
		},
		Test: TestConfig{
			Command:        []string{"npm", "test"},
			TimeoutSeconds: 300,
		},
		State: StateConfig{
			Dir:                ".fixpilot",
			LockTimeoutSeconds: 10,
		},
		Supervisor: SupervisorConfig{
			Agents:              []string{"watcher", "test-runner", "fix-suggester"},
			PollIntervalSeconds: 2,
			RestartDelaySeconds: 1,
			StaggerMillis:       500,
			GracePeriodSeconds:  5,
		},
		Agent: AgentConfig{
			HeartbeatSeconds:    5,
			PollIntervalSeconds: 2,
		},
		LLM: LLMConfig{
			Model:     "claude-sonnet-4-5",
			APIKeyEnv: "ANTHROPIC_API_KEY",
			MaxTokens: 2048,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers all defaults with viper so they apply even
// without a config file.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("project.root", defaults.Project.Root)

	viper.SetDefault("watch.paths", defaults.Watch.Paths)
	viper.SetDefault("watch.extensions", defaults.Watch.Extensions)
	viper.SetDefault("watch.ignore_patterns", defaults.Watch.IgnorePatterns)
	viper.SetDefault("watch.debounce_seconds", defaults.Watch.DebounceSeconds)

	viper.SetDefault("test.command", defaults.Test.Command)
	viper.SetDefault("test.timeout_seconds", defaults.Test.TimeoutSeconds)

	viper.SetDefault("state.dir", defaults.State.Dir)
	viper.SetDefault("state.lock_timeout_seconds", defaults.State.LockTimeoutSeconds)

	viper.SetDefault("supervisor.agents", defaults.Supervisor.Agents)
	viper.SetDefault("supervisor.poll_interval_seconds", defaults.Supervisor.PollIntervalSeconds)
	viper.SetDefault("supervisor.restart_delay_seconds", defaults.Supervisor.RestartDelaySeconds)
	viper.SetDefault("supervisor.stagger_millis", defaults.Supervisor.StaggerMillis)
	viper.SetDefault("supervisor.grace_period_seconds", defaults.Supervisor.GracePeriodSeconds)

	viper.SetDefault("agent.heartbeat_seconds", defaults.Agent.HeartbeatSeconds)
	viper.SetDefault("agent.poll_interval_seconds", defaults.Agent.PollIntervalSeconds)

	viper.SetDefault("llm.model", defaults.LLM.Model)
	viper.SetDefault("llm.api_key_env", defaults.LLM.APIKeyEnv)
	viper.SetDefault("llm.max_tokens", defaults.LLM.MaxTokens)

	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load unmarshals the resolved configuration and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.normalize()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// normalize splits comma-separated flat strings into lists. Environment
// variables deliver list settings as single strings.
func (c *Config) normalize() {
	c.Watch.Paths = splitFlat(c.Watch.Paths)
	c.Watch.Extensions = splitFlat(c.Watch.Extensions)
	c.Watch.IgnorePatterns = splitFlat(c.Watch.IgnorePatterns)
	c.Test.Command = splitFlatSpace(c.Test.Command)
	c.Supervisor.Agents = splitFlat(c.Supervisor.Agents)
}

func splitFlat(values []string) []string {
	if len(values) != 1 || !strings.Contains(values[0], ",") {
		return values
	}
	var out []string
	for _, part := range strings.Split(values[0], ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func splitFlatSpace(values []string) []string {
	if len(values) != 1 || !strings.Contains(values[0], " ") {
		return values
	}
	return strings.Fields(values[0])
}

// DebounceInterval returns the debounce window as a duration.
func (c *Config) DebounceInterval() time.Duration {
	return time.Duration(c.Watch.DebounceSeconds * float64(time.Second))
}

// TestTimeout returns the test-run bound as a duration.
func (c *Config) TestTimeout() time.Duration {
	return time.Duration(c.Test.TimeoutSeconds) * time.Second
}

// LockTimeout returns the state-lock bound as a duration.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.State.LockTimeoutSeconds) * time.Second
}

// StateDir resolves the state root against the project root when it is
// relative.
func (c *Config) StateDir() string {
	if filepath.IsAbs(c.State.Dir) {
		return c.State.Dir
	}
	return filepath.Join(c.Project.Root, c.State.Dir)
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fixpilot")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fixpilot"
	}
	return filepath.Join(home, ".config", "fixpilot")
}
