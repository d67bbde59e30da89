package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fixpilot/fixpilot/internal/agent"
	"github.com/fixpilot/fixpilot/internal/config"
	"github.com/fixpilot/fixpilot/internal/llm"
	"github.com/fixpilot/fixpilot/internal/logging"
	"github.com/fixpilot/fixpilot/internal/testrunner"
)

var agentCmd = &cobra.Command{
	Use:    "agent <name>",
	Short:  "Run a single agent in the foreground",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE:   runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(filepath.Join(cfg.StateDir(), "logs"), name, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create agent logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	st := openStores(cfg, logger)

	a, err := buildAgent(name, cfg, st, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := agent.NewRuntime(st.state, logger,
		time.Duration(cfg.Agent.HeartbeatSeconds)*time.Second)
	return rt.Run(ctx, a)
}

// buildAgent constructs the named agent from configuration.
func buildAgent(name string, cfg *config.Config, st *stores, logger *logging.Logger) (agent.Agent, error) {
	poll := time.Duration(cfg.Agent.PollIntervalSeconds) * time.Second

	switch name {
	case agent.WatcherID:
		return agent.NewWatcherAgent(cfg, st.channel, logger), nil

	case agent.TestRunnerID:
		runner := testrunner.New(cfg.Test.Command, cfg.Project.Root, cfg.TestTimeout())
		return agent.NewTestRunnerAgent(st.channel, runner, st.tasks, st.state, logger, poll), nil

	case agent.SuggesterID:
		apiKey := os.Getenv(cfg.LLM.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%s is not set; the fix-suggester needs an API key", cfg.LLM.APIKeyEnv)
		}
		analyzer := llm.NewClaude(apiKey, cfg.LLM.Model, cfg.LLM.MaxTokens)
		return agent.NewSuggesterAgent(st.tasks, st.suggestions, analyzer, st.state, logger, poll), nil

	default:
		return nil, fmt.Errorf("unknown agent %q (valid: %s, %s, %s)",
			name, agent.WatcherID, agent.TestRunnerID, agent.SuggesterID)
	}
}
