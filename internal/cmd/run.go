package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fixpilot/fixpilot/internal/config"
	"github.com/fixpilot/fixpilot/internal/logging"
	"github.com/fixpilot/fixpilot/internal/supervisor"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the fixpilot pipeline",
	Long: `Start the supervisor, which launches each configured agent as its
own child process and restarts any that crash. The watcher observes
source changes, the test-runner executes the test suite on each change
batch, and the fix-suggester analyzes failures.

Runs in the foreground until interrupted.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st := openStores(cfg, nil)
	logger, err := logging.New(st.logDir, "supervisor", cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create supervisor logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	specs, err := agentSpecs(cfg)
	if err != nil {
		return err
	}

	sup := supervisor.New(specs, supervisor.Options{
		PollInterval: time.Duration(cfg.Supervisor.PollIntervalSeconds) * time.Second,
		RestartDelay: time.Duration(cfg.Supervisor.RestartDelaySeconds) * time.Second,
		Stagger:      time.Duration(cfg.Supervisor.StaggerMillis) * time.Millisecond,
		GracePeriod:  time.Duration(cfg.Supervisor.GracePeriodSeconds) * time.Second,
	}, st.state, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Starting fixpilot with agents: %v\n", cfg.Supervisor.Agents)
	fmt.Printf("State root: %s\n", cfg.StateDir())

	sup.StartAll()
	sup.Run(ctx)

	fmt.Println("fixpilot stopped.")
	return nil
}

// agentSpecs builds the relaunch command line for each configured agent.
// Every agent is this same binary re-executed with the hidden agent
// subcommand, so a crash in one agent never takes down the others.
func agentSpecs(cfg *config.Config) ([]supervisor.Spec, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate own binary: %w", err)
	}

	var specs []supervisor.Spec
	for _, name := range cfg.Supervisor.Agents {
		command := []string{self, "agent", name}
		if cfgFile := viper.GetString("config"); cfgFile != "" {
			command = append(command, "--config", cfgFile)
		}
		specs = append(specs, supervisor.Spec{Name: name, Command: command})
	}
	return specs, nil
}
