package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fixpilot/fixpilot/internal/config"
	"github.com/fixpilot/fixpilot/internal/statestore"
	"github.com/fixpilot/fixpilot/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent and queue status",
	Long: `Display each agent's registered state with its last heartbeat, plus
the depth of every task queue. An agent whose heartbeat has gone stale
is flagged even if its recorded state still says running.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	crashedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	staleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st := openStores(cfg, nil)

	state, err := st.state.Read()
	if err != nil {
		return fmt.Errorf("read shared state: %w", err)
	}

	fmt.Println(headerStyle.Render("Agents"))
	if len(state.Agents) == 0 {
		fmt.Println(dimStyle.Render("  none registered; is fixpilot running?"))
	} else {
		staleAfter := 3 * time.Duration(cfg.Agent.HeartbeatSeconds) * time.Second
		names := make([]string, 0, len(state.Agents))
		for name := range state.Agents {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			status := state.Agents[name]
			fmt.Printf("  %-15s %s  heartbeat %s ago\n",
				name, renderAgentState(status, staleAfter), util.FormatAge(status.LastHeartbeat))
		}
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Queues"))
	fmt.Printf("  pending      %d\n", len(state.Queues.Pending))
	fmt.Printf("  in_progress  %d\n", len(state.Queues.InProgress))
	fmt.Printf("  completed    %d\n", len(state.Queues.Completed))
	fmt.Printf("  failed       %d\n", len(state.Queues.Failed))

	if !state.Timestamp.IsZero() {
		fmt.Println()
		fmt.Println(dimStyle.Render(fmt.Sprintf("state updated %s ago", util.FormatAge(state.Timestamp))))
	}
	return nil
}

// renderAgentState styles the recorded state, flagging stale heartbeats.
func renderAgentState(status statestore.AgentStatus, staleAfter time.Duration) string {
	if status.Status == statestore.AgentRunning &&
		!status.LastHeartbeat.IsZero() && time.Since(status.LastHeartbeat) > staleAfter {
		return staleStyle.Render("running (stale)")
	}

	switch status.Status {
	case statestore.AgentRunning:
		return runningStyle.Render(string(status.Status))
	case statestore.AgentCrashed:
		return crashedStyle.Render(string(status.Status))
	default:
		return dimStyle.Render(string(status.Status))
	}
}
