package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fixpilot/fixpilot/internal/config"
	"github.com/fixpilot/fixpilot/internal/statestore"
	"github.com/fixpilot/fixpilot/internal/task"
	"github.com/fixpilot/fixpilot/internal/util"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect and resolve tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active tasks",
	Long: `List every task that has not yet been completed, newest last.
Completed tasks move to the results directory and no longer appear here.`,
	RunE: runTasksList,
}

var tasksCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a task as completed",
	Long: `Mark a task as completed by ID or unambiguous ID prefix. The task
record moves to the results directory; completing an already-completed
task is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runTasksComplete,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksCompleteCmd)
}

func runTasksList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st := openStores(cfg, nil)

	active, err := st.tasks.ListActive()
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	if len(active) == 0 {
		fmt.Println("No active tasks.")
		return nil
	}

	fmt.Printf("%d active task(s):\n\n", len(active))
	for _, t := range active {
		fmt.Printf("  %s  [%s]  %s\n", util.ShortID(t.ID), t.Status, t.Type)
		if t.Description != "" {
			fmt.Printf("      %s\n", util.TruncateString(t.Description, 70))
		}
		if len(t.Files) > 0 {
			fmt.Printf("      files: %s\n", util.TruncateString(strings.Join(t.Files, ", "), 70))
		}
		fmt.Printf("      created %s ago by %s\n", util.FormatAge(t.CreatedAt), t.CreatedBy)
		fmt.Println()
	}
	return nil
}

func runTasksComplete(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st := openStores(cfg, nil)

	t, err := st.tasks.Complete(args[0])
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}

	if _, err := st.state.Update(func(s *statestore.SharedState) {
		s.MoveTask(t.ID, "completed")
	}); err != nil {
		fmt.Printf("Warning: could not update shared queues: %v\n", err)
	}

	if t.Status == task.StatusCompleted && t.CompletedAt != nil {
		fmt.Printf("Task %s completed.\n", util.ShortID(t.ID))
	}
	return nil
}
