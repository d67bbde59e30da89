package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fixpilot/fixpilot/internal/approval"
	"github.com/fixpilot/fixpilot/internal/config"
	"github.com/fixpilot/fixpilot/internal/util"
)

var suggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "Inspect AI fix suggestions",
}

var suggestionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fix suggestions",
	Long: `List every suggestion the fix-suggester has filed, including
already-reviewed ones, newest last.`,
	RunE: runSuggestionsList,
}

var reviewCmd = &cobra.Command{
	Use:   "review <suggestion-id>",
	Short: "Review a fix suggestion",
	Long: `Present a suggestion's AI analysis and affected files, then record
an approve or reject decision. Skipping leaves the suggestion pending.
Accepts an unambiguous ID prefix.`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(suggestionsCmd)
	suggestionsCmd.AddCommand(suggestionsListCmd)
	rootCmd.AddCommand(reviewCmd)
}

func runSuggestionsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st := openStores(cfg, nil)

	sugs, err := st.suggestions.List()
	if err != nil {
		return fmt.Errorf("list suggestions: %w", err)
	}

	if len(sugs) == 0 {
		fmt.Println("No suggestions.")
		return nil
	}

	fmt.Printf("%d suggestion(s):\n\n", len(sugs))
	for _, sug := range sugs {
		fmt.Printf("  %s  [%s]  task %s\n",
			util.ShortID(sug.SuggestionID), sug.Status, util.ShortID(sug.TaskID))
		if line := util.FirstLine(sug.AIAnalysis); line != "" {
			fmt.Printf("      %s\n", util.TruncateString(line, 70))
		}
		fmt.Printf("      created %s ago\n", util.FormatAge(sug.CreatedAt))
		fmt.Println()
	}

	return nil
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st := openStores(cfg, nil)

	gate := approval.NewGate(st.suggestions, os.Stdin, os.Stdout)
	if _, err := gate.Review(args[0]); err != nil {
		return fmt.Errorf("review suggestion: %w", err)
	}
	return nil
}
