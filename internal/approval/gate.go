// Package approval implements the human review gate for AI-authored fix
// suggestions. A reviewer sees the analysis and affected files, then
// approves, rejects, or skips; approve and reject persist the decision,
// skip leaves the suggestion untouched.
package approval

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fixpilot/fixpilot/internal/suggestion"
)

// Outcome is the reviewer's decision.
type Outcome string

const (
	// OutcomeApproved indicates the fix was accepted.
	OutcomeApproved Outcome = "approved"

	// OutcomeRejected indicates the fix was declined.
	OutcomeRejected Outcome = "rejected"

	// OutcomeSkipped indicates the reviewer deferred; nothing is persisted.
	OutcomeSkipped Outcome = "skipped"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle    = lipgloss.NewStyle().Bold(true)
	fileStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	approvedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	rejectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Gate reviews suggestions interactively. Input and output are
// injectable so tests can drive decisions without a terminal.
type Gate struct {
	store *suggestion.Store
	in    *bufio.Reader
	out   io.Writer
}

// NewGate creates a Gate over the given suggestion store, reading
// decisions from in and writing the presentation to out.
func NewGate(store *suggestion.Store, in io.Reader, out io.Writer) *Gate {
	return &Gate{
		store: store,
		in:    bufio.NewReader(in),
		out:   out,
	}
}

// Review resolves a suggestion by id prefix, presents it, and records
// the decision. Zero matches and ambiguous prefixes surface the
// suggestion package's sentinel errors unchanged so the CLI can map
// them to exit codes. Re-reviewing is allowed and simply overwrites the
// decision fields.
func (g *Gate) Review(idPrefix string) (Outcome, error) {
	sug, err := g.store.FindByPrefix(idPrefix)
	if err != nil {
		return "", err
	}

	g.present(sug)

	decision, err := g.prompt()
	if err != nil {
		return "", err
	}

	switch decision {
	case OutcomeSkipped:
		fmt.Fprintln(g.out, "Skipped; suggestion left pending.")
		return OutcomeSkipped, nil
	case OutcomeApproved:
		sug.Status = suggestion.StatusApproved
		sug.Approved = true
	case OutcomeRejected:
		sug.Status = suggestion.StatusRejected
		sug.Approved = false
	}

	now := time.Now().UTC()
	sug.ReviewedAt = &now

	if err := g.store.Save(sug); err != nil {
		return "", fmt.Errorf("persist review decision: %w", err)
	}

	if decision == OutcomeApproved {
		fmt.Fprintln(g.out, approvedStyle.Render("Approved."))
	} else {
		fmt.Fprintln(g.out, rejectedStyle.Render("Rejected."))
	}
	return decision, nil
}

// present renders the suggestion's analysis and affected files.
func (g *Gate) present(sug *suggestion.Suggestion) {
	fmt.Fprintln(g.out, titleStyle.Render(fmt.Sprintf("Suggestion %s", shortID(sug.SuggestionID))))
	fmt.Fprintf(g.out, "%s %s\n", labelStyle.Render("Task:"), sug.TaskID)
	fmt.Fprintf(g.out, "%s %s\n", labelStyle.Render("Status:"), sug.Status)
	fmt.Fprintf(g.out, "%s %s\n", labelStyle.Render("Created:"), sug.CreatedAt.Format(time.RFC3339))

	if len(sug.Files) > 0 {
		fmt.Fprintln(g.out, labelStyle.Render("Files:"))
		for _, f := range sug.Files {
			fmt.Fprintf(g.out, "  %s\n", fileStyle.Render(f))
		}
	}

	fmt.Fprintln(g.out, labelStyle.Render("Analysis:"))
	fmt.Fprintln(g.out, sug.AIAnalysis)
}

// prompt reads one decision, re-asking on unrecognized input.
func (g *Gate) prompt() (Outcome, error) {
	for {
		fmt.Fprint(g.out, "\nApprove this fix? [a]pprove / [r]eject / [s]kip: ")

		line, err := g.in.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF {
				// End of input without a decision reads as skip.
				return OutcomeSkipped, nil
			}
			return "", fmt.Errorf("read decision: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "a", "approve", "y", "yes":
			return OutcomeApproved, nil
		case "r", "reject", "n", "no":
			return OutcomeRejected, nil
		case "s", "skip":
			return OutcomeSkipped, nil
		default:
			fmt.Fprintln(g.out, "Please answer a, r, or s.")
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
