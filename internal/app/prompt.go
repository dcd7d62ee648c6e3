package app

import (
	"fmt"
	"strings"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

// buildPrompt renders the task prompt handed to a coding agent.
func buildPrompt(g models.GrandchildTicket) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Ticket %s: %s\n", g.ID, g.Title)
	if g.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", g.Description)
	}
	if len(g.AcceptanceCriteria) > 0 {
		sb.WriteString("\nAcceptance criteria:\n")
		for _, c := range g.AcceptanceCriteria {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
	}
	if g.GitBranch != "" {
		fmt.Fprintf(&sb, "\nWork on branch %s.\n", g.GitBranch)
	}
	return sb.String()
}
