package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/oakline/policyagent/internal/agent"
)

var (
	approvedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2E8B57")). // SeaGreen
			Padding(0, 1)

	rejectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#B22222")). // Firebrick
			Padding(0, 1)

	escalationStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFA500")) // Orange

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8E4EC6")). // Purple
			Bold(true)

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			MarginTop(1)
)

// renderDecision formats the structured outcome of a run as a bordered panel.
func renderDecision(resp *agent.Response) string {
	var b strings.Builder

	if resp.Decision == nil {
		b.WriteString(rejectedStyle.Render("NO DECISION"))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Problem:"), resp.ValidationError)
	} else {
		d := resp.Decision
		if d.Approved {
			b.WriteString(approvedStyle.Render("APPROVED"))
		} else {
			b.WriteString(rejectedStyle.Render("REJECTED"))
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Reason:"), d.Reason)
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Policy:"), d.PolicyReference)
		fmt.Fprintf(&b, "%s %.0f%%\n", labelStyle.Render("Confidence:"), d.Confidence*100)
	}

	fmt.Fprintf(&b, "%s %.0f%%\n", labelStyle.Render("Retrieval:"), resp.RetrievalConfidence*100)
	fmt.Fprintf(&b, "%s %d tool call(s), %d iteration(s)", labelStyle.Render("Trace:"), len(resp.ToolCalls), resp.Iterations)

	if resp.Escalated {
		b.WriteString("\n")
		b.WriteString(escalationStyle.Render("⚠ Escalated for human review: " + resp.EscalationReason))
	}

	return panelStyle.Render(b.String())
}

func renderToolStart(name string) string {
	return toolStyle.Render("⚙ " + name + " ...")
}

func renderToolEnd(name string) string {
	return toolStyle.Render("⚙ " + name + " done")
}
