package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/oakline/policyagent/internal/config"
	"github.com/oakline/policyagent/internal/evals"
	"github.com/oakline/policyagent/internal/provider"
)

func NewEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run the golden evaluation dataset",
		Long: `Eval runs the golden policy cases against the agent and grades the
outcomes. With --mock it exercises the harness with a heuristic agent
instead of calling a model; with --judge the fast model grades responses
as an LLM judge instead of the rule-based scorer.`,
		RunE: runEval,
	}

	cmd.Flags().Bool("mock", false, "Use the heuristic mock agent instead of a model")
	cmd.Flags().Bool("judge", false, "Grade with the fast model as LLM judge")
	cmd.Flags().String("category", "", "Filter cases by category (travel|expense|approval|edge_case|negative)")
	cmd.Flags().String("output", "", "Write the full report to a JSON file")

	return cmd
}

func runEval(cmd *cobra.Command, args []string) error {
	mock, _ := cmd.Flags().GetBool("mock")
	judge, _ := cmd.Flags().GetBool("judge")
	category, _ := cmd.Flags().GetString("category")
	output, _ := cmd.Flags().GetString("output")

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var target evals.AgentRunner
	if mock {
		target = evals.MockAgent{}
	} else {
		a, err := buildAgent(ctx, cfg)
		if err != nil {
			return err
		}
		target = a
	}

	grader := evals.NewGrader(nil)
	if judge {
		judgeModel, err := provider.NewFastChatModel(ctx, cfg)
		if err != nil {
			return fmt.Errorf("judge model unavailable: %w", err)
		}
		grader = evals.NewGrader(judgeModel)
	}

	runner := evals.NewRunner(target, grader)
	runner.OnCaseDone = func(i, total int, res evals.CaseResult) {
		status := fmt.Sprintf("PASS (%.0f%%)", res.Grade.Score*100)
		switch {
		case res.Error != "":
			status = "ERROR"
		case !res.Grade.Passed:
			status = fmt.Sprintf("FAIL (%.0f%%)", res.Grade.Score*100)
		}
		fmt.Printf("[%d/%d] %s: %s\n", i+1, total, res.Case.ID, status)
	}

	var report *evals.Report
	if category != "" {
		cat, ok := evals.ParseCategory(category)
		if !ok {
			return fmt.Errorf("invalid category %q (valid: travel, expense, approval, edge_case, negative)", category)
		}
		report, err = runner.RunCategory(ctx, cat)
	} else {
		report, err = runner.RunAll(ctx)
	}
	if err != nil {
		return err
	}

	printReport(report)

	if output != "" {
		if err := report.Save(output); err != nil {
			return err
		}
		fmt.Printf("\nReport saved to: %s\n", output)
	}

	return nil
}

func printReport(report *evals.Report) {
	var (
		headerStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#8E4EC6")). // Purple
				Padding(0, 1).
				MarginTop(1).
				MarginBottom(1)

		wCategory = 12
		wPassed   = 8
		wFailed   = 8
		wRate     = 8

		colHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#8E4EC6")).
				Bold(true).
				MarginRight(1)

		cellStyle = lipgloss.NewStyle().MarginRight(1)

		passColor = lipgloss.Color("#2E8B57") // SeaGreen
		warnColor = lipgloss.Color("#FFA500") // Orange
		failColor = lipgloss.Color("#B22222") // Firebrick
	)

	fmt.Println(headerStyle.Render("Evaluation Report"))
	fmt.Printf("  Total: %d  Passed: %d  Failed: %d  Errors: %d\n", report.Total, report.Passed, report.Failed, report.Errors)
	fmt.Printf("  Pass rate: %.1f%%  Average score: %.1f%%  Average duration: %s\n\n",
		report.PassRate*100, report.AvgScore*100, report.AvgDuration.Round(time.Millisecond))

	headers := lipgloss.JoinHorizontal(lipgloss.Top,
		colHeaderStyle.Width(wCategory).Render("CATEGORY"),
		colHeaderStyle.Width(wPassed).Render("PASSED"),
		colHeaderStyle.Width(wFailed).Render("FAILED"),
		colHeaderStyle.Width(wRate).Render("RATE"),
	)
	fmt.Printf("  %s\n", headers)

	sepStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginRight(1)
	separator := lipgloss.JoinHorizontal(lipgloss.Top,
		sepStyle.Render(strings.Repeat("─", wCategory)),
		sepStyle.Render(strings.Repeat("─", wPassed)),
		sepStyle.Render(strings.Repeat("─", wFailed)),
		sepStyle.Render(strings.Repeat("─", wRate)),
	)
	fmt.Printf("  %s\n", separator)

	for _, cat := range evals.Categories() {
		stats, ok := report.ByCategory[cat]
		if !ok {
			continue
		}
		rateColor := passColor
		if stats.PassRate() < 1.0 {
			rateColor = warnColor
		}
		if stats.PassRate() < 0.5 {
			rateColor = failColor
		}
		row := lipgloss.JoinHorizontal(lipgloss.Top,
			cellStyle.Width(wCategory).Render(string(cat)),
			cellStyle.Width(wPassed).Render(fmt.Sprintf("%d", stats.Passed)),
			cellStyle.Width(wFailed).Render(fmt.Sprintf("%d", stats.Failed)),
			cellStyle.Width(wRate).Foreground(rateColor).Render(fmt.Sprintf("%.0f%%", stats.PassRate()*100)),
		)
		fmt.Printf("  %s\n", row)
	}

	if failures := report.Failures(); len(failures) > 0 {
		fmt.Println("\n  Failures:")
		for _, f := range failures {
			if f.Error != "" {
				fmt.Printf("    %s: error: %s\n", f.Case.ID, f.Error)
				continue
			}
			fmt.Printf("    %s: score %.0f%% (approval=%s policy=%s confidence=%s escalation=%s)\n",
				f.Case.ID, f.Grade.Score*100, f.Grade.Approval, f.Grade.Policy, f.Grade.Confidence, f.Grade.Escalation)
		}
	}

	fmt.Println()
	switch {
	case report.PassRate >= 0.9:
		fmt.Println("  " + lipgloss.NewStyle().Foreground(passColor).Bold(true).Render("OVERALL: PASS (>=90% pass rate)"))
	case report.PassRate >= 0.7:
		fmt.Println("  " + lipgloss.NewStyle().Foreground(warnColor).Bold(true).Render("OVERALL: MARGINAL (70-90% pass rate)"))
	default:
		fmt.Println("  " + lipgloss.NewStyle().Foreground(failColor).Bold(true).Render("OVERALL: FAIL (<70% pass rate)"))
	}
}
