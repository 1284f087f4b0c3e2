package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oakline/policyagent/internal/config"
	"github.com/oakline/policyagent/internal/index"
	"github.com/oakline/policyagent/internal/metrics"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show PolicyAgent configuration status",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("=== PolicyAgent Status ===")
	fmt.Println()

	fmt.Printf("Config: %s\n", config.ConfigPath())
	if _, err := os.Stat(config.ConfigPath()); err == nil {
		fmt.Println("  Status: OK")
	} else {
		fmt.Println("  Status: Not found (run 'policyagent init')")
	}

	fmt.Printf("\nModel: %s (fast: %s)\n", cfg.Agent.Model, cfg.Agent.FastModel)

	fmt.Println("\nProviders:")
	providers := map[string]string{
		"Claude":     cfg.Providers.Claude.APIKey,
		"OpenRouter": cfg.Providers.OpenRouter.APIKey,
		"OpenAI":     cfg.Providers.OpenAI.APIKey,
		"DeepSeek":   cfg.Providers.DeepSeek.APIKey,
		"Ollama":     cfg.Providers.Ollama.BaseURL,
	}
	for name, key := range providers {
		status := "Not configured"
		if key != "" {
			status = "Configured"
		}
		fmt.Printf("  %s: %s\n", name, status)
	}

	fmt.Println("\nData:")
	for label, path := range map[string]string{
		"Policies":  cfg.PoliciesPath(),
		"Employees": cfg.EmployeesPath(),
		"Rules":     cfg.RulesPath(),
	} {
		status := "missing"
		if _, err := os.Stat(path); err == nil {
			status = "OK"
		}
		fmt.Printf("  %s: %s (%s)\n", label, path, status)
	}
	if chunks, err := index.LoadCorpus(cfg.PoliciesPath()); err == nil {
		fmt.Printf("  Corpus: %d policy sections\n", len(chunks))
	}

	fmt.Println("\nTools:")
	fmt.Println("  policy_get_employee_info: ready")
	fmt.Println("  policy_search_manual: ready")
	fmt.Println("  policy_check_approval_threshold: ready")

	fmt.Println("\nGuardrails:")
	fmt.Printf("  Max input length: %d\n", cfg.Guardrails.MaxInputLength)
	fmt.Printf("  Injection patterns: %d\n", len(cfg.Guardrails.InjectionPatterns))

	fmt.Println("\nEscalation:")
	fmt.Printf("  Retrieval confidence below: %.2f\n", cfg.Escalation.RetrievalThreshold)
	fmt.Printf("  Decision confidence below:  %.2f\n", cfg.Escalation.DecisionThreshold)
	fmt.Printf("  Amount above:               $%.2f\n", cfg.Escalation.AmountThreshold)

	fmt.Println("\nRuntime Metrics:")
	snapshot, err := metrics.ReadRuntimeSnapshot(cfg.Agent.StateDir)
	if err != nil || !snapshot.HasData() {
		fmt.Println("  No data yet.")
		return nil
	}
	fmt.Printf("  Requests: %d total, %d rejected (%.1f%%), %d escalated\n",
		snapshot.Request.Total, snapshot.Request.Rejected, snapshot.Request.RejectionRatio()*100, snapshot.Request.Escalations)
	fmt.Printf("  Tool executions: %d total, error ratio %.1f%%, timeout ratio %.1f%%\n",
		snapshot.Tool.Total, snapshot.Tool.ErrorRatio()*100, snapshot.Tool.TimeoutRatio()*100)
	fmt.Printf("  Tool latency: avg %.0fms, p95 proxy %dms\n",
		snapshot.Tool.AvgLatencyMs(), snapshot.Tool.P95ProxyLatencyMs)

	return nil
}
