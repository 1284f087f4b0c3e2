package commands

import (
	"context"
	"fmt"

	"github.com/oakline/policyagent/internal/agent"
	"github.com/oakline/policyagent/internal/audit"
	"github.com/oakline/policyagent/internal/config"
	"github.com/oakline/policyagent/internal/directory"
	"github.com/oakline/policyagent/internal/guardrails"
	"github.com/oakline/policyagent/internal/index"
	"github.com/oakline/policyagent/internal/metrics"
	"github.com/oakline/policyagent/internal/provider"
	"github.com/oakline/policyagent/internal/tools"
)

// buildToolbox loads the reference data and registers the policy tools. The
// index service embeds the corpus lazily on first search.
func buildToolbox(cfg *config.Config) (*tools.Registry, *index.Service, error) {
	store, err := directory.Load(cfg.EmployeesPath(), cfg.RulesPath())
	if err != nil {
		return nil, nil, fmt.Errorf("load employee directory: %w", err)
	}

	embedder, err := provider.NewEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}
	service := index.NewService(embedder, cfg.Retrieval.ConfidenceThreshold, cfg.PoliciesPath())

	reg := tools.NewRegistry()
	if err := tools.RegisterPolicyTools(reg, store, service); err != nil {
		return nil, nil, err
	}
	return reg, service, nil
}

// buildAgent wires the complete agent: model, toolbox, guardrails, audit
// trail and runtime metrics.
func buildAgent(ctx context.Context, cfg *config.Config) (*agent.Agent, error) {
	model, err := provider.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reg, _, err := buildToolbox(cfg)
	if err != nil {
		return nil, err
	}

	return agent.New(model, reg, agent.Options{
		Input:  guardrails.NewInputGuardrail(cfg.Guardrails.MaxInputLength, cfg.Guardrails.InjectionPatterns),
		Output: guardrails.NewOutputGuardrail(),
		Escalation: guardrails.EscalationPolicy{
			RetrievalThreshold: cfg.Escalation.RetrievalThreshold,
			DecisionThreshold:  cfg.Escalation.DecisionThreshold,
			AmountThreshold:    cfg.Escalation.AmountThreshold,
		},
		Audit:         audit.NewWriter(cfg.Agent.StateDir),
		Metrics:       metrics.NewRuntimeMetrics(cfg.Agent.StateDir),
		MaxIterations: cfg.Agent.MaxIterations,
	}), nil
}
