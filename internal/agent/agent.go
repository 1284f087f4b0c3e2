// Package agent orchestrates the policy question workflow: input guardrail,
// tool use loop against the policy toolbox, and output guardrail with
// escalation on the final decision.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/oakline/policyagent/internal/audit"
	"github.com/oakline/policyagent/internal/guardrails"
	"github.com/oakline/policyagent/internal/metrics"
	"github.com/oakline/policyagent/internal/tools"
)

const defaultMaxIterations = 10

// Response is the outcome of one agent run.
type Response struct {
	// RawText is the model's final text with PII redacted.
	RawText string
	// Decision is the parsed structured decision, nil when the final text
	// failed output validation.
	Decision *guardrails.Decision
	// ValidationError explains why Decision is nil.
	ValidationError string
	// SafetyIssues lists PII categories found in the final text.
	SafetyIssues []string
	// ToolCalls is the audit trail of executed tools in order.
	ToolCalls []ToolCallRecord
	// RetrievalConfidence is the top score of the last policy search, or
	// 1.0 when no search ran.
	RetrievalConfidence float64
	// Amount is the expense amount from the last approval check, 0 if none.
	Amount float64
	// Escalated reports whether escalation policy fired on this run.
	Escalated bool
	// EscalationReason explains the escalation when Escalated is true.
	EscalationReason string
	// Iterations is the number of model turns used.
	Iterations int
}

// Options configures an Agent. Zero values fall back to defaults.
type Options struct {
	Input         *guardrails.InputGuardrail
	Output        *guardrails.OutputGuardrail
	Escalation    guardrails.EscalationPolicy
	Audit         *audit.Writer
	Metrics       *metrics.RuntimeMetrics
	MaxIterations int
}

// Agent runs policy questions through the guarded tool loop.
type Agent struct {
	model         model.ChatModel
	tools         *tools.Registry
	input         *guardrails.InputGuardrail
	output        *guardrails.OutputGuardrail
	escalation    guardrails.EscalationPolicy
	audit         *audit.Writer
	metrics       *metrics.RuntimeMetrics
	maxIterations int

	OnToolStart  func(name, args string)
	OnToolFinish func(name, result string, err error)
}

// New creates an agent over a chat model and a tool registry.
func New(chatModel model.ChatModel, registry *tools.Registry, opts Options) *Agent {
	input := opts.Input
	if input == nil {
		input = guardrails.NewInputGuardrail(0, nil)
	}
	output := opts.Output
	if output == nil {
		output = guardrails.NewOutputGuardrail()
	}
	escalation := opts.Escalation
	if escalation == (guardrails.EscalationPolicy{}) {
		escalation = guardrails.DefaultEscalationPolicy()
	}
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	return &Agent{
		model:         chatModel,
		tools:         registry,
		input:         input,
		output:        output,
		escalation:    escalation,
		audit:         opts.Audit,
		metrics:       opts.Metrics,
		maxIterations: maxIterations,
	}
}

func (a *Agent) bindTools(ctx context.Context) error {
	if a.model == nil || a.tools == nil {
		return nil
	}
	toolInfos, err := a.tools.GetToolInfos(ctx)
	if err != nil {
		return err
	}
	if binder, ok := a.model.(interface {
		BindTools([]*schema.ToolInfo) error
	}); ok {
		return binder.BindTools(toolInfos)
	}
	return nil
}

// Run answers one policy question. A guardrail rejection returns an
// InputRejectedError without calling the model; exhausting the iteration
// budget returns the partial response alongside ErrMaxIterations.
func (a *Agent) Run(ctx context.Context, query string) (*Response, error) {
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = NewRequestID()
		ctx = WithRequestID(ctx, requestID)
	}

	validation := a.input.Validate(query)
	if !validation.Valid {
		slog.Warn("input rejected", "request_id", requestID, "risk", validation.RiskLevel, "error", validation.ErrorMessage)
		a.appendAudit(audit.Event{
			Type:      audit.TypeInputRejected,
			RequestID: requestID,
			Result:    validation.ErrorMessage,
			RiskLevel: string(validation.RiskLevel),
		})
		if _, err := a.metrics.RecordRequest(true, false); err != nil {
			slog.Warn("record request metrics failed", "error", err)
		}
		return nil, &InputRejectedError{Result: validation}
	}

	if err := a.bindTools(ctx); err != nil {
		return nil, err
	}

	conv := NewConversation(BuildMessages(validation.SanitizedInput))

	for conv.Iterations() < a.maxIterations {
		resp, err := a.model.Generate(ctx, conv.Messages())
		if err != nil {
			return nil, err
		}
		conv.AddModelTurn(resp)
		if conv.Terminal() {
			break
		}
		results, records := a.executeToolCalls(ctx, requestID, resp.ToolCalls)
		conv.AddToolResults(results, records)
	}

	if !conv.Terminal() {
		resp := a.finalize(requestID, conv)
		return resp, ErrMaxIterations
	}
	return a.finalize(requestID, conv), nil
}

// executeToolCalls runs one turn's tool calls concurrently and returns the
// result messages in the original call order.
func (a *Agent) executeToolCalls(ctx context.Context, requestID string, calls []schema.ToolCall) ([]*schema.Message, []ToolCallRecord) {
	type toolResult struct {
		index  int
		msg    *schema.Message
		record ToolCallRecord
	}

	resultChan := make(chan toolResult, len(calls))
	var wg sync.WaitGroup

	for i, tc := range calls {
		wg.Add(1)
		go func(i int, tc schema.ToolCall) {
			defer wg.Done()
			toolStart := time.Now()
			slog.Debug("executing tool", "request_id", requestID, "name", tc.Function.Name)

			if a.OnToolStart != nil {
				a.OnToolStart(tc.Function.Name, tc.Function.Arguments)
			}

			result, err := a.tools.Execute(ctx, tc.Function.Name, tc.Function.Arguments)
			if err != nil {
				result = "Error: " + err.Error()
			}

			a.appendAudit(audit.Event{
				Type:      audit.TypeToolExecution,
				RequestID: requestID,
				Tool:      tc.Function.Name,
				Result:    truncateForAudit(result),
			})

			toolDuration := time.Since(toolStart)
			logAttrs := []any{
				"request_id", requestID,
				"tool", tc.Function.Name,
				"duration_ms", toolDuration.Milliseconds(),
				"success", err == nil,
			}
			if a.metrics != nil {
				snapshot, metricErr := a.metrics.RecordToolExecution(toolDuration, result, err)
				if metricErr != nil {
					slog.Warn("record runtime metrics failed", "scope", "tool", "error", metricErr)
				}
				logAttrs = append(logAttrs,
					"tool_total", snapshot.Tool.Total,
					"tool_error_ratio", snapshot.Tool.ErrorRatio(),
					"tool_latency_p95_proxy_ms", snapshot.Tool.P95ProxyLatencyMs,
				)
			}
			slog.Info("tool execution finished", logAttrs...)

			if a.OnToolFinish != nil {
				a.OnToolFinish(tc.Function.Name, result, err)
			}

			resultChan <- toolResult{
				index: i,
				msg: &schema.Message{
					Role:       schema.Tool,
					Content:    result,
					ToolCallID: tc.ID,
				},
				record: ToolCallRecord{
					Tool:   tc.Function.Name,
					Input:  tc.Function.Arguments,
					Output: result,
				},
			}
		}(i, tc)
	}

	wg.Wait()
	close(resultChan)

	// Collect results and sort them to maintain original order
	messages := make([]*schema.Message, len(calls))
	records := make([]ToolCallRecord, len(calls))
	for res := range resultChan {
		messages[res.index] = res.msg
		records[res.index] = res.record
	}
	return messages, records
}

// finalize validates the model's last text, derives the confidence signals
// from the tool trail, and applies escalation policy.
func (a *Agent) finalize(requestID string, conv *Conversation) *Response {
	resp := &Response{
		ToolCalls:           conv.ToolCalls(),
		RetrievalConfidence: retrievalConfidence(conv.ToolCalls()),
		Amount:              lastApprovalAmount(conv.ToolCalls()),
		Iterations:          conv.Iterations(),
	}

	raw := conv.FinalText()
	resp.SafetyIssues = a.output.CheckSafety(raw)
	if len(resp.SafetyIssues) > 0 {
		a.appendAudit(audit.Event{
			Type:      audit.TypePIIDetected,
			RequestID: requestID,
			Result:    strings.Join(resp.SafetyIssues, ", "),
		})
		raw = a.output.RedactPII(raw)
	}
	resp.RawText = raw

	valid, decision, err := a.output.ValidateOutput(raw)
	if valid {
		resp.Decision = decision
	} else if err != nil {
		resp.ValidationError = err.Error()
	}

	decisionConfidence := 0.0
	if resp.Decision != nil {
		decisionConfidence = resp.Decision.Confidence
	}
	escalate, reason := a.escalation.ShouldEscalate(resp.RetrievalConfidence, decisionConfidence, resp.Amount)
	if escalate {
		resp.Escalated = true
		resp.EscalationReason = reason
		if resp.Decision != nil {
			resp.Decision.RequiresEscalation = true
			if resp.Decision.EscalationReason == nil || *resp.Decision.EscalationReason == "" {
				resp.Decision.EscalationReason = &reason
			}
		}
		a.appendAudit(audit.Event{
			Type:      audit.TypeEscalation,
			RequestID: requestID,
			Reason:    reason,
		})
	}

	if resp.Decision != nil {
		verdict := "rejected"
		if resp.Decision.Approved {
			verdict = "approved"
		}
		a.appendAudit(audit.Event{
			Type:      audit.TypeDecision,
			RequestID: requestID,
			Result:    verdict,
			Reason:    resp.Decision.PolicyReference,
		})
	}

	if _, err := a.metrics.RecordRequest(false, resp.Escalated); err != nil {
		slog.Warn("record request metrics failed", "error", err)
	}
	return resp
}

func (a *Agent) appendAudit(event audit.Event) {
	if a.audit == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if err := a.audit.Append(event); err != nil {
		slog.Warn("append audit event failed", "type", event.Type, "error", err)
	}
}

// retrievalConfidence extracts the top score of the last policy search in
// the tool trail. No search means no retrieval claim to doubt, so 1.0.
func retrievalConfidence(records []ToolCallRecord) float64 {
	confidence := 1.0
	for _, rec := range records {
		if rec.Tool != tools.NamePolicySearch {
			continue
		}
		var out struct {
			Results []struct {
				Score float64 `json:"score"`
			} `json:"results"`
		}
		if err := json.Unmarshal([]byte(rec.Output), &out); err != nil || len(out.Results) == 0 {
			continue
		}
		top := out.Results[0].Score
		for _, r := range out.Results[1:] {
			if r.Score > top {
				top = r.Score
			}
		}
		confidence = top
	}
	return confidence
}

// lastApprovalAmount extracts the amount of the last approval check input.
func lastApprovalAmount(records []ToolCallRecord) float64 {
	amount := 0.0
	for _, rec := range records {
		if rec.Tool != tools.NameApprovalCheck {
			continue
		}
		var in struct {
			Amount float64 `json:"amount"`
		}
		if err := json.Unmarshal([]byte(rec.Input), &in); err != nil {
			continue
		}
		amount = in.Amount
	}
	return amount
}

func truncateForAudit(result string) string {
	const maxAuditResult = 2000
	if len(result) <= maxAuditResult {
		return result
	}
	return result[:maxAuditResult] + "...(truncated)"
}
