package evals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/oakline/policyagent/internal/agent"
	"github.com/oakline/policyagent/internal/guardrails"
)

// AgentRunner answers one policy query. *agent.Agent satisfies this; MockAgent
// lets the harness run without a model behind it.
type AgentRunner interface {
	Run(ctx context.Context, query string) (*agent.Response, error)
}

// CaseResult is one case's run plus its grade.
type CaseResult struct {
	Case     Case          `json:"case"`
	Outcome  Outcome       `json:"outcome"`
	Grade    Grade         `json:"grade"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// Failed reports whether this result counts against the pass rate.
func (r CaseResult) Failed() bool {
	return r.Error != "" || !r.Grade.Passed
}

// CategoryStats aggregates pass/fail counts for one category.
type CategoryStats struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// PassRate is the fraction of passed cases in this category.
func (s CategoryStats) PassRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total)
}

// Report summarizes one evaluation run.
type Report struct {
	Timestamp   time.Time                  `json:"timestamp"`
	Total       int                        `json:"total"`
	Passed      int                        `json:"passed"`
	Failed      int                        `json:"failed"`
	Errors      int                        `json:"errors"`
	PassRate    float64                    `json:"pass_rate"`
	AvgScore    float64                    `json:"avg_score"`
	AvgDuration time.Duration              `json:"avg_duration_ns"`
	ByCategory  map[Category]CategoryStats `json:"by_category"`
	Results     []CaseResult               `json:"results"`
}

// Failures returns the results that did not pass, errors included.
func (r *Report) Failures() []CaseResult {
	var out []CaseResult
	for _, res := range r.Results {
		if res.Failed() {
			out = append(out, res)
		}
	}
	return out
}

// Save writes the report as indented JSON.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Runner executes golden cases against an agent and grades the outcomes.
type Runner struct {
	agent  AgentRunner
	grader *Grader

	// OnCaseDone, when set, is called after each case for progress output.
	OnCaseDone func(index, total int, result CaseResult)
}

// NewRunner builds a runner. A nil grader means rule-based grading.
func NewRunner(a AgentRunner, g *Grader) *Runner {
	if g == nil {
		g = NewGrader(nil)
	}
	return &Runner{agent: a, grader: g}
}

// RunAll runs the whole golden dataset.
func (r *Runner) RunAll(ctx context.Context) (*Report, error) {
	return r.Run(ctx, AllCases())
}

// RunCategory runs the golden cases of one category.
func (r *Runner) RunCategory(ctx context.Context, cat Category) (*Report, error) {
	cases := CasesByCategory(cat)
	if len(cases) == 0 {
		return nil, fmt.Errorf("no cases for category %q", cat)
	}
	return r.Run(ctx, cases)
}

// Run executes the given cases in order and aggregates the report.
func (r *Runner) Run(ctx context.Context, cases []Case) (*Report, error) {
	if len(cases) == 0 {
		return nil, errors.New("no cases to run")
	}

	report := &Report{
		Timestamp:  time.Now().UTC(),
		Total:      len(cases),
		ByCategory: make(map[Category]CategoryStats),
	}

	var totalScore float64
	var totalDuration time.Duration
	for i, c := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := r.runCase(ctx, c)
		report.Results = append(report.Results, result)
		totalDuration += result.Duration

		stats := report.ByCategory[c.Category]
		stats.Total++
		switch {
		case result.Error != "":
			report.Errors++
			stats.Failed++
		case result.Grade.Passed:
			report.Passed++
			stats.Passed++
			totalScore += result.Grade.Score
		default:
			report.Failed++
			stats.Failed++
			totalScore += result.Grade.Score
		}
		report.ByCategory[c.Category] = stats

		if r.OnCaseDone != nil {
			r.OnCaseDone(i, len(cases), result)
		}
	}

	report.PassRate = float64(report.Passed) / float64(report.Total)
	report.AvgScore = totalScore / float64(report.Total)
	report.AvgDuration = totalDuration / time.Duration(report.Total)
	return report, nil
}

func (r *Runner) runCase(ctx context.Context, c Case) CaseResult {
	start := time.Now()
	resp, err := r.agent.Run(ctx, fmt.Sprintf("Employee %s: %s", c.EmployeeID, c.Query))
	duration := time.Since(start)

	// A run that hit the iteration budget still carries a gradeable partial
	// response; anything else without a response is an error.
	if err != nil && !(errors.Is(err, agent.ErrMaxIterations) && resp != nil) {
		slog.Warn("eval case errored", "case_id", c.ID, "error", err)
		return CaseResult{Case: c, Duration: duration, Error: err.Error()}
	}

	out := outcomeFromResponse(resp)
	return CaseResult{
		Case:     c,
		Outcome:  out,
		Grade:    r.grader.Grade(ctx, c, out),
		Duration: duration,
	}
}

// outcomeFromResponse lifts the agent response into the gradeable shape. The
// forced-escalation flag counts as escalation even when the decision itself
// did not request it.
func outcomeFromResponse(resp *agent.Response) Outcome {
	out := Outcome{ResponseText: resp.RawText}
	if resp.Decision != nil {
		d := resp.Decision
		out.Approved = &d.Approved
		out.PolicyRef = d.PolicyReference
		out.Confidence = &d.Confidence
		escalation := d.RequiresEscalation || resp.Escalated
		out.Escalation = &escalation
	} else if resp.Escalated {
		escalation := true
		out.Escalation = &escalation
	}
	return out
}

// MockAgent answers from keyword heuristics instead of a model, so the eval
// harness itself can be exercised quickly and for free.
type MockAgent struct{}

// Run produces a canned decision for the query.
func (MockAgent) Run(_ context.Context, query string) (*agent.Response, error) {
	q := strings.ToLower(query)

	decision := &guardrails.Decision{
		Approved:        false,
		Reason:          "Mock response for: " + truncateQuery(query),
		PolicyReference: "unknown",
		Confidence:      0.85,
	}

	switch {
	case strings.Contains(q, "first class"):
		decision.PolicyReference = "travel-001"
		if strings.Contains(q, "director") || strings.Contains(q, "vp") {
			decision.Approved = true
			decision.RequiresEscalation = true
		}
	case strings.Contains(q, "business class"):
		decision.PolicyReference = "travel-001"
	case strings.Contains(q, "hotel"):
		decision.PolicyReference = "travel-002"
		decision.Approved = true
	case strings.Contains(q, "meal"), strings.Contains(q, "dinner"):
		decision.PolicyReference = "expense-001"
		decision.Approved = true
	case strings.Contains(q, "software"):
		decision.PolicyReference = "expense-002"
		decision.Approved = true
	case strings.Contains(q, "approve") && strings.Contains(q, "own"):
		decision.PolicyReference = "approval-002"
		decision.Confidence = 0.95
	}

	raw, _ := json.Marshal(decision)
	return &agent.Response{
		RawText:             "```json\n" + string(raw) + "\n```",
		Decision:            decision,
		RetrievalConfidence: 1.0,
		Iterations:          1,
	}, nil
}

func truncateQuery(query string) string {
	if len(query) <= 50 {
		return query
	}
	return query[:50] + "..."
}
