package evals

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// PassThreshold is the minimum score for a case to count as passed.
const PassThreshold = 0.7

// Scoring weights. Approval dominates because a wrong verdict is worse than
// a wrong citation.
const (
	weightApproval   = 0.4
	weightPolicy     = 0.2
	weightConfidence = 0.2
	weightEscalation = 0.2
)

// Verdict is the grade on one criterion.
type Verdict string

const (
	VerdictCorrect Verdict = "correct"
	VerdictPartial Verdict = "partial"
	VerdictWrong   Verdict = "wrong"
	// VerdictSkipped means the criterion did not apply, e.g. no policy was
	// expected or the response carried no confidence at all.
	VerdictSkipped Verdict = "skipped"
)

// Outcome is what the agent actually produced for one case. Pointer fields
// are nil when the response had no parseable decision.
type Outcome struct {
	Approved     *bool    `json:"approved"`
	PolicyRef    string   `json:"policy_reference"`
	Confidence   *float64 `json:"confidence"`
	Escalation   *bool    `json:"requires_escalation"`
	ResponseText string   `json:"response_text"`
}

// Grade scores one outcome against its golden case.
type Grade struct {
	CaseID      string  `json:"case_id"`
	Passed      bool    `json:"passed"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
	Approval    Verdict `json:"approval"`
	Policy      Verdict `json:"policy"`
	Confidence  Verdict `json:"confidence"`
	Escalation  Verdict `json:"escalation"`
}

const graderSystemPrompt = `You are an evaluation grader for a corporate policy AI system. Your job is to compare the AI's response against expected outcomes and provide a structured grade.

You will receive:
1. The test case with expected outcomes
2. The AI's actual response

Grade based on these criteria:
- **Approval Match (40%)**: Did the AI give the correct approval/rejection decision?
- **Policy Reference (20%)**: Did the AI cite the correct policy?
- **Confidence Appropriate (20%)**: Is the confidence score reasonable for this case?
- **Escalation Correct (20%)**: Did the AI correctly identify if escalation is needed?

Respond with JSON only:
` + "```json" + `
{
  "passed": boolean (true if score >= 0.7),
  "score": float (0.0 to 1.0),
  "approval_correct": boolean,
  "policy_correct": boolean,
  "confidence_appropriate": boolean,
  "escalation_correct": boolean,
  "explanation": "Brief explanation of the grade"
}
` + "```"

var graderFencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// Grader scores agent outcomes. With a model it grades as an LLM judge and
// falls back to rule-based scoring on any failure; without one it is purely
// rule-based.
type Grader struct {
	model model.ChatModel
}

// NewGrader builds a grader. Pass nil for rule-based grading only; the judge
// model should be the cheap/fast one since grading is simpler than generation
// and runs once per case.
func NewGrader(judge model.ChatModel) *Grader {
	return &Grader{model: judge}
}

// Grade scores one case.
func (g *Grader) Grade(ctx context.Context, c Case, out Outcome) Grade {
	if g.model == nil {
		return ruleBasedGrade(c, out)
	}
	grade, err := g.judgeGrade(ctx, c, out)
	if err != nil {
		slog.Warn("llm grading failed, falling back to rule-based", "case_id", c.ID, "error", err)
		return ruleBasedGrade(c, out)
	}
	return grade
}

func (g *Grader) judgeGrade(ctx context.Context, c Case, out Outcome) (Grade, error) {
	resp, err := g.model.Generate(ctx, []*schema.Message{
		{Role: schema.System, Content: graderSystemPrompt},
		{Role: schema.User, Content: judgePrompt(c, out)},
	})
	if err != nil {
		return Grade{}, err
	}

	raw := resp.Content
	if match := graderFencedJSONRe.FindStringSubmatch(raw); match != nil {
		raw = match[1]
	}
	var parsed struct {
		Passed                bool    `json:"passed"`
		Score                 float64 `json:"score"`
		ApprovalCorrect       bool    `json:"approval_correct"`
		PolicyCorrect         bool    `json:"policy_correct"`
		ConfidenceAppropriate bool    `json:"confidence_appropriate"`
		EscalationCorrect     bool    `json:"escalation_correct"`
		Explanation           string  `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return Grade{}, fmt.Errorf("parse judge response: %w", err)
	}

	return Grade{
		CaseID:      c.ID,
		Passed:      parsed.Passed,
		Score:       parsed.Score,
		Explanation: parsed.Explanation,
		Approval:    boolVerdict(parsed.ApprovalCorrect),
		Policy:      boolVerdict(parsed.PolicyCorrect),
		Confidence:  boolVerdict(parsed.ConfidenceAppropriate),
		Escalation:  boolVerdict(parsed.EscalationCorrect),
	}, nil
}

func boolVerdict(ok bool) Verdict {
	if ok {
		return VerdictCorrect
	}
	return VerdictWrong
}

func judgePrompt(c Case, out Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Test Case: %s\n\n", c.ID)
	fmt.Fprintf(&b, "**Query:** %s\n\n", c.Query)
	b.WriteString("### Expected Outcomes\n")
	fmt.Fprintf(&b, "- Approved: %t\n", c.ExpectedApproved)
	fmt.Fprintf(&b, "- Policy Reference: %s\n", c.ExpectedPolicyRef)
	fmt.Fprintf(&b, "- Minimum Confidence: %g\n", c.MinConfidence)
	fmt.Fprintf(&b, "- Requires Escalation: %t\n\n", c.ExpectedEscalation)
	b.WriteString("### Actual AI Response\n")
	fmt.Fprintf(&b, "- Approved: %s\n", formatNullableBool(out.Approved))
	fmt.Fprintf(&b, "- Policy Reference: %s\n", out.PolicyRef)
	fmt.Fprintf(&b, "- Confidence: %s\n", formatNullableFloat(out.Confidence))
	fmt.Fprintf(&b, "- Requires Escalation: %s\n\n", formatNullableBool(out.Escalation))
	fmt.Fprintf(&b, "**Full Response:**\n%s\n\nPlease grade this response.", truncateResponse(out.ResponseText))
	return b.String()
}

func formatNullableBool(v *bool) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("%t", *v)
}

func formatNullableFloat(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.2f", *v)
}

// truncateResponse keeps judge prompts cheap.
func truncateResponse(text string) string {
	const maxJudgeInput = 1500
	if len(text) <= maxJudgeInput {
		return text
	}
	return text[:maxJudgeInput] + "...(truncated)"
}

// ruleBasedGrade is the deterministic fallback so the eval pipeline never
// depends on the judge model being reachable.
func ruleBasedGrade(c Case, out Outcome) Grade {
	grade := Grade{CaseID: c.ID}

	grade.Approval = VerdictWrong
	if out.Approved != nil && *out.Approved == c.ExpectedApproved {
		grade.Score += weightApproval
		grade.Approval = VerdictCorrect
	}

	grade.Policy = VerdictSkipped
	if out.PolicyRef != "" && c.ExpectedPolicyRef != "N/A" {
		switch {
		case out.PolicyRef == c.ExpectedPolicyRef:
			grade.Score += weightPolicy
			grade.Policy = VerdictCorrect
		case strings.Contains(out.PolicyRef, c.ExpectedPolicyRef):
			grade.Score += weightPolicy / 2
			grade.Policy = VerdictPartial
		default:
			grade.Policy = VerdictWrong
		}
	}

	grade.Confidence = VerdictSkipped
	if out.Confidence != nil {
		switch {
		case *out.Confidence >= c.MinConfidence:
			grade.Score += weightConfidence
			grade.Confidence = VerdictCorrect
		case *out.Confidence >= c.MinConfidence-0.2:
			grade.Score += weightConfidence / 2
			grade.Confidence = VerdictPartial
		default:
			grade.Confidence = VerdictWrong
		}
	}

	grade.Escalation = VerdictWrong
	if out.Escalation != nil && *out.Escalation == c.ExpectedEscalation {
		grade.Score += weightEscalation
		grade.Escalation = VerdictCorrect
	}

	grade.Passed = grade.Score >= PassThreshold
	grade.Explanation = fmt.Sprintf("Rule-based grade: %.0f%%", grade.Score*100)
	return grade
}
