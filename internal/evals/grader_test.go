package evals

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

func boolPtr(v bool) *bool { return &v }

func floatPtr(v float64) *float64 { return &v }

func approxEq(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func mustCase(t *testing.T, id string) Case {
	t.Helper()
	c, ok := CaseByID(id)
	if !ok {
		t.Fatalf("missing golden case %q", id)
	}
	return c
}

func TestRuleBasedGrade_PerfectResponse(t *testing.T) {
	c := mustCase(t, "travel-001")
	grade := NewGrader(nil).Grade(context.Background(), c, Outcome{
		Approved:   boolPtr(false),
		PolicyRef:  "travel-001",
		Confidence: floatPtr(0.92),
		Escalation: boolPtr(false),
	})

	if !grade.Passed {
		t.Fatal("expected perfect response to pass")
	}
	if !approxEq(grade.Score, 1.0) {
		t.Fatalf("expected score 1.0, got %g", grade.Score)
	}
	for name, v := range map[string]Verdict{
		"approval":   grade.Approval,
		"policy":     grade.Policy,
		"confidence": grade.Confidence,
		"escalation": grade.Escalation,
	} {
		if v != VerdictCorrect {
			t.Errorf("expected %s verdict %q, got %q", name, VerdictCorrect, v)
		}
	}
}

func TestRuleBasedGrade_WrongApprovalFails(t *testing.T) {
	c := mustCase(t, "travel-001")
	grade := NewGrader(nil).Grade(context.Background(), c, Outcome{
		Approved:   boolPtr(true),
		PolicyRef:  "travel-001",
		Confidence: floatPtr(0.92),
		Escalation: boolPtr(false),
	})

	if grade.Passed {
		t.Fatal("wrong approval verdict must fail the case")
	}
	if !approxEq(grade.Score, 0.6) {
		t.Fatalf("expected score 0.6, got %g", grade.Score)
	}
	if grade.Approval != VerdictWrong {
		t.Fatalf("expected approval verdict %q, got %q", VerdictWrong, grade.Approval)
	}
}

func TestRuleBasedGrade_PartialPolicyCredit(t *testing.T) {
	c := mustCase(t, "travel-001")
	grade := NewGrader(nil).Grade(context.Background(), c, Outcome{
		Approved:   boolPtr(false),
		PolicyRef:  "travel-001 and travel-002",
		Confidence: floatPtr(0.92),
		Escalation: boolPtr(false),
	})

	if !approxEq(grade.Score, 0.9) {
		t.Fatalf("expected score 0.9, got %g", grade.Score)
	}
	if grade.Policy != VerdictPartial {
		t.Fatalf("expected policy verdict %q, got %q", VerdictPartial, grade.Policy)
	}
}

func TestRuleBasedGrade_PartialConfidenceCredit(t *testing.T) {
	c := mustCase(t, "travel-001") // floor 0.8

	grade := ruleBasedGrade(c, Outcome{
		Approved:   boolPtr(false),
		PolicyRef:  "travel-001",
		Confidence: floatPtr(0.65),
		Escalation: boolPtr(false),
	})
	if grade.Confidence != VerdictPartial {
		t.Fatalf("0.65 against floor 0.8: expected %q, got %q", VerdictPartial, grade.Confidence)
	}
	if !approxEq(grade.Score, 0.9) {
		t.Fatalf("expected score 0.9, got %g", grade.Score)
	}

	grade = ruleBasedGrade(c, Outcome{
		Approved:   boolPtr(false),
		PolicyRef:  "travel-001",
		Confidence: floatPtr(0.3),
		Escalation: boolPtr(false),
	})
	if grade.Confidence != VerdictWrong {
		t.Fatalf("0.3 against floor 0.8: expected %q, got %q", VerdictWrong, grade.Confidence)
	}
}

func TestRuleBasedGrade_UnparseableResponseScoresZero(t *testing.T) {
	c := mustCase(t, "travel-001")
	grade := ruleBasedGrade(c, Outcome{ResponseText: "no decision here"})

	if grade.Passed {
		t.Fatal("empty outcome must not pass")
	}
	if !approxEq(grade.Score, 0.0) {
		t.Fatalf("expected score 0, got %g", grade.Score)
	}
	if grade.Policy != VerdictSkipped {
		t.Fatalf("expected policy verdict %q, got %q", VerdictSkipped, grade.Policy)
	}
	if grade.Confidence != VerdictSkipped {
		t.Fatalf("expected confidence verdict %q, got %q", VerdictSkipped, grade.Confidence)
	}
	if grade.Escalation != VerdictWrong {
		t.Fatalf("nil escalation never matches: expected %q, got %q", VerdictWrong, grade.Escalation)
	}
}

func TestRuleBasedGrade_NoExpectedPolicySkipsCriterion(t *testing.T) {
	c := mustCase(t, "negative-001") // expected ref is N/A
	grade := ruleBasedGrade(c, Outcome{
		Approved:   boolPtr(false),
		PolicyRef:  "travel-001",
		Confidence: floatPtr(0.4),
		Escalation: boolPtr(true),
	})

	if grade.Policy != VerdictSkipped {
		t.Fatalf("expected policy verdict %q, got %q", VerdictSkipped, grade.Policy)
	}
	// 0.4 approval + 0.2 confidence (floor 0.0) + 0.2 escalation.
	if !approxEq(grade.Score, 0.8) {
		t.Fatalf("expected score 0.8, got %g", grade.Score)
	}
	if !grade.Passed {
		t.Fatal("expected pass at 0.8")
	}
}

// judgeModel is a scripted chat model for the LLM-judged path.
type judgeModel struct {
	content string
	err     error
	calls   int
}

func (m *judgeModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &schema.Message{Role: schema.Assistant, Content: m.content}, nil
}

func (m *judgeModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if m.err != nil {
		return nil, m.err
	}
	return schema.StreamReaderFromArray([]*schema.Message{{Role: schema.Assistant, Content: m.content}}), nil
}

func (m *judgeModel) BindTools(_ []*schema.ToolInfo) error { return nil }

func TestGrade_LLMJudgeParsed(t *testing.T) {
	judge := &judgeModel{content: "The response looks right.\n```json\n" +
		`{"passed": true, "score": 0.9, "approval_correct": true, "policy_correct": true, "confidence_appropriate": false, "escalation_correct": true, "explanation": "confidence slightly low"}` +
		"\n```"}

	c := mustCase(t, "travel-001")
	grade := NewGrader(judge).Grade(context.Background(), c, Outcome{
		Approved:   boolPtr(false),
		PolicyRef:  "travel-001",
		Confidence: floatPtr(0.75),
		Escalation: boolPtr(false),
	})

	if judge.calls != 1 {
		t.Fatalf("expected 1 judge call, got %d", judge.calls)
	}
	if !grade.Passed || !approxEq(grade.Score, 0.9) {
		t.Fatalf("expected passed at 0.9, got passed=%t score=%g", grade.Passed, grade.Score)
	}
	if grade.Confidence != VerdictWrong {
		t.Fatalf("expected confidence verdict %q, got %q", VerdictWrong, grade.Confidence)
	}
	if grade.Explanation != "confidence slightly low" {
		t.Fatalf("expected judge explanation, got %q", grade.Explanation)
	}
}

func TestGrade_JudgeFailureFallsBackToRules(t *testing.T) {
	judge := &judgeModel{err: errors.New("judge unavailable")}

	c := mustCase(t, "travel-001")
	grade := NewGrader(judge).Grade(context.Background(), c, Outcome{
		Approved:   boolPtr(false),
		PolicyRef:  "travel-001",
		Confidence: floatPtr(0.92),
		Escalation: boolPtr(false),
	})

	if !strings.HasPrefix(grade.Explanation, "Rule-based grade:") {
		t.Fatalf("expected rule-based fallback, got explanation %q", grade.Explanation)
	}
	if !approxEq(grade.Score, 1.0) {
		t.Fatalf("expected fallback score 1.0, got %g", grade.Score)
	}
}

func TestGrade_JudgeGarbageFallsBackToRules(t *testing.T) {
	judge := &judgeModel{content: "I cannot grade this."}

	c := mustCase(t, "travel-001")
	grade := NewGrader(judge).Grade(context.Background(), c, Outcome{
		Approved:   boolPtr(false),
		PolicyRef:  "travel-001",
		Confidence: floatPtr(0.92),
		Escalation: boolPtr(false),
	})

	if !strings.HasPrefix(grade.Explanation, "Rule-based grade:") {
		t.Fatalf("expected rule-based fallback, got explanation %q", grade.Explanation)
	}
}

func TestTruncateResponse(t *testing.T) {
	long := strings.Repeat("x", 2000)
	got := truncateResponse(long)
	if len(got) != 1500+len("...(truncated)") {
		t.Fatalf("expected truncation at 1500 chars, got %d", len(got))
	}
	if truncateResponse("short") != "short" {
		t.Fatal("short responses must pass through unchanged")
	}
}
