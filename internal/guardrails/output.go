package guardrails

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Decision is the structured output the model must produce for every request.
type Decision struct {
	Approved           bool    `json:"approved"`
	Reason             string  `json:"reason" validate:"required,min=10"`
	PolicyReference    string  `json:"policy_reference" validate:"required"`
	Confidence         float64 `json:"confidence" validate:"gte=0,lte=1"`
	RequiresEscalation bool    `json:"requires_escalation"`
	EscalationReason   *string `json:"escalation_reason"`
}

var (
	fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

	ssnRe        = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	creditCardRe = regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)
	emailRe      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

const internalEmailDomain = "@company.com"

// OutputGuardrail validates model output before it is exposed to callers.
type OutputGuardrail struct {
	validate *validator.Validate
}

// NewOutputGuardrail builds the output validator.
func NewOutputGuardrail() *OutputGuardrail {
	return &OutputGuardrail{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateOutput extracts the first fenced JSON block from the final model text
// and validates it against the Decision schema. A low-confidence decision that
// does not request escalation is rejected outright.
func (g *OutputGuardrail) ValidateOutput(text string) (bool, *Decision, error) {
	match := fencedJSONRe.FindStringSubmatch(text)
	if match == nil {
		return false, nil, fmt.Errorf("no fenced JSON block found in response")
	}

	var decision Decision
	dec := json.NewDecoder(bytes.NewReader([]byte(match[1])))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&decision); err != nil {
		return false, nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if err := g.validate.Struct(&decision); err != nil {
		return false, nil, fmt.Errorf("schema validation failed: %w", err)
	}

	if decision.Confidence < 0.5 && !decision.RequiresEscalation {
		return false, nil, fmt.Errorf("low confidence decisions should be flagged for escalation")
	}

	return true, &decision, nil
}

// CheckSafety reports PII categories present in the text, for audit logging.
func (g *OutputGuardrail) CheckSafety(text string) []string {
	var found []string

	if ssnRe.MatchString(text) {
		found = append(found, "SSN")
	}
	if creditCardRe.MatchString(text) {
		found = append(found, "Credit Card")
	}

	// Addresses on our own domain are not treated as leaks.
	for _, email := range emailRe.FindAllString(text, -1) {
		if !strings.HasSuffix(strings.ToLower(email), internalEmailDomain) {
			found = append(found, "External Email")
			break
		}
	}

	return found
}

// RedactPII performs best-effort substitution of detected PII.
func (g *OutputGuardrail) RedactPII(text string) string {
	text = ssnRe.ReplaceAllString(text, "[SSN REDACTED]")
	text = creditCardRe.ReplaceAllString(text, "[CARD REDACTED]")
	return text
}
