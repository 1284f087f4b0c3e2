package guardrails

import (
	"fmt"
	"regexp"
	"strings"
)

// RiskLevel classifies how suspicious a rejected input was.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ValidationResult is the outcome of input validation.
type ValidationResult struct {
	Valid          bool
	RiskLevel      RiskLevel
	SanitizedInput string
	ErrorMessage   string
}

// encoding-escape patterns: hex, URL, HTML entity
var encodingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\\x[0-9a-fA-F]{2}`),
	regexp.MustCompile(`%[0-9a-fA-F]{2}`),
	regexp.MustCompile(`&#x?[0-9a-fA-F]+;`),
}

// InputGuardrail validates and sanitizes raw queries before they reach the model.
type InputGuardrail struct {
	maxLength         int
	injectionPatterns []*regexp.Regexp
}

// DefaultMaxInputLength bounds query length when no limit is configured.
const DefaultMaxInputLength = 2000

// NewInputGuardrail compiles the configured injection phrases case-insensitively.
func NewInputGuardrail(maxLength int, injectionPhrases []string) *InputGuardrail {
	if maxLength <= 0 {
		maxLength = DefaultMaxInputLength
	}
	patterns := make([]*regexp.Regexp, 0, len(injectionPhrases))
	for _, phrase := range injectionPhrases {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(phrase)))
	}
	return &InputGuardrail{
		maxLength:         maxLength,
		injectionPatterns: patterns,
	}
}

// Validate runs the ordered checks and returns a sanitized copy on success.
// It never returns an error; rejection is expressed in the result.
func (g *InputGuardrail) Validate(raw string) ValidationResult {
	if len(raw) > g.maxLength {
		return ValidationResult{
			Valid:        false,
			RiskLevel:    RiskMedium,
			ErrorMessage: fmt.Sprintf("input exceeds maximum length of %d characters", g.maxLength),
		}
	}

	if strings.TrimSpace(raw) == "" {
		return ValidationResult{
			Valid:        false,
			RiskLevel:    RiskLow,
			ErrorMessage: "input cannot be empty",
		}
	}

	for _, pattern := range g.injectionPatterns {
		if pattern.MatchString(raw) {
			return ValidationResult{
				Valid:        false,
				RiskLevel:    RiskHigh,
				ErrorMessage: "input contains potentially harmful content",
			}
		}
	}

	for _, pattern := range encodingPatterns {
		if pattern.MatchString(raw) {
			return ValidationResult{
				Valid:        false,
				RiskLevel:    RiskHigh,
				ErrorMessage: "input contains suspicious encoding",
			}
		}
	}

	return ValidationResult{
		Valid:          true,
		RiskLevel:      RiskLow,
		SanitizedInput: sanitize(raw),
	}
}

// sanitize collapses whitespace runs and strips NUL plus control characters,
// keeping newlines intact.
func sanitize(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")

	var b strings.Builder
	b.Grow(len(collapsed))
	for _, r := range collapsed {
		if r == '\n' {
			b.WriteRune(r)
			continue
		}
		if r < 32 || r == 127 {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
