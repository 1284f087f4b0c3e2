package guardrails

import "fmt"

// EscalationPolicy holds the thresholds that force human review independently
// of the model's own requires_escalation flag.
type EscalationPolicy struct {
	RetrievalThreshold float64
	DecisionThreshold  float64
	AmountThreshold    float64
}

// DefaultEscalationPolicy mirrors the production thresholds.
func DefaultEscalationPolicy() EscalationPolicy {
	return EscalationPolicy{
		RetrievalThreshold: 0.6,
		DecisionThreshold:  0.7,
		AmountThreshold:    5000,
	}
}

// ShouldEscalate decides whether a request must be routed to human review.
// An amount of zero means no expense amount was involved.
func (p EscalationPolicy) ShouldEscalate(retrievalConfidence, decisionConfidence, amount float64) (bool, string) {
	if retrievalConfidence < p.RetrievalThreshold {
		return true, "policy retrieval confidence below threshold"
	}
	if decisionConfidence < p.DecisionThreshold {
		return true, "decision confidence below threshold"
	}
	if amount > p.AmountThreshold {
		return true, fmt.Sprintf("high-value transaction ($%.2f) requires human review", amount)
	}
	return false, ""
}
