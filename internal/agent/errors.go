package agent

import (
	"errors"
	"fmt"

	"github.com/oakline/policyagent/internal/guardrails"
)

// ErrMaxIterations is returned when the tool loop exhausts its iteration
// budget without the model producing a final answer.
var ErrMaxIterations = errors.New("maximum iterations reached without final response")

// InputRejectedError reports a query the input guardrail refused. The model
// is never called for rejected input.
type InputRejectedError struct {
	Result guardrails.ValidationResult
}

func (e *InputRejectedError) Error() string {
	return fmt.Sprintf("input rejected (%s risk): %s", e.Result.RiskLevel, e.Result.ErrorMessage)
}
