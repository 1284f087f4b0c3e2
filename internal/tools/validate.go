package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var employeeIDRe = regexp.MustCompile(`^emp\d{3}$`)

// newValidator builds the argument validator shared by all tools.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Failure here means the regex itself is broken, which cannot happen
	// for a non-nil func.
	_ = v.RegisterValidation("employee_id", func(fl validator.FieldLevel) bool {
		return employeeIDRe.MatchString(fl.Field().String())
	})
	return v
}

// decodeStrict unmarshals tool arguments, rejecting unknown fields so
// hallucinated parameters surface as errors instead of being dropped.
func decodeStrict(args string, dst any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(args)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// validationMessage flattens validator errors into one model-readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
