package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/go-playground/validator/v10"

	"github.com/oakline/policyagent/internal/directory"
)

// EmployeeLookupInput carries the arguments for policy_get_employee_info.
type EmployeeLookupInput struct {
	EmployeeID     string `json:"employee_id" validate:"required,employee_id"`
	ResponseFormat string `json:"response_format,omitempty" validate:"omitempty,oneof=json markdown"`
}

type employeeLookupTool struct {
	store    *directory.Store
	validate *validator.Validate
}

// NewEmployeeLookupTool builds the employee lookup tool over the roster.
func NewEmployeeLookupTool(store *directory.Store) Tool {
	return &employeeLookupTool{store: store, validate: newValidator()}
}

func (t *employeeLookupTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: NameEmployeeLookup,
		Desc: "Retrieve employee information including level, title, and department. Use this to determine an employee's corporate level before checking policy permissions.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"employee_id": {
				Type:     schema.String,
				Desc:     "Employee ID (e.g., 'emp001', 'emp002')",
				Required: true,
			},
			"response_format": {
				Type: schema.String,
				Desc: "Output format: 'json' for structured data, 'markdown' for human-readable",
				Enum: []string{"json", "markdown"},
			},
		}),
	}, nil
}

func (t *employeeLookupTool) InvokableRun(ctx context.Context, args string, opts ...any) (string, error) {
	var input EmployeeLookupInput
	if err := decodeStrict(args, &input); err != nil {
		return errorPayload(err.Error(), nil), nil
	}
	if err := t.validate.Struct(&input); err != nil {
		return errorPayload(validationMessage(err), nil), nil
	}

	emp, err := t.store.Employee(input.EmployeeID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return errorPayload(fmt.Sprintf("Employee '%s' not found", input.EmployeeID), map[string]any{
				"valid_ids": t.store.ValidIDs(),
			}), nil
		}
		return "", err
	}

	if input.ResponseFormat == "markdown" {
		return renderEmployeeMarkdown(emp), nil
	}

	raw, err := json.Marshal(struct {
		directory.Employee
		LevelCategory string `json:"level_category"`
	}{emp, directory.LevelCategory(emp.Level)})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func renderEmployeeMarkdown(emp directory.Employee) string {
	var b strings.Builder
	b.WriteString("## Employee Information\n\n")
	fmt.Fprintf(&b, "**Name:** %s\n", emp.Name)
	fmt.Fprintf(&b, "**ID:** %s\n", emp.ID)
	fmt.Fprintf(&b, "**Title:** %s\n", emp.Title)
	fmt.Fprintf(&b, "**Level:** %d (%s)\n", emp.Level, directory.LevelCategory(emp.Level))
	fmt.Fprintf(&b, "**Department:** %s\n", emp.Department)
	if emp.ManagerID != "" {
		fmt.Fprintf(&b, "**Manager ID:** %s\n", emp.ManagerID)
	}
	return b.String()
}
