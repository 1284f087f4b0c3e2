package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/go-playground/validator/v10"

	"github.com/oakline/policyagent/internal/directory"
)

// ApprovalCheckInput carries the arguments for policy_check_approval_threshold.
type ApprovalCheckInput struct {
	EmployeeID  string  `json:"employee_id" validate:"required,employee_id"`
	Amount      float64 `json:"amount" validate:"required,gt=0,lte=1000000"`
	ExpenseType string  `json:"expense_type" validate:"required,min=1,max=100"`
}

// ApprovalCheckOutput is the JSON response of the approval check tool.
type ApprovalCheckOutput struct {
	Employee struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Level         int    `json:"level"`
		LevelCategory string `json:"level_category"`
	} `json:"employee"`
	Expense struct {
		Amount          float64 `json:"amount"`
		Type            string  `json:"type"`
		FormattedAmount string  `json:"formatted_amount"`
	} `json:"expense"`
	ApprovalRequirements struct {
		RequiredApproverLevel    string `json:"required_approver_level"`
		MinimumApproverLevelNumb int    `json:"minimum_approver_level_number"`
		CanSelfApprove           bool   `json:"can_self_approve"`
		Reason                   string `json:"reason"`
	} `json:"approval_requirements"`
	Recommendation string `json:"recommendation"`
}

type approvalCheckTool struct {
	store    *directory.Store
	validate *validator.Validate
}

// NewApprovalCheckTool builds the approval requirement tool. It is advisory
// only and never submits or approves anything.
func NewApprovalCheckTool(store *directory.Store) Tool {
	return &approvalCheckTool{store: store, validate: newValidator()}
}

func (t *approvalCheckTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: NameApprovalCheck,
		Desc: "Determine the approval requirements for an expense: who must approve it and whether the employee can self-approve.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"employee_id": {
				Type:     schema.String,
				Desc:     "Employee ID requesting the expense",
				Required: true,
			},
			"amount": {
				Type:     schema.Number,
				Desc:     "Expense amount in USD",
				Required: true,
			},
			"expense_type": {
				Type:     schema.String,
				Desc:     "Type of expense (e.g., 'travel', 'software', 'equipment', 'client_entertainment')",
				Required: true,
			},
		}),
	}, nil
}

func (t *approvalCheckTool) InvokableRun(ctx context.Context, args string, opts ...any) (string, error) {
	var input ApprovalCheckInput
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

	req := t.store.CheckApproval(emp, input.Amount, input.ExpenseType)

	var out ApprovalCheckOutput
	out.Employee.ID = emp.ID
	out.Employee.Name = emp.Name
	out.Employee.Level = emp.Level
	out.Employee.LevelCategory = directory.LevelCategory(emp.Level)
	out.Expense.Amount = req.Amount
	out.Expense.Type = req.ExpenseType
	out.Expense.FormattedAmount = "$" + directory.FormatAmount(req.Amount)
	out.ApprovalRequirements.RequiredApproverLevel = req.RequiredRole
	out.ApprovalRequirements.MinimumApproverLevelNumb = req.RequiredMinLevel
	out.ApprovalRequirements.CanSelfApprove = req.CanSelfApprove
	out.ApprovalRequirements.Reason = req.Reason
	out.Recommendation = req.Recommendation

	raw, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
