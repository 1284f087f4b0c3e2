// Package evals carries the golden dataset for the policy agent and the
// harness that runs it: a grader with rule-based and LLM-judged scoring, a
// runner that produces per-category reports, and a heuristic mock agent for
// exercising the pipeline without API calls.
package evals

// Category groups test cases for targeted runs.
type Category string

const (
	CategoryTravel   Category = "travel"
	CategoryExpense  Category = "expense"
	CategoryApproval Category = "approval"
	CategoryEdgeCase Category = "edge_case"
	CategoryNegative Category = "negative"
)

// Categories returns all known categories in a stable order.
func Categories() []Category {
	return []Category{CategoryTravel, CategoryExpense, CategoryApproval, CategoryEdgeCase, CategoryNegative}
}

// ParseCategory validates a category name from user input.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Case is a single golden test case with its expected outcomes.
type Case struct {
	ID                 string   `json:"id"`
	Category           Category `json:"category"`
	Query              string   `json:"query"`
	EmployeeID         string   `json:"employee_id"`
	ExpectedApproved   bool     `json:"expected_approved"`
	ExpectedPolicyRef  string   `json:"expected_policy_ref"`
	MinConfidence      float64  `json:"min_confidence"`
	ExpectedEscalation bool     `json:"expected_escalation"`
	Description        string   `json:"description"`
}

var goldenCases = []Case{
	{
		ID:                "travel-001",
		Category:          CategoryTravel,
		Query:             "Can I fly first class to London? It's an 8-hour flight.",
		EmployeeID:        "emp001",
		ExpectedApproved:  false,
		ExpectedPolicyRef: "travel-001",
		MinConfidence:     0.8,
		Description:       "Level 5 employee cannot fly first class (requires Level 9+)",
	},
	{
		ID:                 "travel-002",
		Category:           CategoryTravel,
		Query:              "Can I fly first class to London? It's an 8-hour flight.",
		EmployeeID:         "emp002",
		ExpectedApproved:   true,
		ExpectedPolicyRef:  "travel-001",
		MinConfidence:      0.7,
		ExpectedEscalation: true,
		Description:        "Level 9 Director qualifies for first class on 8+ hour international, VP pre-approval required",
	},
	{
		ID:                "travel-003",
		Category:          CategoryTravel,
		Query:             "Can I fly business class from NYC to LA?",
		EmployeeID:        "emp002",
		ExpectedApproved:  false,
		ExpectedPolicyRef: "travel-001",
		MinConfidence:     0.8,
		Description:       "Domestic flights are economy only regardless of level",
	},
	{
		ID:                "travel-004",
		Category:          CategoryTravel,
		Query:             "Can I fly business class to Tokyo? It's a 14-hour flight.",
		EmployeeID:        "emp001",
		ExpectedApproved:  false,
		ExpectedPolicyRef: "travel-001",
		MinConfidence:     0.8,
		Description:       "Level 5 doesn't qualify for business class (requires Level 7+)",
	},
	{
		ID:                "travel-005",
		Category:          CategoryTravel,
		Query:             "Can I book a hotel for $350 per night in NYC?",
		EmployeeID:        "emp001",
		ExpectedApproved:  false,
		ExpectedPolicyRef: "travel-002",
		MinConfidence:     0.8,
		Description:       "$350 exceeds domestic hotel limit of $200 for non-Directors",
	},
	{
		ID:                "travel-006",
		Category:          CategoryTravel,
		Query:             "Can I book a hotel for $350 per night in London?",
		EmployeeID:        "emp002",
		ExpectedApproved:  true,
		ExpectedPolicyRef: "travel-002",
		MinConfidence:     0.8,
		Description:       "Directors can book up to $400/night, $350 international is within limit",
	},
	{
		ID:                "expense-001",
		Category:          CategoryExpense,
		Query:             "Can I expense a $100 dinner during my business trip?",
		EmployeeID:        "emp001",
		ExpectedApproved:  false,
		ExpectedPolicyRef: "expense-001",
		MinConfidence:     0.8,
		Description:       "$100 exceeds domestic dinner limit of $50",
	},
	{
		ID:                "expense-002",
		Category:          CategoryExpense,
		Query:             "Can I expense meals totaling $70 today while traveling domestically?",
		EmployeeID:        "emp001",
		ExpectedApproved:  true,
		ExpectedPolicyRef: "expense-001",
		MinConfidence:     0.8,
		Description:       "$70 is within the $75 daily domestic meal limit",
	},
	{
		ID:                "expense-003",
		Category:          CategoryExpense,
		Query:             "Can I expense a bottle of wine ($45) from a client dinner?",
		EmployeeID:        "emp001",
		ExpectedApproved:  false,
		ExpectedPolicyRef: "expense-001",
		MinConfidence:     0.7,
		Description:       "Alcohol not reimbursable without prior approval for client entertainment",
	},
	{
		ID:                "expense-004",
		Category:          CategoryExpense,
		Query:             "Can I buy $400 software for my project?",
		EmployeeID:        "emp001",
		ExpectedApproved:  true,
		ExpectedPolicyRef: "expense-002",
		MinConfidence:     0.8,
		Description:       "Software under $500 can be approved by direct manager",
	},
	{
		ID:                 "expense-005",
		Category:           CategoryExpense,
		Query:              "Can I purchase $1500 software for my team?",
		EmployeeID:         "emp004",
		ExpectedApproved:   false,
		ExpectedPolicyRef:  "expense-002",
		MinConfidence:      0.8,
		ExpectedEscalation: true,
		Description:        "$1500 software needs Department Head approval",
	},
	{
		ID:                "approval-001",
		Category:          CategoryApproval,
		Query:             "Can I approve a $300 expense for my direct report?",
		EmployeeID:        "emp001",
		ExpectedApproved:  true,
		ExpectedPolicyRef: "approval-001",
		MinConfidence:     0.8,
		Description:       "$300 under $500 threshold, manager can approve",
	},
	{
		ID:                "approval-002",
		Category:          CategoryApproval,
		Query:             "Can I approve my own $200 expense?",
		EmployeeID:        "emp002",
		ExpectedApproved:  false,
		ExpectedPolicyRef: "approval-002",
		MinConfidence:     0.9,
		Description:       "Self-approval prohibited at all levels",
	},
	{
		ID:                 "approval-003",
		Category:           CategoryApproval,
		Query:              "Can I approve a $8000 equipment purchase for my team?",
		EmployeeID:         "emp002",
		ExpectedApproved:   false,
		ExpectedPolicyRef:  "approval-001",
		MinConfidence:      0.8,
		ExpectedEscalation: true,
		Description:        "$8000 requires VP approval (Level 11+), Director cannot approve",
	},
	{
		ID:                 "approval-004",
		Category:           CategoryApproval,
		Query:              "Can I approve a $15000 contract?",
		EmployeeID:         "emp003",
		ExpectedApproved:   false,
		ExpectedPolicyRef:  "approval-001",
		MinConfidence:      0.8,
		ExpectedEscalation: true,
		Description:        "$15000 exceeds $10000 threshold, requires CFO approval",
	},
	{
		ID:                 "edge-001",
		Category:           CategoryEdgeCase,
		Query:              "I had an emergency and spent $800 without pre-approval. Can I submit it?",
		EmployeeID:         "emp001",
		ExpectedApproved:   true,
		ExpectedPolicyRef:  "approval-001",
		MinConfidence:      0.7,
		ExpectedEscalation: true,
		Description:        "Emergency expenses up to $1000 can be submitted post-facto with documented justification",
	},
	{
		ID:                "edge-002",
		Category:          CategoryEdgeCase,
		Query:             "Can I expense gym membership for my home office?",
		EmployeeID:        "emp001",
		ExpectedApproved:  false,
		ExpectedPolicyRef: "compliance-002",
		MinConfidence:     0.8,
		Description:       "Gym memberships explicitly prohibited in compliance policy",
	},
	{
		ID:                 "edge-003",
		Category:           CategoryEdgeCase,
		Query:              "Can my spouse fly with me to the company conference?",
		EmployeeID:         "emp002",
		ExpectedApproved:   false,
		ExpectedPolicyRef:  "compliance-002",
		MinConfidence:      0.7,
		ExpectedEscalation: true,
		Description:        "Spouse travel requires pre-approval for specific events",
	},
	{
		ID:                 "negative-001",
		Category:           CategoryNegative,
		Query:              "What's the policy on bringing pets to the office?",
		EmployeeID:         "emp001",
		ExpectedApproved:   false,
		ExpectedPolicyRef:  "N/A",
		MinConfidence:      0.0,
		ExpectedEscalation: true,
		Description:        "Query outside scope of expense/travel policies",
	},
	{
		ID:                "negative-002",
		Category:          CategoryNegative,
		Query:             "Can I donate company money to my friend's political campaign?",
		EmployeeID:        "emp001",
		ExpectedApproved:  false,
		ExpectedPolicyRef: "compliance-002",
		MinConfidence:     0.8,
		Description:       "Political contributions explicitly prohibited",
	},
}

// AllCases returns a copy of the golden dataset.
func AllCases() []Case {
	out := make([]Case, len(goldenCases))
	copy(out, goldenCases)
	return out
}

// CasesByCategory filters the golden dataset by category.
func CasesByCategory(cat Category) []Case {
	var out []Case
	for _, c := range goldenCases {
		if c.Category == cat {
			out = append(out, c)
		}
	}
	return out
}

// CaseByID finds a single golden case.
func CaseByID(id string) (Case, bool) {
	for _, c := range goldenCases {
		if c.ID == id {
			return c, true
		}
	}
	return Case{}, false
}
