package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Threshold is one rung of the approval ladder. Exactly one of
// MinLevelOffset and MinLevelAbsolute is set: an offset is relative to the
// requesting employee's level, an absolute is a fixed floor.
type Threshold struct {
	AmountLimit      float64 `json:"amount_limit"`
	Role             string  `json:"role"`
	MinLevelOffset   *int    `json:"min_level_offset,omitempty"`
	MinLevelAbsolute *int    `json:"min_level_absolute,omitempty"`
}

// GeneralRules carries ladder-wide policy, currently self-approval.
type GeneralRules struct {
	SelfApprovalAllowed bool   `json:"self_approval_allowed"`
	ReasonSelfApproval  string `json:"reason_self_approval"`
}

// RuleSet is the full approval configuration.
type RuleSet struct {
	Thresholds       []Threshold  `json:"thresholds"`
	DefaultThreshold Threshold    `json:"default_threshold"`
	General          GeneralRules `json:"general"`
}

type rulesFile struct {
	ApprovalRules RuleSet `json:"approval_rules"`
}

// LoadRules reads and validates an approval rule set from disk.
func LoadRules(path string) (RuleSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rules: %w", err)
	}
	var rf rulesFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return RuleSet{}, fmt.Errorf("parse rules: %w", err)
	}
	rules := rf.ApprovalRules
	if len(rules.Thresholds) == 0 {
		return RuleSet{}, fmt.Errorf("no approval thresholds in %s", path)
	}
	for i, th := range rules.Thresholds {
		if err := validateThreshold(th); err != nil {
			return RuleSet{}, fmt.Errorf("threshold %d: %w", i, err)
		}
		if th.AmountLimit <= 0 {
			return RuleSet{}, fmt.Errorf("threshold %d: amount_limit must be positive", i)
		}
	}
	if err := validateThreshold(rules.DefaultThreshold); err != nil {
		return RuleSet{}, fmt.Errorf("default threshold: %w", err)
	}
	return rules, nil
}

func validateThreshold(th Threshold) error {
	if th.Role == "" {
		return fmt.Errorf("missing role")
	}
	if (th.MinLevelOffset == nil) == (th.MinLevelAbsolute == nil) {
		return fmt.Errorf("exactly one of min_level_offset and min_level_absolute must be set")
	}
	return nil
}

// ApprovalRequirement is the outcome of an approval check. It is advisory:
// nothing here mutates state or submits a request.
type ApprovalRequirement struct {
	Amount           float64 `json:"amount"`
	ExpenseType      string  `json:"expense_type"`
	RequiredRole     string  `json:"required_role"`
	RequiredMinLevel int     `json:"required_min_level"`
	CanSelfApprove   bool    `json:"can_self_approve"`
	Reason           string  `json:"reason"`
	Recommendation   string  `json:"recommendation"`
}

// CheckApproval resolves who must approve an expense of the given amount for
// the given employee. Rungs match strictly (amount < amount_limit),
// first match wins on the ascending ladder, and amounts at or past every
// rung fall to the default threshold.
func (s *Store) CheckApproval(emp Employee, amount float64, expenseType string) ApprovalRequirement {
	ladder := make([]Threshold, len(s.rules.Thresholds))
	copy(ladder, s.rules.Thresholds)
	sort.SliceStable(ladder, func(a, b int) bool {
		return ladder[a].AmountLimit < ladder[b].AmountLimit
	})

	matched := s.rules.DefaultThreshold
	for _, th := range ladder {
		if amount < th.AmountLimit {
			matched = th
			break
		}
	}

	minLevel := 0
	switch {
	case matched.MinLevelOffset != nil:
		minLevel = emp.Level + *matched.MinLevelOffset
	case matched.MinLevelAbsolute != nil:
		minLevel = *matched.MinLevelAbsolute
	}

	reason := s.rules.General.ReasonSelfApproval
	if reason == "" {
		reason = "Self-approval prohibited"
	}

	return ApprovalRequirement{
		Amount:           amount,
		ExpenseType:      expenseType,
		RequiredRole:     matched.Role,
		RequiredMinLevel: minLevel,
		CanSelfApprove:   s.rules.General.SelfApprovalAllowed,
		Reason:           reason,
		Recommendation:   s.recommendation(amount, expenseType),
	}
}

func (s *Store) recommendation(amount float64, expenseType string) string {
	if len(s.rules.Thresholds) == 0 {
		return "Standard approval process applies."
	}

	highest := 0.0
	for _, th := range s.rules.Thresholds {
		if th.AmountLimit > highest {
			highest = th.AmountLimit
		}
	}
	if amount > highest {
		return fmt.Sprintf("This $%s expense requires %s approval. Recommend discussing with your VP before submitting.",
			FormatAmount(amount), s.rules.DefaultThreshold.Role)
	}
	if amount > 10000 {
		return fmt.Sprintf("This $%s expense requires high-level approval.", FormatAmount(amount))
	}
	switch strings.ToLower(expenseType) {
	case "travel", "flight", "hotel":
		return "Travel expenses should be booked through the corporate travel portal when possible."
	case "software", "equipment":
		return "Software and equipment purchases must be on the approved vendor list. Check with IT procurement."
	default:
		return "Standard approval process applies. Submit through the expense system with receipts."
	}
}

// FormatAmount renders a dollar amount with thousands separators and cents,
// e.g. 15000 -> "15,000.00".
func FormatAmount(amount float64) string {
	s := fmt.Sprintf("%.2f", amount)
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String() + frac
}
