package evals

import "testing"

func TestAllCases_DatasetShape(t *testing.T) {
	cases := AllCases()
	if len(cases) != 19 {
		t.Fatalf("expected 19 golden cases, got %d", len(cases))
	}

	seen := make(map[string]bool)
	for _, c := range cases {
		if seen[c.ID] {
			t.Fatalf("duplicate case id %q", c.ID)
		}
		seen[c.ID] = true

		if c.Query == "" {
			t.Errorf("case %q has empty query", c.ID)
		}
		if c.EmployeeID == "" {
			t.Errorf("case %q has empty employee id", c.ID)
		}
		if c.ExpectedPolicyRef == "" {
			t.Errorf("case %q has empty expected policy ref", c.ID)
		}
		if _, ok := ParseCategory(string(c.Category)); !ok {
			t.Errorf("case %q has unknown category %q", c.ID, c.Category)
		}
	}
}

func TestAllCases_ReturnsCopy(t *testing.T) {
	first := AllCases()
	first[0].Query = "mutated"
	if AllCases()[0].Query == "mutated" {
		t.Fatal("AllCases must not expose the backing dataset")
	}
}

func TestCasesByCategory_Counts(t *testing.T) {
	counts := map[Category]int{
		CategoryTravel:   6,
		CategoryExpense:  5,
		CategoryApproval: 4,
		CategoryEdgeCase: 3,
		CategoryNegative: 2,
	}
	for cat, want := range counts {
		got := len(CasesByCategory(cat))
		if got != want {
			t.Errorf("category %s: expected %d cases, got %d", cat, want, got)
		}
	}
}

func TestCaseByID(t *testing.T) {
	c, ok := CaseByID("approval-002")
	if !ok {
		t.Fatal("expected to find approval-002")
	}
	if c.EmployeeID != "emp002" {
		t.Errorf("expected employee emp002, got %q", c.EmployeeID)
	}
	if c.ExpectedApproved {
		t.Error("self-approval case must expect rejection")
	}
	if c.MinConfidence != 0.9 {
		t.Errorf("expected min confidence 0.9, got %g", c.MinConfidence)
	}

	if _, ok := CaseByID("approval-999"); ok {
		t.Fatal("expected lookup miss for approval-999")
	}
}

func TestCaseByID_NegativeCaseHasNoConfidenceFloor(t *testing.T) {
	c, ok := CaseByID("negative-001")
	if !ok {
		t.Fatal("expected to find negative-001")
	}
	if c.MinConfidence != 0 {
		t.Errorf("out-of-scope query should accept any confidence, got floor %g", c.MinConfidence)
	}
	if !c.ExpectedEscalation {
		t.Error("out-of-scope query must escalate")
	}
	if c.ExpectedPolicyRef != "N/A" {
		t.Errorf("expected policy ref N/A, got %q", c.ExpectedPolicyRef)
	}
}

func TestParseCategory(t *testing.T) {
	if _, ok := ParseCategory("edge_case"); !ok {
		t.Fatal("expected edge_case to parse")
	}
	if _, ok := ParseCategory("finance"); ok {
		t.Fatal("expected finance to be rejected")
	}
}
