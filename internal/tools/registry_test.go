package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/oakline/policyagent/internal/directory"
	"github.com/oakline/policyagent/internal/index"
)

func intPtr(v int) *int { return &v }

func testStore() *directory.Store {
	employees := []directory.Employee{
		{ID: "emp001", Name: "Alice Chen", Level: 5, Title: "Senior Software Engineer", Department: "Engineering", ManagerID: "emp002"},
		{ID: "emp002", Name: "Bob Martinez", Level: 9, Title: "Director of Engineering", Department: "Engineering"},
	}
	rules := directory.RuleSet{
		Thresholds: []directory.Threshold{
			{AmountLimit: 500, Role: "Direct Manager", MinLevelOffset: intPtr(1)},
			{AmountLimit: 2000, Role: "Senior Manager", MinLevelAbsolute: intPtr(7)},
			{AmountLimit: 10000, Role: "VP", MinLevelAbsolute: intPtr(11)},
		},
		DefaultThreshold: directory.Threshold{Role: "CFO", MinLevelAbsolute: intPtr(13)},
		General: directory.GeneralRules{
			SelfApprovalAllowed: false,
			ReasonSelfApproval:  "Self-approval of expenses is prohibited at all levels per policy approval-002.",
		},
	}
	return directory.NewStore(employees, rules)
}

func testIndexService() *index.Service {
	chunks := []index.Chunk{
		{ID: "travel-001", Category: "travel", Title: "Air Travel", Content: "Business class is permitted for flights over six hours."},
		{ID: "expense-001", Category: "expense", Title: "Meals", Content: "Meal expenses require itemized receipts."},
	}
	return index.NewServiceFromChunks(&index.HashEmbedder{Dimension: 128}, 0.75, chunks)
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	if err := RegisterPolicyTools(reg, testStore(), testIndexService()); err != nil {
		t.Fatalf("register tools: %v", err)
	}
	return reg
}

func TestRegistry_RegistersClosedToolbox(t *testing.T) {
	reg := testRegistry(t)
	names := reg.Names()
	want := []string{NameApprovalCheck, NameEmployeeLookup, NamePolicySearch}
	if len(names) != len(want) {
		t.Fatalf("expected %d tools, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %q at %d, got %q", want[i], i, names[i])
		}
	}
}

func TestRegistry_RejectsDuplicate(t *testing.T) {
	reg := testRegistry(t)
	if err := reg.Register(NewEmployeeLookupTool(testStore())); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestExecute_UnknownToolReturnsErrorPayload(t *testing.T) {
	reg := testRegistry(t)
	out, err := reg.Execute(context.Background(), "delete_everything", `{}`)
	if err != nil {
		t.Fatalf("unknown tool must not return a Go error, got %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if !strings.Contains(payload["error"].(string), "unknown tool") {
		t.Fatalf("unexpected payload: %s", out)
	}
	if _, ok := payload["available_tools"]; !ok {
		t.Fatalf("expected available_tools in payload: %s", out)
	}
}

func TestGetToolInfos_AllNamed(t *testing.T) {
	reg := testRegistry(t)
	infos, err := reg.GetToolInfos(context.Background())
	if err != nil {
		t.Fatalf("tool infos: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("expected 3 tool infos, got %d", len(infos))
	}
	for _, info := range infos {
		if info.Name == "" || info.Desc == "" {
			t.Fatalf("tool info missing name or desc: %+v", info)
		}
	}
}

func TestEmployeeLookup_JSON(t *testing.T) {
	reg := testRegistry(t)
	out, err := reg.Execute(context.Background(), NameEmployeeLookup, `{"employee_id":"emp001"}`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if payload["name"] != "Alice Chen" {
		t.Fatalf("unexpected employee payload: %s", out)
	}
	if payload["level_category"] != "Senior Individual Contributor" {
		t.Fatalf("expected level category for level 5, got %s", out)
	}
}

func TestEmployeeLookup_Markdown(t *testing.T) {
	reg := testRegistry(t)
	out, err := reg.Execute(context.Background(), NameEmployeeLookup, `{"employee_id":"emp002","response_format":"markdown"}`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "## Employee Information") || !strings.Contains(out, "Bob Martinez") {
		t.Fatalf("unexpected markdown: %s", out)
	}
}

func TestEmployeeLookup_NotFound(t *testing.T) {
	reg := testRegistry(t)
	out, err := reg.Execute(context.Background(), NameEmployeeLookup, `{"employee_id":"emp999"}`)
	if err != nil {
		t.Fatalf("not-found must be a payload, got Go error %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if !strings.Contains(payload["error"].(string), "not found") {
		t.Fatalf("unexpected payload: %s", out)
	}
	if _, ok := payload["valid_ids"]; !ok {
		t.Fatalf("expected valid_ids in payload: %s", out)
	}
}

func TestEmployeeLookup_RejectsBadID(t *testing.T) {
	reg := testRegistry(t)
	for _, args := range []string{
		`{"employee_id":"bob"}`,
		`{"employee_id":"emp12"}`,
		`{"employee_id":"emp1234"}`,
		`{"employee_id":""}`,
	} {
		out, err := reg.Execute(context.Background(), NameEmployeeLookup, args)
		if err != nil {
			t.Fatalf("args %s: expected payload, got Go error %v", args, err)
		}
		if !strings.Contains(out, "error") {
			t.Fatalf("args %s: expected error payload, got %s", args, out)
		}
	}
}

func TestEmployeeLookup_RejectsUnknownFields(t *testing.T) {
	reg := testRegistry(t)
	out, err := reg.Execute(context.Background(), NameEmployeeLookup, `{"employee_id":"emp001","admin":true}`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "error") {
		t.Fatalf("expected error payload for unknown field, got %s", out)
	}
}

func TestPolicySearch_JSONShape(t *testing.T) {
	reg := testRegistry(t)
	out, err := reg.Execute(context.Background(), NamePolicySearch, `{"query":"business class flights"}`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var payload SearchOutput
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if payload.Query != "business class flights" {
		t.Fatalf("query not echoed: %+v", payload)
	}
	if payload.ConfidenceThreshold != 0.75 {
		t.Fatalf("expected threshold 0.75, got %v", payload.ConfidenceThreshold)
	}
	if len(payload.Results) == 0 || len(payload.Results) > 3 {
		t.Fatalf("expected 1-3 results by default, got %d", len(payload.Results))
	}
	for _, r := range payload.Results {
		if r.IsConfident != (r.Score >= payload.ConfidenceThreshold) {
			t.Fatalf("result %q confidence flag inconsistent with score", r.ID)
		}
	}
}

func TestPolicySearch_RejectsShortQuery(t *testing.T) {
	reg := testRegistry(t)
	out, err := reg.Execute(context.Background(), NamePolicySearch, `{"query":"hi"}`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "error") {
		t.Fatalf("expected error payload for short query, got %s", out)
	}
}

func TestPolicySearch_RejectsMaxResultsOutOfRange(t *testing.T) {
	reg := testRegistry(t)
	out, err := reg.Execute(context.Background(), NamePolicySearch, `{"query":"meal receipts","max_results":11}`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "error") {
		t.Fatalf("expected error payload for max_results=11, got %s", out)
	}
}

func TestApprovalCheck_SmallAmountUsesOffset(t *testing.T) {
	reg := testRegistry(t)
	out, err := reg.Execute(context.Background(), NameApprovalCheck, `{"employee_id":"emp001","amount":100,"expense_type":"travel"}`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var payload ApprovalCheckOutput
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if payload.ApprovalRequirements.RequiredApproverLevel != "Direct Manager" {
		t.Fatalf("expected Direct Manager, got %q", payload.ApprovalRequirements.RequiredApproverLevel)
	}
	if payload.ApprovalRequirements.MinimumApproverLevelNumb != 6 {
		t.Fatalf("expected min level 6 for level-5 employee, got %d", payload.ApprovalRequirements.MinimumApproverLevelNumb)
	}
	if payload.ApprovalRequirements.CanSelfApprove {
		t.Fatal("self-approval must be denied")
	}
	if payload.Expense.FormattedAmount != "$100.00" {
		t.Fatalf("unexpected formatted amount: %q", payload.Expense.FormattedAmount)
	}
}

func TestApprovalCheck_LargeAmountFallsToDefault(t *testing.T) {
	reg := testRegistry(t)
	out, err := reg.Execute(context.Background(), NameApprovalCheck, `{"employee_id":"emp001","amount":15000,"expense_type":"equipment"}`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var payload ApprovalCheckOutput
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if payload.ApprovalRequirements.RequiredApproverLevel != "CFO" {
		t.Fatalf("expected CFO, got %q", payload.ApprovalRequirements.RequiredApproverLevel)
	}
	if payload.ApprovalRequirements.MinimumApproverLevelNumb != 13 {
		t.Fatalf("expected min level 13, got %d", payload.ApprovalRequirements.MinimumApproverLevelNumb)
	}
}

func TestApprovalCheck_RejectsBadAmount(t *testing.T) {
	reg := testRegistry(t)
	for _, args := range []string{
		`{"employee_id":"emp001","amount":0,"expense_type":"travel"}`,
		`{"employee_id":"emp001","amount":-5,"expense_type":"travel"}`,
		`{"employee_id":"emp001","amount":2000000,"expense_type":"travel"}`,
	} {
		out, err := reg.Execute(context.Background(), NameApprovalCheck, args)
		if err != nil {
			t.Fatalf("args %s: expected payload, got Go error %v", args, err)
		}
		if !strings.Contains(out, "error") {
			t.Fatalf("args %s: expected error payload, got %s", args, out)
		}
	}
}
