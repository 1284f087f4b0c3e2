package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oakline/policyagent/internal/evals"
)

func TestEvalCommand_MockRunWritesReport(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)

	reportPath := filepath.Join(tmpDir, "report.json")

	cmd := NewEvalCmd()
	cmd.SetArgs([]string{"--mock", "--output", reportPath})

	output := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Fatalf("eval --mock error: %v", err)
		}
	})
	cleanOutput := stripANSI(output)

	if !strings.Contains(cleanOutput, "Evaluation Report") {
		t.Fatalf("expected report header, got: %s", cleanOutput)
	}
	if !strings.Contains(cleanOutput, "OVERALL:") {
		t.Fatalf("expected overall banner, got: %s", cleanOutput)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("expected report file: %v", err)
	}
	var report evals.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("report file is not valid JSON: %v", err)
	}
	if report.Total != 19 {
		t.Fatalf("expected 19 cases in report, got %d", report.Total)
	}
}

func TestEvalCommand_CategoryFilter(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)

	cmd := NewEvalCmd()
	cmd.SetArgs([]string{"--mock", "--category", "approval"})

	output := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Fatalf("eval --mock --category error: %v", err)
		}
	})
	cleanOutput := stripANSI(output)

	if !strings.Contains(cleanOutput, "approval-001") {
		t.Fatalf("expected approval cases in progress output, got: %s", cleanOutput)
	}
	if strings.Contains(cleanOutput, "travel-001") {
		t.Fatalf("expected only approval cases, got: %s", cleanOutput)
	}
}

func TestEvalCommand_InvalidCategory(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)

	cmd := NewEvalCmd()
	cmd.SetArgs([]string{"--mock", "--category", "finance"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for invalid category")
	}
}
