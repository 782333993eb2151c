package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestExecution_Lifecycle(t *testing.T) {
	exec := NewExecution(uuid.New())

	if exec.Status != ExecutionStatusQueued {
		t.Errorf("expected QUEUED, got %s", exec.Status)
	}
	if exec.IsFinished() {
		t.Error("queued execution should not be finished")
	}

	exec.MarkRunning()
	if exec.Status != ExecutionStatusRunning {
		t.Errorf("expected RUNNING, got %s", exec.Status)
	}
	if exec.StartedAt == nil {
		t.Error("StartedAt should be set")
	}

	exec.MarkCompleted(map[string]any{"price": 9.99})
	if exec.Status != ExecutionStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", exec.Status)
	}
	if !exec.IsFinished() {
		t.Error("completed execution should be finished")
	}
	if exec.Duration() <= 0 {
		t.Error("duration should be positive")
	}
}

func TestExecution_MarkFailed(t *testing.T) {
	exec := NewExecution(uuid.New())
	exec.MarkRunning()
	exec.Logs = append(exec.Logs, LogEntry{Level: LogLevelInfo, Category: "step", Message: "step 1"})

	exec.MarkFailed("selector timeout")

	if exec.Status != ExecutionStatusFailed {
		t.Errorf("expected FAILED, got %s", exec.Status)
	}
	if exec.Error != "selector timeout" {
		t.Errorf("unexpected error: %s", exec.Error)
	}
	// Журнал до точки падения сохраняется
	if len(exec.Logs) != 1 {
		t.Errorf("logs should be retained, got %d entries", len(exec.Logs))
	}
}

func TestExecutionStatus_IsTerminal(t *testing.T) {
	terminal := []ExecutionStatus{ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	for _, s := range []ExecutionStatus{ExecutionStatusQueued, ExecutionStatusRunning} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestExecution_ApplyPatch(t *testing.T) {
	exec := NewExecution(uuid.New())
	status := ExecutionStatusRunning
	errMsg := "boom"

	exec.Apply(ExecutionPatch{Status: &status})
	if exec.Status != ExecutionStatusRunning {
		t.Errorf("expected RUNNING, got %s", exec.Status)
	}

	// nil-поля не трогают существующие значения
	exec.Apply(ExecutionPatch{Error: &errMsg})
	if exec.Status != ExecutionStatusRunning {
		t.Error("status should be unchanged")
	}
	if exec.Error != "boom" {
		t.Errorf("unexpected error: %s", exec.Error)
	}
}

func TestTokenUsage_Add(t *testing.T) {
	rates := CostRates{PromptPer1K: 0.003, CompletionPer1K: 0.015}
	var u TokenUsage

	u.Add(1000, 500, rates)
	u.Add(200, 100, rates)

	if u.PromptTokens != 1200 {
		t.Errorf("expected 1200 prompt tokens, got %d", u.PromptTokens)
	}
	if u.CompletionTokens != 600 {
		t.Errorf("expected 600 completion tokens, got %d", u.CompletionTokens)
	}
	if u.TotalTokens != 1800 {
		t.Errorf("expected 1800 total tokens, got %d", u.TotalTokens)
	}

	want := 1200.0/1000*0.003 + 600.0/1000*0.015
	if diff := u.EstimatedCost - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected cost %f, got %f", want, u.EstimatedCost)
	}
}
