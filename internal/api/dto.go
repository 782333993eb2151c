package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Navigata/internal/domain"
)

// Workflow DTOs

// CreateWorkflowRequest — запрос на создание workflow.
type CreateWorkflowRequest struct {
	Name    string               `json:"name"`
	Steps   []domain.Step        `json:"steps"`
	Mode    domain.ExecutionMode `json:"mode"`
	Browser domain.BrowserConfig `json:"browser"`
}

// UpdateWorkflowRequest — запрос на обновление workflow.
type UpdateWorkflowRequest struct {
	Name    *string               `json:"name,omitempty"`
	Steps   *[]domain.Step        `json:"steps,omitempty"`
	Mode    *domain.ExecutionMode `json:"mode,omitempty"`
	Browser *domain.BrowserConfig `json:"browser,omitempty"`
}

// WorkflowResponse — ответ с workflow.
type WorkflowResponse struct {
	ID        uuid.UUID            `json:"id"`
	Name      string               `json:"name"`
	Steps     []domain.Step        `json:"steps"`
	Mode      domain.ExecutionMode `json:"mode"`
	Browser   domain.BrowserConfig `json:"browser"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// WorkflowFromDomain конвертирует domain.Workflow в WorkflowResponse.
func WorkflowFromDomain(w *domain.Workflow) WorkflowResponse {
	return WorkflowResponse{
		ID:        w.ID,
		Name:      w.Name,
		Steps:     w.Steps,
		Mode:      w.Mode,
		Browser:   w.Browser,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

// Execution DTOs

// ExecutionResponse — ответ с execution.
type ExecutionResponse struct {
	ID          uuid.UUID              `json:"id"`
	WorkflowID  uuid.UUID              `json:"workflow_id"`
	Status      domain.ExecutionStatus `json:"status"`
	Logs        []domain.LogEntry      `json:"logs,omitempty"`
	Results     any                    `json:"results,omitempty"`
	Error       string                 `json:"error,omitempty"`
	TokenUsage  domain.TokenUsage      `json:"token_usage"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
// withLogs управляет включением полного журнала: списки отдаются без
// него, чтобы не раздувать ответ.
func ExecutionFromDomain(e *domain.Execution, withLogs bool) ExecutionResponse {
	resp := ExecutionResponse{
		ID:          e.ID,
		WorkflowID:  e.WorkflowID,
		Status:      e.Status,
		Results:     e.Results,
		Error:       e.Error,
		TokenUsage:  e.Usage,
		StartedAt:   e.StartedAt,
		CompletedAt: e.CompletedAt,
		CreatedAt:   e.CreatedAt,
	}
	if withLogs {
		resp.Logs = e.Logs
	}
	return resp
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name        string `json:"name,omitempty"`
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// UpdateScheduleRequest — запрос на обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string `json:"name,omitempty"`
	CronExpr    *string `json:"cron_expr,omitempty"`
	IntervalSec *int    `json:"interval_sec,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение schedule.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID              uuid.UUID  `json:"id"`
	WorkflowID      uuid.UUID  `json:"workflow_id"`
	Name            string     `json:"name,omitempty"`
	CronExpr        string     `json:"cron_expr,omitempty"`
	IntervalSec     int        `json:"interval_sec,omitempty"`
	Timezone        string     `json:"timezone"`
	Enabled         bool       `json:"enabled"`
	NextDueAt       *time.Time `json:"next_due_at,omitempty"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	LastExecutionID *uuid.UUID `json:"last_execution_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	return ScheduleResponse{
		ID:              s.ID,
		WorkflowID:      s.WorkflowID,
		Name:            s.Name,
		CronExpr:        s.CronExpr,
		IntervalSec:     s.IntervalSec,
		Timezone:        s.Timezone,
		Enabled:         s.Enabled,
		NextDueAt:       s.NextDueAt,
		LastRunAt:       s.LastRunAt,
		LastExecutionID: s.LastExecutionID,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
