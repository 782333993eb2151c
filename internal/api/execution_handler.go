package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Navigata/internal/domain"
	"github.com/shaiso/Navigata/internal/repo"
)

// ListExecutions возвращает список executions с фильтрацией.
// GET /api/v1/executions?workflow_id=...&status=...&limit=...&offset=...
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	filter := repo.ExecutionFilter{}

	// Парсим query параметры
	if workflowIDStr := r.URL.Query().Get("workflow_id"); workflowIDStr != "" {
		workflowID, err := uuid.Parse(workflowIDStr)
		if err != nil {
			BadRequest(w, "invalid workflow_id")
			return
		}
		filter.WorkflowID = &workflowID
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.ExecutionStatus(status)
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		filter.Limit = int(mustParseInt(limitStr, 50))
	} else {
		filter.Limit = 50
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		filter.Offset = int(mustParseInt(offsetStr, 0))
	}

	executions, err := h.executionRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(executions))
	for i := range executions {
		result[i] = ExecutionFromDomain(&executions[i], false)
	}

	List(w, result, len(result))
}

// StartExecution запускает workflow: создаёт execution в статусе QUEUED
// и отдаёт его оркестратору.
// POST /api/v1/workflows/{id}/executions
func (h *Handler) StartExecution(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	exec, err := h.orchestrator.StartExecution(r.Context(), workflowID)
	if HandleOrchestratorError(w, h.logger, err) {
		return
	}

	Created(w, ExecutionFromDomain(exec, false))
}

// GetExecution возвращает execution по ID, включая полный журнал.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	exec, err := h.executionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(exec, true))
}

// GetExecutionLogs возвращает журнал execution.
// GET /api/v1/executions/{id}/logs
func (h *Handler) GetExecutionLogs(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	exec, err := h.executionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	logs := exec.Logs
	if logs == nil {
		logs = []domain.LogEntry{}
	}

	List(w, logs, len(logs))
}

// CancelExecution отменяет execution.
// POST /api/v1/executions/{id}/cancel
func (h *Handler) CancelExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	if err := h.orchestrator.Cancel(r.Context(), id); err != nil {
		if HandleOrchestratorError(w, h.logger, err) {
			return
		}
	}

	// Возвращаем актуальное состояние
	exec, err := h.executionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(exec, false))
}

// mustParseInt парсит строку в int с дефолтным значением.
func mustParseInt(s string, defaultVal int64) int64 {
	if n, err := json.Number(s).Int64(); err == nil {
		return n
	}
	return defaultVal
}
