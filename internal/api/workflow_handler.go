package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Navigata/internal/domain"
)

// ListWorkflows возвращает список workflows.
// GET /api/v1/workflows?limit=...&offset=...
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit = int(mustParseInt(limitStr, 50))
	}

	var offset int
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset = int(mustParseInt(offsetStr, 0))
	}

	workflows, err := h.workflowRepo.List(r.Context(), limit, offset)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]WorkflowResponse, len(workflows))
	for i := range workflows {
		result[i] = WorkflowFromDomain(&workflows[i])
	}

	List(w, result, len(result))
}

// CreateWorkflow создаёт новый workflow.
// POST /api/v1/workflows
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = domain.ModeSequential
	}

	workflow := &domain.Workflow{
		ID:      uuid.New(),
		Name:    req.Name,
		Steps:   req.Steps,
		Mode:    mode,
		Browser: req.Browser,
	}

	if err := workflow.Validate(); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.workflowRepo.Create(r.Context(), workflow); err != nil {
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Created(w, WorkflowFromDomain(workflow))
}

// GetWorkflow возвращает workflow по ID.
// GET /api/v1/workflows/{id}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	workflow, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	Success(w, WorkflowFromDomain(workflow))
}

// UpdateWorkflow обновляет workflow.
// PUT /api/v1/workflows/{id}
func (h *Handler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req UpdateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	workflow, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if req.Name != nil {
		workflow.Name = *req.Name
	}
	if req.Steps != nil {
		workflow.Steps = *req.Steps
	}
	if req.Mode != nil {
		workflow.Mode = *req.Mode
	}
	if req.Browser != nil {
		workflow.Browser = *req.Browser
	}

	if err := workflow.Validate(); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.workflowRepo.Update(r.Context(), workflow); err != nil {
		if HandleRepoError(w, h.logger, err, "workflow not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Success(w, WorkflowFromDomain(workflow))
}

// DeleteWorkflow удаляет workflow.
// DELETE /api/v1/workflows/{id}
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	if err := h.workflowRepo.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "workflow not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	NoContent(w)
}
