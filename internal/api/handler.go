package api

import (
	"log/slog"

	"github.com/shaiso/Navigata/internal/events"
	"github.com/shaiso/Navigata/internal/orchestrator"
	"github.com/shaiso/Navigata/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workflowRepo  *repo.WorkflowRepo
	executionRepo *repo.ExecutionRepo
	scheduleRepo  *repo.ScheduleRepo
	orchestrator  *orchestrator.Orchestrator
	hub           *events.Hub
	logger        *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	WorkflowRepo  *repo.WorkflowRepo
	ExecutionRepo *repo.ExecutionRepo
	ScheduleRepo  *repo.ScheduleRepo
	Orchestrator  *orchestrator.Orchestrator
	Hub           *events.Hub
	Logger        *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		workflowRepo:  cfg.WorkflowRepo,
		executionRepo: cfg.ExecutionRepo,
		scheduleRepo:  cfg.ScheduleRepo,
		orchestrator:  cfg.Orchestrator,
		hub:           cfg.Hub,
		logger:        cfg.Logger,
	}
}
