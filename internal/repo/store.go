package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Navigata/internal/domain"
)

// Store — композит репозиториев под нужды оркестратора.
//
// Оркестратору не нужен полный CRUD: только чтение workflow,
// жизненный цикл execution и выборка очереди.
type Store struct {
	Workflows  *WorkflowRepo
	Executions *ExecutionRepo
	Schedules  *ScheduleRepo
}

// NewStore создаёт Store поверх пула соединений.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Workflows:  NewWorkflowRepo(pool),
		Executions: NewExecutionRepo(pool),
		Schedules:  NewScheduleRepo(pool),
	}
}

// GetWorkflow возвращает workflow по ID.
func (s *Store) GetWorkflow(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	return s.Workflows.GetByID(ctx, id)
}

// GetExecution возвращает execution по ID.
func (s *Store) GetExecution(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	return s.Executions.GetByID(ctx, id)
}

// CreateExecution создаёт execution.
func (s *Store) CreateExecution(ctx context.Context, exec *domain.Execution) error {
	return s.Executions.Create(ctx, exec)
}

// UpdateExecution применяет patch к execution.
func (s *Store) UpdateExecution(ctx context.Context, id uuid.UUID, patch domain.ExecutionPatch) error {
	return s.Executions.Update(ctx, id, patch)
}

// ListQueuedExecutions возвращает executions в статусе QUEUED.
func (s *Store) ListQueuedExecutions(ctx context.Context, limit int) ([]domain.Execution, error) {
	return s.Executions.ListQueued(ctx, limit)
}
