package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/shaiso/Navigata/internal/domain"
)

// Store — хранилище workflows и executions, необходимое оркестратору.
//
// Отсутствие записи реализации сигнализируют ошибкой, совместимой
// с errors.Is(err, repo.ErrNotFound). Для оркестратора отсутствие
// execution не фатально при персистенции журнала, но фатально
// при переходах статуса.
//
// Production-реализация — repo.Store (Postgres/pgx); тесты используют
// in-memory реализацию.
type Store interface {
	// GetWorkflow возвращает workflow по ID.
	GetWorkflow(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)

	// GetExecution возвращает execution по ID.
	GetExecution(ctx context.Context, id uuid.UUID) (*domain.Execution, error)

	// CreateExecution создаёт execution.
	CreateExecution(ctx context.Context, exec *domain.Execution) error

	// UpdateExecution применяет patch к execution (merge-семантика:
	// nil-поля не трогаются).
	UpdateExecution(ctx context.Context, id uuid.UUID, patch domain.ExecutionPatch) error

	// ListQueuedExecutions возвращает executions в статусе QUEUED,
	// старые первыми.
	ListQueuedExecutions(ctx context.Context, limit int) ([]domain.Execution, error)
}
