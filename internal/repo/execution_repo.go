package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Navigata/internal/domain"
)

// ExecutionRepo — репозиторий для работы с executions.
//
// Update принимает ExecutionPatch: оркестратор пишет execution
// инкрементально (статус, журнал, результаты) и не должен
// перезатирать поля, которых не касался.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// Create создаёт новый execution.
func (r *ExecutionRepo) Create(ctx context.Context, exec *domain.Execution) error {
	usageJSON, err := json.Marshal(exec.Usage)
	if err != nil {
		return fmt.Errorf("marshal usage: %w", err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, status, logs, usage, created_at)
		VALUES ($1, $2, $3, '[]'::jsonb, $4, $5)
	`
	_, err = r.pool.Exec(ctx, query,
		exec.ID,
		exec.WorkflowID,
		exec.Status,
		usageJSON,
		exec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByID возвращает execution по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `
		SELECT id, workflow_id, status, logs, results, error, usage,
		       started_at, completed_at, created_at
		FROM executions
		WHERE id = $1
	`
	return r.scanExecution(r.pool.QueryRow(ctx, query, id))
}

// Update применяет patch к execution. nil-поля не трогаются.
func (r *ExecutionRepo) Update(ctx context.Context, id uuid.UUID, patch domain.ExecutionPatch) error {
	var sets []string
	var args []any
	args = append(args, id)

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Logs != nil {
		logsJSON, err := json.Marshal(patch.Logs)
		if err != nil {
			return fmt.Errorf("marshal logs: %w", err)
		}
		add("logs", logsJSON)
	}
	if patch.Results != nil {
		resultsJSON, err := json.Marshal(patch.Results)
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		add("results", resultsJSON)
	}
	if patch.Error != nil {
		add("error", *patch.Error)
	}
	if patch.Usage != nil {
		usageJSON, err := json.Marshal(patch.Usage)
		if err != nil {
			return fmt.Errorf("marshal usage: %w", err)
		}
		add("usage", usageJSON)
	}
	if patch.StartedAt != nil {
		add("started_at", *patch.StartedAt)
	}
	if patch.CompletedAt != nil {
		add("completed_at", *patch.CompletedAt)
	}

	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE executions SET %s WHERE id = $1", strings.Join(sets, ", "))
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List возвращает executions с фильтрацией, новые первыми.
func (r *ExecutionRepo) List(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, error) {
	query := `
		SELECT id, workflow_id, status, logs, results, error, usage,
		       started_at, completed_at, created_at
		FROM executions
		WHERE ($1::uuid IS NULL OR workflow_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.WorkflowID),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []domain.Execution
	for rows.Next() {
		exec, err := r.scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *exec)
	}
	return executions, rows.Err()
}

// ListQueued возвращает executions в статусе QUEUED, старые первыми.
// Используется оркестратором как fallback при недоступности очереди.
func (r *ExecutionRepo) ListQueued(ctx context.Context, limit int) ([]domain.Execution, error) {
	query := `
		SELECT id, workflow_id, status, logs, results, error, usage,
		       started_at, completed_at, created_at
		FROM executions
		WHERE status = 'QUEUED'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list queued executions: %w", err)
	}
	defer rows.Close()

	var executions []domain.Execution
	for rows.Next() {
		exec, err := r.scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *exec)
	}
	return executions, rows.Err()
}

// --- Helpers ---

// ExecutionFilter — параметры фильтрации executions.
type ExecutionFilter struct {
	WorkflowID *uuid.UUID
	Status     domain.ExecutionStatus
	Limit      int
	Offset     int
}

// scanExecution сканирует одну строку в Execution.
func (r *ExecutionRepo) scanExecution(row pgx.Row) (*domain.Execution, error) {
	var exec domain.Execution
	var logsJSON, resultsJSON, usageJSON []byte
	var execError *string

	err := row.Scan(
		&exec.ID,
		&exec.WorkflowID,
		&exec.Status,
		&logsJSON,
		&resultsJSON,
		&execError,
		&usageJSON,
		&exec.StartedAt,
		&exec.CompletedAt,
		&exec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if logsJSON != nil {
		if err := json.Unmarshal(logsJSON, &exec.Logs); err != nil {
			return nil, fmt.Errorf("unmarshal logs: %w", err)
		}
	}
	if resultsJSON != nil {
		if err := json.Unmarshal(resultsJSON, &exec.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results: %w", err)
		}
	}
	if usageJSON != nil {
		if err := json.Unmarshal(usageJSON, &exec.Usage); err != nil {
			return nil, fmt.Errorf("unmarshal usage: %w", err)
		}
	}
	if execError != nil {
		exec.Error = *execError
	}

	return &exec, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
