package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Navigata/internal/domain"
	"github.com/shaiso/Navigata/internal/mq"
	"github.com/shaiso/Navigata/internal/repo"
)

// Scheduler — планировщик, обрабатывающий due schedules.
type Scheduler struct {
	scheduleRepo  *repo.ScheduleRepo
	workflowRepo  *repo.WorkflowRepo
	executionRepo *repo.ExecutionRepo
	publisher     *mq.Publisher
	logger        *slog.Logger
	batchSize     int
}

// Config — конфигурация Scheduler.
type Config struct {
	ScheduleRepo  *repo.ScheduleRepo
	WorkflowRepo  *repo.WorkflowRepo
	ExecutionRepo *repo.ExecutionRepo
	Publisher     *mq.Publisher
	Logger        *slog.Logger
	BatchSize     int // количество schedules за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Scheduler{
		scheduleRepo:  cfg.ScheduleRepo,
		workflowRepo:  cfg.WorkflowRepo,
		executionRepo: cfg.ExecutionRepo,
		publisher:     cfg.Publisher,
		logger:        cfg.Logger,
		batchSize:     batchSize,
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due schedules (enabled=true, next_due_at <= now)
// 2. Для каждого schedule создаёт execution
// 3. Обновляет next_due_at
// 4. Публикует execution.requested в RabbitMQ
//
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	schedules, err := s.scheduleRepo.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, created int
	for i := range schedules {
		sched := &schedules[i]

		execCreated, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			// Продолжаем обработку остальных
			continue
		}

		processed++
		if execCreated {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"executions_created", created,
	)

	return nil
}

// processSchedule обрабатывает один schedule.
// Возвращает true, если execution был создан.
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	// 1. Проверяем, что workflow существует и валиден
	wf, err := s.workflowRepo.GetByID(ctx, sched.WorkflowID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("workflow not found for schedule, skipping",
				"schedule_id", sched.ID,
				"workflow_id", sched.WorkflowID,
			)
			return false, nil
		}
		return false, fmt.Errorf("get workflow: %w", err)
	}

	if err := wf.Validate(); err != nil {
		s.logger.Warn("workflow invalid for schedule, skipping",
			"schedule_id", sched.ID,
			"workflow_id", sched.WorkflowID,
			"error", err,
		)
		return false, nil
	}

	// 2. Создаём execution
	exec := domain.NewExecution(wf.ID)
	if err := s.executionRepo.Create(ctx, exec); err != nil {
		return false, fmt.Errorf("create execution: %w", err)
	}

	s.logger.Info("created execution from schedule",
		"execution_id", exec.ID,
		"schedule_id", sched.ID,
		"schedule_name", sched.Name,
		"workflow_id", wf.ID,
	)

	// 3. Вычисляем следующее время выполнения
	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		s.logger.Error("failed to calculate next due, leaving schedule as is",
			"schedule_id", sched.ID,
			"error", err,
		)
		return true, nil
	}

	// 4. Обновляем schedule
	sched.RecordRun(exec.ID, nextDue)
	if err := s.scheduleRepo.Update(ctx, sched); err != nil {
		return true, fmt.Errorf("update schedule: %w", err)
	}

	// 5. Публикуем событие в RabbitMQ (если publisher настроен)
	if s.publisher != nil {
		if err := s.publisher.PublishExecutionRequested(ctx, exec.ID); err != nil {
			// Не фатальная ошибка: execution уже в БД,
			// orchestrator заберёт его через polling
			s.logger.Warn("failed to publish execution.requested",
				"execution_id", exec.ID,
				"error", err,
			)
		}
	}

	return true, nil
}
