package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Navigata/internal/domain"
	"github.com/shaiso/Navigata/internal/events"
	"github.com/shaiso/Navigata/internal/mq"
	"github.com/shaiso/Navigata/internal/repo"
	"github.com/shaiso/Navigata/internal/telemetry"
)

// handleExecutionRequested обрабатывает событие о новом execution.
func (o *Orchestrator) handleExecutionRequested(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ExecutionRequestedPayload](&delivery.Message)
	if err != nil {
		o.logger.Error("failed to parse execution.requested payload", "error", err)
		return err
	}

	o.logger.Debug("received execution.requested event", "execution_id", payload.ExecutionID)

	if o.isActive(payload.ExecutionID) {
		o.logger.Debug("execution already active, skipping", "execution_id", payload.ExecutionID)
		return nil
	}

	if err := o.processExecution(ctx, payload.ExecutionID); err != nil {
		// Сообщение могло обогнать запись в БД или прийти повторно
		if errors.Is(err, ErrExecutionNotQueued) || errors.Is(err, ErrExecutionActive) {
			o.logger.Debug("execution not processed", "execution_id", payload.ExecutionID, "reason", err)
			return nil
		}
		o.logger.Error("failed to process execution", "execution_id", payload.ExecutionID, "error", err)
		return err
	}

	return nil
}

// handleExecutionCancel обрабатывает запрос на отмену execution.
func (o *Orchestrator) handleExecutionCancel(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ExecutionCancelPayload](&delivery.Message)
	if err != nil {
		o.logger.Error("failed to parse execution.cancel payload", "error", err)
		return err
	}

	o.logger.Debug("received execution.cancel event", "execution_id", payload.ExecutionID)

	// Отмена адресована экземпляру, на котором execution выполняется;
	// остальные экземпляры сообщение игнорируют.
	if o.cancelActive(payload.ExecutionID) {
		o.logger.Info("cancelling active execution", "execution_id", payload.ExecutionID)
	}
	return nil
}

// processExecution берёт QUEUED execution в работу.
//
// Загружает и валидирует workflow, регистрирует execution как активный
// и запускает выполнение в отдельной горутине. Execution принадлежит
// этому экземпляру до терминального статуса.
func (o *Orchestrator) processExecution(ctx context.Context, executionID uuid.UUID) error {
	exec, err := o.store.GetExecution(ctx, executionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
		}
		return fmt.Errorf("get execution: %w", err)
	}

	if exec.Status != domain.ExecutionStatusQueued {
		return ErrExecutionNotQueued
	}

	wf, err := o.store.GetWorkflow(ctx, exec.WorkflowID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return o.failExecution(ctx, exec, fmt.Sprintf("workflow not found: %s", exec.WorkflowID))
		}
		return fmt.Errorf("get workflow: %w", err)
	}

	if err := wf.Validate(); err != nil {
		return o.failExecution(ctx, exec, fmt.Sprintf("invalid workflow: %v", err))
	}

	// Контекст выполнения живёт от baseCtx оркестратора, не от
	// контекста доставки сообщения; cancel доступен через Cancel.
	execCtx, execCancel := context.WithCancel(o.baseCtx)
	if err := o.addActive(executionID, execCancel); err != nil {
		execCancel()
		return err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer execCancel()
		defer o.removeActive(executionID)

		o.runExecution(execCtx, exec, wf)
	}()

	return nil
}

// failExecution переводит execution в FAILED без запуска.
func (o *Orchestrator) failExecution(ctx context.Context, exec *domain.Execution, reason string) error {
	o.logger.Warn("failing execution without start",
		"execution_id", exec.ID,
		"reason", reason,
	)

	failed := domain.ExecutionStatusFailed
	now := time.Now()
	if err := o.store.UpdateExecution(ctx, exec.ID, domain.ExecutionPatch{
		Status:      &failed,
		Error:       &reason,
		CompletedAt: &now,
		Logs: []domain.LogEntry{{
			Timestamp: now,
			Level:     domain.LogLevelError,
			Category:  "execution",
			Message:   reason,
		}},
	}); err != nil {
		return fmt.Errorf("fail execution: %w", err)
	}

	o.broadcaster.Publish(events.New(events.TypeFailed, exec.ID, events.FailedPayload{Error: reason}))
	telemetry.ExecutionsTotal.WithLabelValues(string(failed)).Inc()
	return nil
}
