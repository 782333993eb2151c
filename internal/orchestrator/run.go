package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Navigata/internal/browser"
	"github.com/shaiso/Navigata/internal/domain"
	"github.com/shaiso/Navigata/internal/events"
	"github.com/shaiso/Navigata/internal/telemetry"
)

// runExecution выполняет один execution от старта до терминального статуса.
//
// Гарантии:
//   - Паника любого шага не выходит наружу: execution финализируется
//     как FAILED с накопленным журналом и usage; длительность при
//     недоступном started_at считается от локального старта.
//   - Browser-сессия освобождается ровно один раз на любом пути:
//     успех, ошибка, отмена, паника.
//   - Возвращается всегда заполненный Outcome.
func (o *Orchestrator) runExecution(ctx context.Context, exec *domain.Execution, wf *domain.Workflow) (outcome Outcome) {
	logger := o.logger.With("execution_id", exec.ID, "workflow_id", wf.ID)

	em := NewEmitter(exec.ID, o.store, o.broadcaster, logger)
	accountant := NewAccountant(o.rates)
	start := time.Now()

	var session browser.Session
	var closeOnce sync.Once
	closeSession := func() {
		closeOnce.Do(func() {
			if session == nil {
				return
			}
			if err := session.Close(); err != nil {
				logger.Warn("failed to close browser session", "error", err)
			}
		})
	}

	// finalize закрывает сессию, останавливает писателя журнала
	// и записывает терминальное состояние.
	finalize := func(out Outcome) Outcome {
		closeSession()
		em.Close()

		out.Logs = em.Logs()
		out.Usage = accountant.Usage()
		if out.Duration <= 0 {
			out.Duration = time.Since(start)
		}

		o.persistTerminal(exec.ID, out)
		o.publishTerminal(exec.ID, out)
		telemetry.ExecutionsTotal.WithLabelValues(string(out.Status)).Inc()

		logger.Info("execution finished",
			"status", out.Status,
			"duration", out.Duration,
			"total_tokens", out.Usage.TotalTokens,
		)
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("execution panicked", "panic", r)
			em.Emit(domain.LogLevelError, "execution", fmt.Sprintf("panic: %v", r))
			outcome = finalize(Outcome{
				Status:  domain.ExecutionStatusFailed,
				Results: []any{},
				Error:   fmt.Sprintf("panic: %v", r),
			})
		}
	}()

	// QUEUED → RUNNING. Отсутствие execution здесь фатально.
	exec.MarkRunning()
	running := domain.ExecutionStatusRunning
	if err := o.store.UpdateExecution(ctx, exec.ID, domain.ExecutionPatch{
		Status:    &running,
		StartedAt: exec.StartedAt,
	}); err != nil {
		em.Emit(domain.LogLevelError, "execution", fmt.Sprintf("initialization failed: %v", err))
		return finalize(Outcome{
			Status:  domain.ExecutionStatusFailed,
			Results: []any{},
			Error:   fmt.Sprintf("%v: %v", ErrInitFailed, err),
		})
	}

	o.broadcaster.Publish(events.New(events.TypeStarted, exec.ID, events.StartedPayload{WorkflowID: wf.ID}))
	em.Emit(domain.LogLevelInfo, "execution", fmt.Sprintf("starting workflow %q (%d steps, %s mode)", wf.Name, len(wf.Steps), wf.Mode))

	var err error
	session, err = o.launcher.Launch(ctx, wf.Browser, accountant)
	if err != nil {
		em.Emit(domain.LogLevelError, "browser", fmt.Sprintf("browser launch failed: %v", err))
		return finalize(Outcome{
			Status:  domain.ExecutionStatusFailed,
			Results: []any{},
			Error:   fmt.Sprintf("%v: %v", ErrInitFailed, err),
		})
	}

	em.Emit(domain.LogLevelSuccess, "execution", "initialization success")

	var outcomes []stepOutcome
	var runErr error
	switch wf.Mode {
	case domain.ModeParallel:
		outcomes = o.runParallel(ctx, session, wf, em)
		if err := ctx.Err(); err != nil {
			runErr = err
		}
	default:
		outcomes, runErr = o.runSequential(ctx, session, wf, em)
	}

	results := aggregateResults(outcomes)

	if runErr != nil && errors.Is(runErr, context.Canceled) {
		em.Emit(domain.LogLevelWarning, "execution", "execution cancelled")
		return finalize(Outcome{
			Status:  domain.ExecutionStatusCancelled,
			Results: results,
		})
	}

	if runErr != nil {
		em.Emit(domain.LogLevelError, "execution", fmt.Sprintf("execution failed: %v", runErr))
		return finalize(Outcome{
			Status:  domain.ExecutionStatusFailed,
			Results: results,
			Error:   runErr.Error(),
		})
	}

	em.Emit(domain.LogLevelSuccess, "execution", fmt.Sprintf("workflow completed in %s", time.Since(start).Round(time.Millisecond)))
	return finalize(Outcome{
		Status:  domain.ExecutionStatusCompleted,
		Results: results,
	})
}

// persistTerminal записывает терминальное состояние execution.
// Писатель журнала уже остановлен: этот patch — единственный писатель.
func (o *Orchestrator) persistTerminal(executionID uuid.UUID, out Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	now := time.Now()
	patch := domain.ExecutionPatch{
		Status:      &out.Status,
		Logs:        out.Logs,
		Usage:       &out.Usage,
		CompletedAt: &now,
	}
	if out.Status == domain.ExecutionStatusCompleted {
		patch.Results = out.Results
	}
	if out.Error != "" {
		patch.Error = &out.Error
	}

	if err := o.store.UpdateExecution(ctx, executionID, patch); err != nil {
		o.logger.Error("failed to persist terminal execution state",
			"execution_id", executionID,
			"status", out.Status,
			"error", err,
		)
	}
}

// publishTerminal рассылает терминальное событие execution.
func (o *Orchestrator) publishTerminal(executionID uuid.UUID, out Outcome) {
	switch out.Status {
	case domain.ExecutionStatusCompleted:
		o.broadcaster.Publish(events.New(events.TypeCompleted, executionID, events.CompletedPayload{
			Results:    out.Results,
			DurationMs: out.Duration.Milliseconds(),
		}))
	case domain.ExecutionStatusFailed:
		o.broadcaster.Publish(events.New(events.TypeFailed, executionID, events.FailedPayload{
			Error: out.Error,
		}))
	case domain.ExecutionStatusCancelled:
		o.broadcaster.Publish(events.New(events.TypeCancelled, executionID, nil))
	}
}
