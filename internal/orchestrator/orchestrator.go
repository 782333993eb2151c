package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Navigata/internal/browser"
	"github.com/shaiso/Navigata/internal/domain"
	"github.com/shaiso/Navigata/internal/events"
	"github.com/shaiso/Navigata/internal/mq"
	"github.com/shaiso/Navigata/internal/repo"
	"github.com/shaiso/Navigata/internal/steps"
	"github.com/shaiso/Navigata/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 50
)

// Orchestrator управляет выполнением executions.
//
// Получает новые executions из очереди RabbitMQ (event-driven)
// и периодически проверяет QUEUED executions в БД (polling fallback);
// без подключения к RabbitMQ работает в polling-only режиме.
// Каждый активный execution принадлежит этому экземпляру до
// терминального статуса.
type Orchestrator struct {
	store       Store
	launcher    browser.Launcher
	dispatcher  *steps.Dispatcher
	broadcaster events.Broadcaster
	rates       domain.CostRates

	// MQ — опционально (nil → polling-only)
	publisher *mq.Publisher
	conn      *mq.Connection

	requestedConsumer *mq.Consumer
	cancelConsumer    *mq.Consumer

	// Active executions — executionID → cancel контекста выполнения
	mu     sync.RWMutex
	active map[uuid.UUID]context.CancelFunc

	pollInterval time.Duration
	batchSize    int

	// Lifecycle
	logger     *slog.Logger
	baseCtx    context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Orchestrator.
type Config struct {
	Store       Store
	Launcher    browser.Launcher
	Registry    *steps.Registry
	Broadcaster events.Broadcaster
	Rates       domain.CostRates

	// MQ — опционально
	Publisher *mq.Publisher
	Conn      *mq.Connection

	// Polling configuration
	PollInterval time.Duration // интервал polling (default: 10s)
	BatchSize    int           // количество executions за один poll (default: 50)

	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = steps.DefaultRegistry()
	}

	broadcaster := cfg.Broadcaster
	if broadcaster == nil {
		broadcaster = events.Multi{}
	}

	return &Orchestrator{
		store:        cfg.Store,
		launcher:     cfg.Launcher,
		dispatcher:   steps.NewDispatcher(registry, logger),
		broadcaster:  broadcaster,
		rates:        cfg.Rates,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		active:       make(map[uuid.UUID]context.CancelFunc),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Start запускает Orchestrator: consumers (при наличии MQ) и polling.
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	o.baseCtx = ctx
	o.cancelFunc = cancel

	o.logger.Info("starting orchestrator",
		"poll_interval", o.pollInterval,
		"batch_size", o.batchSize,
		"mq", o.conn != nil,
	)

	if o.conn != nil {
		o.requestedConsumer = mq.NewConsumer(o.conn, o.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueExecutionsRequested),
			Handler:  o.handleExecutionRequested,
			Prefetch: 10,
		})
		o.cancelConsumer = mq.NewConsumer(o.conn, o.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueExecutionsCancel),
			Handler:  o.handleExecutionCancel,
			Prefetch: 10,
		})

		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			if err := o.requestedConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				o.logger.Error("requested consumer error", "error", err)
			}
		}()

		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			if err := o.cancelConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				o.logger.Error("cancel consumer error", "error", err)
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.pollLoop(ctx)
	}()

	o.logger.Info("orchestrator started")
	return nil
}

// Stop останавливает Orchestrator, дождавшись активных executions.
func (o *Orchestrator) Stop() {
	o.logger.Info("stopping orchestrator...")

	if o.cancelFunc != nil {
		o.cancelFunc()
	}
	if o.requestedConsumer != nil {
		o.requestedConsumer.Stop()
	}
	if o.cancelConsumer != nil {
		o.cancelConsumer.Stop()
	}

	o.wg.Wait()

	o.logger.Info("orchestrator stopped")
}

// StartExecution создаёт execution для workflow и ставит его в очередь.
//
// Workflow валидируется здесь: авторинг-мусор (невалидные конфигурации
// известных типов, дубликаты order) отклоняется до создания execution.
func (o *Orchestrator) StartExecution(ctx context.Context, workflowID uuid.UUID) (*domain.Execution, error) {
	wf, err := o.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
		}
		return nil, fmt.Errorf("get workflow: %w", err)
	}

	if err := wf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkflow, err)
	}

	exec := domain.NewExecution(wf.ID)
	if err := o.store.CreateExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}

	o.logger.Info("execution queued", "execution_id", exec.ID, "workflow_id", wf.ID)

	if o.publisher != nil {
		if err := o.publisher.PublishExecutionRequested(ctx, exec.ID); err != nil {
			// Polling подхватит execution позже
			o.logger.Warn("failed to publish execution.requested, relying on polling",
				"execution_id", exec.ID,
				"error", err,
			)
		}
	}

	return exec, nil
}

// Cancel отменяет execution.
//
// Активный на этом экземпляре — отменяется контекст выполнения;
// QUEUED — переводится в CANCELLED напрямую; RUNNING на другом
// экземпляре — запрос уходит через очередь executions.cancel.
func (o *Orchestrator) Cancel(ctx context.Context, executionID uuid.UUID) error {
	if o.cancelActive(executionID) {
		o.logger.Info("cancelling active execution", "execution_id", executionID)
		return nil
	}

	exec, err := o.store.GetExecution(ctx, executionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
		}
		return fmt.Errorf("get execution: %w", err)
	}

	switch {
	case exec.Status.IsTerminal():
		return fmt.Errorf("%w: %s", ErrExecutionFinished, exec.Status)

	case exec.Status == domain.ExecutionStatusQueued:
		cancelled := domain.ExecutionStatusCancelled
		now := time.Now()
		if err := o.store.UpdateExecution(ctx, executionID, domain.ExecutionPatch{
			Status:      &cancelled,
			CompletedAt: &now,
		}); err != nil {
			return fmt.Errorf("cancel queued execution: %w", err)
		}
		o.broadcaster.Publish(events.New(events.TypeCancelled, executionID, nil))
		telemetry.ExecutionsTotal.WithLabelValues(string(cancelled)).Inc()
		o.logger.Info("queued execution cancelled", "execution_id", executionID)
		return nil

	default:
		// RUNNING на другом экземпляре
		if o.publisher == nil {
			return fmt.Errorf("execution %s is running elsewhere and no message queue is configured", executionID)
		}
		if err := o.publisher.PublishExecutionCancel(ctx, executionID); err != nil {
			return fmt.Errorf("publish cancel request: %w", err)
		}
		return nil
	}
}

// pollLoop — цикл polling для fallback.
func (o *Orchestrator) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу: подхватываем executions, созданные пока
	// оркестратор был выключен.
	o.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (o *Orchestrator) poll(ctx context.Context) {
	queued, err := o.store.ListQueuedExecutions(ctx, o.batchSize)
	if err != nil {
		o.logger.Error("failed to list queued executions", "error", err)
		return
	}

	if len(queued) == 0 {
		return
	}

	o.logger.Debug("poll found queued executions", "count", len(queued))

	for i := range queued {
		exec := &queued[i]
		if o.isActive(exec.ID) {
			continue
		}
		if err := o.processExecution(ctx, exec.ID); err != nil {
			o.logger.Error("failed to process execution from poll",
				"execution_id", exec.ID,
				"error", err,
			)
		}
	}
}

// isActive проверяет, выполняется ли execution на этом экземпляре.
func (o *Orchestrator) isActive(executionID uuid.UUID) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, exists := o.active[executionID]
	return exists
}

// addActive регистрирует execution как активный.
func (o *Orchestrator) addActive(executionID uuid.UUID, cancel context.CancelFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.active[executionID]; exists {
		return ErrExecutionActive
	}
	o.active[executionID] = cancel
	return nil
}

// removeActive удаляет execution из активных.
func (o *Orchestrator) removeActive(executionID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, executionID)
}

// cancelActive отменяет контекст активного execution.
// Возвращает false, если execution не активен на этом экземпляре.
func (o *Orchestrator) cancelActive(executionID uuid.UUID) bool {
	o.mu.RLock()
	cancel, exists := o.active[executionID]
	o.mu.RUnlock()

	if exists {
		cancel()
	}
	return exists
}

// ActiveCount возвращает количество активных executions.
func (o *Orchestrator) ActiveCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.active)
}
