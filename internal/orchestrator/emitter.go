package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Navigata/internal/domain"
	"github.com/shaiso/Navigata/internal/events"
	"github.com/shaiso/Navigata/internal/repo"
)

// persistTimeout ограничивает одну запись журнала в БД.
const persistTimeout = 10 * time.Second

// Emitter — журнал одного execution.
//
// Emit делает три вещи: добавляет запись в журнал (append-only,
// порядок — порядок emit), рассылает событие подписчикам
// (fire-and-forget, at-most-once) и планирует персистенцию.
//
// Персистенцией занимается единственная горутина на execution:
// она пишет полный снимок журнала, поэтому конкурирующих писателей
// по одному execution id не бывает, а последняя запись всегда
// содержит все предыдущие. Сигнал о новых записях коалесцируется —
// при всплеске Emit'ов в БД уходит один снимок.
//
// Отсутствие execution в БД при персистенции журнала не фатально:
// запись логируется и пропускается.
type Emitter struct {
	executionID uuid.UUID
	store       Store
	broadcaster events.Broadcaster
	logger      *slog.Logger

	mu   sync.Mutex
	logs []domain.LogEntry

	dirty chan struct{}
	stop  chan struct{}
	done  chan struct{}
}

// NewEmitter создаёт Emitter и запускает горутину персистенции.
func NewEmitter(executionID uuid.UUID, store Store, broadcaster events.Broadcaster, logger *slog.Logger) *Emitter {
	e := &Emitter{
		executionID: executionID,
		store:       store,
		broadcaster: broadcaster,
		logger:      logger,
		dirty:       make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go e.persistLoop()
	return e
}

// Emit добавляет запись в журнал.
func (e *Emitter) Emit(level domain.LogLevel, category, message string) {
	entry := domain.LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Category:  category,
		Message:   message,
	}

	e.mu.Lock()
	e.logs = append(e.logs, entry)
	e.mu.Unlock()

	e.broadcaster.Publish(events.New(events.TypeLog, e.executionID, events.LogPayload{Entry: entry}))

	select {
	case e.dirty <- struct{}{}:
	default:
	}
}

// Logs возвращает снимок журнала.
func (e *Emitter) Logs() []domain.LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.logs)
}

// Close останавливает персистенцию, дописав незаписанный хвост журнала.
func (e *Emitter) Close() {
	close(e.stop)
	<-e.done
}

// persistLoop — единственный писатель журнала этого execution.
func (e *Emitter) persistLoop() {
	defer close(e.done)

	for {
		select {
		case <-e.stop:
			// Финальный слив
			select {
			case <-e.dirty:
				e.persist()
			default:
			}
			return
		case <-e.dirty:
			e.persist()
		}
	}
}

// persist пишет полный снимок журнала в БД.
func (e *Emitter) persist() {
	snapshot := e.Logs()
	if len(snapshot) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	err := e.store.UpdateExecution(ctx, e.executionID, domain.ExecutionPatch{Logs: snapshot})
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrNotFound):
		e.logger.Warn("execution missing, skipping log persistence",
			"execution_id", e.executionID,
		)
	default:
		e.logger.Error("failed to persist execution logs",
			"execution_id", e.executionID,
			"entries", len(snapshot),
			"error", err,
		)
	}
}
