package steps

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/Navigata/internal/domain"
)

// Registry — реестр executors по типу шага.
//
// Потокобезопасен.
type Registry struct {
	mu        sync.RWMutex
	executors map[domain.StepType]Executor
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[domain.StepType]Executor),
	}
}

// DefaultRegistry создаёт реестр со всеми стандартными executors.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(NewNavigateExecutor())
	r.Register(NewActExecutor())
	r.Register(NewExtractExecutor())
	r.Register(NewObserveExecutor())
	r.Register(NewAgentExecutor())
	r.Register(NewWaitExecutor())
	r.Register(NewScreenshotExecutor())
	r.Register(NewScrollExecutor())

	return r
}

// Register регистрирует executor в реестре.
// Существующий executor того же типа перезаписывается.
func (r *Registry) Register(executor Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[executor.Type()] = executor
}

// Get возвращает executor по типу шага.
// Возвращает ErrExecutorNotFound, если executor не найден.
func (r *Registry) Get(stepType domain.StepType) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	executor, exists := r.executors[stepType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrExecutorNotFound, stepType)
	}

	return executor, nil
}

// Has проверяет, зарегистрирован ли executor.
func (r *Registry) Has(stepType domain.StepType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.executors[stepType]
	return exists
}

// Types возвращает список всех зарегистрированных типов шагов.
func (r *Registry) Types() []domain.StepType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]domain.StepType, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
