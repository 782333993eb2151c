package domain

import (
	"time"

	"github.com/google/uuid"
)

// Execution — один запуск workflow.
//
// Execution создаётся когда:
//   - Пользователь запускает workflow вручную (через API/CLI)
//   - Scheduler создаёт execution по расписанию
//
// Инвариант владения: execution принадлежит ровно одному экземпляру
// оркестратора на всё время жизни; никакие два писателя не мутируют
// один execution id одновременно. После COMPLETED/FAILED/CANCELLED
// execution неизменяем.
type Execution struct {
	// ID — уникальный идентификатор execution.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на workflow, который выполняется.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Status — текущий статус выполнения.
	Status ExecutionStatus `json:"status"`

	// Logs — append-only журнал, строго упорядоченный по времени emit.
	Logs []LogEntry `json:"logs,omitempty"`

	// Results — агрегированный результат шагов.
	// Отсутствие данных (пустая коллекция) и ошибка — разные вещи:
	// ошибка выражается статусом FAILED и полем Error, никогда
	// значением Results.
	Results any `json:"results,omitempty"`

	// Error — текст ошибки, если execution завершился FAILED.
	Error string `json:"error,omitempty"`

	// Usage — накопленное потребление токенов LLM и оценка стоимости.
	Usage TokenUsage `json:"token_usage"`

	// StartedAt — время перехода в RUNNING.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt — время завершения (в любом терминальном статусе).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// CreatedAt — время создания execution.
	CreatedAt time.Time `json:"created_at"`
}

// NewExecution создаёт execution в статусе QUEUED.
func NewExecution(workflowID uuid.UUID) *Execution {
	return &Execution{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		Status:     ExecutionStatusQueued,
		CreatedAt:  time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если execution ещё не завершён.
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.CompletedAt == nil {
		return 0
	}
	return e.CompletedAt.Sub(*e.StartedAt)
}

// IsFinished возвращает true, если execution завершён.
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// MarkRunning переводит execution в статус RUNNING.
func (e *Execution) MarkRunning() {
	now := time.Now()
	e.Status = ExecutionStatusRunning
	e.StartedAt = &now
}

// MarkCompleted переводит execution в статус COMPLETED с результатами.
func (e *Execution) MarkCompleted(results any) {
	now := time.Now()
	e.Status = ExecutionStatusCompleted
	e.CompletedAt = &now
	e.Results = results
}

// MarkFailed переводит execution в статус FAILED с ошибкой.
// Журнал до точки падения сохраняется полностью.
func (e *Execution) MarkFailed(errMsg string) {
	now := time.Now()
	e.Status = ExecutionStatusFailed
	e.CompletedAt = &now
	e.Error = errMsg
}

// MarkCancelled переводит execution в статус CANCELLED.
func (e *Execution) MarkCancelled() {
	now := time.Now()
	e.Status = ExecutionStatusCancelled
	e.CompletedAt = &now
}

// LogEntry — запись журнала execution.
type LogEntry struct {
	// Timestamp — время emit записи.
	Timestamp time.Time `json:"timestamp"`

	// Level — уровень: info, success, warning, error.
	Level LogLevel `json:"level"`

	// Category — категория записи (например, "execution", "step", "browser").
	Category string `json:"category"`

	// Message — текст записи.
	Message string `json:"message"`
}

// ExecutionPatch — частичное обновление execution (merge-семантика).
//
// nil-поле означает "не трогать". Store применяет patch атомарно;
// отсутствующий execution id — не фатально для персистенции журнала,
// фатально для переходов статуса (решает вызывающий).
type ExecutionPatch struct {
	Status      *ExecutionStatus `json:"status,omitempty"`
	Logs        []LogEntry       `json:"logs,omitempty"`
	Results     any              `json:"results,omitempty"`
	Error       *string          `json:"error,omitempty"`
	Usage       *TokenUsage      `json:"token_usage,omitempty"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Apply накладывает patch на execution.
func (e *Execution) Apply(p ExecutionPatch) {
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Logs != nil {
		e.Logs = p.Logs
	}
	if p.Results != nil {
		e.Results = p.Results
	}
	if p.Error != nil {
		e.Error = *p.Error
	}
	if p.Usage != nil {
		e.Usage = *p.Usage
	}
	if p.StartedAt != nil {
		e.StartedAt = p.StartedAt
	}
	if p.CompletedAt != nil {
		e.CompletedAt = p.CompletedAt
	}
}
