package domain

// ExecutionStatus — статус выполнения execution.
//
// Жизненный цикл:
//
//	QUEUED → RUNNING → COMPLETED
//	                 ↘ FAILED
//	         (или) → CANCELLED (из QUEUED или RUNNING)
//
// Терминальный статус не меняется: никакой переход
// не выводит execution из COMPLETED/FAILED/CANCELLED.
type ExecutionStatus string

const (
	// ExecutionStatusQueued — execution создан, но ещё не начал выполняться.
	ExecutionStatusQueued ExecutionStatus = "QUEUED"

	// ExecutionStatusRunning — execution в процессе выполнения.
	ExecutionStatusRunning ExecutionStatus = "RUNNING"

	// ExecutionStatusCompleted — execution успешно завершён.
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"

	// ExecutionStatusFailed — execution завершился с ошибкой.
	ExecutionStatusFailed ExecutionStatus = "FAILED"

	// ExecutionStatusCancelled — execution отменён пользователем.
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный (execution завершён).
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// ExecutionMode — режим выполнения шагов workflow.
type ExecutionMode string

const (
	// ModeSequential — шаги выполняются строго по порядку;
	// первая ошибка прерывает оставшиеся шаги.
	ModeSequential ExecutionMode = "sequential"

	// ModeParallel — все шаги запускаются одновременно против одной
	// browser-сессии; ошибка одного шага не прерывает остальные.
	ModeParallel ExecutionMode = "parallel"
)

// Valid проверяет, что режим известен.
func (m ExecutionMode) Valid() bool {
	return m == ModeSequential || m == ModeParallel
}

// LogLevel — уровень записи в журнале execution.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelSuccess LogLevel = "success"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)
