package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrWorkflowNotFound — workflow не найден.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExecutionNotFound — execution не найден.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrInvalidWorkflow — workflow не прошёл валидацию.
	ErrInvalidWorkflow = errors.New("invalid workflow")

	// ErrExecutionNotQueued — execution не в статусе QUEUED.
	ErrExecutionNotQueued = errors.New("execution is not in QUEUED status")

	// ErrExecutionActive — execution уже обрабатывается.
	ErrExecutionActive = errors.New("execution already being processed")

	// ErrExecutionFinished — execution уже в терминальном статусе.
	ErrExecutionFinished = errors.New("execution already finished")

	// ErrInitFailed — не удалось инициализировать выполнение
	// (запуск browser-сессии, переход в RUNNING).
	ErrInitFailed = errors.New("execution initialization failed")
)
