package orchestrator

import (
	"time"

	"github.com/shaiso/Navigata/internal/domain"
	"github.com/shaiso/Navigata/internal/steps"
)

// Outcome — итог выполнения одного execution.
//
// Run всегда возвращает Outcome, даже при ошибке или панике:
// статус, агрегированные результаты, полный журнал, длительность
// и потреблённые токены. Отсутствие результатов выражается пустой
// коллекцией, никогда nil-ом с особым смыслом.
type Outcome struct {
	// Status — терминальный статус execution.
	Status domain.ExecutionStatus

	// Results — агрегированный результат шагов (см. aggregateResults).
	Results any

	// Error — текст ошибки при Status == FAILED.
	Error string

	// Logs — полный журнал execution.
	Logs []domain.LogEntry

	// Duration — длительность выполнения.
	Duration time.Duration

	// Usage — потреблённые токены LLM.
	Usage domain.TokenUsage
}

// StepResult — результат одного шага в агрегации из нескольких.
type StepResult struct {
	StepID string `json:"step_id"`
	Result any    `json:"result"`
}

// stepOutcome — результат диспатча одного шага.
type stepOutcome struct {
	step   domain.Step
	result steps.Result
	err    error
}

// aggregateResults сворачивает результаты шагов в форму ответа.
//
// Учитываются только present-результаты, в исходном порядке шагов:
//   - 0 результатов → пустой список
//   - 1 результат   → само значение, без обёртки
//   - ≥2 результатов → упорядоченный список {step_id, result}
func aggregateResults(outcomes []stepOutcome) any {
	var present []StepResult
	for _, o := range outcomes {
		if o.err == nil && o.result.Present {
			present = append(present, StepResult{
				StepID: o.step.ID,
				Result: o.result.Value,
			})
		}
	}

	switch len(present) {
	case 0:
		return []any{}
	case 1:
		return present[0].Result
	default:
		return present
	}
}
