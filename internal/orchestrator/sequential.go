package orchestrator

import (
	"context"
	"fmt"

	"github.com/shaiso/Navigata/internal/browser"
	"github.com/shaiso/Navigata/internal/domain"
	"github.com/shaiso/Navigata/internal/events"
)

// runSequential выполняет шаги строго по порядку.
//
// Fail-fast: первая ошибка шага прерывает оставшиеся шаги; накопленные
// к этому моменту результаты возвращаются вместе с ошибкой. Перед
// каждым шагом эмитится progress-событие.
func (o *Orchestrator) runSequential(ctx context.Context, session browser.Session, wf *domain.Workflow, em *Emitter) ([]stepOutcome, error) {
	ordered := wf.OrderedSteps()
	outcomes := make([]stepOutcome, 0, len(ordered))

	for i, step := range ordered {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		o.broadcaster.Publish(events.New(events.TypeProgress, em.executionID, events.ProgressPayload{
			CurrentStep:     i + 1,
			TotalSteps:      len(ordered),
			StepDescription: step.Description,
		}))

		result, err := o.dispatcher.Dispatch(ctx, session, step, em)
		outcomes = append(outcomes, stepOutcome{step: step, result: result, err: err})

		if err != nil {
			return outcomes, fmt.Errorf("step %q: %w", step.ID, err)
		}
	}

	return outcomes, nil
}
