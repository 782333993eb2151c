package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/shaiso/Navigata/internal/browser"
	"github.com/shaiso/Navigata/internal/domain"
)

// runParallel запускает все шаги одновременно против одной сессии.
//
// Best-effort: ошибка шага изолирована — она попадает в журнал
// (диспатчер пишет error-запись) и в outcome шага, но не прерывает
// остальные шаги и не фейлит execution. Паника шага ловится в его же
// горутине и становится ошибкой его outcome: recover в runExecution
// горутины шагов не покрывает. Результаты возвращаются в исходном
// порядке шагов независимо от порядка завершения.
func (o *Orchestrator) runParallel(ctx context.Context, session browser.Session, wf *domain.Workflow, em *Emitter) []stepOutcome {
	ordered := wf.OrderedSteps()
	outcomes := make([]stepOutcome, len(ordered))

	var wg sync.WaitGroup
	for i, step := range ordered {
		wg.Add(1)
		go func(idx int, step domain.Step) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("parallel step panicked",
						"execution_id", em.executionID,
						"step_id", step.ID,
						"panic", r,
					)
					em.Emit(domain.LogLevelError, "step", fmt.Sprintf("step %q panicked: %v", step.ID, r))
					outcomes[idx] = stepOutcome{step: step, err: fmt.Errorf("step %q panic: %v", step.ID, r)}
				}
			}()

			result, err := o.dispatcher.Dispatch(ctx, session, step, em)
			outcomes[idx] = stepOutcome{step: step, result: result, err: err}

			if err != nil {
				o.logger.Warn("parallel step failed",
					"execution_id", em.executionID,
					"step_id", step.ID,
					"error", err,
				)
			}
		}(i, step)
	}
	wg.Wait()

	return outcomes
}
