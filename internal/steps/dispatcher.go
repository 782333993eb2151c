package steps

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Navigata/internal/browser"
	"github.com/shaiso/Navigata/internal/domain"
	"github.com/shaiso/Navigata/internal/telemetry"
)

// Emitter принимает записи журнала execution.
// Реализуется эмиттером оркестратора.
type Emitter interface {
	Emit(level domain.LogLevel, category, message string)
}

// Dispatcher декодирует конфигурацию шага и диспатчит его executor'у.
//
// Вокруг каждого диспатча пишутся записи журнала: in-progress перед
// выполнением, success или error после. Ошибки executor'а
// распространяются без изменений — их интерпретирует режим выполнения
// (sequential или parallel).
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// NewDispatcher создаёт Dispatcher.
func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger,
	}
}

// Dispatch выполняет один шаг workflow в browser-сессии.
//
// Неизвестный тип шага — warning в журнал и пропуск: возвращается
// отсутствующий результат без ошибки.
func (d *Dispatcher) Dispatch(ctx context.Context, session browser.Session, step domain.Step, em Emitter) (Result, error) {
	label := stepLabel(step)

	if !step.Type.Known() {
		d.logger.Warn("unknown step type, skipping", "step_id", step.ID, "type", step.Type)
		em.Emit(domain.LogLevelWarning, "step", fmt.Sprintf("unknown step type %q, skipping %s", step.Type, label))
		return None(), nil
	}

	cfg, err := step.DecodeConfig()
	if err != nil {
		em.Emit(domain.LogLevelError, "step", fmt.Sprintf("%s: invalid config: %v", label, err))
		return None(), fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	executor, err := d.registry.Get(step.Type)
	if err != nil {
		em.Emit(domain.LogLevelError, "step", fmt.Sprintf("%s: %v", label, err))
		return None(), err
	}

	em.Emit(domain.LogLevelInfo, "step", fmt.Sprintf("executing %s", label))
	d.logger.Debug("dispatching step", "step_id", step.ID, "type", step.Type)

	start := time.Now()
	result, err := executor.Execute(ctx, session, cfg)
	telemetry.StepDuration.WithLabelValues(string(step.Type)).Observe(time.Since(start).Seconds())

	if err != nil {
		em.Emit(domain.LogLevelError, "step", fmt.Sprintf("%s failed: %v", label, err))
		return None(), err
	}

	em.Emit(domain.LogLevelSuccess, "step", fmt.Sprintf("%s completed", label))
	return result, nil
}

// stepLabel возвращает человекочитаемую метку шага для журнала.
func stepLabel(step domain.Step) string {
	if step.Description != "" {
		return fmt.Sprintf("step %q (%s: %s)", step.ID, step.Type, step.Description)
	}
	return fmt.Sprintf("step %q (%s)", step.ID, step.Type)
}
