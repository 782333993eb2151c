package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Navigata/internal/browser"
	"github.com/shaiso/Navigata/internal/domain"
)

// defaultSelectorTimeout — таймаут ожидания селектора по умолчанию.
const defaultSelectorTimeout = 30 * time.Second

// WaitExecutor — пауза или ожидание появления селектора.
type WaitExecutor struct{}

// NewWaitExecutor создаёт WaitExecutor.
func NewWaitExecutor() *WaitExecutor {
	return &WaitExecutor{}
}

// Type возвращает тип шага.
func (e *WaitExecutor) Type() domain.StepType {
	return domain.StepTypeWait
}

// Execute ждёт. Селектор имеет приоритет над фиксированной паузой.
// Результата не производит.
func (e *WaitExecutor) Execute(ctx context.Context, session browser.Session, cfg any) (Result, error) {
	c, ok := cfg.(*domain.WaitConfig)
	if !ok {
		return None(), fmt.Errorf("%w: wait: unexpected config %T", ErrInvalidConfig, cfg)
	}

	if c.Selector != "" {
		timeout := defaultSelectorTimeout
		if c.TimeoutMs > 0 {
			timeout = time.Duration(c.TimeoutMs) * time.Millisecond
		}
		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := session.WaitForSelector(waitCtx, c.Selector); err != nil {
			return None(), err
		}
		return None(), nil
	}

	timer := time.NewTimer(time.Duration(c.DurationMs) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return None(), ctx.Err()
	case <-timer.C:
		return None(), nil
	}
}
