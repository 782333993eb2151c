package steps

import (
	"context"
	"fmt"

	"github.com/shaiso/Navigata/internal/browser"
	"github.com/shaiso/Navigata/internal/domain"
)

// NavigateExecutor — переход по URL.
type NavigateExecutor struct{}

// NewNavigateExecutor создаёт NavigateExecutor.
func NewNavigateExecutor() *NavigateExecutor {
	return &NavigateExecutor{}
}

// Type возвращает тип шага.
func (e *NavigateExecutor) Type() domain.StepType {
	return domain.StepTypeNavigate
}

// Execute переходит по URL. Результата не производит.
func (e *NavigateExecutor) Execute(ctx context.Context, session browser.Session, cfg any) (Result, error) {
	c, ok := cfg.(*domain.NavigateConfig)
	if !ok {
		return None(), fmt.Errorf("%w: navigate: unexpected config %T", ErrInvalidConfig, cfg)
	}

	if err := session.Navigate(ctx, c.URL); err != nil {
		return None(), err
	}
	return None(), nil
}
