package steps

import (
	"context"
	"fmt"

	"github.com/shaiso/Navigata/internal/browser"
	"github.com/shaiso/Navigata/internal/domain"
)

// ScrollExecutor — прокрутка страницы.
type ScrollExecutor struct{}

// NewScrollExecutor создаёт ScrollExecutor.
func NewScrollExecutor() *ScrollExecutor {
	return &ScrollExecutor{}
}

// Type возвращает тип шага.
func (e *ScrollExecutor) Type() domain.StepType {
	return domain.StepTypeScroll
}

// Execute прокручивает страницу. Результата не производит.
func (e *ScrollExecutor) Execute(ctx context.Context, session browser.Session, cfg any) (Result, error) {
	c, ok := cfg.(*domain.ScrollConfig)
	if !ok {
		return None(), fmt.Errorf("%w: scroll: unexpected config %T", ErrInvalidConfig, cfg)
	}

	if err := session.Scroll(ctx, c.Direction, c.Amount); err != nil {
		return None(), err
	}
	return None(), nil
}
