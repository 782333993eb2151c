package steps

import (
	"context"
	"fmt"

	"github.com/shaiso/Navigata/internal/browser"
	"github.com/shaiso/Navigata/internal/domain"
)

// ActExecutor — инструктированное действие на странице.
type ActExecutor struct{}

// NewActExecutor создаёт ActExecutor.
func NewActExecutor() *ActExecutor {
	return &ActExecutor{}
}

// Type возвращает тип шага.
func (e *ActExecutor) Type() domain.StepType {
	return domain.StepTypeAct
}

// Execute выполняет действие. Результат — подтверждение сессии
// о выполненном действии.
func (e *ActExecutor) Execute(ctx context.Context, session browser.Session, cfg any) (Result, error) {
	c, ok := cfg.(*domain.ActConfig)
	if !ok {
		return None(), fmt.Errorf("%w: act: unexpected config %T", ErrInvalidConfig, cfg)
	}

	outcome, err := session.Act(ctx, c.Action)
	if err != nil {
		return None(), err
	}
	return Some(outcome), nil
}

// ExtractExecutor — извлечение структурированных данных.
type ExtractExecutor struct{}

// NewExtractExecutor создаёт ExtractExecutor.
func NewExtractExecutor() *ExtractExecutor {
	return &ExtractExecutor{}
}

// Type возвращает тип шага.
func (e *ExtractExecutor) Type() domain.StepType {
	return domain.StepTypeExtract
}

// Execute извлекает данные со страницы.
func (e *ExtractExecutor) Execute(ctx context.Context, session browser.Session, cfg any) (Result, error) {
	c, ok := cfg.(*domain.ExtractConfig)
	if !ok {
		return None(), fmt.Errorf("%w: extract: unexpected config %T", ErrInvalidConfig, cfg)
	}

	data, err := session.Extract(ctx, c.Instruction, c.Schema)
	if err != nil {
		return None(), err
	}
	return Some(data), nil
}

// ObserveExecutor — наблюдение элементов страницы.
type ObserveExecutor struct{}

// NewObserveExecutor создаёт ObserveExecutor.
func NewObserveExecutor() *ObserveExecutor {
	return &ObserveExecutor{}
}

// Type возвращает тип шага.
func (e *ObserveExecutor) Type() domain.StepType {
	return domain.StepTypeObserve
}

// Execute возвращает описание релевантных элементов.
func (e *ObserveExecutor) Execute(ctx context.Context, session browser.Session, cfg any) (Result, error) {
	c, ok := cfg.(*domain.ObserveConfig)
	if !ok {
		return None(), fmt.Errorf("%w: observe: unexpected config %T", ErrInvalidConfig, cfg)
	}

	observations, err := session.Observe(ctx, c.Instruction)
	if err != nil {
		return None(), err
	}
	return Some(observations), nil
}

// AgentExecutor — автономное многошаговое выполнение задачи.
type AgentExecutor struct{}

// NewAgentExecutor создаёт AgentExecutor.
func NewAgentExecutor() *AgentExecutor {
	return &AgentExecutor{}
}

// Type возвращает тип шага.
func (e *AgentExecutor) Type() domain.StepType {
	return domain.StepTypeAgent
}

// Execute делегирует задачу агенту сессии.
func (e *AgentExecutor) Execute(ctx context.Context, session browser.Session, cfg any) (Result, error) {
	c, ok := cfg.(*domain.AgentConfig)
	if !ok {
		return None(), fmt.Errorf("%w: agent: unexpected config %T", ErrInvalidConfig, cfg)
	}

	result, err := session.Agent(ctx, c.Instruction)
	if err != nil {
		return None(), err
	}
	return Some(result), nil
}
