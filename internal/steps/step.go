package steps

import (
	"context"
	"errors"

	"github.com/shaiso/Navigata/internal/browser"
	"github.com/shaiso/Navigata/internal/domain"
)

// Ошибки шагов.
var (
	// ErrExecutorNotFound — тип шага не найден в реестре.
	ErrExecutorNotFound = errors.New("step executor not found")

	// ErrInvalidConfig — невалидная конфигурация шага.
	ErrInvalidConfig = errors.New("invalid step config")
)

// Result — результат выполнения шага.
//
// Present различает "шаг не производит результата" (navigate, act,
// wait, scroll) и "результат — пустое значение": в агрегацию execution
// попадают только present-результаты, в исходном порядке шагов.
type Result struct {
	// Value — значение результата.
	Value any

	// Present — true, если шаг производит результат.
	Present bool
}

// Some возвращает present-результат со значением.
func Some(value any) Result {
	return Result{Value: value, Present: true}
}

// None возвращает отсутствующий результат.
func None() Result {
	return Result{}
}

// Executor — интерфейс для типов шагов.
//
// cfg — типизированная конфигурация, уже декодированная и провалиденная
// диспатчером (вариант закрытого объединения domain.*Config).
type Executor interface {
	// Type возвращает тип шага.
	Type() domain.StepType

	// Execute выполняет шаг в browser-сессии.
	// Должен проверять ctx.Done() на долгих операциях.
	Execute(ctx context.Context, session browser.Session, cfg any) (Result, error)
}
