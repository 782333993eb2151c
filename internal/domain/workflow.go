package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Workflow — определение автоматизации браузера.
//
// Workflow — это "рецепт": упорядоченный набор шагов плюс режим
// выполнения и конфигурация браузера. Во время выполнения workflow
// неизменяем; каждый запуск порождает отдельный Execution.
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id"`

	// Name — имя workflow (например, "price-monitor", "lead-scraper").
	Name string `json:"name"`

	// Steps — упорядоченный список шагов.
	// Order каждого шага уникален и непрерывен (0..N-1).
	Steps []Step `json:"steps"`

	// Mode — режим выполнения шагов: sequential или parallel.
	Mode ExecutionMode `json:"mode"`

	// Browser — конфигурация browser-сессии для этого workflow.
	Browser BrowserConfig `json:"browser"`

	// CreatedAt — время создания workflow.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// BrowserConfig — конфигурация browser-сессии.
type BrowserConfig struct {
	// Headless — запуск браузера без UI.
	Headless bool `json:"headless"`

	// ViewportWidth, ViewportHeight — размер viewport в пикселях.
	// Нулевые значения — размеры по умолчанию.
	ViewportWidth  int `json:"viewport_width,omitempty"`
	ViewportHeight int `json:"viewport_height,omitempty"`

	// UserAgent — переопределение user agent. Пустой — дефолтный.
	UserAgent string `json:"user_agent,omitempty"`
}

// Validate проверяет корректность workflow.
//
// Отклоняет мусор на этапе авторинга/валидации, а не во время
// выполнения: пустое имя, невалидный режим, дубликаты и разрывы
// в порядке шагов, некорректные конфигурации известных типов шагов.
// Неизвестный тип шага валидацию проходит — он будет пропущен
// с warning при выполнении.
func (w *Workflow) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if !w.Mode.Valid() {
		return fmt.Errorf("invalid execution mode: %q", w.Mode)
	}
	if len(w.Steps) == 0 {
		return fmt.Errorf("workflow has no steps")
	}

	seen := make(map[int]bool, len(w.Steps))
	for i := range w.Steps {
		step := &w.Steps[i]
		if step.ID == "" {
			return fmt.Errorf("step %d: id is required", i)
		}
		if seen[step.Order] {
			return fmt.Errorf("step %q: duplicate order %d", step.ID, step.Order)
		}
		seen[step.Order] = true

		if step.Type.Known() {
			if _, err := step.DecodeConfig(); err != nil {
				return fmt.Errorf("step %q: %w", step.ID, err)
			}
		}
	}

	// Порядок должен быть непрерывным: 0..N-1
	for i := 0; i < len(w.Steps); i++ {
		if !seen[i] {
			return fmt.Errorf("step order is not contiguous: missing index %d", i)
		}
	}

	return nil
}

// OrderedSteps возвращает шаги, отсортированные по Order.
func (w *Workflow) OrderedSteps() []Step {
	steps := make([]Step, len(w.Steps))
	copy(steps, w.Steps)
	sort.Slice(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})
	return steps
}
