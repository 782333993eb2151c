package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StepType — тип шага workflow.
type StepType string

const (
	// StepTypeNavigate — переход по URL.
	StepTypeNavigate StepType = "navigate"

	// StepTypeAct — выполнение инструктированного взаимодействия со страницей.
	StepTypeAct StepType = "act"

	// StepTypeExtract — извлечение структурированных данных по инструкции.
	StepTypeExtract StepType = "extract"

	// StepTypeObserve — наблюдение элементов/фактов на странице.
	StepTypeObserve StepType = "observe"

	// StepTypeAgent — делегирование автономному многоходовому агенту.
	StepTypeAgent StepType = "agent"

	// StepTypeWait — ожидание: фиксированная пауза или появление селектора.
	StepTypeWait StepType = "wait"

	// StepTypeScreenshot — снимок текущей страницы.
	StepTypeScreenshot StepType = "screenshot"

	// StepTypeScroll — прокрутка страницы.
	StepTypeScroll StepType = "scroll"
)

// Known возвращает true для известного типа шага.
// Неизвестные типы не являются ошибкой валидации: при выполнении
// они логируются как warning и пропускаются.
func (t StepType) Known() bool {
	switch t {
	case StepTypeNavigate, StepTypeAct, StepTypeExtract, StepTypeObserve,
		StepTypeAgent, StepTypeWait, StepTypeScreenshot, StepTypeScroll:
		return true
	default:
		return false
	}
}

// Step — один шаг workflow.
//
// Шаги создаются при авторинге workflow и не мутируются во время
// выполнения. Order — уникальный непрерывный индекс (0..N-1),
// задающий порядок выполнения и порядок агрегации результатов.
type Step struct {
	// ID — уникальный идентификатор шага.
	ID string `json:"id"`

	// Type — тип шага.
	Type StepType `json:"type"`

	// Description — человекочитаемое описание шага.
	Description string `json:"description,omitempty"`

	// Order — порядковый индекс шага в workflow.
	Order int `json:"order"`

	// Config — конфигурация шага. Интерпретация зависит от Type.
	// На wire остаётся map; DecodeConfig превращает её в типизированный
	// вариант и отклоняет мусор на этапе валидации, а не диспатча.
	Config map[string]any `json:"config,omitempty"`
}

// --- Типизированные конфигурации шагов ---
//
// Закрытое объединение: по одному варианту на тип шага.
// DecodeConfig валидирует и возвращает конкретный вариант,
// диспатчер делает исчерпывающий switch по типу.

// NavigateConfig — конфигурация navigate-шага.
type NavigateConfig struct {
	URL string `json:"url"`
}

// ActConfig — конфигурация act-шага.
type ActConfig struct {
	Action string `json:"action"`
}

// ExtractConfig — конфигурация extract-шага.
type ExtractConfig struct {
	Instruction string `json:"instruction"`

	// Schema — дескриптор структуры извлекаемых данных.
	// Опционален; без схемы extract возвращает свободную форму.
	Schema map[string]any `json:"schema,omitempty"`
}

// ObserveConfig — конфигурация observe-шага.
type ObserveConfig struct {
	Instruction string `json:"instruction"`
}

// AgentConfig — конфигурация agent-шага.
type AgentConfig struct {
	Instruction string `json:"instruction"`
}

// WaitConfig — конфигурация wait-шага.
type WaitConfig struct {
	// DurationMs — длительность фиксированной паузы.
	// Игнорируется, если задан Selector.
	DurationMs int `json:"duration_ms,omitempty"`

	// Selector — CSS-селектор, появления которого нужно дождаться.
	Selector string `json:"selector,omitempty"`

	// TimeoutMs — таймаут ожидания селектора (default: 30000).
	TimeoutMs int `json:"timeout_ms,omitempty"`
}

// ScreenshotConfig — конфигурация screenshot-шага.
type ScreenshotConfig struct {
	// Path — путь для сохранения снимка. Пустой — путь генерируется.
	Path string `json:"path,omitempty"`

	// FullPage — снимок всей страницы, а не viewport.
	FullPage bool `json:"full_page,omitempty"`
}

// ScrollDirection — направление прокрутки.
type ScrollDirection string

const (
	ScrollUp   ScrollDirection = "up"
	ScrollDown ScrollDirection = "down"
)

// ScrollConfig — конфигурация scroll-шага.
type ScrollConfig struct {
	Direction ScrollDirection `json:"direction"`
	Amount    int             `json:"amount"`
}

// DecodeConfig декодирует Config шага в типизированный вариант.
//
// Возвращает ошибку для известного типа с некорректной конфигурацией.
// Для неизвестного типа возвращает (nil, nil) — решение о пропуске
// принимает вызывающий.
func (s *Step) DecodeConfig() (any, error) {
	raw, err := json.Marshal(s.Config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	switch s.Type {
	case StepTypeNavigate:
		var cfg NavigateConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("decode navigate config: %w", err)
		}
		if cfg.URL == "" {
			return nil, fmt.Errorf("navigate: url is required")
		}
		return &cfg, nil

	case StepTypeAct:
		var cfg ActConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("decode act config: %w", err)
		}
		if cfg.Action == "" {
			return nil, fmt.Errorf("act: action is required")
		}
		return &cfg, nil

	case StepTypeExtract:
		cfg, err := decodeExtractConfig(s.Config)
		if err != nil {
			return nil, err
		}
		return cfg, nil

	case StepTypeObserve:
		var cfg ObserveConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("decode observe config: %w", err)
		}
		if cfg.Instruction == "" {
			return nil, fmt.Errorf("observe: instruction is required")
		}
		return &cfg, nil

	case StepTypeAgent:
		var cfg AgentConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("decode agent config: %w", err)
		}
		if cfg.Instruction == "" {
			return nil, fmt.Errorf("agent: instruction is required")
		}
		return &cfg, nil

	case StepTypeWait:
		var cfg WaitConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("decode wait config: %w", err)
		}
		if cfg.Selector == "" && cfg.DurationMs <= 0 {
			return nil, fmt.Errorf("wait: either selector or duration_ms is required")
		}
		return &cfg, nil

	case StepTypeScreenshot:
		var cfg ScreenshotConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("decode screenshot config: %w", err)
		}
		return &cfg, nil

	case StepTypeScroll:
		var cfg ScrollConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("decode scroll config: %w", err)
		}
		if cfg.Direction != ScrollUp && cfg.Direction != ScrollDown {
			return nil, fmt.Errorf("scroll: direction must be %q or %q", ScrollUp, ScrollDown)
		}
		if cfg.Amount <= 0 {
			return nil, fmt.Errorf("scroll: amount must be positive")
		}
		return &cfg, nil
	}

	// Неизвестный тип — не ошибка
	return nil, nil
}

// decodeExtractConfig обрабатывает особый случай extract:
// schema может прийти как структура или как закодированная JSON-строка;
// строка декодируется в дескриптор до использования.
func decodeExtractConfig(config map[string]any) (*ExtractConfig, error) {
	cfg := &ExtractConfig{}

	if v, ok := config["instruction"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("extract: instruction must be a string")
		}
		cfg.Instruction = s
	}
	if cfg.Instruction == "" {
		return nil, fmt.Errorf("extract: instruction is required")
	}

	v, ok := config["schema"]
	if !ok || v == nil {
		return cfg, nil
	}

	switch schema := v.(type) {
	case map[string]any:
		cfg.Schema = schema
	case string:
		if strings.TrimSpace(schema) == "" {
			return cfg, nil
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(schema), &decoded); err != nil {
			return nil, fmt.Errorf("extract: decode schema string: %w", err)
		}
		cfg.Schema = decoded
	default:
		return nil, fmt.Errorf("extract: schema must be an object or an encoded JSON string")
	}

	return cfg, nil
}
