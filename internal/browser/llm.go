package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/shaiso/Navigata/internal/gateway"
)

const (
	// maxSnapshotChars ограничивает текст страницы в промпте.
	maxSnapshotChars = 12000

	// maxAgentIterations ограничивает автономный цикл agent-шага.
	maxAgentIterations = 8

	llmTemperature = 0.0
	llmMaxTokens   = 4096
)

// pageSnapshot — текстовый снимок страницы для LLM-контекста.
type pageSnapshot struct {
	URL   string
	Title string
	Text  string
}

// snapshot собирает текущее состояние страницы.
func (s *chromeSession) snapshot(ctx context.Context) (*pageSnapshot, error) {
	var snap pageSnapshot
	err := s.run(ctx,
		chromedp.Location(&snap.URL),
		chromedp.Title(&snap.Title),
		chromedp.Text("body", &snap.Text, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("page snapshot: %w", err)
	}
	if len(snap.Text) > maxSnapshotChars {
		snap.Text = snap.Text[:maxSnapshotChars]
	}
	return &snap, nil
}

// complete выполняет LLM-запрос и отдаёт usage учётчику.
func (s *chromeSession) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := s.gateway.Complete(ctx, []gateway.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, llmTemperature, llmMaxTokens)
	if err != nil {
		return "", err
	}
	if s.recorder != nil {
		s.recorder.RecordUsage(resp.Usage)
	}
	return resp.Content(), nil
}

// Act выполняет действие на странице по текстовой инструкции.
//
// Модель получает снимок страницы и возвращает JavaScript, выполняющий
// действие; скрипт исполняется в сессии. Результат — подтверждение
// действия вместе с исполненным скриптом.
func (s *chromeSession) Act(ctx context.Context, action string) (any, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	const system = `You control a web page through JavaScript. ` +
		`Given the page state and an instruction, respond with a JSON object ` +
		`{"script": "<javascript>"} whose script performs the instruction ` +
		`against the live DOM. Respond with JSON only.`

	reply, err := s.complete(ctx, system, actPrompt(snap, action))
	if err != nil {
		return nil, fmt.Errorf("act %q: %w", action, err)
	}

	var cmd struct {
		Script string `json:"script"`
	}
	if err := decodeReply(reply, &cmd); err != nil {
		return nil, fmt.Errorf("act %q: parse model reply: %w", action, err)
	}
	if cmd.Script == "" {
		return nil, fmt.Errorf("act %q: model returned no script", action)
	}

	if err := s.run(ctx, chromedp.Evaluate(cmd.Script, nil)); err != nil {
		return nil, fmt.Errorf("act %q: %w", action, err)
	}

	return map[string]any{
		"action": action,
		"script": cmd.Script,
	}, nil
}

// Extract извлекает структурированные данные со страницы.
func (s *chromeSession) Extract(ctx context.Context, instruction string, schema map[string]any) (any, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	system := `You extract structured data from web pages. ` +
		`Respond with JSON only, no prose.`

	prompt := fmt.Sprintf("Page URL: %s\nPage title: %s\n\nPage text:\n%s\n\nInstruction: %s",
		snap.URL, snap.Title, snap.Text, instruction)
	if schema != nil {
		schemaJSON, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("extract: marshal schema: %w", err)
		}
		prompt += fmt.Sprintf("\n\nThe response must match this JSON schema:\n%s", schemaJSON)
	}

	reply, err := s.complete(ctx, system, prompt)
	if err != nil {
		return nil, fmt.Errorf("extract %q: %w", instruction, err)
	}

	var result any
	if err := decodeReply(reply, &result); err != nil {
		return nil, fmt.Errorf("extract %q: parse model reply: %w", instruction, err)
	}
	return result, nil
}

// Observe возвращает описание релевантных элементов страницы.
func (s *chromeSession) Observe(ctx context.Context, instruction string) (any, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	const system = `You describe interactive elements on a web page. ` +
		`Respond with a JSON array of objects {"description": string, ` +
		`"selector": string} listing the elements relevant to the ` +
		`instruction. Respond with JSON only.`

	prompt := fmt.Sprintf("Page URL: %s\nPage title: %s\n\nPage text:\n%s\n\nInstruction: %s",
		snap.URL, snap.Title, snap.Text, instruction)

	reply, err := s.complete(ctx, system, prompt)
	if err != nil {
		return nil, fmt.Errorf("observe %q: %w", instruction, err)
	}

	var result any
	if err := decodeReply(reply, &result); err != nil {
		return nil, fmt.Errorf("observe %q: parse model reply: %w", instruction, err)
	}
	return result, nil
}

// Agent итеративно выполняет многошаговую задачу на странице.
//
// Цикл ограничен maxAgentIterations: на каждой итерации модель видит
// свежий снимок страницы и либо выполняет очередное действие, либо
// объявляет задачу выполненной с результатом.
func (s *chromeSession) Agent(ctx context.Context, instruction string) (any, error) {
	const system = `You autonomously complete a task on a web page, one step ` +
		`at a time. Given the current page state and the goal, respond with ` +
		`a JSON object: {"action": "script", "script": "<javascript>"} to ` +
		`perform the next step, or {"action": "done", "result": <value>} ` +
		`when the goal is achieved. Respond with JSON only.`

	for i := 0; i < maxAgentIterations; i++ {
		snap, err := s.snapshot(ctx)
		if err != nil {
			return nil, err
		}

		prompt := fmt.Sprintf("Goal: %s\n\nStep %d of at most %d.\n\nPage URL: %s\nPage title: %s\n\nPage text:\n%s",
			instruction, i+1, maxAgentIterations, snap.URL, snap.Title, snap.Text)

		reply, err := s.complete(ctx, system, prompt)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", instruction, err)
		}

		var cmd struct {
			Action string          `json:"action"`
			Script string          `json:"script"`
			Result json.RawMessage `json:"result"`
		}
		if err := decodeReply(reply, &cmd); err != nil {
			return nil, fmt.Errorf("agent %q: parse model reply: %w", instruction, err)
		}

		switch cmd.Action {
		case "done":
			var result any
			if len(cmd.Result) > 0 {
				if err := json.Unmarshal(cmd.Result, &result); err != nil {
					return nil, fmt.Errorf("agent %q: parse result: %w", instruction, err)
				}
			}
			return result, nil

		case "script":
			if cmd.Script == "" {
				return nil, fmt.Errorf("agent %q: model returned no script", instruction)
			}
			if err := s.run(ctx, chromedp.Evaluate(cmd.Script, nil)); err != nil {
				return nil, fmt.Errorf("agent %q: step %d: %w", instruction, i+1, err)
			}

		default:
			return nil, fmt.Errorf("agent %q: unexpected action %q", instruction, cmd.Action)
		}
	}

	return nil, fmt.Errorf("agent %q: iteration limit reached (%d)", instruction, maxAgentIterations)
}

// actPrompt собирает промпт для Act.
func actPrompt(snap *pageSnapshot, action string) string {
	return fmt.Sprintf("Page URL: %s\nPage title: %s\n\nPage text:\n%s\n\nInstruction: %s",
		snap.URL, snap.Title, snap.Text, action)
}

// decodeReply парсит JSON-ответ модели, снимая markdown-ограждения.
func decodeReply(reply string, v any) error {
	cleaned := strings.TrimSpace(reply)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	if cleaned == "" {
		return fmt.Errorf("empty reply")
	}
	return json.Unmarshal([]byte(cleaned), v)
}
