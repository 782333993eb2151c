package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shaiso/Navigata/internal/telemetry"
)

const (
	// maxAttempts — общий бюджет попыток на один вызов Complete.
	// Расходуется и на 401 (с обновлением токена), и на прочие ошибки
	// (без обновления и без backoff).
	maxAttempts = 3

	defaultTimeout = 2 * time.Minute
	maxErrorBody   = 4 * 1024
)

// Message — одно сообщение chat-completion запроса.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolCall — вызов инструмента в ответе модели.
type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// ResponseMessage — сообщение в ответе модели.
type ResponseMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Choice — один вариант ответа.
type Choice struct {
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// Usage — потребление токенов одного запроса.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response — каноничный ответ gateway.
type Response struct {
	ID      string   `json:"id,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Content возвращает текст первого choice. Пустая строка, если choices нет.
func (r *Response) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Recorder получает usage каждого успешного ответа.
// Реализуется учётчиком токенов execution.
type Recorder interface {
	RecordUsage(u Usage)
}

// Config — конфигурация Client.
type Config struct {
	// Provider — provisioning-коллаборатор для получения токена.
	Provider TokenProvider

	// Model — имя модели в запросах.
	Model string

	// BaseURL — базовый URL upstream. Провайдер токена может его
	// переопределить через Credentials.BaseURL.
	BaseURL string

	// InsecureSkipVerify — отключить проверку TLS-сертификата upstream.
	// По умолчанию сертификаты проверяются; флаг существует только для
	// окружений с перехватывающим прокси.
	InsecureSkipVerify bool

	// Timeout — таймаут одного HTTP запроса (default: 2m).
	Timeout time.Duration

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// Client — клиент LLM chat-completion endpoint'а за bearer-авторизацией.
//
// Состояние токена — явный автомат {NoToken, HasToken}: пустой token
// означает NoToken, 401 сбрасывает токен, следующая попытка получает
// новый у провайдера. Один Client можно использовать из нескольких
// горутин: состояние токена защищено мьютексом.
type Client struct {
	provider TokenProvider
	model    string
	baseURL  string
	http     *http.Client
	logger   *slog.Logger

	mu          sync.Mutex
	token       string
	overrideURL string
}

// New создаёт новый Client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transport := http.DefaultTransport
	if cfg.InsecureSkipVerify {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		transport = t
		logger.Warn("gateway TLS verification disabled")
	}

	return &Client{
		provider: cfg.Provider,
		model:    cfg.Model,
		baseURL:  cfg.BaseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger,
	}
}

// Complete выполняет chat-completion запрос.
//
// Протокол:
//  1. Без кэшированного токена — получить его у провайдера;
//     ошибка провайдера фатальна сразу, без ретраев.
//  2. POST {model, messages, temperature, max_tokens} с bearer-токеном.
//  3. 2xx — нормализованный ответ; 401 — сброс токена и ErrUnauthorized;
//     прочее — RequestError{status, body}.
//  4. Общий бюджет 3 попыток: 401 обновляет токен и тратит единицу
//     бюджета; прочие ошибки ретраятся в том же бюджете без обновления
//     токена и без задержки. Исчерпание — ErrBudgetExhausted.
func (c *Client) Complete(ctx context.Context, messages []Message, temperature float64, maxTokens int) (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		token, baseURL, err := c.ensureToken(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := c.do(ctx, token, baseURL, messages, temperature, maxTokens)
		if err == nil {
			telemetry.GatewayAttempts.WithLabelValues("ok").Inc()
			return resp, nil
		}
		lastErr = err

		if errors.Is(err, ErrUnauthorized) {
			telemetry.GatewayAttempts.WithLabelValues("unauthorized").Inc()
			c.invalidateToken()
			c.logger.Debug("gateway token rejected, will refresh", "attempt", attempt)
			continue
		}

		telemetry.GatewayAttempts.WithLabelValues("failed").Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Debug("gateway request failed, retrying", "attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrBudgetExhausted, maxAttempts, lastErr)
}

// ensureToken возвращает действующий токен и базовый URL,
// получая их у провайдера при необходимости.
func (c *Client) ensureToken(ctx context.Context) (token, baseURL string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" {
		creds, err := c.provider.Fetch(ctx)
		if err != nil {
			return "", "", err
		}
		c.token = creds.AccessToken
		if creds.BaseURL != "" {
			c.overrideURL = creds.BaseURL
		}
		c.logger.Debug("gateway token acquired")
	}

	baseURL = c.baseURL
	if c.overrideURL != "" {
		baseURL = c.overrideURL
	}
	return c.token, baseURL, nil
}

// invalidateToken сбрасывает кэшированный токен (переход в NoToken).
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// HasToken возвращает true, если токен закэширован.
func (c *Client) HasToken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

// completionRequest — wire-формат запроса.
type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// do выполняет один HTTP запрос.
func (c *Client) do(ctx context.Context, token, baseURL string, messages []Message, temperature float64, maxTokens int) (*Response, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, completionURL(baseURL), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 10*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case httpResp.StatusCode >= 200 && httpResp.StatusCode < 300:
		var resp Response
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
		return &resp, nil

	case httpResp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized

	default:
		return nil, &RequestError{
			Status: httpResp.StatusCode,
			Body:   truncate(string(respBody), maxErrorBody),
		}
	}
}

// completionURL нормализует базовый URL до полного endpoint'а.
func completionURL(baseURL string) string {
	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return strings.TrimSuffix(baseURL, "/") + "/chat/completions"
}

// truncate обрезает строку до max байт.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
