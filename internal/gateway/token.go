package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Credentials — результат provisioning-коллаборатора.
type Credentials struct {
	// AccessToken — bearer-токен для запросов к upstream.
	AccessToken string `json:"access_token"`

	// BaseURL — опциональное переопределение базового URL upstream
	// (например, региональный endpoint).
	BaseURL string `json:"baseURL,omitempty"`
}

// TokenProvider — внешний коллаборатор, выдающий access-токен.
//
// Провайдер непрозрачен: клиент не делает предположений о том,
// откуда берётся токен. Ошибка Fetch фатальна для вызова,
// в рамках которого она произошла.
type TokenProvider interface {
	Fetch(ctx context.Context) (*Credentials, error)
}

// CommandProvider получает токен запуском внешней программы,
// печатающей JSON {"access_token": "...", "baseURL": "..."} в stdout.
type CommandProvider struct {
	// Command — путь к программе.
	Command string

	// Args — аргументы запуска.
	Args []string
}

// NewCommandProviderFromEnv создаёт CommandProvider из переменной
// окружения GATEWAY_TOKEN_COMMAND (команда с аргументами через пробел).
// Возвращает nil, если переменная не задана.
func NewCommandProviderFromEnv() *CommandProvider {
	raw := os.Getenv("GATEWAY_TOKEN_COMMAND")
	if raw == "" {
		return nil
	}
	parts := strings.Fields(raw)
	return &CommandProvider{Command: parts[0], Args: parts[1:]}
}

// Fetch запускает программу и парсит её вывод.
func (p *CommandProvider) Fetch(ctx context.Context) (*Credentials, error) {
	cmd := exec.CommandContext(ctx, p.Command, p.Args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: run %s: %v", ErrTokenFetch, p.Command, err)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		BaseURL     string `json:"baseURL"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("%w: parse output: %v", ErrTokenFetch, err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrTokenFetch, payload.Error)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access_token", ErrTokenFetch)
	}

	return &Credentials{AccessToken: payload.AccessToken, BaseURL: payload.BaseURL}, nil
}

// StaticProvider — провайдер с фиксированным токеном.
// Используется в разработке и тестах.
type StaticProvider struct {
	Token   string
	BaseURL string
}

// Fetch возвращает фиксированные credentials.
func (p *StaticProvider) Fetch(ctx context.Context) (*Credentials, error) {
	if p.Token == "" {
		return nil, fmt.Errorf("%w: static token is empty", ErrTokenFetch)
	}
	return &Credentials{AccessToken: p.Token, BaseURL: p.BaseURL}, nil
}
