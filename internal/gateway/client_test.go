package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// countingProvider считает обращения за токеном.
type countingProvider struct {
	fetches int32
	fail    bool
	token   string
	baseURL string
}

func (p *countingProvider) Fetch(ctx context.Context) (*Credentials, error) {
	atomic.AddInt32(&p.fetches, 1)
	if p.fail {
		return nil, ErrTokenFetch
	}
	token := p.token
	if token == "" {
		token = "test-token"
	}
	return &Credentials{AccessToken: token, BaseURL: p.baseURL}, nil
}

func completionBody(t *testing.T, content string, prompt, completion int) []byte {
	t.Helper()
	body, err := json.Marshal(Response{
		ID: "cmpl-1",
		Choices: []Choice{
			{Message: ResponseMessage{Role: "assistant", Content: content}, FinishReason: "stop"},
		},
		Usage: Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion},
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestClient_Complete_Success(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)

		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if req.MaxTokens != 256 {
			t.Errorf("unexpected max_tokens: %d", req.MaxTokens)
		}

		w.Write(completionBody(t, "hello", 10, 5))
	}))
	defer server.Close()

	provider := &countingProvider{}
	client := New(Config{Provider: provider, Model: "gpt-4o", BaseURL: server.URL})

	resp, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.2, 256)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content() != "hello" {
		t.Errorf("unexpected content: %s", resp.Content())
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
	if n := atomic.LoadInt32(&requests); n != 1 {
		t.Errorf("expected 1 request, got %d", n)
	}
	if !client.HasToken() {
		t.Error("token should be cached after success")
	}
}

func TestClient_Complete_UnauthorizedThenSuccess(t *testing.T) {
	// Первый запрос — 401, второй (после обновления токена) — 200.
	// Ожидаем: ровно 2 сетевые попытки, ровно 2 обращения за токеном.
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write(completionBody(t, "ok", 3, 2))
	}))
	defer server.Close()

	provider := &countingProvider{}
	client := New(Config{Provider: provider, Model: "gpt-4o", BaseURL: server.URL})

	resp, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0, 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content() != "ok" {
		t.Errorf("unexpected content: %s", resp.Content())
	}
	if n := atomic.LoadInt32(&requests); n != 2 {
		t.Errorf("expected exactly 2 network attempts, got %d", n)
	}
	if n := atomic.LoadInt32(&provider.fetches); n != 2 {
		t.Errorf("expected exactly 2 token fetches (initial + refresh), got %d", n)
	}
}

func TestClient_Complete_BudgetExhausted(t *testing.T) {
	// Три не-auth ошибки подряд — ErrBudgetExhausted после ровно
	// 3 попыток, токен не обновлялся.
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	provider := &countingProvider{}
	client := New(Config{Provider: provider, Model: "gpt-4o", BaseURL: server.URL})

	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0, 64)
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatal("expected wrapped RequestError")
	}
	if reqErr.Status != http.StatusBadGateway {
		t.Errorf("unexpected status: %d", reqErr.Status)
	}

	if n := atomic.LoadInt32(&requests); n != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", n)
	}
	if n := atomic.LoadInt32(&provider.fetches); n != 1 {
		t.Errorf("expected 1 token fetch (no refresh on non-auth failures), got %d", n)
	}
}

func TestClient_Complete_AllUnauthorized(t *testing.T) {
	// Все попытки — 401: исчерпание бюджета, обновление токена
	// на каждую попытку.
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := &countingProvider{}
	client := New(Config{Provider: provider, Model: "gpt-4o", BaseURL: server.URL})

	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0, 64)
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Error("last error should be ErrUnauthorized")
	}
	if n := atomic.LoadInt32(&requests); n != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", n)
	}
	if client.HasToken() {
		t.Error("token should be cleared after final 401")
	}
}

func TestClient_Complete_TokenFetchFailsImmediately(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach upstream")
	}))
	defer server.Close()

	provider := &countingProvider{fail: true}
	client := New(Config{Provider: provider, Model: "gpt-4o", BaseURL: server.URL})

	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0, 64)
	if !errors.Is(err, ErrTokenFetch) {
		t.Fatalf("expected ErrTokenFetch, got %v", err)
	}
	if n := atomic.LoadInt32(&provider.fetches); n != 1 {
		t.Errorf("token fetch failure must not be retried, got %d fetches", n)
	}
}

func TestClient_Complete_ProviderOverridesBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(completionBody(t, "ok", 1, 1))
	}))
	defer server.Close()

	// BaseURL в конфиге указывает в никуда; провайдер переопределяет.
	provider := &countingProvider{baseURL: server.URL}
	client := New(Config{Provider: provider, Model: "gpt-4o", BaseURL: "http://127.0.0.1:1"})

	resp, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0, 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content() != "ok" {
		t.Errorf("unexpected content: %s", resp.Content())
	}
}

func TestCompletionURL(t *testing.T) {
	cases := map[string]string{
		"https://api.example.com":                  "https://api.example.com/chat/completions",
		"https://api.example.com/":                 "https://api.example.com/chat/completions",
		"https://api.example.com/chat/completions": "https://api.example.com/chat/completions",
	}
	for in, want := range cases {
		if got := completionURL(in); got != want {
			t.Errorf("completionURL(%q) = %q, want %q", in, got, want)
		}
	}
}
