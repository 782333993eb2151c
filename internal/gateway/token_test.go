package gateway

import (
	"context"
	"errors"
	"testing"
)

func TestStaticProvider_Fetch(t *testing.T) {
	p := &StaticProvider{Token: "abc", BaseURL: "https://llm.internal"}

	creds, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.AccessToken != "abc" {
		t.Errorf("unexpected token: %s", creds.AccessToken)
	}
	if creds.BaseURL != "https://llm.internal" {
		t.Errorf("unexpected base url: %s", creds.BaseURL)
	}
}

func TestStaticProvider_Fetch_Empty(t *testing.T) {
	p := &StaticProvider{}
	if _, err := p.Fetch(context.Background()); !errors.Is(err, ErrTokenFetch) {
		t.Errorf("expected ErrTokenFetch, got %v", err)
	}
}

func TestNewCommandProviderFromEnv(t *testing.T) {
	t.Setenv("GATEWAY_TOKEN_COMMAND", "")
	if p := NewCommandProviderFromEnv(); p != nil {
		t.Error("expected nil provider without env")
	}

	t.Setenv("GATEWAY_TOKEN_COMMAND", "/usr/local/bin/fetch-token --profile prod")
	p := NewCommandProviderFromEnv()
	if p == nil {
		t.Fatal("expected provider")
	}
	if p.Command != "/usr/local/bin/fetch-token" {
		t.Errorf("unexpected command: %s", p.Command)
	}
	if len(p.Args) != 2 || p.Args[0] != "--profile" {
		t.Errorf("unexpected args: %v", p.Args)
	}
}

func TestCommandProvider_Fetch(t *testing.T) {
	p := &CommandProvider{
		Command: "sh",
		Args:    []string{"-c", `echo '{"access_token":"tok-1","baseURL":"https://east.llm"}'`},
	}

	creds, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.AccessToken != "tok-1" {
		t.Errorf("unexpected token: %s", creds.AccessToken)
	}
	if creds.BaseURL != "https://east.llm" {
		t.Errorf("unexpected base url: %s", creds.BaseURL)
	}
}

func TestCommandProvider_Fetch_ErrorPayload(t *testing.T) {
	p := &CommandProvider{
		Command: "sh",
		Args:    []string{"-c", `echo '{"error":"not configured"}'`},
	}

	if _, err := p.Fetch(context.Background()); !errors.Is(err, ErrTokenFetch) {
		t.Errorf("expected ErrTokenFetch, got %v", err)
	}
}
