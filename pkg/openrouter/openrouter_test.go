package openrouter

import (
	"context"
	"errors"
	"testing"
)

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	cfg := &Config{Model: "openai/gpt-4o-mini"}
	if _, err := cfg.New(context.Background()); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := NewClient(Config{APIKey: "  "}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestNewBuildsChatModel(t *testing.T) {
	t.Parallel()

	tokens := 256
	cfg := &Config{
		BaseURL:            "https://openrouter.example/api/v1/",
		APIKey:             "test-key",
		Model:              "x-ai/grok-4.1-fast",
		MaxCompletionToken: &tokens,
	}
	m, err := cfg.New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m == nil {
		t.Fatal("expected chat model")
	}

	client, err := NewClient(*cfg)
	if err != nil || client == nil {
		t.Fatalf("NewClient() = %v, %v", client, err)
	}
}
