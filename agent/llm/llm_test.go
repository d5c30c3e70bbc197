package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{fmt.Errorf("wrap: %w", contractx.ErrTransient), true},
		{errors.New("error, status code: 503, message: upstream unavailable"), true},
		{errors.New("error, status code: 429, message: rate limited"), true},
		{errors.New("error, status code: 400, message: bad request"), false},
		{errors.New("invalid api key"), false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestStripCodeFences(t *testing.T) {
	t.Parallel()

	msg, err := stripCodeFences(context.Background(), &schema.Message{Content: "```json\n{\"route\":\"medical\"}\n```"})
	if err != nil {
		t.Fatalf("stripCodeFences() error = %v", err)
	}
	if msg.Content != `{"route":"medical"}` {
		t.Fatalf("unexpected content: %q", msg.Content)
	}

	plain := &schema.Message{Content: `{"a":1}`}
	same, _ := stripCodeFences(context.Background(), plain)
	if same != plain {
		t.Fatal("plain JSON should pass through untouched")
	}
}

func TestConfigModelFor(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:              "k",
		Model:               "base",
		MaxCompletionToken:  100,
		Temperature:         0.3,
		RouterModel:         "router",
		RouterTemperature:   0,
		MedicalTemperature:  -1,
		ExtractTemperature:  0.1,
		DiagnoseTemperature: -1,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got := cfg.ModelFor(contractx.AgentTypeSupervisor); got != "router" {
		t.Fatalf("router model = %s", got)
	}
	if got := cfg.ModelFor(contractx.AgentTypeMedical); got != "base" {
		t.Fatalf("medical model = %s", got)
	}

	router := cfg.OpenRouterFor(contractx.AgentTypeSupervisor)
	if router.Temperature != 0 || router.Model != "router" {
		t.Fatalf("unexpected router config: %#v", router)
	}
	if medical := cfg.OpenRouterFor(contractx.AgentTypeMedical); medical.Temperature != 0.3 {
		t.Fatalf("medical should fall back to base temperature, got %v", medical.Temperature)
	}
	if extract := cfg.OpenRouterFor(contractx.AgentTypeExtractor); extract.Temperature != 0.1 {
		t.Fatalf("unexpected extract temperature %v", extract.Temperature)
	}

	if err := (Config{Model: "m", MaxCompletionToken: 1}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRetryRepeatsTransientFailureOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := Retry(context.Background(), RetryPolicy{Retries: 1}, "extract", func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", fmt.Errorf("upstream: %w", contractx.ErrTransient)
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("Retry() = %q, %v", got, err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRetryStopsOnPermanentFailureAndExhaustion(t *testing.T) {
	t.Parallel()

	calls := 0
	permanent := errors.New("invalid api key")
	_, err := Retry(context.Background(), RetryPolicy{Retries: 3}, "diagnose", func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("permanent failure retried: calls=%d err=%v", calls, err)
	}

	calls = 0
	_, err = Retry(context.Background(), RetryPolicy{Retries: 1}, "diagnose", func(context.Context) (int, error) {
		calls++
		return 0, contractx.ErrTransient
	})
	if !errors.Is(err, contractx.ErrTransient) || calls != 2 {
		t.Fatalf("expected two attempts, calls=%d err=%v", calls, err)
	}
}

func TestRetryHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, RetryPolicy{Retries: 2, Backoff: time.Hour}, "extract", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, contractx.ErrTransient
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}
