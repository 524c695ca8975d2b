package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Dispatch.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Dispatch.Workers)
	}
	if cfg.Dispatch.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.Dispatch.MaxAttempts)
	}
	if cfg.Cache.Backend != "fs" {
		t.Errorf("expected fs backend, got %s", cfg.Cache.Backend)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_MARTIAN_KEY", "sk-test-123")

	content := `
providers:
  - name: martian
    url: https://withmartian.com/api/openai/v1
    api_key: ${TEST_MARTIAN_KEY}
    type: openai
    rps: 2
    reasoning_models: [o1-mini]
cache:
  backend: sqlite
  db_path: test.db
dispatch:
  workers: 4
  max_attempts: 5
  initial_backoff: 500ms
  timeout: 10s
setups:
  - name: natural
    input_text: "event::1=detail"
    reference_text: "The original paragraph."
    runs: 4
    requests_per_run: 10
    tests:
      - {model: router, provider: martian, class: natural}
      - {model: gpt-4o, provider: martian, class: payload-simple, payload: "A question?"}
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Providers[0].APIKey != "sk-test-123" {
		t.Errorf("env var not expanded: got %s", cfg.Providers[0].APIKey)
	}
	if cfg.Providers[0].RPS != 2 {
		t.Errorf("expected rps 2, got %v", cfg.Providers[0].RPS)
	}
	if cfg.Dispatch.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Dispatch.Workers)
	}
	if cfg.Dispatch.InitialBackoff != 500*time.Millisecond {
		t.Errorf("expected 500ms backoff, got %v", cfg.Dispatch.InitialBackoff)
	}
	// Defaults survive partial overrides.
	if cfg.Dispatch.MaxBackoff != 30*time.Second {
		t.Errorf("expected default max backoff, got %v", cfg.Dispatch.MaxBackoff)
	}
	if len(cfg.Setups) != 1 || len(cfg.Setups[0].Tests) != 2 {
		t.Fatalf("unexpected setups: %+v", cfg.Setups)
	}
	if cfg.Setups[0].Tests[1].Payload != "A question?" {
		t.Errorf("payload not loaded: %+v", cfg.Setups[0].Tests[1])
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.Providers = []ProviderConfig{{Name: "martian"}}
	cfg.Setups = []Setup{{Name: "s", Tests: []TestConfig{{Model: "m", Provider: "nope"}}}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown provider reference")
	}
}

func TestValidateDuplicateProvider(t *testing.T) {
	cfg := Default()
	cfg.Providers = []ProviderConfig{{Name: "a"}, {Name: "a"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for duplicate provider")
	}
}

func TestSetupSelection(t *testing.T) {
	cfg := Default()
	cfg.Setups = []Setup{{Name: "first"}, {Name: "second"}}

	if s, err := cfg.Setup("second"); err != nil || s.Name != "second" {
		t.Errorf("by name: %v %+v", err, s)
	}
	if s, err := cfg.Setup("0"); err != nil || s.Name != "first" {
		t.Errorf("by index: %v %+v", err, s)
	}
	if _, err := cfg.Setup("9"); err == nil {
		t.Error("expected out-of-range error")
	}
	if _, err := cfg.Setup("missing"); err == nil {
		t.Error("expected unknown-setup error")
	}
}
