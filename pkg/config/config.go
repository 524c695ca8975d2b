// Package config loads the modelprint YAML configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Provider types.
const (
	ProviderTypeOpenAI    = "openai"
	ProviderTypeAnthropic = "anthropic"
)

// Config holds all modelprint configuration.
type Config struct {
	Providers        []ProviderConfig `yaml:"providers"`
	Cache            CacheConfig      `yaml:"cache"`
	Dispatch         DispatchConfig   `yaml:"dispatch"`
	Generation       GenerationConfig `yaml:"generation"`
	Embedding        EmbeddingConfig  `yaml:"embedding"`
	Ledger           LedgerConfig     `yaml:"ledger"`
	FingerprintsPath string           `yaml:"fingerprints_path"`
	Log              LogConfig        `yaml:"log"`
	Setups           []Setup          `yaml:"setups"`
}

// ProviderConfig defines an upstream text-generation provider.
// Type is "openai" (default, any OpenAI-compatible gateway) or "anthropic".
type ProviderConfig struct {
	Name            string   `yaml:"name"`
	URL             string   `yaml:"url"`
	APIKey          string   `yaml:"api_key"`
	Type            string   `yaml:"type"`
	RPS             float64  `yaml:"rps"`
	ReasoningModels []string `yaml:"reasoning_models"`
}

// CacheConfig selects and locates the response cache backend.
type CacheConfig struct {
	Backend string `yaml:"backend"` // "fs", "sqlite", or "memory"
	Dir     string `yaml:"dir"`
	DBPath  string `yaml:"db_path"`
}

// DispatchConfig controls parallelism, timeouts, and the retry policy.
type DispatchConfig struct {
	Workers        int           `yaml:"workers"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	Timeout        time.Duration `yaml:"timeout"`
}

// GenerationConfig carries the numeric generation parameters sent upstream.
type GenerationConfig struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// EmbeddingConfig locates the embeddings backend.
type EmbeddingConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// LedgerConfig locates the result ledger.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// Setup is one named batch of tests sharing an input and reference text.
type Setup struct {
	Name           string       `yaml:"name"`
	InputText      string       `yaml:"input_text"`
	ReferenceText  string       `yaml:"reference_text"`
	Runs           int          `yaml:"runs"`
	RequestsPerRun int          `yaml:"requests_per_run"`
	Tests          []TestConfig `yaml:"tests"`
}

// TestConfig is one test within a setup.
type TestConfig struct {
	Model    string `yaml:"model"`
	Provider string `yaml:"provider"`
	Class    string `yaml:"class"`
	Payload  string `yaml:"payload"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Backend: "fs",
			Dir:     ".modelprint/cache",
			DBPath:  "modelprint.db",
		},
		Dispatch: DispatchConfig{
			Workers:        8,
			MaxAttempts:    3,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     30 * time.Second,
			Timeout:        30 * time.Second,
		},
		Generation: GenerationConfig{
			Temperature: 0.7,
			MaxTokens:   300,
		},
		Embedding: EmbeddingConfig{
			URL:   "https://api.jina.ai/v1",
			Model: "jina-embeddings-v3",
		},
		Ledger:           LedgerConfig{Path: "outputs.csv"},
		FingerprintsPath: "model_fingerprints.json",
		Log:              LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-references between setups and providers.
func (c *Config) Validate() error {
	names := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("config: provider with empty name")
		}
		if names[p.Name] {
			return fmt.Errorf("config: duplicate provider %q", p.Name)
		}
		names[p.Name] = true
	}
	for _, s := range c.Setups {
		for _, tc := range s.Tests {
			if !names[tc.Provider] {
				return fmt.Errorf("config: setup %q references unknown provider %q", s.Name, tc.Provider)
			}
		}
	}
	return nil
}

// Setup resolves a setup by name or zero-based index.
func (c *Config) Setup(selector string) (Setup, error) {
	if selector == "" {
		return Setup{}, fmt.Errorf("config: no setup selected")
	}
	for _, s := range c.Setups {
		if s.Name == selector {
			return s, nil
		}
	}
	if idx, err := strconv.Atoi(selector); err == nil {
		if idx < 0 || idx >= len(c.Setups) {
			return Setup{}, fmt.Errorf("config: setup index %d out of range (%d setups)", idx, len(c.Setups))
		}
		return c.Setups[idx], nil
	}
	return Setup{}, fmt.Errorf("config: unknown setup %q", selector)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("config: parse log level: %w", err)
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("config: build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return nil
}
