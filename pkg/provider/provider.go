// Package provider presents one completion capability over heterogeneous
// remote text-generation backends.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/hypernym-ai/modelprint/pkg/config"
)

// Params are the numeric generation parameters for one completion.
type Params struct {
	Temperature float64
	MaxTokens   int
}

// Request is one completion request, provider-agnostic.
type Request struct {
	System string
	User   string
	Model  string
	Params Params
}

// Completion is a generated text with its provider-attributable model. Model
// is the backend's reported model, which for routing gateways may differ
// from the requested one.
type Completion struct {
	Text  string
	Model string
}

// Adapter is the uniform capability over one backend.
type Adapter interface {
	// Name returns the provider identifier.
	Name() string
	// IsReasoning reports whether model rejects a system role on this
	// backend. Reasoning models receive system and user prompts merged
	// into a single user message.
	IsReasoning(model string) bool
	// Complete generates text for the request.
	Complete(ctx context.Context, req Request) (Completion, error)
}

// Registry holds the adapters constructed from configuration.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds one adapter per configured provider. The variant is
// selected by the provider type at construction time.
func NewRegistry(cfgs []config.ProviderConfig, opts ...Option) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Adapter, len(cfgs))}
	for _, cfg := range cfgs {
		a, err := New(cfg, opts...)
		if err != nil {
			return nil, err
		}
		r.adapters[a.Name()] = a
	}
	return r, nil
}

// Get returns the adapter for name.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return a, nil
}

// List returns the registered provider names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

// New constructs a single adapter from its configuration.
func New(cfg config.ProviderConfig, opts ...Option) (Adapter, error) {
	base := newBase(cfg, opts...)
	switch cfg.Type {
	case "", config.ProviderTypeOpenAI:
		return &openaiAdapter{base: base}, nil
	case config.ProviderTypeAnthropic:
		return &anthropicAdapter{base: base}, nil
	default:
		return nil, fmt.Errorf("provider %q: unknown type %q", cfg.Name, cfg.Type)
	}
}

// Option configures adapter construction.
type Option func(*base)

// WithHTTPClient sets a custom HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *base) {
		b.http = hc
	}
}

// base carries the pieces shared by all adapter variants.
type base struct {
	name      string
	url       string
	apiKey    string
	reasoning map[string]bool
	limiter   *rate.Limiter
	http      *http.Client
}

func newBase(cfg config.ProviderConfig, opts ...Option) base {
	reasoning := make(map[string]bool, len(cfg.ReasoningModels))
	for _, m := range cfg.ReasoningModels {
		reasoning[m] = true
	}
	b := base{
		name:      cfg.Name,
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		reasoning: reasoning,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	if cfg.RPS > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) isReasoning(model string) bool {
	return b.reasoning[model]
}

// wait blocks until the provider's rate limiter admits another request.
func (b *base) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Wait(ctx)
}

// post sends a JSON body and returns the response body on 2xx, or a
// classified *Error otherwise. API keys go into headers only; they are never
// logged or included in error messages.
func (b *base) post(ctx context.Context, path string, headers map[string]string, payload any) ([]byte, error) {
	if err := b.wait(ctx); err != nil {
		return nil, &Error{Kind: KindTransient, Provider: b.name, Err: err}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: marshal request", b.name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url+path, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "%s: create request", b.name)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Provider: b.name, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Provider: b.name, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(b.name, resp.StatusCode, respBody)
	}
	return respBody, nil
}

// mergePrompts folds a system prompt into the user message for backends that
// reject the system role.
func mergePrompts(system, user string) string {
	if system == "" {
		return user
	}
	return system + "\n\n" + user
}
