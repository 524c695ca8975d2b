// Package dispatch turns an ordered list of test specifications into
// completed responses with bounded parallelism, cache consultation,
// single-flight deduplication, and bounded retries.
package dispatch

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hypernym-ai/modelprint/pkg/cache"
	"github.com/hypernym-ai/modelprint/pkg/models"
	"github.com/hypernym-ai/modelprint/pkg/prompt"
	"github.com/hypernym-ai/modelprint/pkg/provider"
	"github.com/hypernym-ai/modelprint/pkg/retry"
)

// Providers resolves a provider name to its adapter. *provider.Registry
// satisfies this.
type Providers interface {
	Get(name string) (provider.Adapter, error)
}

// Config controls the dispatcher. Zero values fall back to defaults.
type Config struct {
	// Workers bounds the number of in-flight requests. Default: 8.
	Workers int

	// MaxAttempts, InitialBackoff, MaxBackoff, and JitterFraction feed
	// the per-request retry policy.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFraction float64

	// Timeout bounds each individual provider call. Exceeding it counts
	// as a transient failure and follows the retry policy. Default: 30s.
	Timeout time.Duration

	// Params are the generation parameters sent with every request.
	Params provider.Params

	// OnProgress, when set, observes completion counts. Not part of the
	// correctness contract.
	OnProgress func(done, total int)

	// Sleep overrides the retry backoff wait, for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Dispatcher executes test specs against providers through the cache.
type Dispatcher struct {
	store     cache.Store
	providers Providers
	cfg       Config
	flight    singleflight.Group
}

// New creates a Dispatcher. The cache store is the only resource shared by
// workers; single-flight plus the store's idempotent put keep it consistent.
func New(store cache.Store, providers Providers, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Dispatcher{store: store, providers: providers, cfg: cfg}
}

// Run dispatches every spec and returns one RawResponse per spec, in input
// order. Failures are recorded in their slot, never raised: the batch always
// drains, and a failed spec does not cancel its siblings.
func (d *Dispatcher) Run(ctx context.Context, inputText string, specs []models.TestSpec) []models.RawResponse {
	results := make([]models.RawResponse, len(specs))
	total := len(specs)
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			results[i] = d.dispatch(ctx, inputText, spec)
			if d.cfg.OnProgress != nil {
				d.cfg.OnProgress(int(done.Add(1)), total)
			}
			return nil
		})
	}
	// Workers never return errors; Wait is a drain barrier.
	_ = g.Wait()
	return results
}

// flightResult is what one single-flight leader shares with its waiters.
type flightResult struct {
	completion provider.Completion
	attempts   int
}

func (d *Dispatcher) dispatch(ctx context.Context, inputText string, spec models.TestSpec) models.RawResponse {
	start := time.Now()
	resp := models.RawResponse{Spec: spec}

	system, user := prompt.Render(inputText, spec)
	key := cache.Key(system, user, spec.Model, spec.Provider, spec.Index)

	adapter, err := d.providers.Get(spec.Provider)
	if err != nil {
		resp.Err = err.Error()
		resp.Elapsed = time.Since(start)
		return resp
	}

	if cached, ok, err := d.store.Get(ctx, spec.Provider, key); err == nil && ok {
		resp.Text = cached.Text
		resp.ActualModel = cached.ActualModel
		resp.Cached = true
		resp.Elapsed = time.Since(start)
		return resp
	}

	v, err, shared := d.flight.Do(key, func() (any, error) {
		return d.call(ctx, adapter, provider.Request{
			System: system,
			User:   user,
			Model:  spec.Model,
			Params: d.cfg.Params,
		}, spec, key)
	})
	fr, _ := v.(flightResult)
	resp.Attempts = fr.attempts
	resp.Elapsed = time.Since(start)
	if err != nil {
		resp.Err = err.Error()
		return resp
	}
	if shared {
		zap.L().Debug("reused in-flight result",
			zap.String("model", spec.Model),
			zap.String("provider", spec.Provider),
			zap.Int("index", spec.Index),
		)
	}
	resp.Text = fr.completion.Text
	resp.ActualModel = fr.completion.Model
	return resp
}

// call performs the upstream request with bounded retries and stores a
// successful response in the cache.
func (d *Dispatcher) call(ctx context.Context, adapter provider.Adapter, req provider.Request, spec models.TestSpec, key string) (flightResult, error) {
	cfg := retry.Config{
		MaxAttempts:    d.cfg.MaxAttempts,
		InitialBackoff: d.cfg.InitialBackoff,
		MaxBackoff:     d.cfg.MaxBackoff,
		JitterFraction: d.cfg.JitterFraction,
		ShouldRetry:    shouldRetry,
		OnRetry:        retry.Logger(spec.Provider + " completion"),
		Sleep:          d.cfg.Sleep,
	}

	res, err := retry.Do(ctx, cfg, func(ctx context.Context) (provider.Completion, error) {
		callCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
		return adapter.Complete(callCtx, req)
	})
	if err != nil {
		return flightResult{attempts: res.Attempts}, err
	}

	entry := models.CachedResponse{
		Key:         key,
		Provider:    spec.Provider,
		Model:       spec.Model,
		ActualModel: res.Value.Model,
		Text:        res.Value.Text,
		CreatedAt:   time.Now().UTC(),
	}
	if err := d.store.Put(ctx, entry); err != nil {
		// The response is still usable; only its reuse is lost.
		zap.L().Warn("cache put failed",
			zap.String("provider", spec.Provider),
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return flightResult{completion: res.Value, attempts: res.Attempts}, nil
}

// shouldRetry applies the provider error taxonomy: rate limits and
// transients retry within the attempt budget, malformed responses get a
// single extra attempt, invalid models never retry.
func shouldRetry(err error, attempt int) bool {
	if provider.IsInvalidModel(err) {
		return false
	}
	if provider.IsMalformed(err) {
		return attempt < 2
	}
	return provider.IsRetryable(err)
}
