// Package retry implements bounded exponential backoff for provider calls.
// The attempt loop is a small state machine: attempting, retry-wait,
// attempting, ... until succeeded or exhausted.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Config controls retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts including the first try.
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// InitialBackoff is the base delay before the first retry. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration. Default: 30s.
	MaxBackoff time.Duration

	// Multiplier scales the backoff after each attempt. Default: 2.0.
	Multiplier float64

	// JitterFraction adds random jitter as a fraction of the computed
	// delay (0.25 = ±25%). Zero disables jitter.
	JitterFraction float64

	// ShouldRetry decides whether the error from the given attempt
	// (1-based) warrants another try. Required; without it no error is
	// retried.
	ShouldRetry func(err error, attempt int) bool

	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error)

	// Sleep waits for the backoff delay. Defaults to a timer honoring
	// context cancellation; tests inject an instant version.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.Sleep == nil {
		c.Sleep = sleep
	}
	return c
}

// Result carries the value of a successful attempt plus how many attempts
// the loop consumed.
type Result[T any] struct {
	Value    T
	Attempts int
}

// Do executes fn with bounded retries. On exhaustion or a non-retryable
// error it returns the last error alongside the attempt count; the caller
// records the failure rather than escalating it.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (Result[T], error) {
	cfg = cfg.withDefaults()

	var res Result[T]
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		res.Attempts = attempt
		val, err := fn(ctx)
		if err == nil {
			res.Value = val
			return res, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return res, lastErr
		}
		if cfg.ShouldRetry == nil || !cfg.ShouldRetry(lastErr, attempt) {
			return res, lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr)
		}
		if err := cfg.Sleep(ctx, backoff(attempt, cfg)); err != nil {
			return res, lastErr
		}
	}
	return res, lastErr
}

func backoff(attempt int, cfg Config) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}
	if cfg.JitterFraction > 0 {
		jitterRange := delay * cfg.JitterFraction
		delay += (rand.Float64()*2 - 1) * jitterRange
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Logger returns an OnRetry callback logging each retry attempt.
func Logger(operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
