package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// GuardConfig bounds how hard an Embedder is driven.
type GuardConfig struct {
	// RPS caps calls per second; 0 disables the limiter.
	RPS float64
	// Failures is the count of consecutive failures that opens the circuit.
	Failures int
	// Cooldown is how long the circuit stays open before a trial call.
	Cooldown time.Duration
}

// Guard wraps an Embedder with a rate limiter and a circuit breaker. An
// open circuit fails fast with ErrUnavailable so callers fall back without
// waiting on a provider that is down.
type Guard struct {
	inner   Embedder
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuard creates a Guard around inner.
func NewGuard(inner Embedder, cfg GuardConfig, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	failures := cfg.Failures
	if failures <= 0 {
		failures = 5
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	g := &Guard{inner: inner}
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    inner.Name(),
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		// A cancelled caller says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("embedding provider circuit changed", "provider", name, "from", from.String(), "to", to.String())
		},
	})
	return g
}

// Name returns the wrapped embedder's name.
func (g *Guard) Name() string { return g.inner.Name() }

// State reports the circuit state, e.g. "closed" or "open".
func (g *Guard) State() string { return g.breaker.State().String() }

// Embed waits for the limiter, then calls the wrapped embedder through the breaker.
func (g *Guard) Embed(ctx context.Context, text string) ([]float32, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	out, err := g.breaker.Execute(func() (any, error) {
		return g.inner.Embed(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	vec, _ := out.([]float32)
	return vec, nil
}

var _ Embedder = (*Guard)(nil)
