package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"AssetJudge/internal/metrics"
	"AssetJudge/internal/model"
)

// GuardConfig tunes GuardedFetcher.
type GuardConfig struct {
	RatePerSecond float64
	Burst         int
	// ConsecutiveFailures trips the breaker; OpenTimeout is how long it stays open.
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// GuardedFetcher rate limits calls to an upstream Fetcher and stops calling
// it while a circuit breaker is open. Quota errors are returned immediately
// and never retried here.
type GuardedFetcher struct {
	inner   Fetcher
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Registry
}

// NewGuardedFetcher wraps inner with a token bucket and a circuit breaker.
func NewGuardedFetcher(inner Fetcher, cfg GuardConfig, m *metrics.Registry) *GuardedFetcher {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 60 * time.Second
	}

	st := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// Context cancellation says nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("source", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}
	return &GuardedFetcher{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(st),
		metrics: m,
	}
}

func (g *GuardedFetcher) Name() string { return g.inner.Name() }

func (g *GuardedFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	v, err := g.do(ctx, func() (any, error) { return g.inner.FetchDailyBars(ctx, symbol, days) })
	if err != nil {
		return nil, err
	}
	return v.([]model.OHLCV), nil
}

func (g *GuardedFetcher) FetchFundamentals(ctx context.Context, symbol string) (Fundamentals, error) {
	v, err := g.do(ctx, func() (any, error) { return g.inner.FetchFundamentals(ctx, symbol) })
	if err != nil {
		return Fundamentals{}, err
	}
	return v.(Fundamentals), nil
}

func (g *GuardedFetcher) do(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	start := time.Now()
	v, err := g.breaker.Execute(fn)
	g.metrics.ObserveFetch(g.inner.Name(), time.Since(start), err)

	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.metrics.FetchFailed("breaker_open")
		return nil, fmt.Errorf("%s: %v: %w", g.inner.Name(), err, ErrUpstream)
	case errors.Is(err, ErrQuotaExceeded):
		g.metrics.FetchFailed("quota")
	default:
		g.metrics.FetchFailed("upstream")
	}
	return nil, err
}
