package collector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetJudge/internal/metrics"
	"AssetJudge/internal/model"
)

type failingFetcher struct {
	MockFetcher
	calls int
	err   error
}

func (f *failingFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.MockFetcher.FetchDailyBars(ctx, symbol, days)
}

func TestGuardedFetcher_PassesThrough(t *testing.T) {
	g := NewGuardedFetcher(&MockFetcher{Price: 50}, GuardConfig{RatePerSecond: 1000, Burst: 10}, metrics.NewRegistry())

	bars, err := g.FetchDailyBars(context.Background(), "NVDA", 3)
	require.NoError(t, err)
	assert.Len(t, bars, 3)

	fd, err := g.FetchFundamentals(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, "NVDA", fd.Name)
	assert.Equal(t, "mock", g.Name())
}

func TestGuardedFetcher_QuotaErrorIsNotRetried(t *testing.T) {
	inner := &failingFetcher{err: fmt.Errorf("yahoo: %w", ErrQuotaExceeded)}
	g := NewGuardedFetcher(inner, GuardConfig{RatePerSecond: 1000, Burst: 10}, nil)

	_, err := g.FetchDailyBars(context.Background(), "NVDA", 3)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 1, inner.calls)
}

func TestGuardedFetcher_BreakerOpens(t *testing.T) {
	inner := &failingFetcher{err: errors.New("connection refused")}
	g := NewGuardedFetcher(inner, GuardConfig{
		RatePerSecond:       1000,
		Burst:               10,
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
	}, metrics.NewRegistry())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := g.FetchDailyBars(ctx, "NVDA", 3)
		require.Error(t, err)
	}
	_, err := g.FetchDailyBars(ctx, "NVDA", 3)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, 2, inner.calls, "open breaker must short-circuit")
}

func TestGuardedFetcher_CanceledContext(t *testing.T) {
	g := NewGuardedFetcher(&MockFetcher{}, GuardConfig{RatePerSecond: 0.001, Burst: 1}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := g.FetchDailyBars(ctx, "A", 1) // consumes the only token
	require.NoError(t, err)

	cancel()
	_, err = g.FetchDailyBars(ctx, "A", 1)
	assert.Error(t, err)
}
