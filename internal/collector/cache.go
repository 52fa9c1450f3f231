package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"AssetJudge/internal/model"
)

// CachingFetcher decorates a Fetcher with Redis caching of fundamentals and
// daily bars. A nil client bypasses the cache.
type CachingFetcher struct {
	inner     Fetcher
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCachingFetcher wraps inner. If ttl is 0 it defaults to 6 hours; an
// empty namespace becomes "assetjudge".
func NewCachingFetcher(rdb *redis.Client, ttl time.Duration, inner Fetcher, namespace string) *CachingFetcher {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	if namespace == "" {
		namespace = "assetjudge"
	}
	return &CachingFetcher{inner: inner, rdb: rdb, ttl: ttl, namespace: namespace}
}

func (c *CachingFetcher) Name() string { return c.inner.Name() }

// FetchDailyBars caches bars for a shorter window than fundamentals since
// the last bar moves intraday.
func (c *CachingFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	key := fmt.Sprintf("%s:bars:%s:%s:%d", c.namespace, c.inner.Name(), safe(symbol), days)
	var out []model.OHLCV
	err := c.cached(ctx, key, c.ttl/12, &out, func() (any, error) {
		bars, err := c.inner.FetchDailyBars(ctx, symbol, days)
		out = bars
		return bars, err
	})
	return out, err
}

func (c *CachingFetcher) FetchFundamentals(ctx context.Context, symbol string) (Fundamentals, error) {
	key := fmt.Sprintf("%s:fund:%s:%s", c.namespace, c.inner.Name(), safe(symbol))
	var out Fundamentals
	err := c.cached(ctx, key, c.ttl, &out, func() (any, error) {
		f, err := c.inner.FetchFundamentals(ctx, symbol)
		out = f
		return f, err
	})
	return out, err
}

// cached fills out from Redis on a hit; on a miss it calls load, which must
// also set out, and stores the result best effort.
func (c *CachingFetcher) cached(ctx context.Context, key string, ttl time.Duration, out any, load func() (any, error)) error {
	if c.rdb == nil {
		_, err := load()
		return err
	}

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		if err := json.Unmarshal(b, out); err == nil {
			return nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	v, err := load()
	if err != nil {
		return err
	}
	if b, err := json.Marshal(v); err == nil {
		if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("cache store failed")
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
