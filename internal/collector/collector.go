// Package collector turns upstream market data into graded-ready snapshots.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"AssetJudge/internal/calculator"
	"AssetJudge/internal/model"
)

const (
	// VIXSymbol is the volatility index the Shield filter reads.
	VIXSymbol = "^VIX"
	// historyDays covers MA200 plus the current session.
	historyDays = 260
	rsiPeriod   = 14
)

// Batch is one collection pass: everything a scan needs except settings and equity.
type Batch struct {
	VIX       float64
	Snapshots []model.Snapshot
	Indices   []model.MarketIndex
	// Excluded lists tickers whose data could not be assembled.
	Excluded []model.ExcludedTicker
}

// Collector orchestrates data fetching and indicator computation.
type Collector struct {
	Fetcher Fetcher
	Tickers []string
	// Indices maps display name to index symbol.
	Indices map[string]string
	// Sectors maps a ticker to the symbol its gap is measured against.
	Sectors          map[string]string
	DefaultBenchmark string
	Now              func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, tickers []string, indices, sectors map[string]string, defaultBenchmark string) *Collector {
	return &Collector{
		Fetcher:          fetcher,
		Tickers:          tickers,
		Indices:          indices,
		Sectors:          sectors,
		DefaultBenchmark: defaultBenchmark,
		Now:              time.Now,
	}
}

// Collect fetches the VIX, index readouts and one snapshot per ticker.
// A quota error or a missing VIX aborts the pass; any other per-ticker
// failure excludes that ticker only.
func (c *Collector) Collect(ctx context.Context) (*Batch, error) {
	vix, err := c.FetchVIX(ctx)
	if err != nil {
		return nil, err
	}
	b := &Batch{VIX: vix}

	if b.Indices, err = c.collectIndices(ctx); err != nil {
		return nil, err
	}

	benchmarks := make(map[string]float64)
	for _, ticker := range c.Tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snap, err := c.CollectTicker(ctx, ticker, benchmarks)
		if err != nil {
			if errors.Is(err, ErrQuotaExceeded) {
				return nil, err
			}
			log.Warn().Str("ticker", ticker).Err(err).Msg("ticker skipped")
			b.Excluded = append(b.Excluded, model.ExcludedTicker{Ticker: ticker, Reason: err.Error()})
			continue
		}
		b.Snapshots = append(b.Snapshots, *snap)
	}

	log.Info().
		Str("source", c.Fetcher.Name()).
		Float64("vix", vix).
		Int("snapshots", len(b.Snapshots)).
		Int("excluded", len(b.Excluded)).
		Msg("collection finished")
	return b, nil
}

// FetchVIX returns the latest VIX close.
func (c *Collector) FetchVIX(ctx context.Context) (float64, error) {
	bars, err := c.Fetcher.FetchDailyBars(ctx, VIXSymbol, 5)
	if err != nil {
		return 0, fmt.Errorf("fetch vix: %w", err)
	}
	if len(bars) == 0 || bars[len(bars)-1].Close <= 0 {
		return 0, fmt.Errorf("fetch vix: empty series: %w", ErrUpstream)
	}
	return bars[len(bars)-1].Close, nil
}

func (c *Collector) collectIndices(ctx context.Context) ([]model.MarketIndex, error) {
	names := make([]string, 0, len(c.Indices))
	for name := range c.Indices {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]model.MarketIndex, 0, len(names))
	for _, name := range names {
		bars, err := c.Fetcher.FetchDailyBars(ctx, c.Indices[name], 5)
		if err == nil {
			var idx model.MarketIndex
			if idx, err = calculator.IndexReadout(name, bars); err == nil {
				out = append(out, idx)
				continue
			}
		}
		if errors.Is(err, ErrQuotaExceeded) {
			return nil, fmt.Errorf("index %s: %w", name, err)
		}
		log.Warn().Str("index", name).Err(err).Msg("index readout skipped")
	}
	return out, nil
}

// CollectTicker assembles one snapshot. benchmarks memoizes 1M benchmark
// returns across tickers and may be nil.
func (c *Collector) CollectTicker(ctx context.Context, ticker string, benchmarks map[string]float64) (*model.Snapshot, error) {
	bars, err := c.Fetcher.FetchDailyBars(ctx, ticker, historyDays)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	if len(bars) < 2 {
		return nil, fmt.Errorf("%s: need at least two sessions: %w", ticker, ErrUpstream)
	}
	today, prev := bars[len(bars)-1], bars[len(bars)-2]

	ma200, err := calculator.CalculateMA200(bars)
	if err != nil {
		return nil, fmt.Errorf("ma200: %w", err)
	}
	rsi, err := calculator.CalculateRSI(bars, rsiPeriod)
	if err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}
	stockRet, err := calculator.CalculateMonthReturn(bars)
	if err != nil {
		return nil, fmt.Errorf("1m return: %w", err)
	}
	sectorRet, err := c.benchmarkReturn(ctx, ticker, benchmarks)
	if err != nil {
		return nil, err
	}
	fd, err := c.Fetcher.FetchFundamentals(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetch fundamentals: %w", err)
	}

	asOf := today.Time
	if asOf.IsZero() && c.Now != nil {
		asOf = c.Now()
	}
	return &model.Snapshot{
		Ticker:         ticker,
		Name:           fd.Name,
		AsOf:           asOf,
		Price:          today.Close,
		Open:           today.Open,
		PrevOpen:       prev.Open,
		PrevHigh:       prev.High,
		PrevLow:        prev.Low,
		PrevClose:      prev.Close,
		MA200:          ma200,
		RSI:            rsi,
		ForwardPE:      fd.ForwardPE,
		EarningsGrowth: fd.EarningsGrowth,
		RevenueGrowth:  fd.RevenueGrowth,
		SectorReturn1M: sectorRet,
		StockReturn1M:  stockRet,
	}, nil
}

// Benchmark returns the symbol a ticker's gap is measured against.
func (c *Collector) Benchmark(ticker string) string {
	if s, ok := c.Sectors[ticker]; ok && s != "" {
		return s
	}
	switch {
	case strings.HasSuffix(ticker, ".KS"):
		return "^KS11"
	case strings.HasSuffix(ticker, ".KQ"):
		return "^KQ11"
	}
	if c.DefaultBenchmark != "" {
		return c.DefaultBenchmark
	}
	return "^GSPC"
}

func (c *Collector) benchmarkReturn(ctx context.Context, ticker string, memo map[string]float64) (float64, error) {
	sym := c.Benchmark(ticker)
	if v, ok := memo[sym]; ok {
		return v, nil
	}
	bars, err := c.Fetcher.FetchDailyBars(ctx, sym, calculator.TradingDaysPerMonth+5)
	if err != nil {
		return 0, fmt.Errorf("fetch benchmark %s: %w", sym, err)
	}
	ret, err := calculator.CalculateMonthReturn(bars)
	if err != nil {
		return 0, fmt.Errorf("benchmark %s: %w", sym, err)
	}
	if memo != nil {
		memo[sym] = ret
	}
	return ret, nil
}
