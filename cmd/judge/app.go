package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"AssetJudge/internal/collector"
	"AssetJudge/internal/config"
	"AssetJudge/internal/metrics"
	"AssetJudge/internal/notifier"
	"AssetJudge/internal/portfolio"
	"AssetJudge/internal/recorder"
	"AssetJudge/internal/scanner"
	"AssetJudge/internal/settings"
)

// app is the wired component graph shared by the commands.
type app struct {
	Metrics      *metrics.Registry
	Fetcher      collector.Fetcher
	Collector    *collector.Collector
	Gate         *collector.Gate
	Orchestrator *scanner.Orchestrator
	Settings     *settings.Store
	Portfolio    *portfolio.Manager
	Recorder     recorder.Recorder
	Telegram     *notifier.TelegramNotifier

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{Metrics: metrics.NewRegistry()}

	base, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	var f collector.Fetcher = collector.NewGuardedFetcher(base, collector.GuardConfig{
		RatePerSecond: cfg.DataSource.RateLimit,
		Burst:         cfg.DataSource.Burst,
	}, a.Metrics)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, cache disabled")
			_ = rdb.Close()
		} else {
			f = collector.NewCachingFetcher(rdb, cfg.Redis.TTL, f, "")
			a.closers = append(a.closers, rdb.Close)
			log.Info().Str("addr", cfg.Redis.Addr).Msg("redis cache enabled")
		}
	}
	a.Fetcher = f
	log.Info().Str("source", f.Name()).Msg("data source ready")

	a.Collector = collector.NewCollector(f, cfg.Universe.Tickers, cfg.Universe.Indices,
		cfg.Universe.Sectors, cfg.Universe.DefaultBenchmark)
	a.Gate = collector.NewGate(cfg.DataSource.Cooldown)

	a.Orchestrator = scanner.New(cfg.Portfolio.Currency, cfg.Portfolio.AmountPlaces, a.Metrics)
	a.Orchestrator.Policy = cfg.Policy()

	if a.Settings, err = settings.NewStore(cfg.Settings); err != nil {
		return nil, fmt.Errorf("init settings: %w", err)
	}
	if a.Portfolio, err = portfolio.NewManager(cfg.Portfolio.StateFile, cfg.Portfolio.Equity, cfg.Portfolio.Currency); err != nil {
		return nil, fmt.Errorf("init portfolio: %w", err)
	}

	a.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			a.Recorder = sr
		}
	}
	a.closers = append(a.closers, a.Recorder.Close)

	if cfg.TelegramEnabled() {
		a.Telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}
	return a, nil
}

func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	ds := cfg.DataSource
	switch ds.Provider {
	case "yahoo":
		return collector.NewYahooFetcher(cfg.Proxy, ds.Timeout), nil
	case "rest":
		return collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, cfg.Proxy, ds.Timeout), nil
	case "mock":
		return collector.NewMockFetcher(), nil
	}
	return nil, fmt.Errorf("unknown data provider %q", ds.Provider)
}

// notifier returns the Telegram notifier, or nil when chat delivery is off.
func (a *app) notifier() notifier.Notifier {
	if a.Telegram == nil {
		return nil
	}
	return a.Telegram
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
}
