package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetJudge/internal/model"
	"AssetJudge/internal/strategy"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, 60*time.Second, cfg.DataSource.Cooldown)
	assert.Equal(t, model.DefaultSettings(), cfg.Settings)
	assert.Equal(t, DefaultTickers, cfg.Universe.Tickers)
	assert.Equal(t, "^KS11", cfg.Universe.Indices["KOSPI"])
	assert.Equal(t, "KRW", cfg.Portfolio.Currency)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, strategy.DefaultPolicy(), cfg.Policy())
	assert.False(t, cfg.TelegramEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoad_YAMLOverridesOnlyGivenKeys(t *testing.T) {
	path := writeConfig(t, `
settings:
  vix_threshold: 25
  cash_reserve_percent: 10
universe:
  tickers: [NVDA, 005930.KS]
  sectors:
    NVDA: SMH
grading:
  a_rules:
    - name: trend-only
      require: [trend]
      fail: [rsi]
portfolio:
  equity: 5000000
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25.0, cfg.Settings.VIXThreshold)
	assert.Equal(t, 10.0, cfg.Settings.CashReservePercent)
	assert.Equal(t, 1.5, cfg.Settings.PEGThreshold)
	assert.Equal(t, []string{"NVDA", "005930.KS"}, cfg.Universe.Tickers)
	assert.Equal(t, "SMH", cfg.Universe.Sectors["NVDA"])
	assert.Equal(t, 5_000_000.0, cfg.Portfolio.Equity)

	p := cfg.Policy()
	require.Len(t, p.ARules, 1)
	assert.Equal(t, []strategy.Check{strategy.CheckTrend}, p.ARules[0].Require)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("TICKERS", "aapl, msft,,")
	t.Setenv("PORTFOLIO_EQUITY", "1000000")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(writeConfig(t, "server:\n  addr: \":9000\"\n"))
	require.NoError(t, err)

	assert.True(t, cfg.TelegramEnabled())
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Universe.Tickers)
	assert.Equal(t, 1_000_000.0, cfg.Portfolio.Equity)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}

func TestLoad_BadEquityEnv(t *testing.T) {
	t.Setenv("PORTFOLIO_EQUITY", "lots")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_ParseError(t *testing.T) {
	_, err := Load(writeConfig(t, "settings: [oops"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"rest without base url", func(c *Config) { c.DataSource.Provider = "rest" }},
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"vix threshold out of range", func(c *Config) { c.Settings.VIXThreshold = 0 }},
		{"reserve at 100", func(c *Config) { c.Settings.CashReservePercent = 100 }},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "x" }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad a-rule", func(c *Config) {
			c.Grading.ARules = []strategy.ARule{{Require: []strategy.Check{"moon"}}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
