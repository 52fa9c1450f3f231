package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"AssetJudge/internal/model"
	"AssetJudge/internal/strategy"
)

// DefaultTickers is the built-in universe: US tech and Korean leaders.
var DefaultTickers = []string{
	"NVDA", "TSLA", "PLTR", "AAPL", "MSFT", "AMZN",
	"005930.KS", "000660.KS", "247540.KQ", "086520.KQ",
}

// DefaultIndices are the market readouts reported with every scan.
var DefaultIndices = map[string]string{
	"KOSPI":   "^KS11",
	"KOSDAQ":  "^KQ11",
	"NASDAQ":  "^IXIC",
	"S&P 500": "^GSPC",
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		// Provider is "yahoo", "rest" or "mock".
		Provider  string        `yaml:"provider" validate:"oneof=yahoo rest mock"`
		BaseURL   string        `yaml:"base_url" validate:"required_if=Provider rest"`
		APIKey    string        `yaml:"api_key"`
		RateLimit float64       `yaml:"rate_limit" validate:"gt=0"`
		Burst     int           `yaml:"burst" validate:"gte=1"`
		Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
		Cooldown  time.Duration `yaml:"cooldown" validate:"gte=0"`
	} `yaml:"data_source"`
	Universe struct {
		Tickers []string `yaml:"tickers" validate:"min=1,dive,required"`
		// Indices maps display name to index symbol.
		Indices map[string]string `yaml:"indices"`
		// Sectors maps a ticker to the ETF or index its 1M gap is measured against.
		Sectors          map[string]string `yaml:"sectors"`
		DefaultBenchmark string            `yaml:"default_benchmark" validate:"required"`
	} `yaml:"universe"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron" validate:"required"`
	} `yaml:"schedule"`
	Settings model.Settings `yaml:"settings"`
	Grading  struct {
		ARules []strategy.ARule `yaml:"a_rules"`
	} `yaml:"grading"`
	Portfolio struct {
		StateFile    string  `yaml:"state_file" validate:"required"`
		Equity       float64 `yaml:"equity" validate:"gte=0"`
		Currency     string  `yaml:"currency" validate:"required"`
		AmountPlaces int32   `yaml:"amount_places" validate:"gte=0,lte=8"`
	} `yaml:"portfolio"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" validate:"gte=0"`
		TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
	} `yaml:"redis"`
	Server struct {
		Addr string `yaml:"addr" validate:"required"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" validate:"oneof=trace debug info warn error disabled"`
		Format string `yaml:"format" validate:"oneof=console json"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{Settings: model.DefaultSettings()}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"DATA_PROVIDER":      &c.DataSource.Provider,
		"DATA_BASE_URL":      &c.DataSource.BaseURL,
		"DATA_API_KEY":       &c.DataSource.APIKey,
		"HTTPS_PROXY":        &c.Proxy,
		"CRON_DAILY":         &c.Schedule.DailyCron,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"REDIS_ADDR":         &c.Redis.Addr,
		"REDIS_PASSWORD":     &c.Redis.Password,
		"SERVER_ADDR":        &c.Server.Addr,
		"LOG_LEVEL":          &c.Logging.Level,
		"LOG_FORMAT":         &c.Logging.Format,
		"PORTFOLIO_CURRENCY": &c.Portfolio.Currency,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("PORTFOLIO_EQUITY"); v != "" {
		eq, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PORTFOLIO_EQUITY: %w", err)
		}
		c.Portfolio.Equity = eq
	}
	if v := os.Getenv("TICKERS"); v != "" {
		var tickers []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tickers = append(tickers, strings.ToUpper(t))
			}
		}
		c.Universe.Tickers = tickers
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.RateLimit == 0 {
		c.DataSource.RateLimit = 2
	}
	if c.DataSource.Burst == 0 {
		c.DataSource.Burst = 1
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	if c.DataSource.Cooldown == 0 {
		c.DataSource.Cooldown = 60 * time.Second
	}
	if len(c.Universe.Tickers) == 0 {
		c.Universe.Tickers = append([]string(nil), DefaultTickers...)
	}
	if len(c.Universe.Indices) == 0 {
		c.Universe.Indices = make(map[string]string, len(DefaultIndices))
		for k, v := range DefaultIndices {
			c.Universe.Indices[k] = v
		}
	}
	if c.Universe.DefaultBenchmark == "" {
		c.Universe.DefaultBenchmark = "^GSPC"
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 8 * * 1-5"
	}
	if c.Portfolio.StateFile == "" {
		c.Portfolio.StateFile = "data/portfolio.json"
	}
	if c.Portfolio.Currency == "" {
		c.Portfolio.Currency = "KRW"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/asset_judge.db"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 6 * time.Hour
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Policy returns the configured grade policy, or the default rules when none
// are configured.
func (c *Config) Policy() strategy.GradePolicy {
	if len(c.Grading.ARules) == 0 {
		return strategy.DefaultPolicy()
	}
	return strategy.GradePolicy{ARules: c.Grading.ARules}
}

// TelegramEnabled reports whether both Telegram credentials are present.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all required fields are set and in range.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return errors.New("telegram.bot_token and telegram.chat_id must be set together")
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("grading: %w", err)
	}
	return nil
}
