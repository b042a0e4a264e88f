package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"SectorPulse/internal/indicator"
	"SectorPulse/internal/model"
	"SectorPulse/internal/strategy"
)

// ValidationError reports a malformed or missing setting. It is always fatal.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Config holds all application configuration.
type Config struct {
	Universe []model.Instrument `yaml:"universe"`
	Analysis struct {
		RSIPeriod       int     `yaml:"rsi_period"`
		BollingerPeriod int     `yaml:"bollinger_period"`
		BollingerK      float64 `yaml:"bollinger_k"`
		MAPeriod        int     `yaml:"ma_period"`
		ShortMAPeriod   int     `yaml:"ma_short_period"`
		LongMAPeriod    int     `yaml:"ma_long_period"`
		VolumePeriod    int     `yaml:"volume_period"`
		HistoryDays     int     `yaml:"history_days"`
		StaleAfterDays  *int    `yaml:"stale_after_days"`
		Workers         int     `yaml:"workers"`
	} `yaml:"analysis"`
	// Pointers tell an explicit 0 apart from an unset value.
	Thresholds struct {
		RSIHigh *float64 `yaml:"rsi_high"`
		RSILow  *float64 `yaml:"rsi_low"`
		BBHigh  *float64 `yaml:"bb_high"`
		BBLow   *float64 `yaml:"bb_low"`
	} `yaml:"thresholds"`
	Ranking struct {
		TopN           int     `yaml:"top_n"`
		RSIWeight      float64 `yaml:"rsi_weight"`
		PercentBWeight float64 `yaml:"percent_b_weight"`
	} `yaml:"ranking"`
	DataSource struct {
		BaseURL       string  `yaml:"base_url"`
		TickerSuffix  string  `yaml:"ticker_suffix"`
		RatePerSecond float64 `yaml:"rate_per_second"`
		MaxWorkers    int     `yaml:"max_workers"`
		MaxRetries    *int    `yaml:"max_retries"`
	} `yaml:"data_source"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Key      string `yaml:"key"`
	} `yaml:"redis"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	WordPress struct {
		URL       string `yaml:"url"`
		User      string `yaml:"user"`
		Password  string `yaml:"password"`
		PageID    string `yaml:"page_id"`
		ChartDays int    `yaml:"chart_days"`
	} `yaml:"wordpress"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// DefaultUniverse is the TOPIX-17 sector ETF family.
var DefaultUniverse = []model.Instrument{
	{ID: "1617", Name: "Foods"},
	{ID: "1618", Name: "Energy Resources"},
	{ID: "1619", Name: "Construction & Materials"},
	{ID: "1620", Name: "Raw Materials & Chemicals"},
	{ID: "1621", Name: "Pharmaceutical"},
	{ID: "1622", Name: "Automobiles & Transportation Equipment"},
	{ID: "1623", Name: "Steel & Nonferrous Metals"},
	{ID: "1624", Name: "Machinery"},
	{ID: "1625", Name: "Electric Appliances & Precision Instruments"},
	{ID: "1626", Name: "IT & Services, Others"},
	{ID: "1627", Name: "Electric Power & Gas"},
	{ID: "1628", Name: "Transportation & Logistics"},
	{ID: "1629", Name: "Commercial & Wholesale Trade"},
	{ID: "1630", Name: "Retail Trade"},
	{ID: "1631", Name: "Banks"},
	{ID: "1632", Name: "Financials (ex Banks)"},
	{ID: "1633", Name: "Real Estate"},
}

// Load reads config from a YAML file, then a .env file if present, then
// applies environment variable overrides and defaults. A missing YAML file
// is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the process
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
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
		"DATA_BASE_URL":      &c.DataSource.BaseURL,
		"HTTPS_PROXY":        &c.Proxy,
		"CRON_DAILY":         &c.Schedule.DailyCron,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"REDIS_ADDR":         &c.Redis.Addr,
		"REDIS_PASSWORD":     &c.Redis.Password,
		"HTTP_ADDR":          &c.HTTP.Addr,
		"LOG_LEVEL":          &c.Log.Level,
		"LOG_FORMAT":         &c.Log.Format,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	// TOFU_WORDPRESS carries several KEY=VALUE lines in one secret; the
	// individual WP_* variables win over it.
	if blob := os.Getenv("TOFU_WORDPRESS"); blob != "" {
		kv, err := godotenv.Unmarshal(blob)
		if err != nil {
			return invalid("TOFU_WORDPRESS", "%v", err)
		}
		c.applyWordPress(kv)
	}
	c.applyWordPress(map[string]string{
		"WP_URL":      os.Getenv("WP_URL"),
		"WP_USER":     os.Getenv("WP_USER"),
		"WP_PASSWORD": os.Getenv("WP_PASSWORD"),
		"WP_PAGE_ID":  os.Getenv("WP_PAGE_ID"),
	})

	floats := map[string]**float64{
		"RSI_HIGH": &c.Thresholds.RSIHigh,
		"RSI_LOW":  &c.Thresholds.RSILow,
		"BB_HIGH":  &c.Thresholds.BBHigh,
		"BB_LOW":   &c.Thresholds.BBLow,
	}
	for key, dst := range floats {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return invalid(key, "not a number: %q", v)
		}
		*dst = &f
	}

	if v := os.Getenv("TOP_N"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return invalid("TOP_N", "not an integer: %q", v)
		}
		c.Ranking.TopN = n
	}
	return nil
}

func (c *Config) applyWordPress(kv map[string]string) {
	if v := kv["WP_URL"]; v != "" {
		c.WordPress.URL = v
	}
	if v := kv["WP_USER"]; v != "" {
		c.WordPress.User = v
	}
	if v := kv["WP_PASSWORD"]; v != "" {
		c.WordPress.Password = v
	}
	if v := kv["WP_PAGE_ID"]; v != "" {
		c.WordPress.PageID = v
	}
}

func (c *Config) applyDefaults() {
	if len(c.Universe) == 0 {
		c.Universe = append([]model.Instrument(nil), DefaultUniverse...)
	}

	p := indicator.DefaultParams()
	a := &c.Analysis
	if a.RSIPeriod == 0 {
		a.RSIPeriod = p.RSIPeriod
	}
	if a.BollingerPeriod == 0 {
		a.BollingerPeriod = p.BollingerPeriod
	}
	if a.BollingerK == 0 {
		a.BollingerK = p.BollingerK
	}
	if a.MAPeriod == 0 {
		a.MAPeriod = a.BollingerPeriod
	}
	if a.ShortMAPeriod == 0 {
		a.ShortMAPeriod = p.ShortMAPeriod
	}
	if a.LongMAPeriod == 0 {
		a.LongMAPeriod = p.LongMAPeriod
	}
	if a.VolumePeriod == 0 {
		a.VolumePeriod = p.VolumePeriod
	}
	if a.HistoryDays == 0 {
		a.HistoryDays = 500
	}
	setDefaultInt(&a.StaleAfterDays, 10)
	if a.Workers == 0 {
		a.Workers = 4
	}

	th := strategy.DefaultThresholds()
	setDefault(&c.Thresholds.RSIHigh, th.RSIHigh)
	setDefault(&c.Thresholds.RSILow, th.RSILow)
	setDefault(&c.Thresholds.BBHigh, th.BBHigh)
	setDefault(&c.Thresholds.BBLow, th.BBLow)

	w := strategy.DefaultWeights()
	if c.Ranking.TopN == 0 {
		c.Ranking.TopN = 3
	}
	if c.Ranking.RSIWeight == 0 {
		c.Ranking.RSIWeight = w.RSI
	}
	if c.Ranking.PercentBWeight == 0 {
		c.Ranking.PercentBWeight = w.PercentB
	}

	if c.DataSource.BaseURL == "" {
		c.DataSource.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.DataSource.TickerSuffix == "" {
		c.DataSource.TickerSuffix = ".T"
	}
	if c.DataSource.RatePerSecond == 0 {
		c.DataSource.RatePerSecond = 2
	}
	if c.DataSource.MaxWorkers == 0 {
		c.DataSource.MaxWorkers = 5
	}
	setDefaultInt(&c.DataSource.MaxRetries, 3)
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 0 17 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/sector_pulse.db"
	}
	if c.Redis.Key == "" {
		c.Redis.Key = "sectorpulse:snapshot:latest"
	}
	if c.WordPress.ChartDays == 0 {
		c.WordPress.ChartDays = 300
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func setDefault(dst **float64, v float64) {
	if *dst == nil {
		*dst = &v
	}
}

func setDefaultInt(dst **int, v int) {
	if *dst == nil {
		*dst = &v
	}
}

// Validate checks every setting the analysis depends on. It runs before any
// instrument is processed.
func (c *Config) Validate() error {
	if len(c.Universe) == 0 {
		return invalid("universe", "must list at least one instrument")
	}
	seen := make(map[string]bool, len(c.Universe))
	for i, inst := range c.Universe {
		if strings.TrimSpace(inst.ID) == "" {
			return invalid("universe", "entry %d has no id", i)
		}
		if seen[inst.ID] {
			return invalid("universe", "duplicate instrument %s", inst.ID)
		}
		seen[inst.ID] = true
	}

	if err := c.IndicatorParams().Validate(); err != nil {
		return invalid("analysis", "%v", err)
	}
	if c.Analysis.HistoryDays < c.Analysis.LongMAPeriod+1 {
		return invalid("analysis.history_days", "must cover the longest window (%d)", c.Analysis.LongMAPeriod+1)
	}
	if c.Analysis.StaleAfterDays == nil || *c.Analysis.StaleAfterDays < 0 {
		return invalid("analysis.stale_after_days", "must not be negative")
	}
	if c.Thresholds.RSIHigh == nil || c.Thresholds.RSILow == nil || c.Thresholds.BBHigh == nil || c.Thresholds.BBLow == nil {
		return invalid("thresholds", "missing value")
	}
	if err := c.ClassifierThresholds().Validate(); err != nil {
		return invalid("thresholds", "%v", err)
	}
	if c.Ranking.TopN < 1 {
		return invalid("ranking.top_n", "must be at least 1, got %d", c.Ranking.TopN)
	}
	if err := c.RankingWeights().Validate(); err != nil {
		return invalid("ranking", "%v", err)
	}
	if r := c.DataSource.RatePerSecond; !(r > 0) || math.IsInf(r, 0) {
		return invalid("data_source.rate_per_second", "must be a positive finite number")
	}
	if c.DataSource.MaxWorkers < 1 {
		return invalid("data_source.max_workers", "must be at least 1")
	}
	if c.DataSource.MaxRetries == nil || *c.DataSource.MaxRetries < 0 {
		return invalid("data_source.max_retries", "must not be negative")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.Schedule.DailyCron); err != nil {
		return invalid("schedule.daily_cron", "%v", err)
	}
	return nil
}

// IndicatorParams returns the windows for the indicator engine.
func (c *Config) IndicatorParams() indicator.Params {
	return indicator.Params{
		RSIPeriod:       c.Analysis.RSIPeriod,
		BollingerPeriod: c.Analysis.BollingerPeriod,
		BollingerK:      c.Analysis.BollingerK,
		MAPeriod:        c.Analysis.MAPeriod,
		ShortMAPeriod:   c.Analysis.ShortMAPeriod,
		LongMAPeriod:    c.Analysis.LongMAPeriod,
		VolumePeriod:    c.Analysis.VolumePeriod,
	}
}

// ClassifierThresholds returns the resolved classification thresholds.
// Call it only after Load, which fills every pointer.
func (c *Config) ClassifierThresholds() strategy.Thresholds {
	return strategy.Thresholds{
		RSIHigh: *c.Thresholds.RSIHigh,
		RSILow:  *c.Thresholds.RSILow,
		BBHigh:  *c.Thresholds.BBHigh,
		BBLow:   *c.Thresholds.BBLow,
	}
}

// RankingWeights returns the composite score weights.
func (c *Config) RankingWeights() strategy.Weights {
	return strategy.Weights{RSI: c.Ranking.RSIWeight, PercentB: c.Ranking.PercentBWeight}
}

// StaleAfter converts stale_after_days into a duration. Zero disables the
// staleness check.
func (c *Config) StaleAfter() time.Duration {
	if c.Analysis.StaleAfterDays == nil {
		return 0
	}
	return time.Duration(*c.Analysis.StaleAfterDays) * 24 * time.Hour
}

// FetchRetries returns data_source.max_retries. Zero means a single attempt.
func (c *Config) FetchRetries() int {
	if c.DataSource.MaxRetries == nil {
		return 0
	}
	return *c.DataSource.MaxRetries
}

// PublishingEnabled reports whether every WordPress setting is present.
func (c *Config) PublishingEnabled() bool {
	wp := c.WordPress
	return wp.URL != "" && wp.User != "" && wp.Password != "" && wp.PageID != ""
}

// TelegramEnabled reports whether Telegram credentials are present.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
