// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string
	Env         string
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Market describes where snapshots come from and how often the loop polls them.
type Market struct {
	Provider               string   `yaml:"provider"` // replay|stub|binance
	Symbols                []string `yaml:"symbols"`
	DataFile               string   `yaml:"data_file"` // replay provider
	IntervalSecs           int      `yaml:"interval_secs"`
	LookbackBars           int      `yaml:"lookback_bars"`
	MaxConsecutiveFailures int      `yaml:"max_consecutive_failures"`
}

// Strategy groups the crossover and model-confirmation knobs for signal generation.
type Strategy struct {
	FastPeriod    int     `yaml:"fast_period"`
	SlowPeriod    int     `yaml:"slow_period"`
	RSIPeriod     int     `yaml:"rsi_period"`
	RSIOverbought float64 `yaml:"rsi_overbought"`
	RSIOversold   float64 `yaml:"rsi_oversold"`
	ATRPeriod     int     `yaml:"atr_period"`
	BuyThreshold  float64 `yaml:"buy_threshold"`
	SellThreshold float64 `yaml:"sell_threshold"`
	TAConfidence  float64 `yaml:"ta_confidence"`
}

// Risk encodes the guard-rails applied before any position may open.
type Risk struct {
	MaxPositions   int     `yaml:"max_positions"`
	MaxDailyTrades int     `yaml:"max_daily_trades"`
	MaxDailyLoss   float64 `yaml:"max_daily_loss"`
	SLATRMult      float64 `yaml:"sl_atr_mult"`
	TPATRMult      float64 `yaml:"tp_atr_mult"`
	Scope          string  `yaml:"scope"`    // per_symbol|global
	ExitTie        string  `yaml:"exit_tie"` // stop_loss|take_profit
}

// Broadcast configures signal fan-out: filters, rate limit, delivery tuning, subscribers.
type Broadcast struct {
	Enabled         bool     `yaml:"enabled"`
	DirectionFilter string   `yaml:"direction_filter"` // ALL|BUY|SELL
	AllowedSymbols  []string `yaml:"allowed_symbols"`
	MinConfidence   float64  `yaml:"min_confidence"`
	TakeProfitPct   float64  `yaml:"take_profit_pct"`
	StopLossPct     float64  `yaml:"stop_loss_pct"`
	MaxPerHour      int      `yaml:"max_per_hour"`
	MaxRetries      int      `yaml:"max_retries"`
	TimeoutMs       int      `yaml:"timeout_ms"`
	Workers         int      `yaml:"workers"`
	Template        string   `yaml:"template"` // minimal|detailed
	Subscribers     []string `yaml:"subscribers"`
	RedisAddr       string   `yaml:"redis_addr"` // non-empty switches the rate limiter to redis
}

// Telegram holds the push transport credentials and endpoint.
type Telegram struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`
}

// History selects the append-only record store backend.
type History struct {
	Backend string `yaml:"backend"` // jsonl|postgres
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App       `yaml:"app"`
	Market    Market    `yaml:"market"`
	Strategy  Strategy  `yaml:"strategy"`
	Risk      Risk      `yaml:"risk"`
	Broadcast Broadcast `yaml:"broadcast"`
	Telegram  Telegram  `yaml:"telegram"`
	History   History   `yaml:"history"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyEnv()
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnv lets secrets override file values so tokens stay out of YAML.
func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("HISTORY_DSN"); v != "" {
		c.History.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Broadcast.RedisAddr = v
	}
}

// Validate rejects configurations the pipeline must not start with.
func (c *Config) Validate() error {
	if len(c.Market.Symbols) == 0 {
		return fmt.Errorf("market: at least one symbol required")
	}
	if c.Market.IntervalSecs <= 0 {
		return fmt.Errorf("market: interval_secs must be positive")
	}
	switch c.Market.Provider {
	case "", "replay", "stub", "binance":
	default:
		return fmt.Errorf("market: unknown provider %q", c.Market.Provider)
	}
	if c.Market.Provider == "replay" && c.Market.DataFile == "" {
		return fmt.Errorf("market: replay provider requires data_file")
	}
	if c.Broadcast.Enabled {
		if c.Telegram.Token == "" {
			return fmt.Errorf("telegram: token required when broadcasting is enabled")
		}
		if c.Broadcast.TakeProfitPct <= 0 || c.Broadcast.StopLossPct <= 0 {
			return fmt.Errorf("broadcast: take_profit_pct and stop_loss_pct must be positive")
		}
		switch strings.ToUpper(c.Broadcast.DirectionFilter) {
		case "", "ALL", "BUY", "SELL":
		default:
			return fmt.Errorf("broadcast: unknown direction_filter %q", c.Broadcast.DirectionFilter)
		}
	}
	switch c.Risk.Scope {
	case "", "per_symbol", "global":
	default:
		return fmt.Errorf("risk: unknown scope %q", c.Risk.Scope)
	}
	switch c.Risk.ExitTie {
	case "", "stop_loss", "take_profit":
	default:
		return fmt.Errorf("risk: unknown exit_tie %q", c.Risk.ExitTie)
	}
	if c.History.Backend == "postgres" && c.History.DSN == "" {
		return fmt.Errorf("history: postgres backend requires dsn")
	}
	return nil
}
