package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "aventa-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if len(cfg.Market.Symbols) != 1 || cfg.Market.Symbols[0] != "XAUUSD" {
		t.Fatalf("expected XAUUSD symbol, got %+v", cfg.Market.Symbols)
	}
	if cfg.Market.Provider != "replay" {
		t.Fatalf("unexpected provider: %s", cfg.Market.Provider)
	}
	if cfg.Market.IntervalSecs != 60 {
		t.Fatalf("unexpected interval: %d", cfg.Market.IntervalSecs)
	}
	if cfg.Strategy.FastPeriod != 5 || cfg.Strategy.SlowPeriod != 50 {
		t.Fatalf("unexpected MA periods: %d/%d", cfg.Strategy.FastPeriod, cfg.Strategy.SlowPeriod)
	}
	if cfg.Strategy.BuyThreshold != 0.0001 {
		t.Fatalf("unexpected buy threshold: %f", cfg.Strategy.BuyThreshold)
	}
	if cfg.Risk.MaxDailyTrades != 15 {
		t.Fatalf("unexpected max daily trades: %d", cfg.Risk.MaxDailyTrades)
	}
	if cfg.Risk.MaxDailyLoss != 50 {
		t.Fatalf("unexpected max daily loss: %.2f", cfg.Risk.MaxDailyLoss)
	}
	if cfg.Risk.SLATRMult != 2.5 || cfg.Risk.TPATRMult != 4.0 {
		t.Fatalf("unexpected ATR multipliers: %.1f/%.1f", cfg.Risk.SLATRMult, cfg.Risk.TPATRMult)
	}
	if !cfg.Broadcast.Enabled {
		t.Fatalf("expected broadcasting enabled")
	}
	if cfg.Broadcast.MinConfidence != 0.0005 {
		t.Fatalf("unexpected min confidence: %f", cfg.Broadcast.MinConfidence)
	}
	if cfg.Broadcast.MaxPerHour != 10 {
		t.Fatalf("unexpected max per hour: %d", cfg.Broadcast.MaxPerHour)
	}
	if len(cfg.Broadcast.Subscribers) != 2 {
		t.Fatalf("expected 2 subscribers, got %d", len(cfg.Broadcast.Subscribers))
	}
	if cfg.Telegram.Token != "test-token" {
		t.Fatalf("unexpected telegram token: %s", cfg.Telegram.Token)
	}
	if cfg.History.Backend != "jsonl" {
		t.Fatalf("unexpected history backend: %s", cfg.History.Backend)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join("testdata", "config.yaml"))
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.Telegram.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error: broadcasting enabled without token")
	}

	cfg = base()
	cfg.Market.Symbols = nil
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error: no symbols")
	}

	cfg = base()
	cfg.Market.IntervalSecs = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error: zero interval")
	}

	cfg = base()
	cfg.Broadcast.StopLossPct = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error: zero stop loss pct")
	}

	cfg = base()
	cfg.Risk.Scope = "per_galaxy"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error: unknown risk scope")
	}

	cfg = base()
	cfg.History.Backend = "postgres"
	cfg.History.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error: postgres without dsn")
	}
}
