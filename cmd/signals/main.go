package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/broadcast"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/config"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/history"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/market"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/metrics"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/monitor"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/notify"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/position"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/risk"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/strategy"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	flag.Parse()

	_ = godotenv.Load()

	log := util.NewLogger("info")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	indicators := market.IndicatorParams{
		FastPeriod: cfg.Strategy.FastPeriod,
		SlowPeriod: cfg.Strategy.SlowPeriod,
		RSIPeriod:  cfg.Strategy.RSIPeriod,
		ATRPeriod:  cfg.Strategy.ATRPeriod,
	}
	source, err := buildSource(ctx, cfg, indicators, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build market source")
	}

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build history store")
	}
	defer store.Close()

	var engine *broadcast.Engine
	policy := broadcast.Policy{
		AllowedSymbols: cfg.Broadcast.AllowedSymbols,
		Direction:      broadcast.DirectionFilter(strings.ToUpper(cfg.Broadcast.DirectionFilter)),
		MinConfidence:  cfg.Broadcast.MinConfidence,
		TakeProfitPct:  cfg.Broadcast.TakeProfitPct,
		StopLossPct:    cfg.Broadcast.StopLossPct,
		MaxPerHour:     cfg.Broadcast.MaxPerHour,
	}
	if cfg.Broadcast.Enabled {
		transport := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.BaseURL,
			time.Duration(cfg.Broadcast.TimeoutMs)*time.Millisecond, util.Component(log, "telegram"))
		registry := broadcast.NewRegistry(cfg.Broadcast.Subscribers)
		var limiter broadcast.RateLimiter = broadcast.NewWindowLimiter(time.Hour)
		if cfg.Broadcast.RedisAddr != "" {
			limiter = broadcast.NewRedisLimiter(cfg.Broadcast.RedisAddr, "broadcast:window", time.Hour)
		}
		engine = broadcast.NewEngine(registry, limiter, transport, store, broadcast.Options{
			Workers:    cfg.Broadcast.Workers,
			MaxRetries: cfg.Broadcast.MaxRetries,
			Timeout:    time.Duration(cfg.Broadcast.TimeoutMs) * time.Millisecond,
			Template:   notify.Template(cfg.Broadcast.Template),
		}, util.Component(log, "broadcast"))
	}

	riskPolicy := risk.Policy{MaxDailyTrades: cfg.Risk.MaxDailyTrades, MaxDailyLoss: cfg.Risk.MaxDailyLoss}
	positionPolicy := position.Policy{
		MaxPositions:    cfg.Risk.MaxPositions,
		SLATRMult:       cfg.Risk.SLATRMult,
		TPATRMult:       cfg.Risk.TPATRMult,
		TakeProfitFirst: cfg.Risk.ExitTie == "take_profit",
	}
	strategyParams := strategy.Params{
		RSIOverbought: cfg.Strategy.RSIOverbought,
		RSIOversold:   cfg.Strategy.RSIOversold,
		BuyThreshold:  cfg.Strategy.BuyThreshold,
		SellThreshold: cfg.Strategy.SellThreshold,
		TAConfidence:  cfg.Strategy.TAConfidence,
	}

	var sharedLedger *risk.Ledger
	if cfg.Risk.Scope == "global" {
		sharedLedger = risk.NewLedger(riskPolicy, time.Now().UTC())
	}

	var wg sync.WaitGroup
	for _, symbol := range cfg.Market.Symbols {
		ledger := sharedLedger
		if ledger == nil {
			ledger = risk.NewLedger(riskPolicy, time.Now().UTC())
		}
		generator := strategy.NewGenerator(strategyParams, strategy.SnapshotScore{}, util.Component(log, "strategy"))
		positions := position.NewManager(positionPolicy, ledger, util.Component(log, "position"))
		loop := monitor.New(symbol, time.Duration(cfg.Market.IntervalSecs)*time.Second,
			cfg.Market.MaxConsecutiveFailures, source, generator, positions, ledger,
			engine, policy, util.Component(log, "monitor"))

		go drainEvents(loop, log)

		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			if err := loop.Run(ctx); err != nil {
				log.Error().Str("symbol", symbol).Err(err).Msg("loop stopped with error")
				cancel()
			}
		}(symbol)
	}

	log.Info().Strs("symbols", cfg.Market.Symbols).Msg("signal pipeline started")
	<-ctx.Done()
	log.Info().Msg("shutting down")
	wg.Wait()
}

// sourceMux routes Latest calls to the per-symbol source backing it.
type sourceMux struct {
	sources map[string]market.Source
}

func (m *sourceMux) Latest(ctx context.Context, symbol string) (market.Snapshot, error) {
	src, ok := m.sources[symbol]
	if !ok {
		return market.Snapshot{}, market.ErrDataUnavailable
	}
	return src.Latest(ctx, symbol)
}

func buildSource(ctx context.Context, cfg *config.Config, params market.IndicatorParams, log zerolog.Logger) (market.Source, error) {
	switch cfg.Market.Provider {
	case "binance":
		src := market.NewBinanceSource(cfg.Market.Symbols, util.Component(log, "binance"), params)
		go func() {
			if err := src.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("binance stream stopped")
			}
		}()
		return src, nil
	case "replay":
		mux := &sourceMux{sources: make(map[string]market.Source, len(cfg.Market.Symbols))}
		for _, symbol := range cfg.Market.Symbols {
			path := strings.ReplaceAll(cfg.Market.DataFile, "{symbol}", symbol)
			src, err := market.NewReplaySource(path, symbol, params)
			if err != nil {
				return nil, err
			}
			mux.sources[symbol] = src
		}
		return mux, nil
	default:
		return market.NewStubSource(100, params), nil
	}
}

func buildStore(cfg *config.Config) (history.Store, error) {
	switch cfg.History.Backend {
	case "postgres":
		return history.NewPostgresStore(cfg.History.DSN)
	default:
		path := cfg.History.Path
		if path == "" {
			path = "logs/signal_history.jsonl"
		}
		return history.NewJSONLStore(path)
	}
}

// drainEvents logs tick results so operators can follow the pipeline without a UI.
func drainEvents(loop *monitor.Loop, log zerolog.Logger) {
	for event := range loop.Events() {
		if event.Err != nil {
			continue
		}
		entry := log.Debug().Str("symbol", event.Symbol).Str("direction", string(event.Signal.Direction))
		if event.Opened != nil {
			entry = entry.Float64("entry", event.Opened.Entry)
		}
		if len(event.Closed) > 0 {
			entry = entry.Int("closed", len(event.Closed))
		}
		entry.Msg("tick")
	}
}
