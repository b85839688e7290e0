// Binary replay drives the signal pipeline over recorded candles, with no
// broadcasting, and prints the resulting trade summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/config"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/market"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/position"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/risk"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/signal"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/strategy"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	dataFile := flag.String("data", "", "CSV candle file; overrides market.data_file")
	symbolFlag := flag.String("symbol", "", "symbol to replay; defaults to the first configured symbol")
	flag.Parse()

	log := util.NewLogger("info")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)

	symbol := *symbolFlag
	if symbol == "" {
		if len(cfg.Market.Symbols) == 0 {
			log.Fatal().Msg("no symbol configured or given")
		}
		symbol = cfg.Market.Symbols[0]
	}
	path := *dataFile
	if path == "" {
		path = strings.ReplaceAll(cfg.Market.DataFile, "{symbol}", symbol)
	}
	if path == "" {
		log.Fatal().Msg("no candle file: set -data or market.data_file")
	}

	params := market.IndicatorParams{
		FastPeriod: cfg.Strategy.FastPeriod,
		SlowPeriod: cfg.Strategy.SlowPeriod,
		RSIPeriod:  cfg.Strategy.RSIPeriod,
		ATRPeriod:  cfg.Strategy.ATRPeriod,
	}
	source, err := market.NewReplaySource(path, symbol, params)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("open replay source")
	}

	ledger := risk.NewLedger(risk.Policy{
		MaxDailyTrades: cfg.Risk.MaxDailyTrades,
		MaxDailyLoss:   cfg.Risk.MaxDailyLoss,
	}, time.Now().UTC())
	generator := strategy.NewGenerator(strategy.Params{
		RSIOverbought: cfg.Strategy.RSIOverbought,
		RSIOversold:   cfg.Strategy.RSIOversold,
		BuyThreshold:  cfg.Strategy.BuyThreshold,
		SellThreshold: cfg.Strategy.SellThreshold,
		TAConfidence:  cfg.Strategy.TAConfidence,
	}, strategy.SnapshotScore{}, util.Component(log, "strategy"))
	positions := position.NewManager(position.Policy{
		MaxPositions:    cfg.Risk.MaxPositions,
		SLATRMult:       cfg.Risk.SLATRMult,
		TPATRMult:       cfg.Risk.TPATRMult,
		TakeProfitFirst: cfg.Risk.ExitTie == "take_profit",
	}, ledger, util.Component(log, "position"))

	ctx := context.Background()
	var (
		bars, buys, sells int
		lastTs            time.Time
	)
	for {
		snap, err := source.Latest(ctx, symbol)
		if err != nil {
			log.Fatal().Err(err).Msg("replay tick")
		}
		bars++
		lastTs = snap.Ts

		ledger.RolloverIfNewDay(snap.Ts)
		sig := generator.Generate(snap)
		positions.EvaluateExits(snap)

		switch sig.Direction {
		case signal.Buy:
			buys++
		case signal.Sell:
			sells++
		}
		if sig.Direction != signal.Hold {
			if _, err := positions.OpenFromSignal(sig, snap.ATR); err != nil {
				log.Debug().Err(err).Msg("entry blocked")
			}
		}

		if source.Exhausted() {
			break
		}
	}
	positions.CloseAll(lastTs)

	var wins int
	var pnl float64
	trades := positions.Archive()
	for _, pos := range trades {
		pnl += pos.PnL
		if pos.PnL > 0 {
			wins++
		}
	}

	fmt.Printf("Replayed: %d bars of %s\n", bars, symbol)
	fmt.Printf("Signals:  BUY %d / SELL %d\n", buys, sells)
	fmt.Printf("Trades:   %d closed\n", len(trades))
	if len(trades) > 0 {
		fmt.Printf("Wins:     %d (%.1f%%)\n", wins, float64(wins)/float64(len(trades))*100)
	}
	fmt.Printf("PnL:      %.2f\n", pnl)

	if len(trades) == 0 {
		os.Exit(0)
	}
	fmt.Println("\nClosed trades:")
	for _, pos := range trades {
		fmt.Printf("%s  %-4s entry=%.2f exit=%.2f %-14s pnl=%+.2f\n",
			pos.ClosedAt.Format("2006-01-02 15:04:05"), pos.Direction, pos.Entry, pos.Exit, pos.Reason, pos.PnL)
	}
}
