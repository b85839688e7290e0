// Binary stats prints summary statistics and recent rows from the signal history.
package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/history"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/util"
)

func main() {
	path := flag.String("history", "logs/signal_history.jsonl", "path to the JSONL history file")
	dsn := flag.String("dsn", "", "postgres DSN; overrides -history when set")
	recent := flag.Int("recent", 10, "number of recent records to print")
	flag.Parse()

	_ = godotenv.Load()
	log := util.NewLogger("info")

	var (
		store history.Store
		err   error
	)
	if *dsn != "" {
		store, err = history.NewPostgresStore(*dsn)
	} else {
		store, err = history.NewJSONLStore(*path)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("open history store")
	}
	defer store.Close()

	entries, err := store.Scan(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("scan history")
	}

	stats := history.Aggregate(entries)
	fmt.Printf("Signals:  %d (BUY %d / SELL %d)\n", stats.Total, stats.Buys, stats.Sells)
	fmt.Printf("Sent:     %d\n", stats.Sent)
	fmt.Printf("Failed:   %d\n", stats.Failed)
	fmt.Printf("Skipped:  %d\n", stats.Skipped)
	fmt.Printf("Success:  %.1f%%\n", stats.SuccessRate*100)

	if *recent > 0 && len(entries) > 0 {
		start := len(entries) - *recent
		if start < 0 {
			start = 0
		}
		fmt.Println("\nRecent records:")
		for _, e := range entries[start:] {
			fmt.Printf("%s  %-8s %-4s %10.2f  conf=%.4f  tp=%.2f sl=%.2f  %-7s %s\n",
				e.Ts.Format("2006-01-02 15:04:05"), e.Symbol, e.Direction, e.Price,
				e.Confidence, e.TakeProfit, e.StopLoss, e.Status, e.Recipient)
		}
	}
}
