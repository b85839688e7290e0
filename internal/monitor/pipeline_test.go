package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/broadcast"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/history"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/market"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/position"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/risk"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/strategy"
)

type okTransport struct{}

func (okTransport) Send(context.Context, string, string) error { return nil }

// full pipeline: snapshot -> signal -> position -> broadcast -> history
func TestPipelineSignalToBroadcast(t *testing.T) {
	start := time.Now().UTC()
	source := &scriptedSource{snaps: []market.Snapshot{
		crossoverSnapshot(start),
		neutralSnapshot(start.Add(time.Minute)),
	}}

	ledger := risk.NewLedger(risk.Policy{MaxDailyTrades: 15, MaxDailyLoss: 50}, start)
	gen := strategy.NewGenerator(strategy.Params{}, nil, zerolog.Nop())
	mgr := position.NewManager(position.Policy{MaxPositions: 1}, ledger, zerolog.Nop())

	store := history.NewMemoryStore(8)
	engine := broadcast.NewEngine(
		broadcast.NewRegistry([]string{"chat-1", "chat-2"}),
		broadcast.NewWindowLimiter(time.Hour),
		okTransport{},
		store,
		broadcast.Options{Timeout: time.Second, Backoff: time.Millisecond},
		zerolog.Nop(),
	)
	policy := broadcast.Policy{TakeProfitPct: 0.015, StopLossPct: 0.01, MaxPerHour: 10}

	loop := New("XAUUSD", 5*time.Millisecond, 3, source, gen, mgr, ledger, engine, policy, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	opened := false
	for !opened {
		select {
		case event := <-loop.Events():
			if event.Opened != nil {
				opened = true
			}
		case <-deadline:
			t.Fatalf("pipeline never opened a position")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("loop returned error: %v", err)
	}

	entries, err := store.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected one SENT record per subscriber, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Status != string(broadcast.StatusSent) {
			t.Fatalf("expected SENT records, got %+v", e)
		}
		if e.Direction != "BUY" || e.Symbol != "XAUUSD" {
			t.Fatalf("record should carry the signal columns: %+v", e)
		}
		if e.TakeProfit <= e.Price || e.StopLoss >= e.Price {
			t.Fatalf("long preview boundaries inverted: %+v", e)
		}
	}

	if stats := ledger.Snapshot(); stats.TradeCount != 1 {
		t.Fatalf("risk ledger should have counted the entry, got %+v", stats)
	}
}
