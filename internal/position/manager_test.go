package position

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/market"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/risk"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/signal"
)

func newTestManager(policy Policy, riskPolicy risk.Policy) (*Manager, *risk.Ledger) {
	ledger := risk.NewLedger(riskPolicy, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	return NewManager(policy, ledger, zerolog.Nop()), ledger
}

func buySignal(price float64) signal.Signal {
	return signal.New("XAUUSD", signal.Buy, 0.001, price, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC))
}

func TestOpenComputesATRBoundaries(t *testing.T) {
	mgr, _ := newTestManager(Policy{MaxPositions: 1, SLATRMult: 2.5, TPATRMult: 4.0}, risk.Policy{})

	pos, err := mgr.OpenFromSignal(buySignal(2045.50), 1.5)
	if err != nil {
		t.Fatalf("OpenFromSignal returned error: %v", err)
	}
	if pos.State != StateOpen {
		t.Fatalf("expected OPEN state, got %s", pos.State)
	}
	if math.Abs(pos.StopLoss-(2045.50-1.5*2.5)) > 1e-9 {
		t.Fatalf("unexpected stop loss: %.4f", pos.StopLoss)
	}
	if math.Abs(pos.TakeProfit-(2045.50+1.5*4.0)) > 1e-9 {
		t.Fatalf("unexpected take profit: %.4f", pos.TakeProfit)
	}

	sell := signal.New("XAUUSD", signal.Sell, 0.001, 2045.50, time.Now())
	mgr2, _ := newTestManager(Policy{MaxPositions: 1, SLATRMult: 2.5, TPATRMult: 4.0}, risk.Policy{})
	short, err := mgr2.OpenFromSignal(sell, 1.5)
	if err != nil {
		t.Fatalf("short OpenFromSignal returned error: %v", err)
	}
	if short.StopLoss <= short.Entry || short.TakeProfit >= short.Entry {
		t.Fatalf("short boundaries inverted: sl=%.2f tp=%.2f entry=%.2f", short.StopLoss, short.TakeProfit, short.Entry)
	}
}

func TestOpenRejectsSecondPositionAtCap(t *testing.T) {
	mgr, _ := newTestManager(Policy{MaxPositions: 1}, risk.Policy{})

	if _, err := mgr.OpenFromSignal(buySignal(2045.50), 1.5); err != nil {
		t.Fatalf("first open returned error: %v", err)
	}
	_, err := mgr.OpenFromSignal(buySignal(2046.00), 1.5)
	if !errors.Is(err, ErrMaxPositions) {
		t.Fatalf("expected ErrMaxPositions for second consecutive BUY, got %v", err)
	}
	if mgr.OpenCount("XAUUSD") != 1 {
		t.Fatalf("expected exactly one open position, got %d", mgr.OpenCount("XAUUSD"))
	}
}

func TestOpenRejectsHoldSignal(t *testing.T) {
	mgr, _ := newTestManager(Policy{}, risk.Policy{})
	hold := signal.New("XAUUSD", signal.Hold, 0.001, 2045.50, time.Now())
	if _, err := mgr.OpenFromSignal(hold, 1.5); !errors.Is(err, ErrHoldSignal) {
		t.Fatalf("expected ErrHoldSignal, got %v", err)
	}
}

func TestRiskCircuitBreakerBlocksUntilRollover(t *testing.T) {
	mgr, ledger := newTestManager(Policy{MaxPositions: 5}, risk.Policy{MaxDailyTrades: 10, MaxDailyLoss: 50})

	ledger.RecordClose(-60)
	_, err := mgr.OpenFromSignal(buySignal(2045.50), 1.5)
	if !errors.Is(err, ErrRiskLimit) {
		t.Fatalf("expected ErrRiskLimit after loss floor breach, got %v", err)
	}

	ledger.RolloverIfNewDay(time.Date(2026, 3, 3, 0, 1, 0, 0, time.UTC))
	if _, err := mgr.OpenFromSignal(buySignal(2045.50), 1.5); err != nil {
		t.Fatalf("open after rollover returned error: %v", err)
	}
}

func TestExitStopLossAndTakeProfit(t *testing.T) {
	mgr, ledger := newTestManager(Policy{MaxPositions: 2, SLATRMult: 2.0, TPATRMult: 3.0}, risk.Policy{})
	pos, err := mgr.OpenFromSignal(buySignal(2000), 5) // sl=1990 tp=2015
	if err != nil {
		t.Fatalf("open returned error: %v", err)
	}

	// bar stays inside the boundaries: nothing closes
	closed := mgr.EvaluateExits(market.Snapshot{Symbol: "XAUUSD", High: 2005, Low: 1995, Close: 2001, Ts: pos.OpenedAt.Add(time.Minute)})
	if len(closed) != 0 {
		t.Fatalf("expected no exits inside boundaries, got %d", len(closed))
	}

	// bar pierces the take profit
	closed = mgr.EvaluateExits(market.Snapshot{Symbol: "XAUUSD", High: 2016, Low: 2002, Close: 2014, Ts: pos.OpenedAt.Add(2 * time.Minute)})
	if len(closed) != 1 {
		t.Fatalf("expected one exit, got %d", len(closed))
	}
	if closed[0].Reason != ReasonTakeProfit {
		t.Fatalf("expected take profit exit, got %s", closed[0].Reason)
	}
	if math.Abs(closed[0].PnL-15) > 1e-9 {
		t.Fatalf("expected PnL 15, got %.4f", closed[0].PnL)
	}
	if got := ledger.Snapshot().RealizedPnL; math.Abs(got-15) > 1e-9 {
		t.Fatalf("ledger should have received the realized PnL, got %.4f", got)
	}
	if mgr.OpenCount("XAUUSD") != 0 {
		t.Fatalf("position should be archived after close")
	}
}

func TestExitTieBreakPrefersStopLoss(t *testing.T) {
	mgr, _ := newTestManager(Policy{MaxPositions: 1, SLATRMult: 2.0, TPATRMult: 3.0}, risk.Policy{})
	pos, err := mgr.OpenFromSignal(buySignal(2000), 5) // sl=1990 tp=2015
	if err != nil {
		t.Fatalf("open returned error: %v", err)
	}

	// one violent bar crosses both boundaries
	closed := mgr.EvaluateExits(market.Snapshot{Symbol: "XAUUSD", High: 2020, Low: 1985, Close: 2010, Ts: pos.OpenedAt.Add(time.Minute)})
	if len(closed) != 1 || closed[0].Reason != ReasonStopLoss {
		t.Fatalf("stop loss must win the tie-break, got %+v", closed)
	}
}

func TestExitTieBreakConfigurable(t *testing.T) {
	mgr, _ := newTestManager(Policy{MaxPositions: 1, SLATRMult: 2.0, TPATRMult: 3.0, TakeProfitFirst: true}, risk.Policy{})
	pos, err := mgr.OpenFromSignal(buySignal(2000), 5)
	if err != nil {
		t.Fatalf("open returned error: %v", err)
	}
	closed := mgr.EvaluateExits(market.Snapshot{Symbol: "XAUUSD", High: 2020, Low: 1985, Close: 2010, Ts: pos.OpenedAt.Add(time.Minute)})
	if len(closed) != 1 || closed[0].Reason != ReasonTakeProfit {
		t.Fatalf("configured tie-break should prefer take profit, got %+v", closed)
	}
}

func TestShortExit(t *testing.T) {
	mgr, _ := newTestManager(Policy{MaxPositions: 1, SLATRMult: 2.0, TPATRMult: 3.0}, risk.Policy{})
	sell := signal.New("XAUUSD", signal.Sell, 0.001, 2000, time.Now())
	_, err := mgr.OpenFromSignal(sell, 5) // sl=2010 tp=1985
	if err != nil {
		t.Fatalf("open returned error: %v", err)
	}

	closed := mgr.EvaluateExits(market.Snapshot{Symbol: "XAUUSD", High: 1995, Low: 1984, Close: 1987, Ts: time.Now()})
	if len(closed) != 1 || closed[0].Reason != ReasonTakeProfit {
		t.Fatalf("expected short take profit, got %+v", closed)
	}
	if math.Abs(closed[0].PnL-15) > 1e-9 {
		t.Fatalf("short PnL should be positive 15, got %.4f", closed[0].PnL)
	}
}

func TestCloseAllEmergencyStop(t *testing.T) {
	mgr, ledger := newTestManager(Policy{MaxPositions: 2}, risk.Policy{})
	if _, err := mgr.OpenFromSignal(buySignal(2000), 5); err != nil {
		t.Fatalf("open returned error: %v", err)
	}
	mgr.EvaluateExits(market.Snapshot{Symbol: "XAUUSD", High: 2003, Low: 1999, Close: 2002, Ts: time.Now()})

	closed := mgr.CloseAll(time.Now())
	if len(closed) != 1 {
		t.Fatalf("expected one forced close, got %d", len(closed))
	}
	if closed[0].Reason != ReasonEmergency {
		t.Fatalf("expected emergency reason, got %s", closed[0].Reason)
	}
	if math.Abs(closed[0].PnL-2) > 1e-9 {
		t.Fatalf("forced close should use last marked price, PnL %.4f", closed[0].PnL)
	}
	if mgr.OpenCount("XAUUSD") != 0 {
		t.Fatalf("no positions should remain open")
	}
	if got := ledger.Snapshot().RealizedPnL; math.Abs(got-2) > 1e-9 {
		t.Fatalf("emergency close PnL should reach the ledger, got %.4f", got)
	}
}
