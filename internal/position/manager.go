// Package position owns the open-position state machine per instrument.
package position

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/market"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/metrics"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/risk"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/signal"
)

// State tracks a position through its lifecycle. CLOSED is terminal per instance.
type State string

const (
	StateOpen   State = "OPEN"
	StateClosed State = "CLOSED"
)

// CloseReason records why an exit happened.
type CloseReason string

const (
	ReasonStopLoss   CloseReason = "stop_loss"
	ReasonTakeProfit CloseReason = "take_profit"
	ReasonEmergency  CloseReason = "emergency_stop"
)

var (
	// ErrRiskLimit means the ledger's daily circuit breaker blocked the entry.
	ErrRiskLimit = errors.New("risk limit exceeded")
	// ErrMaxPositions means the per-symbol open cap is already reached.
	ErrMaxPositions = errors.New("max open positions reached")
	// ErrHoldSignal means the signal carried no direction to act on.
	ErrHoldSignal = errors.New("hold signal opens nothing")
)

// Position is one symbol-slot instance. Mutated only by the Manager.
type Position struct {
	Symbol     string
	Direction  signal.Direction
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	OpenedAt   time.Time
	State      State
	Exit       float64
	ClosedAt   time.Time
	Reason     CloseReason
	PnL        float64
}

// Policy sizes exits and caps concurrency.
type Policy struct {
	MaxPositions int
	SLATRMult    float64
	TPATRMult    float64
	// TakeProfitFirst flips the tie-break when one bar crosses both boundaries.
	// Default false: stop-loss wins (the conservative read).
	TakeProfitFirst bool
}

// Manager drives NONE→OPEN→CLOSED transitions and forwards realized PnL to the ledger.
type Manager struct {
	mu        sync.Mutex
	policy    Policy
	ledger    *risk.Ledger
	open      map[string][]*Position
	archive   []Position
	lastPrice map[string]float64
	log       zerolog.Logger
}

// NewManager wires the manager to its risk ledger.
func NewManager(policy Policy, ledger *risk.Ledger, log zerolog.Logger) *Manager {
	if policy.MaxPositions <= 0 {
		policy.MaxPositions = 1
	}
	if policy.SLATRMult <= 0 {
		policy.SLATRMult = 2.5
	}
	if policy.TPATRMult <= 0 {
		policy.TPATRMult = 4.0
	}
	return &Manager{
		policy:    policy,
		ledger:    ledger,
		open:      make(map[string][]*Position),
		lastPrice: make(map[string]float64),
		log:       log,
	}
}

// OpenFromSignal attempts the NONE→OPEN transition for a BUY/SELL signal. Stop-loss
// and take-profit distances are sized from the snapshot ATR.
func (m *Manager) OpenFromSignal(sig signal.Signal, atr float64) (Position, error) {
	if sig.Direction == signal.Hold {
		return Position{}, ErrHoldSignal
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.open[sig.Symbol]) >= m.policy.MaxPositions {
		metrics.RiskBlocksTotal.WithLabelValues(sig.Symbol, "max_positions").Inc()
		return Position{}, ErrMaxPositions
	}
	if !m.ledger.CanOpen() {
		metrics.RiskBlocksTotal.WithLabelValues(sig.Symbol, "daily_limit").Inc()
		return Position{}, ErrRiskLimit
	}

	sign := sig.Direction.Sign()
	pos := &Position{
		Symbol:     sig.Symbol,
		Direction:  sig.Direction,
		Entry:      sig.Price,
		StopLoss:   sig.Price - sign*atr*m.policy.SLATRMult,
		TakeProfit: sig.Price + sign*atr*m.policy.TPATRMult,
		OpenedAt:   sig.Ts,
		State:      StateOpen,
	}
	m.open[sig.Symbol] = append(m.open[sig.Symbol], pos)
	m.ledger.RecordOpen()
	m.log.Info().Str("symbol", pos.Symbol).Str("direction", string(pos.Direction)).
		Float64("entry", pos.Entry).Float64("sl", pos.StopLoss).Float64("tp", pos.TakeProfit).
		Msg("position opened")
	return *pos, nil
}

// EvaluateExits checks every open position for the snapshot's symbol against the bar's
// high/low range and closes those whose boundary was crossed. When both boundaries
// fall inside one bar the configured tie-break decides. Missing data never reaches
// here; positions simply wait for the next valid snapshot.
func (m *Manager) EvaluateExits(snap market.Snapshot) []Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastPrice[snap.Symbol] = snap.Close

	var closed []Position
	remaining := m.open[snap.Symbol][:0]
	for _, pos := range m.open[snap.Symbol] {
		exit, reason, hit := m.exitFor(pos, snap)
		if !hit {
			remaining = append(remaining, pos)
			continue
		}
		m.close(pos, exit, reason, snap.Ts)
		closed = append(closed, *pos)
	}
	if len(remaining) == 0 {
		delete(m.open, snap.Symbol)
	} else {
		m.open[snap.Symbol] = remaining
	}
	return closed
}

func (m *Manager) exitFor(pos *Position, snap market.Snapshot) (float64, CloseReason, bool) {
	var slHit, tpHit bool
	if pos.Direction == signal.Buy {
		slHit = snap.Low <= pos.StopLoss
		tpHit = snap.High >= pos.TakeProfit
	} else {
		slHit = snap.High >= pos.StopLoss
		tpHit = snap.Low <= pos.TakeProfit
	}

	switch {
	case slHit && tpHit:
		if m.policy.TakeProfitFirst {
			return pos.TakeProfit, ReasonTakeProfit, true
		}
		return pos.StopLoss, ReasonStopLoss, true
	case slHit:
		return pos.StopLoss, ReasonStopLoss, true
	case tpHit:
		return pos.TakeProfit, ReasonTakeProfit, true
	default:
		return 0, "", false
	}
}

// CloseAll force-closes every open position at its symbol's last marked price,
// regardless of boundaries. Used by the emergency-stop control surface.
func (m *Manager) CloseAll(ts time.Time) []Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	var closed []Position
	for symbol, positions := range m.open {
		for _, pos := range positions {
			exit := m.lastPrice[symbol]
			if exit == 0 {
				exit = pos.Entry
			}
			m.close(pos, exit, ReasonEmergency, ts)
			closed = append(closed, *pos)
		}
		delete(m.open, symbol)
	}
	return closed
}

// close finalizes the OPEN→CLOSED transition. Caller holds the mutex.
func (m *Manager) close(pos *Position, exit float64, reason CloseReason, ts time.Time) {
	pos.State = StateClosed
	pos.Exit = exit
	pos.ClosedAt = ts
	pos.Reason = reason
	pos.PnL = (exit - pos.Entry) * pos.Direction.Sign()
	m.archive = append(m.archive, *pos)
	m.ledger.RecordClose(pos.PnL)
	m.log.Info().Str("symbol", pos.Symbol).Str("reason", string(reason)).
		Float64("exit", exit).Float64("pnl", pos.PnL).Msg("position closed")
}

// OpenCount reports how many positions are open for the symbol.
func (m *Manager) OpenCount(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open[symbol])
}

// OpenPositions returns copies of every open position.
func (m *Manager) OpenPositions() []Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Position
	for _, positions := range m.open {
		for _, pos := range positions {
			out = append(out, *pos)
		}
	}
	return out
}

// Archive returns copies of every closed position, oldest first.
func (m *Manager) Archive() []Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Position, len(m.archive))
	copy(out, m.archive)
	return out
}
