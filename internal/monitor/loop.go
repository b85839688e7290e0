// Package monitor drives the per-symbol tick pipeline: snapshot pull, signal
// generation, exit evaluation, risk-gated entry, and broadcast.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/broadcast"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/market"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/metrics"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/position"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/risk"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/signal"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/strategy"
)

// State is the loop lifecycle: stopped, running, stopped again. No pause.
type State int32

const (
	StateStopped State = iota
	StateRunning
)

// Event is the tick result published for presentation collaborators. The loop never
// calls into UI code directly.
type Event struct {
	Symbol   string
	Ts       time.Time
	Signal   signal.Signal
	Snapshot market.Snapshot
	Opened   *position.Position
	Closed   []position.Position
	Err      error
}

// Loop owns one symbol's thread of control.
type Loop struct {
	symbol      string
	interval    time.Duration
	maxFailures int

	source    market.Source
	generator *strategy.Generator
	positions *position.Manager
	ledger    *risk.Ledger
	engine    *broadcast.Engine // nil disables broadcasting
	policy    broadcast.Policy

	state  atomic.Int32
	events chan Event
	log    zerolog.Logger
}

// New assembles a loop. maxFailures bounds consecutive data-source errors before the
// loop stops with a fatal error.
func New(symbol string, interval time.Duration, maxFailures int, source market.Source,
	generator *strategy.Generator, positions *position.Manager, ledger *risk.Ledger,
	engine *broadcast.Engine, policy broadcast.Policy, log zerolog.Logger) *Loop {
	if interval <= 0 {
		interval = time.Minute
	}
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return &Loop{
		symbol:      symbol,
		interval:    interval,
		maxFailures: maxFailures,
		source:      source,
		generator:   generator,
		positions:   positions,
		ledger:      ledger,
		engine:      engine,
		policy:      policy,
		events:      make(chan Event, 64),
		log:         log.With().Str("symbol", symbol).Logger(),
	}
}

// Events exposes the tick result stream. Slow consumers drop events rather than
// blocking the loop.
func (l *Loop) Events() <-chan Event { return l.events }

// State reports the current lifecycle state.
func (l *Loop) State() State { return State(l.state.Load()) }

// Run executes ticks until the context is canceled or the data source is declared
// broken. A stop request is observed at the next tick boundary; an in-flight tick
// finishes first.
func (l *Loop) Run(ctx context.Context) error {
	if !l.state.CompareAndSwap(int32(StateStopped), int32(StateRunning)) {
		return errors.New("loop already running")
	}
	defer l.state.Store(int32(StateStopped))

	l.log.Info().Dur("interval", l.interval).Msg("monitoring loop started")
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	failures := 0
	for {
		snap, err := l.source.Latest(ctx, l.symbol)
		if err != nil {
			if ctx.Err() != nil {
				l.log.Info().Msg("monitoring loop stopped")
				return nil
			}
			failures++
			l.log.Warn().Err(err).Int("consecutive", failures).Msg("snapshot pull failed, skipping tick")
			l.publish(Event{Symbol: l.symbol, Ts: time.Now().UTC(), Err: err})
			if failures >= l.maxFailures {
				fatal := fmt.Errorf("data source failed %d consecutive ticks: %w", failures, err)
				l.log.Error().Err(fatal).Msg("monitoring loop stopping")
				return fatal
			}
		} else {
			failures = 0
			l.tick(ctx, snap)
		}

		select {
		case <-ctx.Done():
			l.log.Info().Msg("monitoring loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// tick runs the fixed pipeline order. Errors in any stage are contained within the
// tick; exit evaluation in particular always runs before entry and broadcast.
func (l *Loop) tick(ctx context.Context, snap market.Snapshot) {
	now := time.Now().UTC()
	if l.ledger.RolloverIfNewDay(now) {
		l.log.Info().Msg("daily risk counters rolled over")
	}

	metrics.TicksTotal.WithLabelValues(snap.Symbol).Inc()
	sig := l.generator.Generate(snap)
	metrics.SignalsTotal.WithLabelValues(snap.Symbol, string(sig.Direction)).Inc()

	event := Event{Symbol: l.symbol, Ts: snap.Ts, Signal: sig, Snapshot: snap}
	event.Closed = l.positions.EvaluateExits(snap)

	if sig.Direction != signal.Hold {
		opened, err := l.positions.OpenFromSignal(sig, snap.ATR)
		switch {
		case err == nil:
			event.Opened = &opened
		case errors.Is(err, position.ErrRiskLimit), errors.Is(err, position.ErrMaxPositions):
			l.log.Info().Str("direction", string(sig.Direction)).Err(err).Msg("entry blocked by policy")
		default:
			l.log.Warn().Err(err).Msg("position open failed")
		}

		if l.engine != nil {
			if _, err := l.engine.Broadcast(ctx, sig, l.policy); err != nil {
				l.log.Warn().Err(err).Msg("broadcast failed")
			}
		}
	}

	l.publish(event)
}

// EmergencyStop force-closes every open position at the last marked price. Safe to
// call from operator surfaces while the loop runs.
func (l *Loop) EmergencyStop() []position.Position {
	closed := l.positions.CloseAll(time.Now().UTC())
	l.log.Warn().Int("closed", len(closed)).Msg("emergency stop executed")
	l.publish(Event{Symbol: l.symbol, Ts: time.Now().UTC(), Closed: closed})
	return closed
}

func (l *Loop) publish(event Event) {
	select {
	case l.events <- event:
	default:
	}
}
