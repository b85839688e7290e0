// Package risk enforces the daily trade-count and loss circuit breakers.
package risk

import (
	"sync"
	"time"
)

// Policy sets the hard stops applied before any position opens.
type Policy struct {
	MaxDailyTrades int
	MaxDailyLoss   float64 // positive number; breaching -MaxDailyLoss blocks entries
}

// State is a read-only view of the ledger counters.
type State struct {
	TradeCount  int
	RealizedPnL float64
	Day         time.Time
}

// Ledger tracks daily trade count and realized PnL under one mutex so rollover and
// record operations never interleave with reads.
type Ledger struct {
	mu          sync.Mutex
	policy      Policy
	tradeCount  int
	realizedPnL float64
	day         time.Time
}

// NewLedger starts a ledger on the trading day containing now.
func NewLedger(policy Policy, now time.Time) *Ledger {
	if policy.MaxDailyTrades <= 0 {
		policy.MaxDailyTrades = 15
	}
	if policy.MaxDailyLoss <= 0 {
		policy.MaxDailyLoss = 50
	}
	return &Ledger{policy: policy, day: dateOf(now)}
}

// CanOpen reports whether a new position may open under current counters.
func (l *Ledger) CanOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tradeCount >= l.policy.MaxDailyTrades {
		return false
	}
	if l.realizedPnL <= -l.policy.MaxDailyLoss {
		return false
	}
	return true
}

// RecordOpen counts a new position against the daily trade budget.
func (l *Ledger) RecordOpen() {
	l.mu.Lock()
	l.tradeCount++
	l.mu.Unlock()
}

// RecordClose folds a realized PnL into the daily total. A breach of the loss floor
// is visible to the very next CanOpen call.
func (l *Ledger) RecordClose(pnl float64) {
	l.mu.Lock()
	l.realizedPnL += pnl
	l.mu.Unlock()
}

// RolloverIfNewDay resets both counters when the trading day changes. Returns true
// when a rollover happened.
func (l *Ledger) RolloverIfNewDay(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	day := dateOf(now)
	if day.Equal(l.day) {
		return false
	}
	l.day = day
	l.tradeCount = 0
	l.realizedPnL = 0
	return true
}

// Snapshot returns a consistent copy of the counters.
func (l *Ledger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{TradeCount: l.tradeCount, RealizedPnL: l.realizedPnL, Day: l.day}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
