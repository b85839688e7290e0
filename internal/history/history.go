// Package history persists the append-only broadcast record log and aggregates
// statistics over it.
package history

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Entry is one persisted broadcast outcome: the audit columns of the record store.
type Entry struct {
	Ts         time.Time `json:"ts"`
	Symbol     string    `json:"symbol"`
	Direction  string    `json:"direction"`
	Price      float64   `json:"price"`
	Confidence float64   `json:"confidence"`
	TakeProfit float64   `json:"take_profit"`
	StopLoss   float64   `json:"stop_loss"`
	Status     string    `json:"status"` // SENT|FAILED|SKIPPED
	Recipient  string    `json:"recipient"`
}

// Store is the append-only record log. Scan returns entries oldest first and must
// support a full read for statistics and export.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	Scan(ctx context.Context) ([]Entry, error)
	Close() error
}

// MemoryStore keeps entries in memory for tests and quick inspection.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryStore creates an empty store optionally pre-sizing storage.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity < 0 {
		capacity = 0
	}
	return &MemoryStore{entries: make([]Entry, 0, capacity)}
}

func (m *MemoryStore) Append(ctx context.Context, entry Entry) error {
	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Scan(ctx context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

// Reset clears all stored entries.
func (m *MemoryStore) Reset() {
	m.mu.Lock()
	m.entries = m.entries[:0]
	m.mu.Unlock()
}

// Stats is a pure aggregation over the record log; there are no separate mutable
// counters to keep in sync.
type Stats struct {
	Total       int
	Buys        int
	Sells       int
	Sent        int
	Failed      int
	Skipped     int
	SuccessRate float64 // SENT over SENT+FAILED
}

// Aggregate folds the full scan into summary statistics.
func Aggregate(entries []Entry) Stats {
	var s Stats
	s.Total = len(entries)
	for _, e := range entries {
		switch strings.ToUpper(e.Direction) {
		case "BUY":
			s.Buys++
		case "SELL":
			s.Sells++
		}
		switch strings.ToUpper(e.Status) {
		case "SENT":
			s.Sent++
		case "FAILED":
			s.Failed++
		case "SKIPPED":
			s.Skipped++
		}
	}
	if attempted := s.Sent + s.Failed; attempted > 0 {
		s.SuccessRate = float64(s.Sent) / float64(attempted)
	}
	return s
}
