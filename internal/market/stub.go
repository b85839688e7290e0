package market

import (
	"context"
	"math"
	"sync"
	"time"
)

// StubSource emits deterministic synthetic candles (useful for tests/offline work).
// The price follows a slow sine wave around a base so both crossover directions occur.
type StubSource struct {
	mu     sync.Mutex
	base   float64
	series map[string][]Candle
	steps  map[string]int
	params IndicatorParams
	start  time.Time
}

// NewStubSource seeds a synthetic source with just enough history for indicators.
func NewStubSource(base float64, params IndicatorParams) *StubSource {
	if base <= 0 {
		base = 100.0
	}
	return &StubSource{
		base:   base,
		series: make(map[string][]Candle),
		steps:  make(map[string]int),
		params: params.normalized(),
		start:  time.Now().UTC().Truncate(time.Minute),
	}
}

// Latest appends the next synthetic bar for the symbol and returns its snapshot.
func (s *StubSource) Latest(ctx context.Context, symbol string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	step := s.steps[symbol]
	window := s.series[symbol]
	if len(window) == 0 {
		for i := 0; i < s.params.MinBars(); i++ {
			window = append(window, s.candleAt(step))
			step++
		}
	} else {
		window = append(window, s.candleAt(step))
		step++
	}
	// cap the window so long-running stubs don't grow without bound; the step
	// counter keeps advancing so the series never freezes
	if max := s.params.MinBars() * 4; len(window) > max {
		window = window[len(window)-max:]
	}
	s.series[symbol] = window
	s.steps[symbol] = step
	s.mu.Unlock()

	return BuildSnapshot(symbol, window, s.params)
}

func (s *StubSource) candleAt(i int) Candle {
	px := s.base * (1 + 0.02*math.Sin(float64(i)/18))
	return Candle{
		Ts:     s.start.Add(time.Duration(i) * time.Minute),
		Open:   px * 0.999,
		High:   px * 1.002,
		Low:    px * 0.998,
		Close:  px,
		Volume: 1000,
	}
}
