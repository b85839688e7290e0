// Package market hosts snapshot sources and the indicator math layered on raw candles.
package market

import (
	"context"
	"errors"
	"time"
)

// ErrDataUnavailable marks a transient gap in the data source; the loop skips the tick.
var ErrDataUnavailable = errors.New("market data unavailable")

// Candle is one OHLCV bar.
type Candle struct {
	Ts     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Snapshot is the immutable per-tick view handed to the strategy layer. Indicator
// fields carry the current and previous bar values so crossover detection stays a
// pure function of one snapshot.
type Snapshot struct {
	Symbol     string
	Ts         time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	FastMA     float64
	SlowMA     float64
	PrevFastMA float64
	PrevSlowMA float64
	RSI        float64
	ATR        float64
	Score      *float64 // optional model prediction attached by the source
}

// Source supplies the latest snapshot for a symbol. Timestamps per symbol must be
// monotonically non-decreasing; everything else about the upstream is opaque.
type Source interface {
	Latest(ctx context.Context, symbol string) (Snapshot, error)
}
