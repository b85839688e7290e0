// Package signal standardizes payloads shared between market data, strategy, and broadcast layers.
package signal

import (
	"time"

	"github.com/google/uuid"
)

// Direction expresses the trading bias carried by a signal.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	Hold Direction = "HOLD"
)

// Sign maps a direction onto the multiplier used for PnL math.
func (d Direction) Sign() float64 {
	switch d {
	case Buy:
		return 1
	case Sell:
		return -1
	default:
		return 0
	}
}

// Signal is a directional trading recommendation derived from one market snapshot.
// Instances are immutable once produced; the ID keys broadcast idempotence.
type Signal struct {
	ID         string
	Symbol     string
	Direction  Direction
	Confidence float64
	Price      float64
	Ts         time.Time
}

// New builds a signal with a fresh idempotence ID.
func New(symbol string, dir Direction, confidence, price float64, ts time.Time) Signal {
	return Signal{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Direction:  dir,
		Confidence: confidence,
		Price:      price,
		Ts:         ts,
	}
}
