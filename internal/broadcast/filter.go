// Package broadcast fans qualified signals out to active subscribers and records
// every delivery outcome.
package broadcast

import (
	"strings"

	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/notify"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/signal"
)

// DirectionFilter narrows broadcasts to one side of the market.
type DirectionFilter string

const (
	FilterAll  DirectionFilter = "ALL"
	FilterBuy  DirectionFilter = "BUY"
	FilterSell DirectionFilter = "SELL"
)

// Policy is the immutable per-tick filter snapshot supplied by the configuration
// collaborator. A reload produces a new value; nothing mutates one in place.
type Policy struct {
	AllowedSymbols []string
	Direction      DirectionFilter
	MinConfidence  float64
	TakeProfitPct  float64
	StopLossPct    float64
	MaxPerHour     int
}

// Rejection reasons recorded on SKIPPED entries.
const (
	SkipDirection  = "direction_filter"
	SkipSymbol     = "symbol_not_allowed"
	SkipConfidence = "below_min_confidence"
	SkipRateLimit  = "rate_limited"
)

// Evaluate applies the ordered filter pipeline and short-circuits on the first
// rejection. The returned reason is empty when the signal qualifies.
func (p Policy) Evaluate(sig signal.Signal) string {
	if p.Direction != "" && p.Direction != FilterAll && string(sig.Direction) != string(p.Direction) {
		return SkipDirection
	}
	if len(p.AllowedSymbols) > 0 && !p.symbolAllowed(sig.Symbol) {
		return SkipSymbol
	}
	if sig.Confidence < p.MinConfidence {
		return SkipConfidence
	}
	return ""
}

func (p Policy) symbolAllowed(symbol string) bool {
	for _, s := range p.AllowedSymbols {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}

// Preview computes the TP/SL quote included in the message: entry×(1±pct), with
// signs inverted for SELL.
func (p Policy) Preview(sig signal.Signal) notify.Preview {
	tp := sig.Price * (1 + p.TakeProfitPct)
	sl := sig.Price * (1 - p.StopLossPct)
	if sig.Direction == signal.Sell {
		tp = sig.Price * (1 - p.TakeProfitPct)
		sl = sig.Price * (1 + p.StopLossPct)
	}
	return notify.Preview{
		TakeProfit:    tp,
		StopLoss:      sl,
		TakeProfitPct: p.TakeProfitPct,
		StopLossPct:   p.StopLossPct,
	}
}
