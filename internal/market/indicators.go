package market

import (
	"fmt"

	talib "github.com/markcheno/go-talib"
)

// IndicatorParams sets the lookback periods used to derive snapshot indicators.
type IndicatorParams struct {
	FastPeriod int
	SlowPeriod int
	RSIPeriod  int
	ATRPeriod  int
}

// Defaults mirror the tuned gold strategy: SMA 5/50, RSI 20, ATR 14.
func (p IndicatorParams) normalized() IndicatorParams {
	if p.FastPeriod <= 0 {
		p.FastPeriod = 5
	}
	if p.SlowPeriod <= 0 {
		p.SlowPeriod = 50
	}
	if p.RSIPeriod <= 0 {
		p.RSIPeriod = 20
	}
	if p.ATRPeriod <= 0 {
		p.ATRPeriod = 14
	}
	return p
}

// MinBars reports how many candles BuildSnapshot needs before indicators are valid.
func (p IndicatorParams) MinBars() int {
	p = p.normalized()
	min := p.SlowPeriod
	if p.RSIPeriod > min {
		min = p.RSIPeriod
	}
	if p.ATRPeriod > min {
		min = p.ATRPeriod
	}
	return min + 2 // one extra bar for the previous-MA crossover reference
}

// BuildSnapshot derives the indicator view from a candle window. The last candle is
// the current bar; the window must be ordered oldest first.
func BuildSnapshot(symbol string, candles []Candle, p IndicatorParams) (Snapshot, error) {
	p = p.normalized()
	if len(candles) < p.MinBars() {
		return Snapshot{}, fmt.Errorf("%w: need %d candles, have %d", ErrDataUnavailable, p.MinBars(), len(candles))
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	fast := talib.Sma(closes, p.FastPeriod)
	slow := talib.Sma(closes, p.SlowPeriod)
	rsi := talib.Rsi(closes, p.RSIPeriod)
	atr := talib.Atr(highs, lows, closes, p.ATRPeriod)

	last := len(candles) - 1
	cur := candles[last]
	return Snapshot{
		Symbol:     symbol,
		Ts:         cur.Ts,
		Open:       cur.Open,
		High:       cur.High,
		Low:        cur.Low,
		Close:      cur.Close,
		FastMA:     fast[last],
		SlowMA:     slow[last],
		PrevFastMA: fast[last-1],
		PrevSlowMA: slow[last-1],
		RSI:        rsi[last],
		ATR:        atr[last],
	}, nil
}
