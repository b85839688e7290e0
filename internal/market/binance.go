package market

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type binanceEnvelope struct {
	Stream string      `json:"stream"`
	Data   binanceData `json:"data"`
}

type binanceData struct {
	Symbol string       `json:"s"`
	Kline  binanceKline `json:"k"`
}

type binanceKline struct {
	StartTime int64  `json:"t"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Close     string `json:"c"`
	Volume    string `json:"v"`
	Closed    bool   `json:"x"`
}

// BinanceSource maintains rolling candle windows from the Binance public kline
// websocket. Latest serves snapshots from the in-memory window; Run must be started
// before snapshots become available.
type BinanceSource struct {
	symbols []string
	url     string
	params  IndicatorParams
	log     zerolog.Logger

	mu     sync.RWMutex
	series map[string][]Candle
}

// NewBinanceSource prepares a kline stream source for the given symbols.
func NewBinanceSource(symbols []string, log zerolog.Logger, params IndicatorParams) *BinanceSource {
	streams := make([]string, len(symbols))
	for i, sym := range symbols {
		streams[i] = strings.ToLower(sym) + "@kline_1m"
	}
	return &BinanceSource{
		symbols: symbols,
		url:     fmt.Sprintf("wss://stream.binance.com:9443/stream?streams=%s", strings.Join(streams, "/")),
		params:  params.normalized(),
		log:     log,
		series:  make(map[string][]Candle),
	}
}

// Latest returns the snapshot built from the current window, or ErrDataUnavailable
// while the stream is still warming up.
func (b *BinanceSource) Latest(ctx context.Context, symbol string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	b.mu.RLock()
	window := make([]Candle, len(b.series[symbol]))
	copy(window, b.series[symbol])
	b.mu.RUnlock()

	return BuildSnapshot(symbol, window, b.params)
}

// Run consumes the kline stream until the context is canceled, reconnecting with
// exponential backoff on failure.
func (b *BinanceSource) Run(ctx context.Context) error {
	if len(b.symbols) == 0 {
		return fmt.Errorf("binance source requires at least one symbol")
	}

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := b.consumeStream(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Warn().Err(err).Msg("binance stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (b *BinanceSource) consumeStream(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	b.log.Info().Strs("symbols", b.symbols).Msg("connected binance kline stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					b.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env binanceEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			b.log.Warn().Err(err).Msg("failed to decode binance message")
			continue
		}
		candle, err := env.Data.Kline.toCandle()
		if err != nil {
			b.log.Warn().Err(err).Msg("invalid kline from binance")
			continue
		}
		b.absorb(env.Data.Symbol, candle)
	}
}

// absorb replaces the in-progress bar or appends a new one, trimming the window.
func (b *BinanceSource) absorb(symbol string, candle Candle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	window := b.series[symbol]
	if n := len(window); n > 0 && window[n-1].Ts.Equal(candle.Ts) {
		window[n-1] = candle
	} else {
		window = append(window, candle)
	}
	if max := b.params.MinBars() * 4; len(window) > max {
		window = window[len(window)-max:]
	}
	b.series[symbol] = window
}

func (k binanceKline) toCandle() (Candle, error) {
	c := Candle{Ts: time.UnixMilli(k.StartTime).UTC()}
	for _, f := range []struct {
		raw string
		dst *float64
	}{
		{k.Open, &c.Open}, {k.High, &c.High}, {k.Low, &c.Low}, {k.Close, &c.Close}, {k.Volume, &c.Volume},
	} {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return Candle{}, err
		}
		*f.dst = v
	}
	return c, nil
}
