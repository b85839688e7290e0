package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"
)

// ReplaySource serves a rolling window over a CSV candle file, advancing one bar per
// Latest call so replays behave like a live feed during dry runs and demos.
type ReplaySource struct {
	mu      sync.Mutex
	symbol  string
	candles []Candle
	cursor  int
	params  IndicatorParams
}

// NewReplaySource loads the CSV file (time,open,high,low,close[,volume]) and positions
// the cursor at the first index with enough history for indicators.
func NewReplaySource(path, symbol string, params IndicatorParams) (*ReplaySource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read replay file: %w", err)
	}
	if len(rows) > 0 && !looksNumeric(rows[0][1]) {
		rows = rows[1:] // header
	}

	candles := make([]Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 5 {
			return nil, fmt.Errorf("replay row %d: expected at least 5 columns, got %d", i+1, len(row))
		}
		ts, err := parseTime(row[0])
		if err != nil {
			return nil, fmt.Errorf("replay row %d: %w", i+1, err)
		}
		c := Candle{Ts: ts}
		fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close}
		for j, dst := range fields {
			v, err := strconv.ParseFloat(row[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("replay row %d col %d: %w", i+1, j+2, err)
			}
			*dst = v
		}
		if len(row) > 5 {
			c.Volume, _ = strconv.ParseFloat(row[5], 64)
		}
		candles = append(candles, c)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Ts.Before(candles[j].Ts) })

	params = params.normalized()
	if len(candles) < params.MinBars() {
		return nil, fmt.Errorf("replay file %s: %d candles, need %d", path, len(candles), params.MinBars())
	}
	return &ReplaySource{
		symbol:  symbol,
		candles: candles,
		cursor:  params.MinBars(),
		params:  params,
	}, nil
}

// Latest returns the snapshot at the cursor and advances it. Once the file is
// exhausted it keeps returning the final bar, so long-running loops idle rather
// than erroring out.
func (r *ReplaySource) Latest(ctx context.Context, symbol string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if symbol != r.symbol {
		return Snapshot{}, fmt.Errorf("%w: replay source serves %s, not %s", ErrDataUnavailable, r.symbol, symbol)
	}

	r.mu.Lock()
	end := r.cursor
	if end > len(r.candles) {
		end = len(r.candles)
	}
	window := r.candles[:end]
	if r.cursor < len(r.candles) {
		r.cursor++
	}
	r.mu.Unlock()

	return BuildSnapshot(symbol, window, r.params)
}

// Exhausted reports whether the replay cursor has reached the end of the file.
func (r *ReplaySource) Exhausted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor >= len(r.candles)
}

func looksNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
