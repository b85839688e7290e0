// Package strategy turns market snapshots into directional trading signals.
package strategy

import (
	"errors"
	"math"

	"github.com/rs/zerolog"

	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/market"
	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/signal"
)

// Scorer is the optional model collaborator. Absence (nil) and scoring errors both
// mean TA-only operation; neither is treated as a failure.
type Scorer interface {
	Score(snap market.Snapshot) (float64, error)
}

// ErrNoScore signals the snapshot carried no model prediction.
var ErrNoScore = errors.New("no model score on snapshot")

// SnapshotScore reads the prediction a market source attached to the snapshot.
type SnapshotScore struct{}

func (SnapshotScore) Score(snap market.Snapshot) (float64, error) {
	if snap.Score == nil {
		return 0, ErrNoScore
	}
	return *snap.Score, nil
}

// Params tunes the crossover gate and the model-confirmation thresholds.
type Params struct {
	RSIOverbought float64
	RSIOversold   float64
	BuyThreshold  float64 // model score above this confirms a BUY candidate
	SellThreshold float64 // model score below this confirms a SELL candidate
	TAConfidence  float64 // confidence reported when no model score is available
}

// Generator fuses the SMA crossover rule with an optional model score.
type Generator struct {
	params Params
	scorer Scorer
	log    zerolog.Logger
}

// NewGenerator builds a generator; a nil scorer selects pure TA mode.
func NewGenerator(params Params, scorer Scorer, log zerolog.Logger) *Generator {
	if params.RSIOverbought <= 0 {
		params.RSIOverbought = 70
	}
	if params.RSIOversold <= 0 {
		params.RSIOversold = 30
	}
	if params.BuyThreshold == 0 {
		params.BuyThreshold = 0.0001
	}
	if params.SellThreshold == 0 {
		params.SellThreshold = -0.0001
	}
	if params.TAConfidence <= 0 {
		params.TAConfidence = 0.001
	}
	return &Generator{params: params, scorer: scorer, log: log}
}

// Generate evaluates one snapshot. Pure given the generator's fixed inputs: the same
// snapshot always yields the same direction and confidence.
func (g *Generator) Generate(snap market.Snapshot) signal.Signal {
	candidate := g.taCandidate(snap)
	confidence := g.params.TAConfidence

	if candidate != signal.Hold && g.scorer != nil {
		score, err := g.scorer.Score(snap)
		switch {
		case err != nil:
			// model unavailable: degrade to TA-only silently
			g.log.Debug().Str("symbol", snap.Symbol).Err(err).Msg("model score unavailable, TA-only")
		case candidate == signal.Buy && score > g.params.BuyThreshold:
			confidence = math.Abs(score)
		case candidate == signal.Sell && score < g.params.SellThreshold:
			confidence = math.Abs(score)
		default:
			// model contradicts the TA candidate
			candidate = signal.Hold
		}
	}

	return signal.New(snap.Symbol, candidate, confidence, snap.Close, snap.Ts)
}

// taCandidate applies the crossover/RSI rule alone.
func (g *Generator) taCandidate(snap market.Snapshot) signal.Direction {
	crossedUp := snap.PrevFastMA <= snap.PrevSlowMA && snap.FastMA > snap.SlowMA
	crossedDown := snap.PrevFastMA >= snap.PrevSlowMA && snap.FastMA < snap.SlowMA

	switch {
	case crossedUp && snap.RSI < g.params.RSIOverbought:
		return signal.Buy
	case crossedDown && snap.RSI > g.params.RSIOversold:
		return signal.Sell
	default:
		return signal.Hold
	}
}
