package strategy

import (
	"fmt"
	"sort"

	"SectorPulse/internal/model"
)

// Weights combine RSI and %B into a single "how overheated" score.
type Weights struct {
	RSI      float64
	PercentB float64
}

// DefaultWeights gives RSI (scaled to 0..1) and %B equal weight.
func DefaultWeights() Weights {
	return Weights{RSI: 0.5, PercentB: 0.5}
}

// Validate requires strictly positive finite weights so the score rises with both inputs.
func (w Weights) Validate() error {
	if !(w.RSI > 0) || !(w.PercentB > 0) || !finite(w.RSI) || !finite(w.PercentB) {
		return fmt.Errorf("ranking weights must be positive and finite, got rsi=%v percent_b=%v", w.RSI, w.PercentB)
	}
	return nil
}

// Ranker orders classified instruments.
type Ranker struct {
	weights Weights
}

// NewRanker creates a Ranker with the given weights.
func NewRanker(w Weights) *Ranker {
	return &Ranker{weights: w}
}

// Score returns the composite score of one indicator set. Undefined inputs
// contribute nothing.
func (r *Ranker) Score(ind model.IndicatorSet) float64 {
	var score float64
	if ind.RSI.OK() {
		score += r.weights.RSI * ind.RSI.Value / 100
	}
	if ind.PercentB.OK() {
		score += r.weights.PercentB * ind.PercentB.Value
	}
	return score
}

// Rank scores every entry and returns a new slice ordered by score
// descending, ties broken by instrument id ascending.
func (r *Ranker) Rank(entries []model.RankedEntry) []model.RankedEntry {
	ranked := make([]model.RankedEntry, len(entries))
	copy(ranked, entries)
	for i := range ranked {
		ranked[i].Score = r.Score(ranked[i].Indicators)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Instrument.ID < ranked[j].Instrument.ID
	})
	return ranked
}

// SelectTop returns up to n entries, in ranked order, that are both
// Uptrend and Overheated. It never pads.
func SelectTop(ranked []model.RankedEntry, n int) []model.RankedEntry {
	if n <= 0 {
		return nil
	}
	top := make([]model.RankedEntry, 0, n)
	for _, e := range ranked {
		if !e.Labels.Hot() {
			continue
		}
		top = append(top, e)
		if len(top) == n {
			break
		}
	}
	return top
}
