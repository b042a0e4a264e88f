package strategy

import (
	"fmt"
	"math"

	"SectorPulse/internal/model"
)

// Thresholds are the cut-offs used to label momentum extremes.
type Thresholds struct {
	RSIHigh float64
	RSILow  float64
	BBHigh  float64
	BBLow   float64
}

// DefaultThresholds returns RSI 70/30 and %B 1.0/0.0.
func DefaultThresholds() Thresholds {
	return Thresholds{RSIHigh: 70, RSILow: 30, BBHigh: 1.0, BBLow: 0.0}
}

// Validate requires finite thresholds with each high one above its low one.
func (t Thresholds) Validate() error {
	for _, v := range []float64{t.RSIHigh, t.RSILow, t.BBHigh, t.BBLow} {
		if !finite(v) {
			return fmt.Errorf("thresholds must be finite, got rsi=%v/%v bb=%v/%v", t.RSILow, t.RSIHigh, t.BBLow, t.BBHigh)
		}
	}
	if t.RSILow < 0 || t.RSIHigh > 100 {
		return fmt.Errorf("rsi thresholds must lie within [0,100], got low=%v high=%v", t.RSILow, t.RSIHigh)
	}
	if t.RSIHigh <= t.RSILow {
		return fmt.Errorf("rsi_high (%v) must be greater than rsi_low (%v)", t.RSIHigh, t.RSILow)
	}
	if t.BBHigh <= t.BBLow {
		return fmt.Errorf("bb_high (%v) must be greater than bb_low (%v)", t.BBHigh, t.BBLow)
	}
	return nil
}

// Classifier maps indicator sets to trend labels.
type Classifier struct {
	th Thresholds
}

// NewClassifier creates a Classifier with the given thresholds.
func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{th: th}
}

// Classify labels one instrument. Undefined indicators never trigger a label.
// Overheated wins over Oversold when both momentum tests pass, so the two
// are never reported together.
func (c *Classifier) Classify(ind model.IndicatorSet) model.Labels {
	var labels []model.TrendLabel

	overheated := atLeast(ind.RSI, c.th.RSIHigh) || atLeast(ind.PercentB, c.th.BBHigh)
	oversold := atMost(ind.RSI, c.th.RSILow) || atMost(ind.PercentB, c.th.BBLow)
	switch {
	case overheated:
		labels = append(labels, model.LabelOverheated)
	case oversold:
		labels = append(labels, model.LabelOversold)
	}

	trending := false
	if ind.ChangePct.OK() && ind.MADeviation.OK() {
		switch {
		case ind.ChangePct.Value > 0 && ind.MADeviation.Value > 0:
			labels = append(labels, model.LabelUptrend)
			trending = true
		case ind.ChangePct.Value < 0 && ind.MADeviation.Value < 0:
			labels = append(labels, model.LabelDowntrend)
			trending = true
		}
	}
	if !trending {
		labels = append(labels, model.LabelNeutral)
	}
	return model.NewLabels(labels...)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func atLeast(m model.Metric, th float64) bool { return m.OK() && m.Value >= th }
func atMost(m model.Metric, th float64) bool  { return m.OK() && m.Value <= th }
