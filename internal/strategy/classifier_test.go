package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"SectorPulse/internal/model"
)

var none = model.Undefined(model.MetricInsufficientHistory)

func ind(rsi, pb, change, dev model.Metric) model.IndicatorSet {
	return model.IndicatorSet{RSI: rsi, PercentB: pb, ChangePct: change, MADeviation: dev}
}

func v(x float64) model.Metric { return model.Defined(x) }

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	tests := []struct {
		name string
		in   model.IndicatorSet
		want model.Labels
	}{
		{"rsi at high threshold", ind(v(70), v(0.5), v(1), v(2)),
			model.Labels{model.LabelOverheated, model.LabelUptrend}},
		{"percent b at high threshold", ind(v(50), v(1.0), v(-1), v(-2)),
			model.Labels{model.LabelOverheated, model.LabelDowntrend}},
		{"rsi at low threshold", ind(v(30), v(0.5), v(-1), v(-1)),
			model.Labels{model.LabelOversold, model.LabelDowntrend}},
		{"percent b below band", ind(v(45), v(-0.2), v(0.5), v(-1)),
			model.Labels{model.LabelOversold, model.LabelNeutral}},
		{"plain neutral", ind(v(55), v(0.6), v(0), v(1)),
			model.Labels{model.LabelNeutral}},
		{"mixed direction is neutral", ind(v(55), v(0.6), v(1), v(-1)),
			model.Labels{model.LabelNeutral}},
		{"overheated wins over oversold", ind(v(75), v(-0.1), v(1), v(1)),
			model.Labels{model.LabelOverheated, model.LabelUptrend}},
		{"undefined values never trigger", ind(none, none, none, v(3)),
			model.Labels{model.LabelNeutral}},
		{"degenerate band ignored", ind(v(100), model.Undefined(model.MetricDegenerateWindow), v(0.1), v(0.1)),
			model.Labels{model.LabelOverheated, model.LabelUptrend}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.in))
		})
	}
}

func TestClassify_Pure(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	in := ind(v(72), v(1.1), v(0.3), v(2.5))
	first := c.Classify(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify(in))
	}
}

func TestClassify_NeverOverheatedAndOversold(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	for rsi := 0.0; rsi <= 100; rsi += 5 {
		for pb := -1.0; pb <= 2.0; pb += 0.25 {
			labels := c.Classify(ind(v(rsi), v(pb), v(1), v(1)))
			assert.False(t, labels.Has(model.LabelOverheated) && labels.Has(model.LabelOversold),
				"rsi=%v pb=%v", rsi, pb)
		}
	}
}

func TestClassify_CustomThresholds(t *testing.T) {
	c := NewClassifier(Thresholds{RSIHigh: 80, RSILow: 20, BBHigh: 1.2, BBLow: -0.2})
	assert.Equal(t, model.Labels{model.LabelUptrend}, c.Classify(ind(v(75), v(1.1), v(1), v(1))))
	assert.Equal(t, model.Labels{model.LabelOverheated, model.LabelUptrend}, c.Classify(ind(v(80), v(1.1), v(1), v(1))))
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.Error(t, Thresholds{RSIHigh: 30, RSILow: 70, BBHigh: 1, BBLow: 0}.Validate())
	assert.Error(t, Thresholds{RSIHigh: 70, RSILow: 30, BBHigh: 0, BBLow: 0}.Validate())
	assert.Error(t, Thresholds{RSIHigh: 170, RSILow: 30, BBHigh: 1, BBLow: 0}.Validate())

	nan, inf := math.NaN(), math.Inf(1)
	assert.Error(t, Thresholds{RSIHigh: nan, RSILow: 30, BBHigh: 1, BBLow: 0}.Validate())
	assert.Error(t, Thresholds{RSIHigh: 70, RSILow: nan, BBHigh: 1, BBLow: 0}.Validate())
	assert.Error(t, Thresholds{RSIHigh: 70, RSILow: 30, BBHigh: inf, BBLow: 0}.Validate())
	assert.Error(t, Thresholds{RSIHigh: 70, RSILow: 30, BBHigh: 1, BBLow: -inf}.Validate())
}
