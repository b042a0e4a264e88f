// Package indicator turns one instrument's price history into its IndicatorSet.
package indicator

import (
	"errors"
	"fmt"
	"math"

	"SectorPulse/internal/calculator"
	"SectorPulse/internal/model"
)

// ErrEmptySeries is returned when there is nothing to evaluate.
var ErrEmptySeries = errors.New("empty series")

// Params holds the lookback windows used by the engine.
type Params struct {
	RSIPeriod       int
	BollingerPeriod int
	BollingerK      float64
	MAPeriod        int
	ShortMAPeriod   int
	LongMAPeriod    int
	VolumePeriod    int
}

// DefaultParams returns the standard windows: RSI 14, Bollinger 20/2σ,
// MA 20 with 5 and 75 day companions, volume 20.
func DefaultParams() Params {
	return Params{
		RSIPeriod:       14,
		BollingerPeriod: 20,
		BollingerK:      2,
		MAPeriod:        20,
		ShortMAPeriod:   5,
		LongMAPeriod:    75,
		VolumePeriod:    20,
	}
}

// Validate rejects non-positive windows and a non-finite band multiplier.
func (p Params) Validate() error {
	windows := []struct {
		name string
		v    int
	}{
		{"rsi_period", p.RSIPeriod},
		{"bollinger_period", p.BollingerPeriod},
		{"ma_period", p.MAPeriod},
		{"ma_short_period", p.ShortMAPeriod},
		{"ma_long_period", p.LongMAPeriod},
		{"volume_period", p.VolumePeriod},
	}
	for _, w := range windows {
		if w.v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", w.name, w.v)
		}
	}
	if !(p.BollingerK > 0) || math.IsInf(p.BollingerK, 0) {
		return fmt.Errorf("bollinger_k must be a positive finite number, got %v", p.BollingerK)
	}
	return nil
}

// Engine computes indicator sets. It holds no state between calls.
type Engine struct {
	params Params
}

// NewEngine creates an Engine with the given windows.
func NewEngine(p Params) *Engine {
	return &Engine{params: p}
}

// Params returns the windows the engine was built with.
func (e *Engine) Params() Params { return e.params }

// Compute evaluates every indicator at the latest point of the series.
// Indicators whose window does not fit the history are returned undefined;
// only an empty series is an error.
func (e *Engine) Compute(series model.Series) (model.IndicatorSet, error) {
	if series.Empty() {
		return model.IndicatorSet{}, fmt.Errorf("%s: %w", series.InstrumentID, ErrEmptySeries)
	}
	closes := series.Closes()
	volumes := series.Volumes()
	latest := series.Latest()

	ind := model.IndicatorSet{
		Date:         latest.Date,
		LatestClose:  latest.Close,
		LatestVolume: latest.Volume,
		PriorClose:   model.Undefined(model.MetricInsufficientHistory),
	}
	if len(closes) >= 2 {
		ind.PriorClose = model.Defined(closes[len(closes)-2])
	}

	ind.RSI = metric(calculator.CalculateRSI(closes, e.params.RSIPeriod))
	ind.PercentB = e.percentB(closes)
	ind.MADeviation = metric(calculator.CalculateMADeviation(closes, e.params.MAPeriod))
	ind.MADeviationShort = metric(calculator.CalculateMADeviation(closes, e.params.ShortMAPeriod))
	ind.MADeviationLong = metric(calculator.CalculateMADeviation(closes, e.params.LongMAPeriod))
	ind.VolumeRatio = metric(calculator.CalculateVolumeRatio(volumes, e.params.VolumePeriod))
	ind.ChangePct = metric(calculator.CalculateChangePct(closes))
	return ind, nil
}

func (e *Engine) percentB(closes []float64) model.Metric {
	band, err := calculator.CalculateBollinger(closes, e.params.BollingerPeriod, e.params.BollingerK)
	if err != nil {
		return metric(0, err)
	}
	return metric(calculator.CalculatePercentB(closes[len(closes)-1], band))
}

// metric maps a calculator result onto a Metric, keeping the reason a value
// is missing. Errors other than short or degenerate windows are reported as
// invalid input rather than folded into either.
func metric(v float64, err error) model.Metric {
	switch {
	case err == nil:
		return model.Defined(v)
	case errors.Is(err, calculator.ErrInsufficientHistory):
		return model.Undefined(model.MetricInsufficientHistory)
	case errors.Is(err, calculator.ErrDegenerateWindow):
		return model.Undefined(model.MetricDegenerateWindow)
	default:
		return model.Undefined(model.MetricInvalidInput)
	}
}
