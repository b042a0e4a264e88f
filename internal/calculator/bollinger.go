package calculator

import (
	"fmt"
	"math"
)

// Band is a Bollinger band evaluated at the latest point.
type Band struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Width returns Upper - Lower.
func (b Band) Width() float64 { return b.Upper - b.Lower }

// CalculateStdDev returns the population standard deviation of the last period values.
// A window of identical values is exactly 0, whatever rounding the mean picked up.
func CalculateStdDev(values []float64, period int) (float64, error) {
	mean, err := CalculateSMA(values, period)
	if err != nil {
		return 0, err
	}
	window := values[len(values)-period:]
	lo, hi := window[0], window[0]
	var sq float64
	for _, v := range window {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
		d := v - mean
		sq += d * d
	}
	if lo == hi {
		return 0, nil
	}
	std := math.Sqrt(sq / float64(period))
	if std <= 1e-12*math.Abs(mean) {
		return 0, nil
	}
	return std, nil
}

// CalculateBollinger returns the band mean ± k standard deviations over period.
func CalculateBollinger(closes []float64, period int, k float64) (Band, error) {
	if !(k > 0) || math.IsInf(k, 0) {
		return Band{}, fmt.Errorf("band multiplier %v: %w", k, ErrInvalidParameter)
	}
	mean, err := CalculateSMA(closes, period)
	if err != nil {
		return Band{}, err
	}
	std, err := CalculateStdDev(closes, period)
	if err != nil {
		return Band{}, err
	}
	return Band{Upper: mean + k*std, Middle: mean, Lower: mean - k*std}, nil
}

// CalculatePercentB places price within the band: 0 at the lower band, 1 at
// the upper one. The ratio is not clamped, so prices outside the band give
// values below 0 or above 1. A zero-width band yields ErrDegenerateWindow.
func CalculatePercentB(price float64, b Band) (float64, error) {
	if b.Upper == b.Lower {
		return 0, fmt.Errorf("percent b on zero-width band at %.4f: %w", b.Middle, ErrDegenerateWindow)
	}
	return (price - b.Lower) / b.Width(), nil
}
