package calculator

import "fmt"

// CalculateSMA computes the simple moving average of the last period values.
func CalculateSMA(values []float64, period int) (float64, error) {
	if err := checkPeriod(period); err != nil {
		return 0, err
	}
	if len(values) < period {
		return 0, fmt.Errorf("sma(%d) over %d values: %w", period, len(values), ErrInsufficientHistory)
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// CalculateDeviation returns how far value sits from base, in percent.
func CalculateDeviation(value, base float64) (float64, error) {
	if base == 0 {
		return 0, fmt.Errorf("deviation from zero base: %w", ErrDegenerateWindow)
	}
	return (value - base) / base * 100, nil
}

// CalculateMADeviation returns the percent distance of the latest close from
// its period-day simple moving average.
func CalculateMADeviation(closes []float64, period int) (float64, error) {
	ma, err := CalculateSMA(closes, period)
	if err != nil {
		return 0, err
	}
	return CalculateDeviation(closes[len(closes)-1], ma)
}

// CalculateChangePct returns the close-to-close change of the two most recent values.
func CalculateChangePct(closes []float64) (float64, error) {
	if len(closes) < 2 {
		return 0, fmt.Errorf("change over %d values: %w", len(closes), ErrInsufficientHistory)
	}
	return CalculateDeviation(closes[len(closes)-1], closes[len(closes)-2])
}
