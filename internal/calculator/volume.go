package calculator

import "fmt"

// CalculateVolumeRatio returns the latest volume as a multiple of the
// period-day average volume. The average includes the latest day.
func CalculateVolumeRatio(volumes []float64, period int) (float64, error) {
	avg, err := CalculateSMA(volumes, period)
	if err != nil {
		return 0, err
	}
	if avg == 0 {
		return 0, fmt.Errorf("volume ratio on zero average volume: %w", ErrDegenerateWindow)
	}
	return volumes[len(volumes)-1] / avg, nil
}
