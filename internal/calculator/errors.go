package calculator

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientHistory means the input is shorter than the lookback window.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrDegenerateWindow means the window is long enough but the result is
	// undefined, e.g. a zero-width band or a zero base.
	ErrDegenerateWindow = errors.New("degenerate window")
	// ErrInvalidParameter means a window or multiplier is out of range.
	ErrInvalidParameter = errors.New("invalid parameter")
)

func checkPeriod(period int) error {
	if period <= 0 {
		return fmt.Errorf("period %d: %w", period, ErrInvalidParameter)
	}
	return nil
}
