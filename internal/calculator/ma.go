package calculator

import (
	"errors"
)

// ErrNotEnoughData is returned when a window reaches past the start of a series.
var ErrNotEnoughData = errors.New("not enough data")

// CalculateSMA computes the simple moving average of the given prices over the specified period.
// The window ends at the last element; no padding is applied.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, ErrNotEnoughData
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}
