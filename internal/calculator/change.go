package calculator

import (
	"errors"
	"math"
)

// PercentChange returns (current/previous - 1) * 100.
func PercentChange(current, previous float64) (float64, error) {
	if previous == 0 {
		return 0, errors.New("previous value is zero")
	}
	return (current/previous - 1) * 100, nil
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
