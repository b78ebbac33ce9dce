package calculator

import (
	"errors"
	"math"
	"time"
)

// Trading-day offsets used by the momentum definitions.
const (
	OneMonth    = 21
	ThreeMonth  = 63
	SixMonth    = 126
	TwelveMonth = 252
)

// ShiftReturn returns closes[t-recent] / closes[t-past] - 1 where t is the last
// index. It fails when t-past is before the start of the series or when the
// ratio is not finite.
func ShiftReturn(closes []float64, recent, past int) (float64, error) {
	if recent < 0 || past < recent {
		return 0, errors.New("invalid shift")
	}
	t := len(closes) - 1
	if t-past < 0 {
		return 0, ErrNotEnoughData
	}
	start := closes[t-past]
	end := closes[t-recent]
	r := end/start - 1
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, errors.New("non-finite return")
	}
	return r, nil
}

// DatedValue is a value observed on a date.
type DatedValue struct {
	Date  time.Time
	Value float64
}

// AverageDollarVolume returns the mean of price*volume over the trailing
// window of price observations. Volumes are matched to prices by calendar
// date; a missing volume anywhere in the window leaves the average undefined.
func AverageDollarVolume(prices, volumes []DatedValue, window int) (float64, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	if len(prices) < window {
		return 0, ErrNotEnoughData
	}
	byDate := make(map[string]float64, len(volumes))
	for _, v := range volumes {
		byDate[v.Date.Format("2006-01-02")] = v.Value
	}
	sum := 0.0
	for _, p := range prices[len(prices)-window:] {
		v, ok := byDate[p.Date.Format("2006-01-02")]
		if !ok || math.IsNaN(v) {
			return 0, ErrNotEnoughData
		}
		sum += p.Value * v
	}
	return sum / float64(window), nil
}
