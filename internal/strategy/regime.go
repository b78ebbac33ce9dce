package strategy

import (
	"errors"
	"fmt"

	"QuantDesk/internal/calculator"
	"QuantDesk/internal/model"
)

// ErrInsufficientData is the sentinel matched by every InsufficientDataError.
var ErrInsufficientData = errors.New("insufficient data")

// InsufficientDataError reports a series that is shorter than a required window.
type InsufficientDataError struct {
	Ticker string
	Need   int
	Got    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d observations, got %d", e.Ticker, e.Need, e.Got)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// ComputeRegime compares the last close of prices with its trailing simple
// moving average. Risk-on requires the price to be strictly above the average.
func ComputeRegime(prices model.PriceSeries, smaWindow int) (model.RegimeResult, error) {
	if smaWindow <= 0 {
		return model.RegimeResult{}, fmt.Errorf("sma window must be positive, got %d", smaWindow)
	}
	if prices.Len() < smaWindow {
		return model.RegimeResult{}, &InsufficientDataError{Ticker: prices.Ticker, Need: smaWindow, Got: prices.Len()}
	}

	closes := prices.Closes()
	sma, err := calculator.CalculateSMA(closes, smaWindow)
	if err != nil {
		return model.RegimeResult{}, fmt.Errorf("sma: %w", err)
	}
	if sma == 0 {
		return model.RegimeResult{}, fmt.Errorf("sma of %s is zero", prices.Ticker)
	}
	current := closes[len(closes)-1]

	return model.RegimeResult{
		IsRiskOn:          current > sma,
		CurrentPrice:      calculator.Round2(current),
		MovingAverage:     calculator.Round2(sma),
		PercentDifference: calculator.Round2((current/sma - 1) * 100),
		Window:            smaWindow,
	}, nil
}
