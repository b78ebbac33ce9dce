package model

import (
	"fmt"
	"strings"
)

// Strategy selects the ranking rules applied to the universe.
type Strategy string

const (
	// StrategyTrend is the defensive ranking: pure 12-1 momentum.
	StrategyTrend Strategy = "TREND"
	// StrategyEarningsConfirmed is the offensive ranking: 12-1 momentum
	// restricted to tickers with positive 6-month or 3-month momentum.
	StrategyEarningsConfirmed Strategy = "EARNINGS_CONFIRMED"
)

// ParseStrategy accepts the enum value or a friendly alias.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TREND", "TMEM", "DEFENSIVE":
		return StrategyTrend, nil
	case "EARNINGS_CONFIRMED", "MEC", "OFFENSIVE":
		return StrategyEarningsConfirmed, nil
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// TriggerType indicates what caused a publication.
type TriggerType string

const (
	TriggerDaily     TriggerType = "DAILY"
	TriggerMonthly   TriggerType = "MONTHLY"
	TriggerQuarterly TriggerType = "QUARTERLY"
	TriggerAnalysis  TriggerType = "ANALYSIS"
	TriggerManual    TriggerType = "MANUAL"
)

// RegimeResult is the trend-following risk-on/risk-off state of a benchmark.
type RegimeResult struct {
	IsRiskOn          bool    `json:"is_risk_on"`
	CurrentPrice      float64 `json:"current_price"`
	MovingAverage     float64 `json:"moving_average"`
	PercentDifference float64 `json:"percent_difference"`
	Window            int     `json:"window"`
}

// Label returns the badge text for the regime.
func (r RegimeResult) Label() string {
	if r.IsRiskOn {
		return "RISK-ON"
	}
	return "RISK-OFF"
}

// Direction returns "above" or "below" for prose rendering.
func (r RegimeResult) Direction() string {
	if r.IsRiskOn {
		return "above"
	}
	return "below"
}

// RankedPick is one row of a momentum ranking.
type RankedPick struct {
	Rank          int     `json:"rank"`
	Ticker        string  `json:"ticker"`
	MomentumScore float64 `json:"momentum_score"` // percent
	Price         float64 `json:"price"`
}
