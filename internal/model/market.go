package model

import "time"

// PricePoint is a single daily observation: adjusted close and traded volume.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries holds the chronological adjusted-close history of one ticker.
type PriceSeries struct {
	Ticker string       `json:"ticker"`
	Points []PricePoint `json:"points"`
}

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.Points) }

// Closes returns the adjusted closes in chronological order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Last returns the most recent observation.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// VolumePoint is a single daily volume observation.
type VolumePoint struct {
	Date   time.Time `json:"date"`
	Volume float64   `json:"volume"`
}

// VolumeSeries holds the chronological volume history of one ticker.
// It may be shorter than the matching PriceSeries.
type VolumeSeries struct {
	Ticker string        `json:"ticker"`
	Points []VolumePoint `json:"points"`
}

// UniverseTable is the normalized multi-ticker result of a market-data fetch.
// Tickers keeps the provider's iteration order, which ranking relies on for
// stable tie-breaking.
type UniverseTable struct {
	Tickers []string                `json:"tickers"`
	Prices  map[string]PriceSeries  `json:"prices"`
	Volumes map[string]VolumeSeries `json:"volumes"`
	// Failed lists tickers the provider errored on, as opposed to tickers it
	// has no data for. A table with failures is incomplete and not cacheable.
	Failed []string `json:"failed,omitempty"`
}

// Complete reports whether every requested ticker was either fetched or
// known to have no data.
func (t UniverseTable) Complete() bool { return len(t.Failed) == 0 }

// NewUniverseTable returns an empty table ready for Add.
func NewUniverseTable() UniverseTable {
	return UniverseTable{
		Prices:  make(map[string]PriceSeries),
		Volumes: make(map[string]VolumeSeries),
	}
}

// Add appends a ticker's price and volume history. Re-adding a ticker replaces
// its series without changing its position.
func (t *UniverseTable) Add(series PriceSeries) {
	if t.Prices == nil {
		t.Prices = make(map[string]PriceSeries)
	}
	if t.Volumes == nil {
		t.Volumes = make(map[string]VolumeSeries)
	}
	if _, ok := t.Prices[series.Ticker]; !ok {
		t.Tickers = append(t.Tickers, series.Ticker)
	}
	t.Prices[series.Ticker] = series

	vol := VolumeSeries{Ticker: series.Ticker, Points: make([]VolumePoint, 0, len(series.Points))}
	for _, p := range series.Points {
		vol.Points = append(vol.Points, VolumePoint{Date: p.Date, Volume: p.Volume})
	}
	t.Volumes[series.Ticker] = vol
}

// Series returns the price history of a ticker.
func (t UniverseTable) Series(ticker string) (PriceSeries, bool) {
	s, ok := t.Prices[ticker]
	return s, ok
}

// Empty reports whether the table holds no tickers.
func (t UniverseTable) Empty() bool { return len(t.Tickers) == 0 }

// MarketQuote is a short-horizon snapshot of one instrument used by the daily
// market overview.
type MarketQuote struct {
	Ticker        string   `json:"ticker"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	DailyChange   float64  `json:"daily_change"`
	FiveDayChange *float64 `json:"five_day_change,omitempty"`
}

// MarketOverview groups the quotes of the daily market analysis.
type MarketOverview struct {
	Indices []MarketQuote `json:"indices"`
	VIX     *MarketQuote  `json:"vix,omitempty"`
	Sectors []MarketQuote `json:"sectors"`
	Bonds   *MarketQuote  `json:"bonds,omitempty"`
	Lead    *MarketQuote  `json:"lead,omitempty"`
}

// Empty reports whether no quote could be built.
func (o MarketOverview) Empty() bool {
	return len(o.Indices) == 0 && len(o.Sectors) == 0 && o.VIX == nil && o.Bonds == nil
}
