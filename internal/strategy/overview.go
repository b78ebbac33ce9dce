package strategy

import (
	"sort"

	"QuantDesk/internal/calculator"
	"QuantDesk/internal/model"
)

// Instrument names a ticker shown in the market overview.
type Instrument struct {
	Ticker string `yaml:"ticker" json:"ticker"`
	Name   string `yaml:"name" json:"name"`
}

// Catalog lists the instruments of the daily market overview.
type Catalog struct {
	Indices []Instrument `yaml:"indices"`
	VIX     Instrument   `yaml:"vix"`
	Sectors []Instrument `yaml:"sectors"`
	Bonds   Instrument   `yaml:"bonds"`
}

// Tickers returns every ticker of the catalog in display order.
func (c Catalog) Tickers() []string {
	var out []string
	for _, in := range c.Indices {
		out = append(out, in.Ticker)
	}
	if c.VIX.Ticker != "" {
		out = append(out, c.VIX.Ticker)
	}
	for _, in := range c.Sectors {
		out = append(out, in.Ticker)
	}
	if c.Bonds.Ticker != "" {
		out = append(out, c.Bonds.Ticker)
	}
	return out
}

// BuildMarketOverview turns a short lookback table into daily quotes.
// Tickers with fewer than two observations are left out. Sectors are sorted
// by daily change, best first. The first index is the lead instrument.
func BuildMarketOverview(table model.UniverseTable, catalog Catalog) model.MarketOverview {
	var ov model.MarketOverview

	for _, in := range catalog.Indices {
		if q, ok := quote(table, in); ok {
			ov.Indices = append(ov.Indices, q)
		}
	}
	if len(catalog.Indices) > 0 && len(ov.Indices) > 0 && ov.Indices[0].Ticker == catalog.Indices[0].Ticker {
		lead := ov.Indices[0]
		ov.Lead = &lead
	}
	if q, ok := quote(table, catalog.VIX); ok {
		ov.VIX = &q
	}
	for _, in := range catalog.Sectors {
		if q, ok := quote(table, in); ok {
			ov.Sectors = append(ov.Sectors, q)
		}
	}
	sort.SliceStable(ov.Sectors, func(i, j int) bool {
		return ov.Sectors[i].DailyChange > ov.Sectors[j].DailyChange
	})
	if q, ok := quote(table, catalog.Bonds); ok {
		ov.Bonds = &q
	}
	return ov
}

// fiveDayBars is the window of the five-day change: the last five daily bars.
const fiveDayBars = 5

func quote(table model.UniverseTable, in Instrument) (model.MarketQuote, bool) {
	if in.Ticker == "" {
		return model.MarketQuote{}, false
	}
	series, ok := table.Series(in.Ticker)
	if !ok || series.Len() < 2 {
		return model.MarketQuote{}, false
	}
	closes := series.Closes()
	current := closes[len(closes)-1]
	daily, err := calculator.PercentChange(current, closes[len(closes)-2])
	if err != nil {
		return model.MarketQuote{}, false
	}

	q := model.MarketQuote{
		Ticker:      in.Ticker,
		Name:        in.Name,
		Price:       calculator.Round2(current),
		DailyChange: calculator.Round2(daily),
	}
	if len(closes) >= fiveDayBars {
		if five, err := calculator.PercentChange(current, closes[len(closes)-fiveDayBars]); err == nil {
			five = calculator.Round2(five)
			q.FiveDayChange = &five
		}
	}
	return q, true
}
