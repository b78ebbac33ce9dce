package strategy

import (
	"sort"

	"QuantDesk/internal/calculator"
	"QuantDesk/internal/model"

	"github.com/rs/zerolog/log"
)

// Filters are the eligibility thresholds shared by both rankings.
type Filters struct {
	MinPrice        float64
	MinDollarVolume float64
	ADVWindow       int
}

// DefaultFilters excludes penny stocks and names trading under $20M a day.
func DefaultFilters() Filters {
	return Filters{
		MinPrice:        5.0,
		MinDollarVolume: 20_000_000,
		ADVWindow:       60,
	}
}

// RankOption overrides a default filter.
type RankOption func(*Filters)

// WithFilters replaces all thresholds at once.
func WithFilters(f Filters) RankOption {
	return func(dst *Filters) { *dst = f }
}

// WithMinPrice sets the penny-stock floor.
func WithMinPrice(p float64) RankOption {
	return func(f *Filters) { f.MinPrice = p }
}

// WithMinDollarVolume sets the liquidity floor.
func WithMinDollarVolume(v float64) RankOption {
	return func(f *Filters) { f.MinDollarVolume = v }
}

type candidate struct {
	ticker   string
	momentum float64
	price    float64
}

// RankMomentum ranks the universe by 12-1 month momentum under the given
// strategy and returns at most topN picks. Ties keep the table's ticker order.
// An empty table, or one with no eligible tickers, yields an empty slice.
func RankMomentum(table model.UniverseTable, strategy model.Strategy, topN int, opts ...RankOption) []model.RankedPick {
	filters := DefaultFilters()
	for _, opt := range opts {
		opt(&filters)
	}
	if topN <= 0 || table.Empty() {
		return []model.RankedPick{}
	}

	var (
		candidates                              []candidate
		undefined, cheap, illiquid, unconfirmed int
	)
	for _, ticker := range table.Tickers {
		series, ok := table.Prices[ticker]
		if !ok || series.Len() == 0 {
			continue
		}
		closes := series.Closes()

		mom, err := calculator.ShiftReturn(closes, calculator.OneMonth, calculator.TwelveMonth)
		if err != nil {
			undefined++
			continue
		}
		current := closes[len(closes)-1]
		if current < filters.MinPrice {
			cheap++
			continue
		}
		if !liquid(series, table.Volumes[ticker], filters) {
			illiquid++
			continue
		}
		if strategy == model.StrategyEarningsConfirmed && !confirmed(closes) {
			unconfirmed++
			continue
		}
		candidates = append(candidates, candidate{ticker: ticker, momentum: mom, price: current})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].momentum > candidates[j].momentum
	})
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}

	picks := make([]model.RankedPick, len(candidates))
	for i, c := range candidates {
		picks[i] = model.RankedPick{
			Rank:          i + 1,
			Ticker:        c.ticker,
			MomentumScore: calculator.Round2(c.momentum * 100),
			Price:         calculator.Round2(c.price),
		}
	}

	log.Debug().
		Str("strategy", string(strategy)).
		Int("universe", len(table.Tickers)).
		Int("undefined", undefined).
		Int("below_price", cheap).
		Int("illiquid", illiquid).
		Int("unconfirmed", unconfirmed).
		Int("picks", len(picks)).
		Msg("momentum ranking done")
	return picks
}

func liquid(prices model.PriceSeries, volumes model.VolumeSeries, f Filters) bool {
	p := make([]calculator.DatedValue, len(prices.Points))
	for i, pt := range prices.Points {
		p[i] = calculator.DatedValue{Date: pt.Date, Value: pt.Close}
	}
	v := make([]calculator.DatedValue, len(volumes.Points))
	for i, pt := range volumes.Points {
		v[i] = calculator.DatedValue{Date: pt.Date, Value: pt.Volume}
	}
	adv, err := calculator.AverageDollarVolume(p, v, f.ADVWindow)
	if err != nil {
		return false
	}
	return adv >= f.MinDollarVolume
}

// confirmed is the earnings-confirmation proxy: positive 6-month or 3-month
// momentum, both anchored on the price one month ago.
func confirmed(closes []float64) bool {
	if m6, err := calculator.ShiftReturn(closes, calculator.OneMonth, calculator.SixMonth); err == nil && m6 > 0 {
		return true
	}
	if m3, err := calculator.ShiftReturn(closes, calculator.OneMonth, calculator.ThreeMonth); err == nil && m3 > 0 {
		return true
	}
	return false
}
