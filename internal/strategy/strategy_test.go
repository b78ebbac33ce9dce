package strategy

import (
	"errors"
	"testing"
	"time"

	"QuantDesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func seriesFrom(ticker string, closes []float64, volume float64) model.PriceSeries {
	s := model.PriceSeries{Ticker: ticker, Points: make([]model.PricePoint, len(closes))}
	for i, c := range closes {
		s.Points[i] = model.PricePoint{Date: day0.AddDate(0, 0, i), Close: c, Volume: volume}
	}
	return s
}

// momentumSeries builds 253 closes at base where p[t-21] = base*(1+mom).
// overrides are keyed by the offset back from the last index.
func momentumSeries(ticker string, base, mom, last, volume float64, overrides map[int]float64) model.PriceSeries {
	const n = 253
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = base
	}
	closes[n-1-21] = base * (1 + mom)
	closes[n-1] = last
	for off, v := range overrides {
		closes[n-1-off] = v
	}
	return seriesFrom(ticker, closes, volume)
}

func tableOf(series ...model.PriceSeries) model.UniverseTable {
	t := model.NewUniverseTable()
	for _, s := range series {
		t.Add(s)
	}
	return t
}

func TestComputeRegime_ConstantSeries(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100
	}
	r, err := ComputeRegime(seriesFrom("SPY", closes, 0), 200)
	require.NoError(t, err)
	assert.Equal(t, 100.0, r.MovingAverage)
	assert.Equal(t, 0.0, r.PercentDifference)
	assert.False(t, r.IsRiskOn, "equal price must not be risk-on")
	assert.Equal(t, 200, r.Window)
}

func TestComputeRegime_Insufficient(t *testing.T) {
	_, err := ComputeRegime(seriesFrom("SPY", []float64{1, 2, 3}, 0), 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	var ide *InsufficientDataError
	require.True(t, errors.As(err, &ide))
	assert.Equal(t, 4, ide.Need)
	assert.Equal(t, 3, ide.Got)

	_, err = ComputeRegime(seriesFrom("SPY", []float64{1}, 0), 0)
	assert.Error(t, err)
}

func TestComputeRegime_Golden(t *testing.T) {
	r, err := ComputeRegime(seriesFrom("SPY", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0), 5)
	require.NoError(t, err)
	assert.True(t, r.IsRiskOn)
	assert.Equal(t, 10.0, r.CurrentPrice)
	assert.Equal(t, 8.0, r.MovingAverage)
	assert.Equal(t, 25.0, r.PercentDifference)

	r, err = ComputeRegime(seriesFrom("SPY", []float64{50, 105, 105, 90}, 0), 3)
	require.NoError(t, err)
	assert.False(t, r.IsRiskOn)
	assert.Equal(t, 100.0, r.MovingAverage)
	assert.Equal(t, -10.0, r.PercentDifference)
	assert.Equal(t, "below", r.Direction())
}

func TestRankMomentum_Scenario(t *testing.T) {
	table := tableOf(
		momentumSeries("A", 100, 0.10, 100, 1_000_000, nil),
		momentumSeries("B", 100, 0.05, 100, 1_000_000, nil),
		momentumSeries("C", 2, 0.50, 2, 100_000_000, nil),
	)

	picks := RankMomentum(table, model.StrategyTrend, 2)
	require.Len(t, picks, 2)
	assert.Equal(t, model.RankedPick{Rank: 1, Ticker: "A", MomentumScore: 10.0, Price: 100}, picks[0])
	assert.Equal(t, model.RankedPick{Rank: 2, Ticker: "B", MomentumScore: 5.0, Price: 100}, picks[1])
}

func TestRankMomentum_OrderingAndLength(t *testing.T) {
	var series []model.PriceSeries
	moms := []float64{0.3, -0.1, 0.7, 0.05, 0.2, 0.6, 0.01}
	for i, m := range moms {
		series = append(series, momentumSeries(string(rune('A'+i)), 50, m, 50, 1_000_000, nil))
	}
	table := tableOf(series...)

	for _, topN := range []int{1, 3, 7, 20} {
		picks := RankMomentum(table, model.StrategyTrend, topN)
		assert.LessOrEqual(t, len(picks), topN)
		for i, p := range picks {
			assert.Equal(t, i+1, p.Rank)
			if i > 0 {
				assert.Greater(t, picks[i-1].MomentumScore, p.MomentumScore)
			}
		}
	}
	assert.Len(t, RankMomentum(table, model.StrategyTrend, 20), len(moms))
	assert.Empty(t, RankMomentum(table, model.StrategyTrend, 0))
}

func TestRankMomentum_TiesKeepTableOrder(t *testing.T) {
	table := tableOf(
		momentumSeries("ZZZ", 100, 0.1, 100, 1_000_000, nil),
		momentumSeries("AAA", 100, 0.1, 100, 1_000_000, nil),
		momentumSeries("MMM", 100, 0.1, 100, 1_000_000, nil),
	)
	picks := RankMomentum(table, model.StrategyTrend, 3)
	require.Len(t, picks, 3)
	assert.Equal(t, []string{"ZZZ", "AAA", "MMM"}, []string{picks[0].Ticker, picks[1].Ticker, picks[2].Ticker})
}

func TestRankMomentum_Exclusions(t *testing.T) {
	short := seriesFrom("SHORT", make([]float64, 252), 1_000_000)
	for i := range short.Points {
		short.Points[i].Close = 100
	}
	illiquid := momentumSeries("THIN", 100, 0.4, 100, 1_000, nil)

	gappy := momentumSeries("GAPPY", 100, 0.4, 100, 1_000_000, nil)
	table := tableOf(short, illiquid, gappy, momentumSeries("OK", 100, 0.1, 100, 1_000_000, nil))
	// drop the latest volume print of GAPPY so its 60-day window is incomplete
	vol := table.Volumes["GAPPY"]
	vol.Points = vol.Points[:len(vol.Points)-1]
	table.Volumes["GAPPY"] = vol

	picks := RankMomentum(table, model.StrategyTrend, 10)
	require.Len(t, picks, 1)
	assert.Equal(t, "OK", picks[0].Ticker)
}

func TestRankMomentum_EarningsConfirmation(t *testing.T) {
	// 12-1 momentum positive, but the price a month ago is below both the
	// 3-month and 6-month anchors.
	unconfirmed := momentumSeries("FADE", 100, 0.30, 130, 1_000_000, map[int]float64{126: 150, 63: 140})
	sixOnly := momentumSeries("SIX", 100, 0.20, 120, 1_000_000, map[int]float64{126: 110, 63: 125})
	threeOnly := momentumSeries("THREE", 100, 0.10, 110, 1_000_000, map[int]float64{126: 115, 63: 105})
	table := tableOf(unconfirmed, sixOnly, threeOnly)

	trend := RankMomentum(table, model.StrategyTrend, 10)
	require.Len(t, trend, 3)
	assert.Equal(t, "FADE", trend[0].Ticker)

	mec := RankMomentum(table, model.StrategyEarningsConfirmed, 10)
	require.Len(t, mec, 2)
	assert.Equal(t, "SIX", mec[0].Ticker)
	assert.Equal(t, "THREE", mec[1].Ticker)
	assert.Equal(t, 1, mec[0].Rank)
	assert.Equal(t, 2, mec[1].Rank)
}

func TestRankMomentum_EmptyTable(t *testing.T) {
	assert.Empty(t, RankMomentum(model.UniverseTable{}, model.StrategyTrend, 30))
	assert.NotNil(t, RankMomentum(model.UniverseTable{}, model.StrategyEarningsConfirmed, 40))
}

func TestRankMomentum_Options(t *testing.T) {
	table := tableOf(momentumSeries("LOW", 3, 0.2, 3, 100_000_000, nil))
	assert.Empty(t, RankMomentum(table, model.StrategyTrend, 5))
	assert.Len(t, RankMomentum(table, model.StrategyTrend, 5, WithMinPrice(1)), 1)

	table = tableOf(momentumSeries("THIN", 100, 0.2, 100, 1_000, nil))
	assert.Len(t, RankMomentum(table, model.StrategyTrend, 5, WithMinDollarVolume(50_000)), 1)
}

func TestBuildMarketOverview(t *testing.T) {
	table := tableOf(
		seriesFrom("SPY", []float64{100, 101, 102, 103, 105}, 0),
		seriesFrom("^VIX", []float64{14, 16}, 0),
		seriesFrom("XLK", []float64{100, 99}, 0),
		seriesFrom("XLE", []float64{100, 102}, 0),
		seriesFrom("TLT", []float64{90}, 0),
	)
	catalog := Catalog{
		Indices: []Instrument{{"SPY", "S&P 500"}, {"QQQ", "Nasdaq 100"}},
		VIX:     Instrument{"^VIX", "VIX"},
		Sectors: []Instrument{{"XLK", "Technology"}, {"XLE", "Energy"}},
		Bonds:   Instrument{"TLT", "20+ Yr Treasury"},
	}

	ov := BuildMarketOverview(table, catalog)
	require.Len(t, ov.Indices, 1)
	require.NotNil(t, ov.Lead)
	assert.Equal(t, "SPY", ov.Lead.Ticker)
	assert.Equal(t, 1.94, ov.Indices[0].DailyChange)
	require.NotNil(t, ov.Indices[0].FiveDayChange)
	assert.Equal(t, 5.0, *ov.Indices[0].FiveDayChange)
	require.NotNil(t, ov.VIX)
	assert.Nil(t, ov.VIX.FiveDayChange)
	assert.Equal(t, []string{"XLE", "XLK"}, []string{ov.Sectors[0].Ticker, ov.Sectors[1].Ticker})
	assert.Nil(t, ov.Bonds, "one observation is not enough")

	long := tableOf(seriesFrom("SPY", []float64{100, 100, 100, 100, 100, 110, 110, 110, 110, 110}, 0))
	ov = BuildMarketOverview(long, catalog)
	require.Len(t, ov.Indices, 1)
	require.NotNil(t, ov.Indices[0].FiveDayChange)
	assert.Equal(t, 0.0, *ov.Indices[0].FiveDayChange, "window is the last five bars, not the whole table")
	assert.Equal(t, []string{"SPY", "QQQ", "^VIX", "XLK", "XLE", "TLT"}, catalog.Tickers())
}
