package collector

import (
	"context"
	"fmt"
	"time"

	"QuantDesk/internal/model"

	"github.com/rs/zerolog/log"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Table model.UniverseTable
	Err   error
	Calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchSeries(_ context.Context, tickers []string, lookbackDays int) (model.UniverseTable, error) {
	m.Calls++
	if m.Err != nil {
		return model.UniverseTable{}, m.Err
	}
	out := model.NewUniverseTable()
	for _, t := range tickers {
		s, ok := m.Table.Prices[t]
		if !ok {
			continue
		}
		if lookbackDays > 0 && len(s.Points) > lookbackDays {
			s.Points = s.Points[len(s.Points)-lookbackDays:]
		}
		out.Tickers = append(out.Tickers, t)
		out.Prices[t] = s
		if v, ok := m.Table.Volumes[t]; ok {
			out.Volumes[t] = v
		} else {
			out.Volumes[t] = model.VolumeSeries{Ticker: t}
		}
	}
	if out.Empty() {
		return out, ErrNoData
	}
	return out, nil
}

func (m *MockFetcher) FetchSingle(ctx context.Context, ticker string, lookbackDays int) (model.PriceSeries, error) {
	return fetchSingle(ctx, m, ticker, lookbackDays)
}

// GenerateMockSeries builds count daily bars drifting by drift per bar from
// basePrice, ending on end.
func GenerateMockSeries(ticker string, basePrice, drift, volume float64, count int, end time.Time) model.PriceSeries {
	s := model.PriceSeries{Ticker: ticker, Points: make([]model.PricePoint, count)}
	for i := 0; i < count; i++ {
		s.Points[i] = model.PricePoint{
			Date:   end.AddDate(0, 0, -(count - 1 - i)),
			Close:  basePrice * (1 + float64(i)*drift),
			Volume: volume,
		}
	}
	return s
}

// Collector binds a Fetcher to the benchmark and universe the signals run on.
type Collector struct {
	Fetcher      Fetcher
	Benchmark    string
	Universe     []string
	LookbackDays int
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, benchmark string, universe []string, lookbackDays int) *Collector {
	return &Collector{Fetcher: fetcher, Benchmark: benchmark, Universe: universe, LookbackDays: lookbackDays}
}

// CollectBenchmark fetches the regime benchmark history.
func (c *Collector) CollectBenchmark(ctx context.Context) (model.PriceSeries, error) {
	s, err := c.Fetcher.FetchSingle(ctx, c.Benchmark, c.LookbackDays)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("fetch %s: %w", c.Benchmark, err)
	}
	return s, nil
}

// CollectUniverse fetches price and volume history for the whole universe.
func (c *Collector) CollectUniverse(ctx context.Context) (model.UniverseTable, error) {
	start := time.Now()
	table, err := c.Fetcher.FetchSeries(ctx, c.Universe, c.LookbackDays)
	if err != nil {
		return model.UniverseTable{}, fmt.Errorf("fetch universe: %w", err)
	}
	if table.Empty() {
		return model.UniverseTable{}, fmt.Errorf("fetch universe: %w", ErrNoData)
	}
	log.Info().
		Str("source", c.Fetcher.Name()).
		Int("requested", len(c.Universe)).
		Int("received", len(table.Tickers)).
		Dur("took", time.Since(start)).
		Msg("universe fetched")
	return table, nil
}

// CollectTickers fetches an arbitrary ticker set over a short lookback.
func (c *Collector) CollectTickers(ctx context.Context, tickers []string, lookbackDays int) (model.UniverseTable, error) {
	table, err := c.Fetcher.FetchSeries(ctx, tickers, lookbackDays)
	if err != nil {
		return model.UniverseTable{}, fmt.Errorf("fetch tickers: %w", err)
	}
	return table, nil
}
