package collector

import (
	"context"
	"errors"

	"QuantDesk/internal/model"
)

// ErrNoData is returned when a provider produced no usable series at all.
var ErrNoData = errors.New("no market data returned")

// Fetcher defines the interface for fetching market data. Implementations
// always return the uniform UniverseTable shape and silently drop tickers the
// provider has no data for.
type Fetcher interface {
	FetchSeries(ctx context.Context, tickers []string, lookbackDays int) (model.UniverseTable, error)
	FetchSingle(ctx context.Context, ticker string, lookbackDays int) (model.PriceSeries, error)
	Name() string
}

// fetchSingle implements FetchSingle on top of FetchSeries so that one- and
// many-ticker requests share the same normalization.
func fetchSingle(ctx context.Context, f Fetcher, ticker string, lookbackDays int) (model.PriceSeries, error) {
	table, err := f.FetchSeries(ctx, []string{ticker}, lookbackDays)
	if err != nil {
		return model.PriceSeries{}, err
	}
	series, ok := table.Series(ticker)
	if !ok || series.Len() == 0 {
		return model.PriceSeries{}, ErrNoData
	}
	return series, nil
}
