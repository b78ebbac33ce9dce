package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"QuantDesk/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// errNoSeries marks a ticker the provider does not know or has no bars for.
// It does not count as a provider failure.
var errNoSeries = errors.New("yahoo: no data for symbol")

// YahooFetcher implements Fetcher using the Yahoo Finance chart API, one
// request per ticker, rate limited and guarded by a circuit breaker.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
	Workers   int

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

// YahooOption customizes a YahooFetcher.
type YahooOption func(*YahooFetcher)

// WithBaseURL points the fetcher at another chart API host.
func WithBaseURL(u string) YahooOption {
	return func(f *YahooFetcher) {
		if u != "" {
			f.BaseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64, burst int) YahooOption {
	return func(f *YahooFetcher) {
		if rps > 0 {
			if burst <= 0 {
				burst = 1
			}
			f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithWorkers sets how many tickers are fetched concurrently.
func WithWorkers(n int) YahooOption {
	return func(f *YahooFetcher) {
		if n > 0 {
			f.Workers = n
		}
	}
}

// WithClock overrides the clock used to compute the lookback window.
func WithClock(now func() time.Time) YahooOption {
	return func(f *YahooFetcher) { f.now = now }
}

// NewYahooFetcher creates a new Yahoo Finance fetcher with optional proxy support.
func NewYahooFetcher(proxyURL string, opts ...YahooOption) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	f := &YahooFetcher{
		BaseURL: defaultYahooBaseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
		Workers: 4,
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "yahoo",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNoSeries) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return f
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooSymbol maps share-class tickers such as BRK.B to Yahoo's BRK-B form.
func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return strings.ReplaceAll(symbol, ".", "-")
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []interface{} `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func at(vals []interface{}, i int) float64 {
	if i >= len(vals) {
		return 0
	}
	return toFloat(vals[i])
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d&events=div%%2Csplit",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), from.Unix(), to.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.PriceSeries{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return model.PriceSeries{}, errNoSeries
	}
	if resp.StatusCode != http.StatusOK {
		return model.PriceSeries{}, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return model.PriceSeries{}, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return model.PriceSeries{}, fmt.Errorf("%w: %s", errNoSeries, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return model.PriceSeries{}, errNoSeries
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	var adj []interface{}
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	series := model.PriceSeries{Ticker: symbol, Points: make([]model.PricePoint, 0, len(result.Timestamp))}
	for i, ts := range result.Timestamp {
		c := at(adj, i)
		if c == 0 {
			c = at(quote.Close, i)
		}
		if c == 0 {
			continue // skip null bars (holidays etc.)
		}
		d := time.Unix(ts, 0).UTC()
		series.Points = append(series.Points, model.PricePoint{
			Date:   time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}
	if len(series.Points) == 0 {
		return model.PriceSeries{}, errNoSeries
	}

	sort.Slice(series.Points, func(i, j int) bool { return series.Points[i].Date.Before(series.Points[j].Date) })
	return series, nil
}

func (f *YahooFetcher) fetchGuarded(ctx context.Context, symbol string, from, to time.Time) (model.PriceSeries, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return model.PriceSeries{}, err
		}
	}
	out, err := f.breaker.Execute(func() (interface{}, error) {
		return f.fetchChart(ctx, symbol, from, to)
	})
	if err != nil {
		return model.PriceSeries{}, err
	}
	return out.(model.PriceSeries), nil
}

// FetchSeries fetches daily history for every ticker over lookbackDays
// calendar days. Tickers without data are dropped; the call only fails when
// nothing at all could be fetched.
func (f *YahooFetcher) FetchSeries(ctx context.Context, tickers []string, lookbackDays int) (model.UniverseTable, error) {
	tickers = dedupe(tickers)
	to := f.now()
	from := to.AddDate(0, 0, -lookbackDays)

	type result struct {
		series model.PriceSeries
		err    error
	}
	results := make([]result, len(tickers))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < f.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				s, err := f.fetchGuarded(ctx, tickers[i], from, to)
				results[i] = result{series: s, err: err}
			}
		}()
	}
	for i := range tickers {
		select {
		case jobs <- i:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return model.UniverseTable{}, err
	}

	table := model.NewUniverseTable()
	var failed int
	var lastErr error
	for i, r := range results {
		switch {
		case r.err == nil:
			table.Add(r.series)
		case errors.Is(r.err, errNoSeries):
			log.Debug().Str("ticker", tickers[i]).Msg("no data, ticker excluded")
		default:
			failed++
			lastErr = r.err
			table.Failed = append(table.Failed, tickers[i])
		}
	}
	if failed > 0 {
		log.Warn().Int("failed", failed).Int("requested", len(tickers)).Err(lastErr).Msg("yahoo fetch partially failed")
	}
	if table.Empty() && len(tickers) > 0 {
		if lastErr != nil {
			return table, fmt.Errorf("%w: %v", ErrNoData, lastErr)
		}
		return table, ErrNoData
	}
	return table, nil
}

func (f *YahooFetcher) FetchSingle(ctx context.Context, ticker string, lookbackDays int) (model.PriceSeries, error) {
	return fetchSingle(ctx, f, ticker, lookbackDays)
}

func dedupe(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
