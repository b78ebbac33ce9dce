package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"QuantDesk/internal/collector"
	"QuantDesk/internal/config"
	"QuantDesk/internal/logger"
	"QuantDesk/internal/metrics"
	"QuantDesk/internal/model"
	"QuantDesk/internal/notifier"
	"QuantDesk/internal/recorder"
	"QuantDesk/internal/scheduler"
	"QuantDesk/internal/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// dryRunOut receives reports when --dry-run is set.
var dryRunOut io.Writer = os.Stdout

// app holds the wired components of one process.
type app struct {
	cfg       *config.Config
	sched     *scheduler.Scheduler
	recorder  recorder.Recorder
	registry  *prometheus.Registry
	telegram  *notifier.TelegramNotifier
	closeFunc []func() error
}

func (a *app) Close() {
	for i := len(a.closeFunc) - 1; i >= 0; i-- {
		if err := a.closeFunc[i](); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
}

func loadConfig(requireSink bool) (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Service:    "quantdesk",
	}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		if requireSink || !errors.Is(err, config.ErrNoSink) {
			return nil, err
		}
	}
	return cfg, nil
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.registry)

	fetcher, err := buildFetcher(ctx, a, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Info().Str("source", fetcher.Name()).Int("universe", len(cfg.Universe)).Msg("data source ready")
	col := collector.NewCollector(fetcher, cfg.Strategies.Benchmark, cfg.Universe, cfg.DataSource.LookbackDays)

	a.recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			a.recorder = sr
			a.closeFunc = append(a.closeFunc, sr.Close)
		}
	}

	pub := buildPublisher(a, cfg)

	loc := cfg.Location()
	a.sched = scheduler.NewScheduler(ctx, col, pub, a.recorder, m, scheduler.SystemClock{Location: loc}, scheduler.Settings{
		SMAWindow:        cfg.Strategies.SMAWindow,
		MonthlyGrace:     cfg.Schedule.MonthlyGrace,
		QuarterMonths:    cfg.Strategies.QuarterMonths,
		AnalysisLookback: cfg.Schedule.AnalysisLookback,
		AnalysisChannel:  cfg.Strategies.Analysis,
		Defensive: scheduler.StrategySpec{
			Label:   cfg.Strategies.Defensive.Label,
			Channel: cfg.Strategies.Defensive.Channel,
			TopN:    cfg.Strategies.Defensive.TopN,
		},
		Offensive: scheduler.StrategySpec{
			Label:   cfg.Strategies.Offensive.Label,
			Channel: cfg.Strategies.Offensive.Channel,
			TopN:    cfg.Strategies.Offensive.TopN,
		},
		Filters: cfg.RankFilters(),
		Catalog: cfg.Market,
	})
	return a, nil
}

func buildFetcher(ctx context.Context, a *app, cfg *config.Config) (collector.Fetcher, error) {
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "mock":
		fetcher = mockFetcher(cfg)
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy,
			collector.WithBaseURL(cfg.DataSource.BaseURL),
			collector.WithRateLimit(cfg.DataSource.RateLimit, int(cfg.DataSource.RateLimit)+1),
			collector.WithWorkers(cfg.DataSource.Workers),
		)
	}
	if cfg.DataSource.CacheTTL <= 0 {
		return fetcher, nil
	}

	var store collector.Store = collector.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		rs, err := collector.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, using in-memory cache")
		} else {
			store = rs
			a.closeFunc = append(a.closeFunc, rs.Close)
		}
	}
	return collector.NewCachedFetcher(fetcher, store, cfg.DataSource.CacheTTL), nil
}

// mockFetcher serves synthetic history for every configured ticker.
func mockFetcher(cfg *config.Config) *collector.MockFetcher {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	table := model.NewUniverseTable()
	tickers := append([]string{cfg.Strategies.Benchmark}, cfg.Universe...)
	tickers = append(tickers, cfg.Market.Tickers()...)
	seen := map[string]bool{}
	for i, t := range tickers {
		if seen[t] {
			continue
		}
		seen[t] = true
		drift := 0.0002 * float64(1+i%9)
		if i%5 == 0 {
			drift = -0.001
		}
		table.Add(collector.GenerateMockSeries(t, 50+float64(i%40)*5, drift, 2e6, cfg.DataSource.LookbackDays, end))
	}
	return &collector.MockFetcher{Table: table}
}

func buildPublisher(a *app, cfg *config.Config) notifier.Publisher {
	if dryRun {
		return &notifier.WriterPublisher{W: dryRunOut}
	}
	var fan notifier.Fanout
	if len(cfg.Discord.Webhooks) > 0 {
		fan = append(fan, notifier.NewDiscordPublisher(cfg.Discord.Webhooks, cfg.Discord.Username, cfg.Proxy))
	}
	if cfg.Telegram.BotToken != "" {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.Chats, cfg.Proxy)
		fan = append(fan, a.telegram)
	}
	return fan
}

// newAdminServer builds the admin API on the scheduler's clock, so forced
// runs over HTTP see the same date as cron and Telegram.
func newAdminServer(a *app) *server.Server {
	return server.NewServer(a.sched, a.recorder, a.registry, server.WithClock(a.sched.Clock.Now))
}
