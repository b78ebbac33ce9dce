package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"QuantDesk/internal/collector"
	"QuantDesk/internal/metrics"
	"QuantDesk/internal/model"
	"QuantDesk/internal/notifier"
	"QuantDesk/internal/recorder"
	"QuantDesk/internal/strategy"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

var (
	// ErrDataFetch marks a cycle aborted because market data was missing.
	ErrDataFetch = errors.New("data fetch failed")
	// ErrPublication marks a cycle aborted because a sink rejected a report.
	ErrPublication = errors.New("publication failed")
)

// Clock supplies the scheduler's notion of now.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location (UTC when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// StrategySpec is one published strategy.
type StrategySpec struct {
	Label   string
	Channel string
	TopN    int
}

// Settings parameterize the cycles.
type Settings struct {
	SMAWindow        int
	MonthlyGrace     int
	QuarterMonths    []int
	AnalysisLookback int
	AnalysisChannel  string
	Defensive        StrategySpec
	Offensive        StrategySpec
	Filters          strategy.Filters
	Catalog          strategy.Catalog
}

// Scheduler owns the run state and executes the daily, monthly and market
// analysis cycles. Cycles never overlap.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Publisher notifier.Publisher
	Recorder  recorder.Recorder
	Metrics   *metrics.Metrics
	Clock     Clock
	Settings  Settings
	Ctx       context.Context

	runMu   sync.Mutex
	stateMu sync.RWMutex
	state   model.RunState
}

// NewScheduler creates a new Scheduler. A nil recorder records nothing.
func NewScheduler(ctx context.Context, col *collector.Collector, pub notifier.Publisher, rec recorder.Recorder, m *metrics.Metrics, clock Clock, settings Settings) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if settings.MonthlyGrace <= 0 {
		settings.MonthlyGrace = 3
	}
	if settings.SMAWindow <= 0 {
		settings.SMAWindow = 200
	}
	if settings.AnalysisLookback <= 0 {
		settings.AnalysisLookback = 14
	}
	if settings.Filters == (strategy.Filters{}) {
		settings.Filters = strategy.DefaultFilters()
	}
	return &Scheduler{
		Collector: col,
		Publisher: pub,
		Recorder:  rec,
		Metrics:   m,
		Clock:     clock,
		Settings:  settings,
		Ctx:       ctx,
	}
}

// State returns a copy of the current run state.
func (s *Scheduler) State() model.RunState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Scheduler) setState(next model.RunState) {
	s.stateMu.Lock()
	s.state = next
	s.stateMu.Unlock()
}

// Outcome is what a cycle did on a tick.
type Outcome string

const (
	OutcomeSkipped Outcome = "skipped"
	OutcomeRan     Outcome = "ok"
	OutcomeFailed  Outcome = "failed"
)

// CycleResult describes one cycle of a tick.
type CycleResult struct {
	Outcome   Outcome
	Published []string // destinations, in publish order
	Err       error
}

// TickReport describes what a tick did.
type TickReport struct {
	Daily    CycleResult
	Monthly  CycleResult
	Analysis CycleResult
}

// Err joins the errors of every failed cycle.
func (r TickReport) Err() error {
	return errors.Join(r.Daily.Err, r.Monthly.Err, r.Analysis.Err)
}

func (s *Scheduler) dailyDue(now time.Time, st model.RunState) bool {
	return model.IsTradingWeekday(now) && !st.DailyDone(now)
}

func (s *Scheduler) monthlyDue(now time.Time, st model.RunState) bool {
	return model.IsTradingWeekday(now) && now.Day() <= s.Settings.MonthlyGrace && !st.MonthlyDone(now)
}

func (s *Scheduler) analysisDue(now time.Time, st model.RunState) bool {
	return model.IsTradingWeekday(now) && !st.AnalysisDone(now)
}

func (s *Scheduler) isQuarterMonth(now time.Time) bool {
	for _, m := range s.Settings.QuarterMonths {
		if time.Month(m) == now.Month() {
			return true
		}
	}
	return false
}

// OnTick runs the daily and monthly cycles that are due at now. RunState
// advances for a cycle only after all of its reports were published.
func (s *Scheduler) OnTick(ctx context.Context, now time.Time) TickReport {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	var rep TickReport

	if s.dailyDue(now, s.State()) {
		published, err := s.runDaily(ctx, now, model.TriggerDaily)
		rep.Daily = s.finish("daily", published, err)
		if rep.Daily.Err == nil {
			s.setState(s.State().WithDaily(now))
		}
	} else {
		rep.Daily = s.skip("daily")
	}

	if s.monthlyDue(now, s.State()) {
		published, err := s.runMonthly(ctx, now, model.TriggerMonthly)
		rep.Monthly = s.finish("monthly", published, err)
		if rep.Monthly.Err == nil {
			s.setState(s.State().WithMonthly(now))
		}
	} else {
		rep.Monthly = s.skip("monthly")
	}

	rep.Analysis = CycleResult{Outcome: OutcomeSkipped}
	return rep
}

// OnAnalysisTick runs the market analysis cycle when due at now.
func (s *Scheduler) OnAnalysisTick(ctx context.Context, now time.Time) TickReport {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	rep := TickReport{
		Daily:   CycleResult{Outcome: OutcomeSkipped},
		Monthly: CycleResult{Outcome: OutcomeSkipped},
	}
	if !s.analysisDue(now, s.State()) {
		rep.Analysis = s.skip("analysis")
		return rep
	}
	published, err := s.runAnalysis(ctx, now)
	rep.Analysis = s.finish("analysis", published, err)
	if rep.Analysis.Err == nil {
		s.setState(s.State().WithAnalysis(now))
	}
	return rep
}

// ForceRun computes and publishes the daily regime and the monthly
// rebalance now, ignoring the weekday, grace window and run-state guards.
// The defensive rebalance still only runs in quarter months. RunState is
// never modified, so the guarded cycles still fire on their own schedule.
func (s *Scheduler) ForceRun(ctx context.Context, now time.Time) TickReport {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	log.Info().Time("now", now).Msg("forced signal run")
	rep := TickReport{Analysis: CycleResult{Outcome: OutcomeSkipped}}
	published, err := s.runDaily(ctx, now, model.TriggerManual)
	rep.Daily = s.finish("daily", published, err)
	published, err = s.runMonthly(ctx, now, model.TriggerManual)
	rep.Monthly = s.finish("monthly", published, err)
	return rep
}

func (s *Scheduler) skip(cycle string) CycleResult {
	s.Metrics.CycleRun(cycle, string(OutcomeSkipped))
	return CycleResult{Outcome: OutcomeSkipped}
}

func (s *Scheduler) finish(cycle string, published []string, err error) CycleResult {
	if err != nil {
		log.Error().Err(err).Str("cycle", cycle).Msg("cycle failed")
		s.Metrics.CycleRun(cycle, string(OutcomeFailed))
		return CycleResult{Outcome: OutcomeFailed, Published: published, Err: fmt.Errorf("%s: %w", cycle, err)}
	}
	log.Info().Str("cycle", cycle).Strs("published", published).Msg("cycle done")
	s.Metrics.CycleRun(cycle, string(OutcomeRan))
	return CycleResult{Outcome: OutcomeRan, Published: published}
}

// regime fetches the benchmark and computes its trend regime.
func (s *Scheduler) regime(ctx context.Context) (model.RegimeResult, error) {
	start := time.Now()
	series, err := s.Collector.CollectBenchmark(ctx)
	s.Metrics.ObserveFetch("benchmark", start)
	if err != nil {
		return model.RegimeResult{}, fmt.Errorf("%w: %w", ErrDataFetch, err)
	}
	reg, err := strategy.ComputeRegime(series, s.Settings.SMAWindow)
	if err != nil {
		return model.RegimeResult{}, fmt.Errorf("%w: regime: %w", ErrDataFetch, err)
	}
	s.Metrics.SetRegime(reg.IsRiskOn)
	return reg, nil
}

// RegimeCheck computes the current regime without publishing it.
func (s *Scheduler) RegimeCheck(ctx context.Context) (model.RegimeResult, error) {
	return s.regime(ctx)
}

// Rankings fetches the universe and ranks it under st without publishing.
func (s *Scheduler) Rankings(ctx context.Context, st model.Strategy, topN int) ([]model.RankedPick, error) {
	table, err := s.universe(ctx)
	if err != nil {
		return nil, err
	}
	return strategy.RankMomentum(table, st, topN, strategy.WithFilters(s.Settings.Filters)), nil
}

func (s *Scheduler) universe(ctx context.Context) (model.UniverseTable, error) {
	start := time.Now()
	table, err := s.Collector.CollectUniverse(ctx)
	s.Metrics.ObserveFetch("universe", start)
	if err != nil {
		return model.UniverseTable{}, fmt.Errorf("%w: %w", ErrDataFetch, err)
	}
	return table, nil
}

func (s *Scheduler) runDaily(ctx context.Context, now time.Time, trigger model.TriggerType) ([]string, error) {
	reg, err := s.regime(ctx)
	if err != nil {
		return nil, err
	}
	def := s.Settings.Defensive
	text := notifier.FormatRegimeReport(notifier.RegimeReport{
		Label:     def.Label,
		Benchmark: s.Collector.Benchmark,
		Holdings:  def.TopN,
		Regime:    reg,
		AsOf:      now,
	})
	if err := s.publish(ctx, def.Channel, text, trigger); err != nil {
		return nil, err
	}
	s.record(func() error {
		return s.Recorder.RecordRegime(&recorder.RegimeSnapshot{At: now, Benchmark: s.Collector.Benchmark, Trigger: trigger, Regime: reg})
	})
	return []string{def.Channel}, nil
}

type rebalance struct {
	spec    StrategySpec
	text    string
	riskOn  bool
	picks   []model.RankedPick
	trigger model.TriggerType
}

// runMonthly fetches the universe once, renders every rebalance report of the
// month and only then publishes them, defensive first.
func (s *Scheduler) runMonthly(ctx context.Context, now time.Time, trigger model.TriggerType) ([]string, error) {
	table, err := s.universe(ctx)
	if err != nil {
		return nil, err
	}
	var reports []rebalance

	if s.isQuarterMonth(now) {
		reg, err := s.regime(ctx)
		if err != nil {
			return nil, err
		}
		def := s.Settings.Defensive
		picks := []model.RankedPick{}
		if reg.IsRiskOn {
			picks = strategy.RankMomentum(table, model.StrategyTrend, def.TopN, strategy.WithFilters(s.Settings.Filters))
		}
		s.Metrics.SetPicks(def.Label, len(picks))
		t := trigger
		if t == model.TriggerMonthly {
			t = model.TriggerQuarterly
		}
		reports = append(reports, rebalance{
			spec:    def,
			riskOn:  reg.IsRiskOn,
			picks:   picks,
			trigger: t,
			text: notifier.FormatRankedReport(notifier.RankedReport{
				Label:         def.Label,
				Title:         "Quarterly Rebalance",
				Benchmark:     s.Collector.Benchmark,
				Regime:        &reg,
				Picks:         picks,
				Weight:        notifier.EqualWeight(len(picks)),
				NextRebalance: "1st trading day of next quarter (" + s.quarterNames() + ")",
				AsOf:          now,
			}),
		})
	} else {
		log.Info().Str("strategy", s.Settings.Defensive.Label).Int("month", int(now.Month())).
			Msg("not a quarter month, defensive rebalance skipped")
	}

	off := s.Settings.Offensive
	picks := strategy.RankMomentum(table, model.StrategyEarningsConfirmed, off.TopN, strategy.WithFilters(s.Settings.Filters))
	s.Metrics.SetPicks(off.Label, len(picks))
	reports = append(reports, rebalance{
		spec:    off,
		riskOn:  true,
		picks:   picks,
		trigger: trigger,
		text: notifier.FormatRankedReport(notifier.RankedReport{
			Label:         off.Label,
			Title:         "Monthly Rebalance",
			Subtitle:      "**Momentum + Earnings Confirmed Stocks** | Fully Invested",
			Benchmark:     s.Collector.Benchmark,
			Picks:         picks,
			Weight:        notifier.EqualWeight(len(picks)),
			FullyInvested: true,
			NextRebalance: "1st trading day of next month",
			AsOf:          now,
		}),
	})

	var published []string
	for _, r := range reports {
		if err := s.publish(ctx, r.spec.Channel, r.text, r.trigger); err != nil {
			return published, err
		}
		published = append(published, r.spec.Channel)
		s.record(func() error {
			return s.Recorder.RecordRebalance(&recorder.RebalanceRecord{
				At: now, Strategy: r.spec.Label, Trigger: r.trigger, RiskOn: r.riskOn, Picks: r.picks,
			})
		})
	}
	return published, nil
}

func (s *Scheduler) runAnalysis(ctx context.Context, now time.Time) ([]string, error) {
	start := time.Now()
	table, err := s.Collector.CollectTickers(ctx, s.Settings.Catalog.Tickers(), s.Settings.AnalysisLookback)
	s.Metrics.ObserveFetch("analysis", start)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataFetch, err)
	}
	ov := strategy.BuildMarketOverview(table, s.Settings.Catalog)
	if ov.Empty() {
		return nil, fmt.Errorf("%w: market overview is empty", ErrDataFetch)
	}

	var regPtr *model.RegimeResult
	if reg, err := s.regime(ctx); err != nil {
		log.Warn().Err(err).Str("cycle", "analysis").Msg("regime unavailable, analysis published without it")
	} else {
		regPtr = &reg
	}

	text := notifier.FormatMarketAnalysis(ov, regPtr, s.Settings.Defensive.Label, s.Collector.Benchmark, now)
	if err := s.publish(ctx, s.Settings.AnalysisChannel, text, model.TriggerAnalysis); err != nil {
		return nil, err
	}
	return []string{s.Settings.AnalysisChannel}, nil
}

func (s *Scheduler) publish(ctx context.Context, destination, text string, trigger model.TriggerType) error {
	err := s.Publisher.Publish(ctx, destination, text)
	s.Metrics.Publication(destination, err)

	pub := &recorder.Publication{At: s.Clock.Now(), Destination: destination, Trigger: trigger, Length: len([]rune(text))}
	if err != nil {
		pub.Error = err.Error()
	}
	s.record(func() error { return s.Recorder.RecordPublication(pub) })

	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublication, destination, err)
	}
	log.Info().Str("destination", destination).Str("trigger", string(trigger)).Msg("report published")
	return nil
}

// record runs a history write. History is best effort and never fails a cycle.
func (s *Scheduler) record(write func() error) {
	if err := write(); err != nil {
		log.Error().Err(err).Msg("record history")
	}
}

func (s *Scheduler) quarterNames() string {
	names := make([]string, 0, len(s.Settings.QuarterMonths))
	for _, m := range s.Settings.QuarterMonths {
		names = append(names, time.Month(m).String()[:3])
	}
	return strings.Join(names, "/")
}
