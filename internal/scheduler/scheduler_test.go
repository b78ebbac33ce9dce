package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"QuantDesk/internal/collector"
	"QuantDesk/internal/model"
	"QuantDesk/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tmemChannel     = "📊-tmem-signals"
	mecChannel      = "📊-mec-signals"
	analysisChannel = "🌍-daily-market-analysis"
)

type post struct {
	destination string
	text        string
}

type fakePublisher struct {
	mu    sync.Mutex
	posts []post
	fail  map[string]error
}

func (p *fakePublisher) Publish(_ context.Context, destination, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail[destination]; err != nil {
		return err
	}
	p.posts = append(p.posts, post{destination, text})
	return nil
}

func (p *fakePublisher) to(destination string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, x := range p.posts {
		if x.destination == destination {
			out = append(out, x.text)
		}
	}
	return out
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.posts)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// fixture builds a scheduler over 300 daily bars ending on end. spyDrift > 0
// gives a risk-on benchmark, < 0 risk-off.
func fixture(t *testing.T, end time.Time, spyDrift float64) (*Scheduler, *collector.MockFetcher, *fakePublisher) {
	t.Helper()
	table := model.NewUniverseTable()
	table.Add(collector.GenerateMockSeries("SPY", 400, spyDrift, 5e7, 300, end))
	table.Add(collector.GenerateMockSeries("AAA", 50, 0.004, 1e6, 300, end))
	table.Add(collector.GenerateMockSeries("BBB", 80, 0.002, 1e6, 300, end))
	table.Add(collector.GenerateMockSeries("CCC", 2, 0.001, 1e9, 300, end)) // below the price floor
	table.Add(collector.GenerateMockSeries("QQQ", 300, 0.001, 1e6, 300, end))
	table.Add(collector.GenerateMockSeries("XLK", 150, -0.001, 1e6, 300, end))
	table.Add(collector.GenerateMockSeries("^VIX", 16, 0, 0, 300, end))

	mock := &collector.MockFetcher{Table: table}
	col := collector.NewCollector(mock, "SPY", []string{"AAA", "BBB", "CCC", "ZZZ"}, 400)
	pub := &fakePublisher{fail: map[string]error{}}

	s := NewScheduler(context.Background(), col, pub, nil, nil, fixedClock{end}, Settings{
		SMAWindow:        200,
		MonthlyGrace:     3,
		QuarterMonths:    []int{1, 4, 7, 10},
		AnalysisLookback: 14,
		AnalysisChannel:  analysisChannel,
		Defensive:        StrategySpec{Label: "TMEM", Channel: tmemChannel, TopN: 30},
		Offensive:        StrategySpec{Label: "MEC", Channel: mecChannel, TopN: 40},
		Catalog: strategy.Catalog{
			Indices: []strategy.Instrument{{Ticker: "SPY", Name: "S&P 500"}, {Ticker: "QQQ", Name: "Nasdaq 100"}},
			VIX:     strategy.Instrument{Ticker: "^VIX", Name: "VIX"},
			Sectors: []strategy.Instrument{{Ticker: "XLK", Name: "Technology"}},
			Bonds:   strategy.Instrument{Ticker: "TLT", Name: "20+ Yr Treasury"},
		},
	})
	return s, mock, pub
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 14, 30, 0, 0, time.UTC)
}

func TestOnTick_Idempotent(t *testing.T) {
	now := day(2025, time.January, 2) // Thursday, quarter month
	s, mock, pub := fixture(t, now, 0.001)

	rep := s.OnTick(context.Background(), now)
	require.NoError(t, rep.Err())
	assert.Equal(t, OutcomeRan, rep.Daily.Outcome)
	assert.Equal(t, OutcomeRan, rep.Monthly.Outcome)
	assert.Equal(t, []string{tmemChannel, mecChannel}, rep.Monthly.Published)
	assert.Equal(t, 3, pub.count())
	assert.Equal(t, model.RunState{LastDailyRunDate: "2025-01-02", LastMonthlyRunMonth: "2025-01"}, s.State())
	calls := mock.Calls

	rep = s.OnTick(context.Background(), now.Add(time.Hour))
	assert.Equal(t, OutcomeSkipped, rep.Daily.Outcome)
	assert.Equal(t, OutcomeSkipped, rep.Monthly.Outcome)
	assert.Equal(t, 3, pub.count(), "second tick publishes nothing")
	assert.Equal(t, calls, mock.Calls, "second tick fetches nothing")
}

func TestOnTick_DailyReturnsToPendingNextDay(t *testing.T) {
	now := day(2025, time.February, 5) // Wednesday, outside grace window
	s, _, pub := fixture(t, now, 0.001)

	s.OnTick(context.Background(), now)
	s.OnTick(context.Background(), now.AddDate(0, 0, 1))
	assert.Len(t, pub.to(tmemChannel), 2)
	assert.Equal(t, "2025-02-06", s.State().LastDailyRunDate)
}

func TestOnTick_GraceWindowEdge(t *testing.T) {
	day3 := day(2025, time.February, 3) // Monday
	s, _, pub := fixture(t, day3, 0.001)
	rep := s.OnTick(context.Background(), day3)
	assert.Equal(t, OutcomeRan, rep.Monthly.Outcome)
	assert.Len(t, pub.to(mecChannel), 1)

	day4 := day(2025, time.February, 4) // Tuesday
	s, _, pub = fixture(t, day4, 0.001)
	rep = s.OnTick(context.Background(), day4)
	assert.Equal(t, OutcomeRan, rep.Daily.Outcome)
	assert.Equal(t, OutcomeSkipped, rep.Monthly.Outcome)
	assert.Empty(t, pub.to(mecChannel))
	assert.Empty(t, s.State().LastMonthlyRunMonth)
}

func TestOnTick_WeekendIsNoop(t *testing.T) {
	sat := day(2025, time.February, 1)
	s, _, pub := fixture(t, sat, 0.001)

	rep := s.OnTick(context.Background(), sat)
	assert.Equal(t, OutcomeSkipped, rep.Daily.Outcome)
	assert.Equal(t, OutcomeSkipped, rep.Monthly.Outcome)
	assert.Zero(t, pub.count())
	assert.Equal(t, model.RunState{}, s.State())

	rep = s.OnAnalysisTick(context.Background(), sat.AddDate(0, 0, 1))
	assert.Equal(t, OutcomeSkipped, rep.Analysis.Outcome)
}

func TestOnTick_QuarterGating(t *testing.T) {
	now := day(2025, time.February, 3)
	s, _, pub := fixture(t, now, 0.001)

	rep := s.OnTick(context.Background(), now)
	require.NoError(t, rep.Err())
	assert.Equal(t, []string{mecChannel}, rep.Monthly.Published)

	tmem := pub.to(tmemChannel)
	require.Len(t, tmem, 1, "only the daily regime report")
	assert.Contains(t, tmem[0], "Daily Signal")
	for _, text := range tmem {
		assert.NotContains(t, text, "Quarterly Rebalance")
	}

	mec := pub.to(mecChannel)
	require.Len(t, mec, 1)
	assert.Contains(t, mec[0], "MEC Monthly Rebalance | February 2025")
	assert.Contains(t, mec[0], "AAA")
	assert.NotContains(t, mec[0], "CCC")
	assert.Less(t, strings.Index(mec[0], "AAA"), strings.Index(mec[0], "BBB"), "stronger momentum ranks first")
}

func TestOnTick_RiskOffQuarterIsDefensive(t *testing.T) {
	now := day(2025, time.April, 1) // Tuesday, quarter month
	s, _, pub := fixture(t, now, -0.001)

	rep := s.OnTick(context.Background(), now)
	require.NoError(t, rep.Err())

	tmem := pub.to(tmemChannel)
	require.Len(t, tmem, 2)
	assert.Contains(t, tmem[0], "🔴 RISK-OFF")
	rebalance := tmem[1]
	assert.Contains(t, rebalance, "TMEM Quarterly Rebalance | April 2025")
	assert.Contains(t, rebalance, "100% defensive")
	assert.NotContains(t, rebalance, "```")
	assert.NotContains(t, rebalance, "AAA")

	mec := pub.to(mecChannel)
	require.Len(t, mec, 1)
	assert.Contains(t, mec[0], "AAA", "offensive strategy ignores the regime")
}

func TestOnTick_FetchFailureLeavesStatePending(t *testing.T) {
	now := day(2025, time.January, 2)
	s, mock, pub := fixture(t, now, 0.001)
	mock.Err = errors.New("provider down")

	rep := s.OnTick(context.Background(), now)
	assert.Equal(t, OutcomeFailed, rep.Daily.Outcome)
	assert.Equal(t, OutcomeFailed, rep.Monthly.Outcome)
	assert.ErrorIs(t, rep.Err(), ErrDataFetch)
	assert.Zero(t, pub.count())
	assert.Equal(t, model.RunState{}, s.State())

	mock.Err = nil
	rep = s.OnTick(context.Background(), now.Add(time.Hour))
	require.NoError(t, rep.Err())
	assert.Equal(t, 3, pub.count(), "retried on the next tick")
}

func TestOnTick_InsufficientHistoryIsDataFailure(t *testing.T) {
	now := day(2025, time.February, 5)
	s, mock, _ := fixture(t, now, 0.001)
	mock.Table.Prices["SPY"] = collector.GenerateMockSeries("SPY", 400, 0.001, 1e6, 50, now)

	rep := s.OnTick(context.Background(), now)
	assert.ErrorIs(t, rep.Daily.Err, ErrDataFetch)
	assert.ErrorIs(t, rep.Daily.Err, strategy.ErrInsufficientData)
	assert.Empty(t, s.State().LastDailyRunDate)
}

func TestOnTick_PublicationFailureLeavesStatePending(t *testing.T) {
	now := day(2025, time.January, 2)
	s, _, pub := fixture(t, now, 0.001)
	pub.fail[mecChannel] = errors.New("webhook 502")

	rep := s.OnTick(context.Background(), now)
	assert.Equal(t, OutcomeRan, rep.Daily.Outcome)
	assert.Equal(t, OutcomeFailed, rep.Monthly.Outcome)
	assert.ErrorIs(t, rep.Monthly.Err, ErrPublication)
	assert.Equal(t, []string{tmemChannel}, rep.Monthly.Published)
	assert.Equal(t, "2025-01-02", s.State().LastDailyRunDate)
	assert.Empty(t, s.State().LastMonthlyRunMonth, "monthly stays pending")

	delete(pub.fail, mecChannel)
	rep = s.OnTick(context.Background(), now.Add(time.Hour))
	assert.Equal(t, OutcomeSkipped, rep.Daily.Outcome)
	assert.Equal(t, OutcomeRan, rep.Monthly.Outcome)
	assert.Equal(t, "2025-01", s.State().LastMonthlyRunMonth)
}

func TestForceRun_BypassesGuardsWithoutTouchingState(t *testing.T) {
	sat := day(2025, time.February, 15)
	s, _, pub := fixture(t, sat, 0.001)

	rep := s.ForceRun(context.Background(), sat)
	require.NoError(t, rep.Err())
	assert.Equal(t, []string{tmemChannel}, rep.Daily.Published)
	assert.Equal(t, []string{mecChannel}, rep.Monthly.Published, "quarter gating still applies")
	assert.Equal(t, model.RunState{}, s.State())

	mon := day(2025, time.February, 3)
	s, _, pub = fixture(t, mon, 0.001)
	s.ForceRun(context.Background(), mon)
	rep = s.OnTick(context.Background(), mon)
	assert.Equal(t, OutcomeRan, rep.Daily.Outcome, "guarded cycle still fires after a forced run")
	assert.Equal(t, OutcomeRan, rep.Monthly.Outcome)
	assert.Len(t, pub.to(mecChannel), 2)
}

func TestOnAnalysisTick(t *testing.T) {
	now := day(2025, time.March, 12)
	s, _, pub := fixture(t, now, 0.001)

	rep := s.OnAnalysisTick(context.Background(), now)
	require.NoError(t, rep.Err())
	assert.Equal(t, []string{analysisChannel}, rep.Analysis.Published)
	assert.Equal(t, "2025-03-12", s.State().LastAnalysisDate)
	assert.Empty(t, s.State().LastDailyRunDate, "analysis does not mark the daily cycle")

	text := pub.to(analysisChannel)
	require.Len(t, text, 1)
	assert.Contains(t, text[0], "Daily Market Analysis | Wednesday, March 12, 2025")
	assert.Contains(t, text[0], "Nasdaq 100")
	assert.Contains(t, text[0], "TMEM Regime:** 🟢 RISK-ON")
	assert.NotContains(t, text[0], "Bonds", "missing instruments are left out")

	rep = s.OnAnalysisTick(context.Background(), now.Add(time.Minute))
	assert.Equal(t, OutcomeSkipped, rep.Analysis.Outcome)
	assert.Len(t, pub.to(analysisChannel), 1)
}

func TestHandleCommand(t *testing.T) {
	now := day(2025, time.February, 3)
	s, _, pub := fixture(t, now, 0.001)

	reply := s.HandleCommand(context.Background(), "/regime")
	assert.Contains(t, reply, "TMEM Regime Check")
	assert.Contains(t, reply, "RISK-ON")
	assert.Zero(t, pub.count(), "regime check is not published")

	assert.Contains(t, s.HandleCommand(context.Background(), "/state"), "Last daily run: never")
	assert.Equal(t, "✅ Signals posted!", s.HandleCommand(context.Background(), "/signals@QuantDeskBot"))
	assert.Equal(t, 2, pub.count())
	assert.Equal(t, helpText, s.HandleCommand(context.Background(), "hello"))

	pub.fail[mecChannel] = errors.New("down")
	assert.Contains(t, s.HandleCommand(context.Background(), "/signals"), "❌")
}

func TestRankings(t *testing.T) {
	now := day(2025, time.February, 3)
	s, _, _ := fixture(t, now, 0.001)

	picks, err := s.Rankings(context.Background(), model.StrategyTrend, 1)
	require.NoError(t, err)
	require.Len(t, picks, 1)
	assert.Equal(t, "AAA", picks[0].Ticker)
	assert.Equal(t, 1, picks[0].Rank)
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := fixture(t, day(2025, time.February, 3), 0.001)
	require.NoError(t, s.RegisterAll("0 30 14 * * *", "0 0 15 * * 1-5", time.UTC))
	assert.Len(t, s.Cron.Entries(), 2)
	assert.Error(t, s.RegisterAll("not a cron", "", nil))
}
