package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"QuantDesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_RegimeAndRebalance(t *testing.T) {
	r := openTemp(t)
	at := time.Date(2025, 1, 2, 14, 30, 0, 0, time.UTC)

	require.NoError(t, r.RecordRegime(&RegimeSnapshot{
		At: at, Benchmark: "SPY", Trigger: model.TriggerDaily,
		Regime: model.RegimeResult{IsRiskOn: true, CurrentPrice: 590, MovingAverage: 550, PercentDifference: 7.27, Window: 200},
	}))
	require.NoError(t, r.RecordRebalance(&RebalanceRecord{
		At: at, Strategy: "MEC", Trigger: model.TriggerMonthly, RiskOn: true,
		Picks: []model.RankedPick{
			{Rank: 1, Ticker: "NVDA", MomentumScore: 120.5, Price: 135.2},
			{Rank: 2, Ticker: "AVGO", MomentumScore: 80.1, Price: 230},
		},
	}))

	var riskOn, window int
	require.NoError(t, r.db.QueryRow(`SELECT is_risk_on, sma_window FROM regime_snapshots`).Scan(&riskOn, &window))
	assert.Equal(t, 1, riskOn)
	assert.Equal(t, 200, window)

	var count int
	require.NoError(t, r.db.QueryRow(`SELECT pick_count FROM rebalances WHERE strategy = 'MEC'`).Scan(&count))
	assert.Equal(t, 2, count)
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM rebalance_picks`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestSQLiteRecorder_RecentPublications(t *testing.T) {
	r := openTemp(t)
	base := time.Date(2025, 2, 3, 14, 30, 0, 0, time.UTC)

	for i, dest := range []string{"📊-tmem-signals", "📊-mec-signals", "🌍-daily-market-analysis"} {
		require.NoError(t, r.RecordPublication(&Publication{
			At: base.Add(time.Duration(i) * time.Minute), Destination: dest,
			Trigger: model.TriggerMonthly, Length: 100 * (i + 1),
		}))
	}
	require.NoError(t, r.RecordPublication(&Publication{
		At: base.Add(time.Hour), Destination: "📊-mec-signals", Trigger: model.TriggerManual, Error: "discord: 502",
	}))

	pubs, err := r.RecentPublications(2)
	require.NoError(t, err)
	require.Len(t, pubs, 2)
	assert.Equal(t, "discord: 502", pubs[0].Error)
	assert.Equal(t, model.TriggerManual, pubs[0].Trigger)
	assert.Equal(t, "🌍-daily-market-analysis", pubs[1].Destination)
	assert.Equal(t, 300, pubs[1].Length)
	assert.True(t, pubs[1].At.Equal(base.Add(2*time.Minute)))
}

func TestNoopRecorder(t *testing.T) {
	var rec Recorder = NewNoopRecorder()
	assert.NoError(t, rec.RecordPublication(&Publication{}))
	pubs, err := rec.RecentPublications(10)
	assert.NoError(t, err)
	assert.Empty(t, pubs)
	assert.NoError(t, rec.Close())
}
