package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records scheduler and publication activity. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	runs          *prometheus.CounterVec
	publications  *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	riskOn        prometheus.Gauge
	picks         *prometheus.GaugeVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantdesk_cycle_runs_total",
				Help: "Scheduler cycles by cycle and result",
			},
			[]string{"cycle", "result"},
		),
		publications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantdesk_publications_total",
				Help: "Published reports by destination and result",
			},
			[]string{"destination", "result"},
		),
		fetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantdesk_fetch_duration_seconds",
				Help:    "Market data fetch duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"kind"},
		),
		riskOn: f.NewGauge(prometheus.GaugeOpts{
			Name: "quantdesk_regime_risk_on",
			Help: "1 when the benchmark trades above its moving average",
		}),
		picks: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantdesk_picks",
				Help: "Number of positions in the latest ranking",
			},
			[]string{"strategy"},
		),
	}
}

// CycleRun counts one cycle outcome: ok, skipped or failed.
func (m *Metrics) CycleRun(cycle, result string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(cycle, result).Inc()
}

// Publication counts one publish attempt.
func (m *Metrics) Publication(destination string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.publications.WithLabelValues(destination, result).Inc()
}

// ObserveFetch records how long a fetch of kind took since start.
func (m *Metrics) ObserveFetch(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// SetRegime records the latest regime.
func (m *Metrics) SetRegime(riskOn bool) {
	if m == nil {
		return
	}
	if riskOn {
		m.riskOn.Set(1)
	} else {
		m.riskOn.Set(0)
	}
}

// SetPicks records the size of the latest ranking of strategy.
func (m *Metrics) SetPicks(strategy string, n int) {
	if m == nil {
		return
	}
	m.picks.WithLabelValues(strategy).Set(float64(n))
}
