package recorder

import (
	"time"

	"QuantDesk/internal/model"
)

// RegimeSnapshot is one observed benchmark regime.
type RegimeSnapshot struct {
	At        time.Time
	Benchmark string
	Trigger   model.TriggerType
	Regime    model.RegimeResult
}

// RebalanceRecord is a published ranking of one strategy.
type RebalanceRecord struct {
	At       time.Time
	Strategy string // label, e.g. "MEC"
	Trigger  model.TriggerType
	RiskOn   bool
	Picks    []model.RankedPick
}

// Publication is one publish attempt of a report.
type Publication struct {
	ID          int64             `json:"id"`
	At          time.Time         `json:"at"`
	Destination string            `json:"destination"`
	Trigger     model.TriggerType `json:"trigger"`
	Length      int               `json:"length"`
	Error       string            `json:"error,omitempty"`
}

// Recorder keeps an append-only history of signals for later analysis. It is
// never read back to decide whether a cycle is due.
type Recorder interface {
	RecordRegime(snap *RegimeSnapshot) error
	RecordRebalance(rec *RebalanceRecord) error
	RecordPublication(pub *Publication) error
	RecentPublications(limit int) ([]Publication, error)
	Close() error
}
