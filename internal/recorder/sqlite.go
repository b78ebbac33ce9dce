package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"QuantDesk/internal/model"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists signal history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS regime_snapshots (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp          INTEGER NOT NULL,
			benchmark          TEXT NOT NULL,
			trigger_type       TEXT,
			is_risk_on         INTEGER,
			current_price      REAL,
			moving_average     REAL,
			percent_difference REAL,
			sma_window         INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_regime_ts ON regime_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS rebalances (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			strategy     TEXT NOT NULL,
			trigger_type TEXT,
			is_risk_on   INTEGER,
			pick_count   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rebalance_ts ON rebalances(timestamp)`,

		`CREATE TABLE IF NOT EXISTS rebalance_picks (
			rebalance_id   INTEGER NOT NULL REFERENCES rebalances(id),
			rank           INTEGER NOT NULL,
			ticker         TEXT NOT NULL,
			momentum_score REAL,
			price          REAL,
			PRIMARY KEY (rebalance_id, rank)
		)`,

		`CREATE TABLE IF NOT EXISTS publications (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			destination  TEXT NOT NULL,
			trigger_type TEXT,
			length       INTEGER,
			error        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_publication_ts ON publications(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func stamp(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Unix()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *SQLiteRecorder) RecordRegime(snap *RegimeSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg := snap.Regime
	_, err := r.db.Exec(`INSERT INTO regime_snapshots
		(timestamp, benchmark, trigger_type, is_risk_on, current_price, moving_average, percent_difference, sma_window)
		VALUES (?,?,?,?,?,?,?,?)`,
		stamp(snap.At), snap.Benchmark, string(snap.Trigger), boolInt(reg.IsRiskOn),
		reg.CurrentPrice, reg.MovingAverage, reg.PercentDifference, reg.Window,
	)
	return err
}

// RecordRebalance stores the header row and every pick in one transaction.
func (r *SQLiteRecorder) RecordRebalance(rec *RebalanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO rebalances
		(timestamp, strategy, trigger_type, is_risk_on, pick_count)
		VALUES (?,?,?,?,?)`,
		stamp(rec.At), rec.Strategy, string(rec.Trigger), boolInt(rec.RiskOn), len(rec.Picks),
	)
	if err != nil {
		return fmt.Errorf("insert rebalance: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for _, p := range rec.Picks {
		if _, err := tx.Exec(`INSERT INTO rebalance_picks
			(rebalance_id, rank, ticker, momentum_score, price) VALUES (?,?,?,?,?)`,
			id, p.Rank, p.Ticker, p.MomentumScore, p.Price,
		); err != nil {
			return fmt.Errorf("insert pick %s: %w", p.Ticker, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordPublication(pub *Publication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO publications
		(timestamp, destination, trigger_type, length, error)
		VALUES (?,?,?,?,?)`,
		stamp(pub.At), pub.Destination, string(pub.Trigger), pub.Length, pub.Error,
	)
	return err
}

// RecentPublications returns up to limit publications, newest first.
func (r *SQLiteRecorder) RecentPublications(limit int) ([]Publication, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT id, timestamp, destination, trigger_type, length, error
		FROM publications ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query publications: %w", err)
	}
	defer rows.Close()

	var out []Publication
	for rows.Next() {
		var (
			p       Publication
			ts      int64
			trigger string
			errText sql.NullString
		)
		if err := rows.Scan(&p.ID, &ts, &p.Destination, &trigger, &p.Length, &errText); err != nil {
			return nil, err
		}
		p.At = time.Unix(ts, 0).UTC()
		p.Trigger = model.TriggerType(trigger)
		p.Error = errText.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
