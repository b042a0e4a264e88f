package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"SectorPulse/internal/model"
)

// SQLiteRecorder keeps the latest snapshot in a SQLite database: one row
// holding the JSON document plus one row per record for ad-hoc queries.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the API read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS latest_snapshot (
			id           INTEGER PRIMARY KEY CHECK (id = 1),
			run_id       TEXT NOT NULL,
			generated_at INTEGER NOT NULL,
			top_n        TEXT NOT NULL,
			failures     INTEGER NOT NULL,
			payload      TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_records (
			instrument_id      TEXT PRIMARY KEY,
			name               TEXT,
			date               TEXT,
			close              REAL,
			change_pct         REAL,
			rsi                REAL,
			percent_b          REAL,
			ma_deviation       REAL,
			ma_deviation_short REAL,
			ma_deviation_long  REAL,
			volume_ratio       REAL,
			labels             TEXT,
			rank               INTEGER,
			rank_score         REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_rank ON snapshot_records(rank)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// nullable stores undefined metrics as NULL.
func nullable(m model.Metric) sql.NullFloat64 {
	return sql.NullFloat64{Float64: m.Value, Valid: m.OK()}
}

func joinLabels(ls model.Labels) string {
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = string(l)
	}
	return strings.Join(parts, ",")
}

// SaveSnapshot replaces the stored snapshot in a single transaction.
func (r *SQLiteRecorder) SaveSnapshot(ctx context.Context, runID string, snap *model.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO latest_snapshot
		(id, run_id, generated_at, top_n, failures, payload)
		VALUES (1,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			run_id=excluded.run_id, generated_at=excluded.generated_at,
			top_n=excluded.top_n, failures=excluded.failures, payload=excluded.payload`,
		runID, snap.GeneratedAt.Unix(), strings.Join(snap.TopN, ","), len(snap.Failures), string(payload),
	); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_records`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	for _, rec := range snap.Records {
		if _, err := tx.ExecContext(ctx, `INSERT INTO snapshot_records
			(instrument_id, name, date, close, change_pct, rsi, percent_b,
			 ma_deviation, ma_deviation_short, ma_deviation_long, volume_ratio,
			 labels, rank, rank_score)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			rec.InstrumentID, rec.Name, rec.Date, rec.Close,
			nullable(rec.ChangePct), nullable(rec.RSI), nullable(rec.PercentB),
			nullable(rec.MADeviation), nullable(rec.MADeviationShort), nullable(rec.MADeviationLong),
			nullable(rec.VolumeRatio), joinLabels(rec.Labels), rec.Rank, rec.RankScore,
		); err != nil {
			return fmt.Errorf("write record %s: %w", rec.InstrumentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.Debug().Str("run_id", runID).Int("records", len(snap.Records)).Msg("snapshot stored")
	return nil
}

func (r *SQLiteRecorder) LatestSnapshot(ctx context.Context) ([]byte, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM latest_snapshot WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return []byte(payload), nil
}

// RunID returns the id of the run that wrote the stored snapshot.
func (r *SQLiteRecorder) RunID(ctx context.Context) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT run_id FROM latest_snapshot WHERE id = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSnapshot
	}
	return id, err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
