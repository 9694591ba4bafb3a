package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"KronosAlign/internal/domain/models"
	applogger "KronosAlign/pkg/logger"
)

// SQLiteRunIndex keeps a local index of stored runs so recent predictions
// can be listed without scanning the results directory.
type SQLiteRunIndex struct {
	db *sql.DB
	mu sync.Mutex
	l  *applogger.Logger
}

// NewSQLiteRunIndex opens (or creates) the database and runs migrations.
func NewSQLiteRunIndex(path string, l *applogger.Logger) (*SQLiteRunIndex, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	idx := &SQLiteRunIndex{db: db, l: l}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if l != nil {
		l.Info("sqlite run index opened", applogger.String("path", path))
	}
	return idx, nil
}

func (r *SQLiteRunIndex) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prediction_runs (
			id              TEXT PRIMARY KEY,
			created_at      INTEGER NOT NULL,
			source          TEXT,
			model           TEXT,
			prediction_type TEXT,
			lookback        INTEGER,
			horizon         INTEGER,
			anchor          TEXT,
			has_comparison  INTEGER,
			close_pct_gap   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON prediction_runs(created_at)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRunIndex) Name() string { return "sqlite" }

// Save upserts the run summary of rec.
func (r *SQLiteRunIndex) Save(ctx context.Context, rec *models.ExportRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := rec.Summary()
	var gap sql.NullFloat64
	if s.ClosePctGap != nil {
		gap = sql.NullFloat64{Float64: *s.ClosePctGap, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO prediction_runs
		(id, created_at, source, model, prediction_type, lookback, horizon, anchor, has_comparison, close_pct_gap)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.CreatedAt.UTC().UnixMilli(), s.Source, s.Model, s.PredictionType,
		s.Lookback, s.Horizon, s.Anchor, s.HasComparison, gap,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return "sqlite:prediction_runs/" + s.ID, nil
}

// Recent returns up to limit runs, newest first.
func (r *SQLiteRunIndex) Recent(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, created_at, source, model, prediction_type,
		lookback, horizon, anchor, has_comparison, close_pct_gap
		FROM prediction_runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.RunSummary, 0, limit)
	for rows.Next() {
		var (
			s       models.RunSummary
			created int64
			gap     sql.NullFloat64
		)
		if err := rows.Scan(&s.ID, &created, &s.Source, &s.Model, &s.PredictionType,
			&s.Lookback, &s.Horizon, &s.Anchor, &s.HasComparison, &gap); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.CreatedAt = time.UnixMilli(created).UTC()
		if gap.Valid {
			v := gap.Float64
			s.ClosePctGap = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *SQLiteRunIndex) Close() error {
	return r.db.Close()
}
