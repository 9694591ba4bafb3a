package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"KronosAlign/internal/domain/models"
	pkgch "KronosAlign/pkg/clickhouse"
	applogger "KronosAlign/pkg/logger"
)

const (
	segmentForecast = "forecast"
	segmentActual   = "actual"
)

// ClickHouseSchema returns the DDL for the run and point tables in database.
func ClickHouseSchema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.prediction_runs (
			id              String,
			created_at      DateTime64(3, 'UTC'),
			source          String,
			model           LowCardinality(String),
			prediction_type LowCardinality(String),
			lookback        UInt32,
			horizon         UInt32,
			anchor          String,
			has_comparison  UInt8,
			close_pct_gap   Nullable(Float64),
			record          String CODEC(ZSTD(3))
		) ENGINE = MergeTree
		ORDER BY (created_at, id)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.prediction_points (
			run_id  String,
			segment LowCardinality(String),
			ts      DateTime64(3, 'UTC'),
			open    Float64,
			high    Float64,
			low     Float64,
			close   Float64,
			volume  Float64,
			amount  Float64
		) ENGINE = MergeTree
		ORDER BY (run_id, segment, ts)`, database),
	}
}

// pointRow is one bar of a forecast or actual segment.
type pointRow struct {
	Segment string
	models.CanonicalRow
}

func pointRows(rec *models.ExportRecord) []pointRow {
	out := make([]pointRow, 0, len(rec.Forecast)+len(rec.Actual))
	for _, r := range rec.Forecast {
		out = append(out, pointRow{Segment: segmentForecast, CanonicalRow: r})
	}
	for _, r := range rec.Actual {
		out = append(out, pointRow{Segment: segmentActual, CanonicalRow: r})
	}
	return out
}

// CHRecordStore archives export records in ClickHouse: one row per run with
// the full JSON document, and one row per forecast/actual bar.
type CHRecordStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHRecordStore(ch *pkgch.Client) *CHRecordStore {
	return &CHRecordStore{db: ch.DB(), database: ch.Database()}
}

// SetLogger injects a structured logger.
func (s *CHRecordStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHRecordStore) Name() string { return "clickhouse" }

func (s *CHRecordStore) Save(ctx context.Context, rec *models.ExportRecord) (string, error) {
	start := time.Now()
	doc, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	sum := rec.Summary()

	runs := s.database + ".prediction_runs"
	err = pkgch.Batch(ctx, s.db, fmt.Sprintf(`INSERT INTO %s
		(id, created_at, source, model, prediction_type, lookback, horizon, anchor, has_comparison, close_pct_gap, record)`, runs),
		func(stmt *sql.Stmt) error {
			_, err := stmt.ExecContext(ctx,
				sum.ID, sum.CreatedAt.UTC(), sum.Source, sum.Model, sum.PredictionType,
				uint32(sum.Lookback), uint32(sum.Horizon), sum.Anchor, boolToUInt8(sum.HasComparison),
				sum.ClosePctGap, string(doc),
			)
			return err
		})
	if err != nil {
		s.logError("clickhouse insert run error", runs, rec.ID, err)
		return "", fmt.Errorf("insert run: %w", err)
	}

	points := pointRows(rec)
	pointsTable := s.database + ".prediction_points"
	err = pkgch.Batch(ctx, s.db, fmt.Sprintf(`INSERT INTO %s
		(run_id, segment, ts, open, high, low, close, volume, amount)`, pointsTable),
		func(stmt *sql.Stmt) error {
			for _, p := range points {
				if _, err := stmt.ExecContext(ctx,
					rec.ID, p.Segment, p.Timestamp.UTC(),
					p.Open, p.High, p.Low, p.Close, p.Volume, p.Amount,
				); err != nil {
					return err
				}
			}
			return nil
		})
	if err != nil {
		s.logError("clickhouse insert points error", pointsTable, rec.ID, err)
		return "", fmt.Errorf("insert points: %w", err)
	}

	if s.l != nil {
		s.l.Info("clickhouse record saved",
			applogger.String("id", rec.ID),
			applogger.Int("points", len(points)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return runs + "/" + rec.ID, nil
}

// Recent lists the newest runs first.
func (s *CHRecordStore) Recent(ctx context.Context, limit int) ([]models.RunSummary, error) {
	q := fmt.Sprintf(`
        SELECT id, created_at, source, model, prediction_type, lookback, horizon, anchor, has_comparison, close_pct_gap
        FROM %s.prediction_runs
        ORDER BY created_at DESC
        LIMIT ?
    `, s.database)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		s.logError("clickhouse recent runs query error", s.database+".prediction_runs", "", err)
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.RunSummary, 0, limit)
	for rows.Next() {
		var (
			r          models.RunSummary
			lookback   uint32
			horizon    uint32
			comparison uint8
			gap        sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Source, &r.Model, &r.PredictionType,
			&lookback, &horizon, &r.Anchor, &comparison, &gap); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Lookback, r.Horizon, r.HasComparison = int(lookback), int(horizon), comparison == 1
		if gap.Valid {
			v := gap.Float64
			r.ClosePctGap = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *CHRecordStore) logError(msg, table, id string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", table),
		applogger.String("id", id),
		applogger.Error(err),
	)
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
