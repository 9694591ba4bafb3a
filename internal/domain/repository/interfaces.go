package repository

import (
	"context"
	"errors"
	"time"

	"KronosAlign/internal/domain/models"
)

// ErrNoMarketData is returned by a MarketSource when no bars match the query.
var ErrNoMarketData = errors.New("no data returned for the requested ticker and range")

// RecordStore durably stores export records. Save returns a locator
// (file path, table, topic) for logging.
type RecordStore interface {
	Name() string
	Save(ctx context.Context, rec *models.ExportRecord) (string, error)
}

// RunIndex lists previously stored runs.
type RunIndex interface {
	Recent(ctx context.Context, limit int) ([]models.RunSummary, error)
}

// SeriesCache caches normalized series keyed by file identity.
type SeriesCache interface {
	Key(path string) (string, error)
	GetSeries(ctx context.Context, key string) (models.Series, bool)
	PutSeries(ctx context.Context, key string, s models.Series) error
	Invalidate(ctx context.Context, path string) error
}

// MarketSource downloads OHLCV bars for a ticker.
type MarketSource interface {
	Name() string
	Fetch(ctx context.Context, q MarketQuery) (models.Series, error)
}

// MarketQuery selects the bars to download.
type MarketQuery struct {
	Ticker   string
	Interval string // UI label: 5m, 15m, 30m, hourly, daily, weekly, monthly
	Period   string
	Start    *time.Time
	End      *time.Time
	RTHOnly  bool
}

// JobQueue accepts background jobs.
type JobQueue interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// Metrics records domain-level measurements.
type Metrics interface {
	RecordPrediction(mode, outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordContinuityGap(field string, pct float64)
	RecordPersistence(store, result string)
}
