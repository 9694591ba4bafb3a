package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"KronosAlign/internal/domain/models"
	domrepo "KronosAlign/internal/domain/repository"
	"KronosAlign/internal/services/marketdata"
	"KronosAlign/pkg/cache"
	applogger "KronosAlign/pkg/logger"
	"KronosAlign/pkg/queue"
	"KronosAlign/pkg/util"
)

// RefreshJobType is the queue message type of market data refresh jobs.
const RefreshJobType = "market_refresh"

var (
	// ErrNoMarketData is returned when the source has no bars for the query.
	ErrNoMarketData = domrepo.ErrNoMarketData
	// ErrRefreshRunning is returned when another worker holds the refresh lock.
	ErrRefreshRunning = errors.New("refresh already running")
)

// Locker guards a refresh so two workers never write the same file.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// FetchUseCase downloads market data into DATA_ROOT.
type FetchUseCase struct {
	source  domrepo.MarketSource
	loader  *SeriesLoader
	queue   domrepo.JobQueue
	locker  Locker
	root    string
	metrics domrepo.Metrics
	l       *applogger.Logger
	lockTTL time.Duration
}

func NewFetchUseCase(
	source domrepo.MarketSource,
	loader *SeriesLoader,
	q domrepo.JobQueue,
	locker Locker,
	root string,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *FetchUseCase {
	return &FetchUseCase{
		source:  source,
		loader:  loader,
		queue:   q,
		locker:  locker,
		root:    root,
		metrics: metrics,
		l:       l,
		lockTTL: 5 * time.Minute,
	}
}

// Fetch downloads now, or enqueues a refresh job when req.Async is set and a
// queue is configured.
func (uc *FetchUseCase) Fetch(ctx context.Context, req models.FetchDataRequest) (*models.FetchDataResponse, error) {
	if _, err := marketdata.LookupInterval(req.Interval); err != nil {
		return nil, &models.SchemaError{Message: err.Error()}
	}
	if req.Async && uc.queue != nil {
		req.Async = false
		if err := uc.queue.Enqueue(ctx, RefreshJobType, req); err != nil {
			return nil, fmt.Errorf("enqueue refresh: %w", err)
		}
		uc.l.Info("refresh job queued", applogger.String("ticker", req.Ticker), applogger.String("interval", req.Interval))
		return &models.FetchDataResponse{
			Ticker:   strings.ToUpper(req.Ticker),
			Interval: strings.ToLower(req.Interval),
			Queued:   true,
		}, nil
	}
	return uc.fetchNow(ctx, req)
}

func (uc *FetchUseCase) fetchNow(ctx context.Context, req models.FetchDataRequest) (*models.FetchDataResponse, error) {
	q, err := toQuery(req)
	if err != nil {
		return nil, err
	}

	lockKey := cache.GenerateKeyWithParams("lock:refresh", strings.ToUpper(q.Ticker), strings.ToLower(q.Interval))
	if uc.locker != nil {
		ok, err := uc.locker.TryLock(ctx, lockKey, uc.lockTTL)
		if err != nil {
			uc.l.Warn("refresh lock unavailable", applogger.String("key", lockKey), applogger.Error(err))
		} else if !ok {
			return nil, fmt.Errorf("%w: %s %s", ErrRefreshRunning, q.Ticker, q.Interval)
		} else {
			defer func() {
				if err := uc.locker.Unlock(context.Background(), lockKey); err != nil {
					uc.l.Warn("release refresh lock", applogger.String("key", lockKey), applogger.Error(err))
				}
			}()
		}
	}

	start := time.Now()
	bars, err := uc.source.Fetch(ctx, q)
	uc.metrics.RecordLatency("fetch", time.Since(start).Seconds())
	if err != nil {
		uc.metrics.RecordError("fetch")
		return nil, fmt.Errorf("fetch %s from %s: %w", q.Ticker, uc.source.Name(), err)
	}
	if len(bars) == 0 {
		return nil, ErrNoMarketData
	}

	path := marketdata.TargetPath(uc.root, q.Ticker, q.Interval)
	if err := marketdata.WriteCSV(path, bars); err != nil {
		uc.metrics.RecordError("fetch_write")
		return nil, fmt.Errorf("save %s: %w", path, err)
	}
	if err := uc.loader.Invalidate(ctx, path); err != nil {
		uc.l.Warn("invalidate cached series", applogger.String("path", path), applogger.Error(err))
	}

	first, _ := bars.First()
	last, _ := bars.Last()
	uc.l.Info("market data saved",
		applogger.String("ticker", q.Ticker),
		applogger.String("interval", q.Interval),
		applogger.Int("rows", len(bars)),
		applogger.String("path", path),
	)
	return &models.FetchDataResponse{
		Ticker:   strings.ToUpper(q.Ticker),
		Interval: strings.ToLower(q.Interval),
		Rows:     len(bars),
		FilePath: path,
		Start:    first.Timestamp.Format(time.RFC3339),
		End:      last.Timestamp.Format(time.RFC3339),
	}, nil
}

func toQuery(req models.FetchDataRequest) (domrepo.MarketQuery, error) {
	q := domrepo.MarketQuery{
		Ticker:   strings.TrimSpace(req.Ticker),
		Interval: req.Interval,
		Period:   req.Period,
		RTHOnly:  req.RTH(),
	}
	if req.Start != "" {
		t, ok := util.ParseTime(req.Start)
		if !ok {
			return q, &models.SchemaError{Message: "invalid start", Columns: []string{req.Start}}
		}
		q.Start = &t
	}
	if req.End != "" {
		t, ok := util.ParseTime(req.End)
		if !ok {
			return q, &models.SchemaError{Message: "invalid end", Columns: []string{req.End}}
		}
		q.End = &t
	}
	if q.Start != nil && q.End != nil && !q.Start.Before(*q.End) {
		return q, &models.SchemaError{Message: "start must be before end"}
	}
	return q, nil
}

// RefreshJob runs queued market data refreshes.
type RefreshJob struct {
	uc *FetchUseCase
}

var _ queue.Job = (*RefreshJob)(nil)

func NewRefreshJob(uc *FetchUseCase) *RefreshJob {
	return &RefreshJob{uc: uc}
}

func (j *RefreshJob) Name() string { return "refresh" }
func (j *RefreshJob) Type() string { return RefreshJobType }

func (j *RefreshJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.ParsePayload[models.FetchDataRequest](payload)
	if err != nil {
		return err
	}
	_, err = j.uc.fetchNow(ctx, *req)
	return err
}
