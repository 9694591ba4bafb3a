package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"KronosAlign/internal/domain/models"
	domrepo "KronosAlign/internal/domain/repository"
	domsvc "KronosAlign/internal/domain/service"
	"KronosAlign/internal/repository"
	"KronosAlign/internal/services/alignment"
	"KronosAlign/internal/services/marketdata"
	"KronosAlign/pkg/cache"
	applogger "KronosAlign/pkg/logger"
	"KronosAlign/pkg/metrics"
)

var t0 = time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)

func hourly(n int) models.Series {
	s := make(models.Series, n)
	for i := range s {
		p := 100 + float64(i)
		s[i] = models.CanonicalRow{Timestamp: t0.Add(time.Duration(i) * time.Hour), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 10}
	}
	return s
}

func writeSeries(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	if err := marketdata.WriteCSV(path, hourly(n)); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

var flatForecaster = domsvc.ForecasterFunc(func(_ context.Context, _ models.Series, _, forecastTs []time.Time, horizon int, _ models.SamplingParams) (models.Series, error) {
	out := make(models.Series, horizon)
	for i := range out {
		out[i] = models.CanonicalRow{Open: 105, High: 106, Low: 104, Close: 105}
	}
	return out, nil
})

type brokenStore struct{}

func (brokenStore) Name() string { return "broken" }
func (brokenStore) Save(context.Context, *models.ExportRecord) (string, error) {
	return "", errors.New("disk full")
}

type fixedModel string

func (m fixedModel) ModelName() string { return string(m) }

func newPrediction(t *testing.T, f domsvc.Forecaster, stores ...domrepo.RecordStore) *PredictionUseCase {
	t.Helper()
	engine := alignment.NewEngine(f)
	sc := repository.NewCachedSeries(cache.NewMemoryCache(), time.Minute, nil)
	uc := NewPredictionUseCase(engine, NewSeriesLoader(engine, sc, applogger.Nop()), fixedModel("Kronos-small"), stores, metrics.Noop{}, applogger.Nop())
	uc.newID = func() string { return "run-1" }
	uc.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	return uc
}

func predictReq(path string) models.PredictRequest {
	return models.PredictRequest{FilePath: path, Lookback: 10, PredLen: 5, Temperature: 1, TopP: 0.9, SampleCount: 1}
}

func TestPredictLatestPersistsAndWarns(t *testing.T) {
	path := writeSeries(t, 30)
	dir := t.TempDir()
	uc := newPrediction(t, flatForecaster, repository.NewJSONRecordStore(dir, nil), brokenStore{})

	res, err := uc.Predict(context.Background(), predictReq(path))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if res.RecordID != "run-1" || res.PredictionType != alignment.PredictionTypeLatest {
		t.Fatalf("res=%+v", res)
	}
	if len(res.PredictionResults) != 5 || len(res.ActualData) != 5 || !res.HasComparison {
		t.Fatalf("segments: forecast=%d actual=%d", len(res.PredictionResults), len(res.ActualData))
	}
	if !res.PredictionResults[0].Timestamp.Equal(t0.Add(10 * time.Hour)) {
		t.Fatalf("forecast starts at %v", res.PredictionResults[0].Timestamp)
	}
	if !res.ActualData[0].Timestamp.Equal(t0.Add(10*time.Hour)) || res.ActualData[0].Close != 110 {
		t.Fatalf("actual[0]=%+v", res.ActualData[0])
	}
	if !res.Chart.Actual[4].Timestamp.Equal(res.PredictionResults[4].Timestamp) {
		t.Fatalf("chart actual not aligned")
	}
	if res.Continuity == nil || res.Continuity.AbsoluteGap.Close != 5 {
		t.Fatalf("continuity=%+v", res.Continuity)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "broken") {
		t.Fatalf("warnings=%v", res.Warnings)
	}

	b, err := os.ReadFile(filepath.Join(dir, "prediction_20240506_070809.json"))
	if err != nil {
		t.Fatalf("json record: %v", err)
	}
	var rec models.ExportRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Model != "Kronos-small" || rec.Window.Anchor != models.AnchorLatest || rec.HistoricalSummary.Rows != 10 {
		t.Fatalf("record=%+v", rec)
	}
}

func TestPredictAnchoredInsufficient(t *testing.T) {
	path := writeSeries(t, 30)
	uc := newPrediction(t, flatForecaster)
	req := predictReq(path)
	req.StartDate = t0.Add(20 * time.Hour).Format(time.RFC3339)

	_, err := uc.Predict(context.Background(), req)
	var insuff *models.InsufficientDataError
	if !errors.As(err, &insuff) || insuff.Required != 15 || insuff.Available != 10 {
		t.Fatalf("expected insufficient data, got %v", err)
	}
}

func TestPredictAnchored(t *testing.T) {
	path := writeSeries(t, 30)
	uc := newPrediction(t, flatForecaster)
	req := predictReq(path)
	req.StartDate = t0.Add(5*time.Hour + 30*time.Minute).Format(time.RFC3339)

	res, err := uc.Predict(context.Background(), req)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if res.PredictionType != alignment.PredictionTypeAnchored || !res.ActualData[0].Timestamp.Equal(t0.Add(16*time.Hour)) {
		t.Fatalf("res=%+v", res)
	}
}

func TestPredictErrors(t *testing.T) {
	path := writeSeries(t, 30)

	_, err := newPrediction(t, flatForecaster).Predict(context.Background(), predictReq(filepath.Join(t.TempDir(), "nope.csv")))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}

	notLoaded := domsvc.ForecasterFunc(func(context.Context, models.Series, []time.Time, []time.Time, int, models.SamplingParams) (models.Series, error) {
		return nil, models.ErrModelNotLoaded
	})
	_, err = newPrediction(t, notLoaded).Predict(context.Background(), predictReq(path))
	if !errors.Is(err, models.ErrModelNotLoaded) {
		t.Fatalf("expected ErrModelNotLoaded, got %v", err)
	}

	req := predictReq(path)
	req.StartDate = "not a date"
	var schema *models.SchemaError
	if _, err := newPrediction(t, flatForecaster).Predict(context.Background(), req); !errors.As(err, &schema) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestSeriesLoaderCaches(t *testing.T) {
	path := writeSeries(t, 4)
	sc := repository.NewCachedSeries(cache.NewMemoryCache(), time.Minute, nil)
	loader := NewSeriesLoader(alignment.NewEngine(nil), sc, nil)

	if _, err := loader.Load(context.Background(), path); err != nil {
		t.Fatalf("load: %v", err)
	}
	key, _ := sc.Key(path)
	if got, ok := sc.GetSeries(context.Background(), key); !ok || len(got) != 4 {
		t.Fatalf("series not cached")
	}
	if err := loader.Invalidate(context.Background(), path); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok := sc.GetSeries(context.Background(), key); ok {
		t.Fatalf("series still cached")
	}
}

type fakeSource struct {
	bars  models.Series
	err   error
	calls int
}

func (f *fakeSource) Name() string { return "fake" }
func (f *fakeSource) Fetch(context.Context, domrepo.MarketQuery) (models.Series, error) {
	f.calls++
	return f.bars, f.err
}

type captureQueue struct {
	types    []string
	payloads []interface{}
}

func (q *captureQueue) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	q.types = append(q.types, msgType)
	q.payloads = append(q.payloads, payload)
	return nil
}

func TestFetchSavesFile(t *testing.T) {
	root := t.TempDir()
	src := &fakeSource{bars: hourly(3)}
	mem := cache.NewMemoryCache()
	engine := alignment.NewEngine(nil)
	uc := NewFetchUseCase(src, NewSeriesLoader(engine, nil, nil), nil, mem, root, metrics.Noop{}, applogger.Nop())

	res, err := uc.Fetch(context.Background(), models.FetchDataRequest{Ticker: "aapl", Interval: "hourly"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := filepath.Join(root, "AAPL", "hourly", "US_hourly_AAPL.csv")
	if res.FilePath != want || res.Rows != 3 || res.Queued {
		t.Fatalf("res=%+v", res)
	}
	got, err := engine.LoadAndNormalize(want)
	if err != nil || len(got) != 3 {
		t.Fatalf("saved file: %v rows=%d", err, len(got))
	}

	ok, _ := mem.TryLock(context.Background(), "lock:refresh:AAPL:hourly", time.Minute)
	if !ok {
		t.Fatalf("lock was not released")
	}
	if _, err := uc.Fetch(context.Background(), models.FetchDataRequest{Ticker: "AAPL", Interval: "hourly"}); !errors.Is(err, ErrRefreshRunning) {
		t.Fatalf("expected ErrRefreshRunning, got %v", err)
	}
}

func TestFetchEmptyAndInvalid(t *testing.T) {
	uc := NewFetchUseCase(&fakeSource{}, NewSeriesLoader(alignment.NewEngine(nil), nil, nil), nil, nil, t.TempDir(), metrics.Noop{}, nil)
	if _, err := uc.Fetch(context.Background(), models.FetchDataRequest{Ticker: "X", Interval: "daily"}); !errors.Is(err, ErrNoMarketData) {
		t.Fatalf("expected ErrNoMarketData, got %v", err)
	}
	var schema *models.SchemaError
	if _, err := uc.Fetch(context.Background(), models.FetchDataRequest{Ticker: "X", Interval: "2m"}); !errors.As(err, &schema) {
		t.Fatalf("expected schema error, got %v", err)
	}
	req := models.FetchDataRequest{Ticker: "X", Interval: "daily", Start: "2024-02-01", End: "2024-01-01"}
	if _, err := uc.Fetch(context.Background(), req); !errors.As(err, &schema) {
		t.Fatalf("expected schema error for reversed range, got %v", err)
	}
}

func TestFetchAsyncAndRefreshJob(t *testing.T) {
	root := t.TempDir()
	src := &fakeSource{bars: hourly(2)}
	q := &captureQueue{}
	uc := NewFetchUseCase(src, NewSeriesLoader(alignment.NewEngine(nil), nil, nil), q, nil, root, metrics.Noop{}, nil)

	res, err := uc.Fetch(context.Background(), models.FetchDataRequest{Ticker: "msft", Interval: "daily", Async: true})
	if err != nil || !res.Queued || src.calls != 0 {
		t.Fatalf("res=%+v err=%v calls=%d", res, err, src.calls)
	}
	if len(q.types) != 1 || q.types[0] != RefreshJobType {
		t.Fatalf("queued=%v", q.types)
	}

	payload, _ := json.Marshal(q.payloads[0])
	job := NewRefreshJob(uc)
	if err := job.Handle(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("job did not fetch")
	}
	if _, err := os.Stat(marketdata.TargetPath(root, "MSFT", "daily")); err != nil {
		t.Fatalf("job did not save: %v", err)
	}
}

func TestPredictionJobHandler(t *testing.T) {
	path := writeSeries(t, 30)
	dir := t.TempDir()
	h := NewPredictionJobHandler("jobs", newPrediction(t, flatForecaster, repository.NewJSONRecordStore(dir, nil)), applogger.Nop())
	if h.Topic() != "jobs" {
		t.Fatalf("topic=%s", h.Topic())
	}

	body, _ := json.Marshal(map[string]interface{}{"file_path": path, "lookback": 10, "pred_len": 5})
	if err := h.Handle(context.Background(), body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected one stored record, got %d", len(entries))
	}

	if err := h.Handle(context.Background(), []byte(`{"lookback":10}`)); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := h.Handle(context.Background(), []byte(`{`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestDataUseCase(t *testing.T) {
	path := writeSeries(t, 5)
	engine := alignment.NewEngine(nil)
	idx, err := repository.NewSQLiteRunIndex(filepath.Join(t.TempDir(), "runs.db"), nil)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	defer idx.Close()

	uc := NewDataUseCase(nil, NewSeriesLoader(engine, nil, nil), idx)
	res, err := uc.LoadData(context.Background(), path)
	if err != nil || res.DataInfo.Rows != 5 || res.DataInfo.Timeframe != "1 hours" {
		t.Fatalf("load data: %+v %v", res, err)
	}

	rec := &models.ExportRecord{ID: "a", CreatedAt: t0, Source: path, PredictionType: alignment.PredictionTypeLatest}
	if _, err := idx.Save(context.Background(), rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	runs, err := uc.RecentRuns(context.Background(), 10)
	if err != nil || len(runs) != 1 || runs[0].ID != "a" {
		t.Fatalf("runs=%+v err=%v", runs, err)
	}
}
