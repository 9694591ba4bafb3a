package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"KronosAlign/internal/domain/models"
	domrepo "KronosAlign/internal/domain/repository"
	"KronosAlign/internal/services/alignment"
	applogger "KronosAlign/pkg/logger"
	"KronosAlign/pkg/util"
)

// ModelNamer reports the name of the model that serves forecasts.
type ModelNamer interface {
	ModelName() string
}

// SeriesLoader loads normalized series, going through the cache when one is set.
type SeriesLoader struct {
	engine *alignment.Engine
	cache  domrepo.SeriesCache
	l      *applogger.Logger
}

func NewSeriesLoader(engine *alignment.Engine, cache domrepo.SeriesCache, l *applogger.Logger) *SeriesLoader {
	return &SeriesLoader{engine: engine, cache: cache, l: l}
}

// Load returns the canonical series stored at path. A missing file is
// reported with an error wrapping os.ErrNotExist.
func (s *SeriesLoader) Load(ctx context.Context, path string) (models.Series, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("data file %s: %w", path, err)
	}
	var key string
	if s.cache != nil {
		if k, err := s.cache.Key(path); err == nil {
			key = k
			if series, ok := s.cache.GetSeries(ctx, key); ok {
				return series, nil
			}
		}
	}
	series, err := s.engine.LoadAndNormalize(path)
	if err != nil {
		return nil, err
	}
	if key != "" {
		if err := s.cache.PutSeries(ctx, key, series); err != nil {
			s.l.Warn("cache series failed", applogger.String("path", path), applogger.Error(err))
		}
	}
	return series, nil
}

// Invalidate drops cached revisions of path.
func (s *SeriesLoader) Invalidate(ctx context.Context, path string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, path)
}

// PredictionUseCase runs one prediction window and persists the record.
type PredictionUseCase struct {
	engine  *alignment.Engine
	loader  *SeriesLoader
	model   ModelNamer
	stores  []domrepo.RecordStore
	metrics domrepo.Metrics
	l       *applogger.Logger

	now   func() time.Time
	newID func() string
}

func NewPredictionUseCase(
	engine *alignment.Engine,
	loader *SeriesLoader,
	model ModelNamer,
	stores []domrepo.RecordStore,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *PredictionUseCase {
	return &PredictionUseCase{
		engine:  engine,
		loader:  loader,
		model:   model,
		stores:  stores,
		metrics: metrics,
		l:       l,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Predict loads the file, runs the window and returns the aligned result.
// Store failures are returned as warnings, never as an error.
func (uc *PredictionUseCase) Predict(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error) {
	start := uc.now()
	spec := models.WindowSpec{Lookback: req.Lookback, Horizon: req.PredLen}
	if req.StartDate != "" {
		anchor, ok := util.ParseTime(req.StartDate)
		if !ok {
			return nil, &models.SchemaError{Message: "invalid start_date", Columns: []string{req.StartDate}}
		}
		spec.Anchor = &anchor
	}
	mode := string(spec.Mode())

	series, err := uc.loader.Load(ctx, req.FilePath)
	if err != nil {
		uc.fail(mode, "load", err)
		return nil, err
	}

	params := models.SamplingParams{Temperature: req.Temperature, TopP: req.TopP, SampleCount: req.SampleCount}
	triple, report, err := uc.engine.RunPredictionWindow(ctx, series, spec, params)
	if err != nil {
		uc.fail(mode, errorKind(err), err)
		return nil, err
	}

	cadence, err := uc.engine.Cadence().Cadence(triple.Historical.Timestamps())
	if err != nil {
		return nil, err
	}
	source := req.FilePath
	if abs, err := filepath.Abs(req.FilePath); err == nil {
		source = abs
	}
	meta := models.RecordMeta{
		ID:        uc.newID(),
		CreatedAt: uc.now(),
		Source:    source,
		Spec:      spec,
		Sampling:  params,
	}
	if uc.model != nil {
		meta.Model = uc.model.ModelName()
	}
	rec := alignment.Assemble(meta, alignment.Summarize(triple.Historical, cadence), triple, report)

	warnings := uc.persist(ctx, &rec)

	if report != nil {
		for f, pct := range report.PercentGap.AsMap() {
			if pct != nil {
				uc.metrics.RecordContinuityGap(string(f), *pct)
			}
		}
	}
	uc.metrics.RecordPrediction(mode, "ok")
	uc.metrics.RecordLatency("predict", time.Since(start).Seconds())

	uc.l.Info("prediction completed",
		applogger.String("record_id", rec.ID),
		applogger.String("mode", mode),
		applogger.Int("lookback", spec.Lookback),
		applogger.Int("horizon", spec.Horizon),
		applogger.Int("actual_rows", len(rec.Actual)),
		applogger.Int("warnings", len(warnings)),
	)

	return &models.PredictResponse{
		PredictionType:    rec.PredictionType,
		RecordID:          rec.ID,
		PredictionResults: rec.Forecast,
		ActualData:        rec.Actual,
		HasComparison:     rec.HasComparison(),
		Continuity:        rec.Continuity,
		Chart: models.ChartSeries{
			Historical: triple.Historical,
			Forecast:   triple.Forecast,
			Actual:     alignment.ChartAlign(triple.Actual, triple.ForecastTimestamps),
		},
		Warnings: warnings,
	}, nil
}

// persist fans the record out to every store concurrently.
func (uc *PredictionUseCase) persist(ctx context.Context, rec *models.ExportRecord) []string {
	if len(uc.stores) == 0 {
		return nil
	}
	errs := make([]error, len(uc.stores))
	var wg sync.WaitGroup
	for i, store := range uc.stores {
		wg.Add(1)
		go func(i int, store domrepo.RecordStore) {
			defer wg.Done()
			loc, err := store.Save(ctx, rec)
			if err != nil {
				errs[i] = &models.PersistenceWarning{Store: store.Name(), RecordID: rec.ID, Err: err}
				return
			}
			uc.l.Debug("record stored", applogger.String("store", store.Name()), applogger.String("location", loc))
		}(i, store)
	}
	wg.Wait()

	var warnings []string
	for i, err := range errs {
		name := uc.stores[i].Name()
		if err == nil {
			uc.metrics.RecordPersistence(name, "ok")
			continue
		}
		uc.metrics.RecordPersistence(name, "error")
		uc.l.Warn("persist record failed", applogger.String("store", name), applogger.Error(err))
		warnings = append(warnings, err.Error())
	}
	return warnings
}

func (uc *PredictionUseCase) fail(mode, kind string, err error) {
	uc.metrics.RecordPrediction(mode, "error")
	uc.metrics.RecordError(kind)
	uc.l.Warn("prediction failed", applogger.String("mode", mode), applogger.String("kind", kind), applogger.Error(err))
}

func errorKind(err error) string {
	var (
		schema  *models.SchemaError
		insuff  *models.InsufficientDataError
		cadence *models.CadenceError
		fc      *models.ForecasterError
	)
	switch {
	case errors.As(err, &schema):
		return "schema"
	case errors.As(err, &insuff):
		return "insufficient_data"
	case errors.As(err, &cadence):
		return "cadence"
	case errors.Is(err, models.ErrModelNotLoaded):
		return "model_not_loaded"
	case errors.As(err, &fc):
		return "forecaster"
	case errors.Is(err, models.ErrInvalidWindow):
		return "invalid_window"
	default:
		return "internal"
	}
}
