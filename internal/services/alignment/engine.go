package alignment

import (
	"context"
	"fmt"

	"KronosAlign/internal/domain/models"
	domsvc "KronosAlign/internal/domain/service"
)

// Engine runs the window, cadence and reconcile steps around a forecaster.
// It keeps no per-request state; the forecaster owns any shared model state.
type Engine struct {
	forecaster domsvc.Forecaster
	cadence    CadenceStrategy
	normalizer *Normalizer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCadenceStrategy replaces the default first-diff cadence strategy.
func WithCadenceStrategy(s CadenceStrategy) EngineOption {
	return func(e *Engine) {
		if s != nil {
			e.cadence = s
		}
	}
}

// WithNormalizer sets the normalizer used by LoadAndNormalize.
func WithNormalizer(n *Normalizer) EngineOption {
	return func(e *Engine) {
		if n != nil {
			e.normalizer = n
		}
	}
}

func NewEngine(f domsvc.Forecaster, opts ...EngineOption) *Engine {
	e := &Engine{
		forecaster: f,
		cadence:    FirstDiffCadence{},
		normalizer: NewNormalizer(nil, NormalizeOptions{}),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Cadence exposes the configured strategy.
func (e *Engine) Cadence() CadenceStrategy { return e.cadence }

// LoadAndNormalize reads a CSV file into a canonical series.
func (e *Engine) LoadAndNormalize(path string) (models.Series, error) {
	return e.normalizer.LoadAndNormalize(path)
}

// RunPredictionWindow selects the windows described by spec, forecasts
// spec.Horizon bars after the historical segment and reconciles the seam with
// the realized data. The report is nil when no actual rows exist.
//
// Forecast rows are always stamped with the synthesized sequence; the actual
// segment keeps its own timestamps.
func (e *Engine) RunPredictionWindow(ctx context.Context, series models.Series, spec models.WindowSpec, params models.SamplingParams) (models.SegmentTriple, *models.ContinuityReport, error) {
	var triple models.SegmentTriple

	histRange, actRange, err := SelectWindows(series, spec)
	if err != nil {
		return triple, nil, err
	}
	historical := series.Slice(histRange)
	actual := series.Slice(actRange)

	contextTs := historical.Timestamps()
	cadence, err := e.cadence.Cadence(contextTs)
	if err != nil {
		return triple, nil, err
	}
	forecastTs := Synthesize(contextTs[len(contextTs)-1], cadence, spec.Horizon)

	if e.forecaster == nil {
		return triple, nil, &models.ForecasterError{Err: models.ErrModelNotLoaded}
	}
	rows, err := e.forecaster.Forecast(ctx, historical, contextTs, forecastTs, spec.Horizon, params)
	if err != nil {
		return triple, nil, &models.ForecasterError{Err: err}
	}
	if len(rows) != spec.Horizon {
		return triple, nil, &models.ForecasterError{Err: fmt.Errorf("returned %d rows, expected %d", len(rows), spec.Horizon)}
	}

	forecast := make(models.Series, len(rows))
	copy(forecast, rows)
	for i := range forecast {
		forecast[i].Timestamp = forecastTs[i]
	}

	triple = models.SegmentTriple{
		Historical:         historical,
		ForecastTimestamps: forecastTs,
		Forecast:           forecast,
		Actual:             actual,
	}
	return triple, Reconcile(forecast, actual), nil
}
