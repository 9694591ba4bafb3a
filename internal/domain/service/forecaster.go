package service

import (
	"context"
	"time"

	"KronosAlign/internal/domain/models"
)

// Forecaster produces horizon bars following contextRows. Implementations may
// ignore forecastTs; callers stamp the returned rows themselves.
type Forecaster interface {
	Forecast(ctx context.Context, contextRows models.Series, contextTs, forecastTs []time.Time, horizon int, params models.SamplingParams) (models.Series, error)
}

// ModelLoader asks the model runtime to load a preset on a device.
type ModelLoader interface {
	LoadModel(ctx context.Context, preset models.ModelPreset, device string) error
	Health(ctx context.Context) error
}

// ForecasterFunc adapts a function to Forecaster.
type ForecasterFunc func(ctx context.Context, contextRows models.Series, contextTs, forecastTs []time.Time, horizon int, params models.SamplingParams) (models.Series, error)

func (f ForecasterFunc) Forecast(ctx context.Context, contextRows models.Series, contextTs, forecastTs []time.Time, horizon int, params models.SamplingParams) (models.Series, error) {
	return f(ctx, contextRows, contextTs, forecastTs, horizon, params)
}
