package usecase

import (
	"context"
	"time"

	"KronosAlign/internal/domain/models"
	"KronosAlign/internal/services/registry"
)

// ModelUseCase drives the model registry.
type ModelUseCase struct {
	reg *registry.Registry
}

func NewModelUseCase(reg *registry.Registry) *ModelUseCase {
	return &ModelUseCase{reg: reg}
}

func (uc *ModelUseCase) Available() []models.ModelPreset {
	return registry.SortedPresets()
}

func (uc *ModelUseCase) Load(ctx context.Context, req models.LoadModelRequest) (*models.LoadModelResponse, error) {
	h, err := uc.reg.Load(ctx, req.ModelKey, req.Device)
	if err != nil {
		return nil, err
	}
	return &models.LoadModelResponse{
		Model:    h.Preset,
		Device:   h.Device,
		LoadedAt: h.LoadedAt.Format(time.RFC3339),
	}, nil
}

func (uc *ModelUseCase) Status(ctx context.Context) models.ModelStatus {
	return uc.reg.Status(ctx)
}
