package usecase

import (
	"context"
	"fmt"

	"KronosAlign/internal/domain/models"
	domrepo "KronosAlign/internal/domain/repository"
	"KronosAlign/internal/services/datafiles"
)

// DataUseCase lists data files, describes loaded series and past runs.
type DataUseCase struct {
	catalog *datafiles.Catalog
	loader  *SeriesLoader
	runs    domrepo.RunIndex
}

func NewDataUseCase(catalog *datafiles.Catalog, loader *SeriesLoader, runs domrepo.RunIndex) *DataUseCase {
	return &DataUseCase{catalog: catalog, loader: loader, runs: runs}
}

func (uc *DataUseCase) ListFiles() ([]models.DataFile, error) {
	files, err := uc.catalog.List()
	if err != nil {
		return nil, fmt.Errorf("list data files: %w", err)
	}
	if files == nil {
		files = []models.DataFile{}
	}
	return files, nil
}

// LoadData normalizes the file and summarizes it.
func (uc *DataUseCase) LoadData(ctx context.Context, path string) (*models.LoadDataResponse, error) {
	series, err := uc.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return &models.LoadDataResponse{FilePath: path, DataInfo: datafiles.Describe(series)}, nil
}

// RecentRuns returns at most limit run summaries, newest first.
func (uc *DataUseCase) RecentRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if uc.runs == nil {
		return []models.RunSummary{}, nil
	}
	runs, err := uc.runs.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	if runs == nil {
		runs = []models.RunSummary{}
	}
	return runs, nil
}
