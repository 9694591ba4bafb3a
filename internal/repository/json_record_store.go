package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"KronosAlign/internal/domain/models"
	applogger "KronosAlign/pkg/logger"
)

// maxNameAttempts bounds the _N suffix search for one second.
const maxNameAttempts = 1000

// JSONRecordStore writes one pretty-printed JSON document per record under
// dir, named prediction_YYYYmmdd_HHMMSS.json. Existing files are never
// overwritten; a colliding name gets a _N suffix.
type JSONRecordStore struct {
	dir string
	l   *applogger.Logger
}

func NewJSONRecordStore(dir string, l *applogger.Logger) *JSONRecordStore {
	return &JSONRecordStore{dir: dir, l: l}
}

func (s *JSONRecordStore) Name() string { return "json" }

// Dir is the directory records are written to.
func (s *JSONRecordStore) Dir() string { return s.dir }

func (s *JSONRecordStore) Save(ctx context.Context, rec *models.ExportRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}

	base := "prediction_" + rec.CreatedAt.UTC().Format("20060102_150405")
	for i := 0; i < maxNameAttempts; i++ {
		name := base + ".json"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.json", base, i)
		}
		path := filepath.Join(s.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create record file: %w", err)
		}
		if _, err := f.Write(body); err != nil {
			f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("write record file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close record file: %w", err)
		}
		if s.l != nil {
			s.l.Debug("prediction record saved", applogger.String("id", rec.ID), applogger.String("path", path))
		}
		return path, nil
	}
	return "", fmt.Errorf("no free file name for %s after %d attempts", base, maxNameAttempts)
}
