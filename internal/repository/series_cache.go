package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"KronosAlign/internal/domain/models"
	"KronosAlign/pkg/cache"
	applogger "KronosAlign/pkg/logger"
)

const seriesPrefix = "series"

// SeriesKey identifies a file revision: the absolute path plus its size and
// modification time, so a rewritten file never hits a stale entry.
func SeriesKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	return cache.GenerateKeyWithParams(seriesPrefix, cache.HashKey(abs), info.Size(), info.ModTime().UnixNano()), nil
}

// CachedSeries stores normalized series in a cache.Service.
type CachedSeries struct {
	c   cache.Service
	ttl time.Duration
	l   *applogger.Logger
}

func NewCachedSeries(c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedSeries {
	return &CachedSeries{c: c, ttl: ttl, l: l}
}

// Key returns the cache key of the current revision of path.
func (s *CachedSeries) Key(path string) (string, error) { return SeriesKey(path) }

func (s *CachedSeries) GetSeries(ctx context.Context, key string) (models.Series, bool) {
	var out models.Series
	if err := s.c.Get(ctx, key, &out); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) && s.l != nil {
			s.l.Warn("series cache get failed", applogger.String("key", key), applogger.Error(err))
		}
		return nil, false
	}
	return out, true
}

func (s *CachedSeries) PutSeries(ctx context.Context, key string, series models.Series) error {
	if err := s.c.Set(ctx, key, series, s.ttl); err != nil {
		return fmt.Errorf("cache series: %w", err)
	}
	return nil
}

// Invalidate drops every cached revision of path.
func (s *CachedSeries) Invalidate(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	prefix := cache.GenerateKey(seriesPrefix, cache.HashKey(abs)) + ":"
	return s.c.DeleteByPattern(ctx, cache.BuildPattern(prefix))
}
