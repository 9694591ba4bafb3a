package datafiles

import (
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"KronosAlign/internal/domain/models"
	applogger "KronosAlign/pkg/logger"
)

// Catalog lists CSV files under a fixed set of roots.
type Catalog struct {
	roots []string
	l     *applogger.Logger
}

// NewCatalog builds a catalog over roots. Empty roots are ignored.
func NewCatalog(l *applogger.Logger, roots ...string) *Catalog {
	c := &Catalog{l: l}
	for _, r := range roots {
		if strings.TrimSpace(r) != "" {
			c.roots = append(c.roots, r)
		}
	}
	return c
}

// Roots returns the directories scanned by List.
func (c *Catalog) Roots() []string { return c.roots }

// List walks every root recursively for *.csv files, dedupes by absolute
// path and sorts by name, case-insensitively. Missing roots are skipped.
func (c *Catalog) List() ([]models.DataFile, error) {
	seen := make(map[string]struct{})
	var out []models.DataFile
	for _, root := range c.roots {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if c.l != nil {
					c.l.Warn("skip unreadable path", applogger.String("path", path), applogger.Error(err))
				}
				return nil
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".csv") {
				return nil
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			if _, dup := seen[abs]; dup {
				return nil
			}
			seen[abs] = struct{}{}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			out = append(out, models.DataFile{
				Name: d.Name(),
				Path: abs,
				Size: humanize.IBytes(uint64(info.Size())),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// DetectTimeframe renders the mean spacing of the first ten timestamps.
func DetectTimeframe(s models.Series) string {
	if len(s) < 2 {
		return "Unknown"
	}
	n := len(s)
	if n > 10 {
		n = 10
	}
	var total time.Duration
	for i := 1; i < n; i++ {
		total += s[i].Timestamp.Sub(s[i-1].Timestamp)
	}
	mean := total / time.Duration(n-1)
	switch {
	case mean < time.Minute:
		return fmt.Sprintf("%.0f seconds", mean.Seconds())
	case mean < time.Hour:
		return fmt.Sprintf("%.0f minutes", mean.Minutes())
	case mean < 24*time.Hour:
		return fmt.Sprintf("%.0f hours", mean.Hours())
	default:
		return fmt.Sprintf("%d days", int(mean/(24*time.Hour)))
	}
}

// Describe summarizes a loaded series for the load-data endpoint.
func Describe(s models.Series) models.DataInfo {
	info := models.DataInfo{
		Rows:              len(s),
		Columns:           []string{"timestamps", "open", "high", "low", "close", "volume", "amount"},
		PredictionColumns: []string{"open", "high", "low", "close"},
		Timeframe:         DetectTimeframe(s),
	}
	if len(s) == 0 {
		return info
	}
	info.StartDate = s[0].Timestamp.Format(time.RFC3339)
	info.EndDate = s[len(s)-1].Timestamp.Format(time.RFC3339)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range s {
		for _, v := range []float64{r.Open, r.High, r.Low, r.Close} {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	info.PriceRange = models.OverallRange{Min: lo, Max: hi}
	return info
}
