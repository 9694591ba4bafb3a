package marketdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"KronosAlign/internal/domain/models"
	"KronosAlign/pkg/util"
)

// CSVHeader is the column order of saved market data files.
var CSVHeader = []string{"timestamps", "open", "high", "low", "close", "volume", "amount"}

// TargetPath returns DATA_ROOT/<TICKER>/<interval>/US_<interval>_<TICKER>.csv.
func TargetPath(root, ticker, interval string) string {
	t := util.NormalizeSymbol(ticker)
	iv := strings.ToLower(strings.TrimSpace(interval))
	return filepath.Join(root, t, iv, fmt.Sprintf("US_%s_%s.csv", iv, t))
}

// WriteCSV writes s to path, creating parent directories. The file is
// written to a temp name and renamed so readers never see a partial file.
func WriteCSV(path string, s models.Series) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fetch-*.csv")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(CSVHeader); err != nil {
		tmp.Close()
		return err
	}
	for _, r := range s {
		rec := []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			formatFloat(r.Open),
			formatFloat(r.High),
			formatFloat(r.Low),
			formatFloat(r.Close),
			formatFloat(r.Volume),
			formatFloat(r.Amount),
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
