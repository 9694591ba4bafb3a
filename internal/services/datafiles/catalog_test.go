package datafiles

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"KronosAlign/internal/domain/models"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCatalogList(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeFile(t, filepath.Join(a, "zeta.csv"), 10)
	writeFile(t, filepath.Join(a, "notes.txt"), 10)
	writeFile(t, filepath.Join(b, "AAPL", "daily", "US_daily_AAPL.csv"), 2048)
	writeFile(t, filepath.Join(b, "alpha.CSV"), 1)

	files, err := NewCatalog(nil, a, b, a, "", filepath.Join(a, "missing")).List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %+v", files)
	}
	names := []string{files[0].Name, files[1].Name, files[2].Name}
	want := []string{"alpha.CSV", "US_daily_AAPL.csv", "zeta.csv"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order=%v", names)
		}
	}
	if files[1].Size != "2.0 KiB" {
		t.Fatalf("size=%s", files[1].Size)
	}
	if !filepath.IsAbs(files[0].Path) {
		t.Fatalf("path not absolute: %s", files[0].Path)
	}
}

func series(step time.Duration, n int) models.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := make(models.Series, n)
	for i := range s {
		s[i] = models.CanonicalRow{Timestamp: start.Add(time.Duration(i) * step), Open: 1, High: 3, Low: 0.5, Close: 2}
	}
	return s
}

func TestDetectTimeframe(t *testing.T) {
	cases := []struct {
		step time.Duration
		n    int
		want string
	}{
		{time.Minute, 1, "Unknown"},
		{30 * time.Second, 5, "30 seconds"},
		{15 * time.Minute, 50, "15 minutes"},
		{time.Hour, 3, "1 hours"},
		{24 * time.Hour, 20, "1 days"},
		{7 * 24 * time.Hour, 20, "7 days"},
	}
	for _, c := range cases {
		if got := DetectTimeframe(series(c.step, c.n)); got != c.want {
			t.Fatalf("step=%v n=%d: got %q want %q", c.step, c.n, got, c.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	info := Describe(series(time.Hour, 4))
	if info.Rows != 4 || info.PriceRange.Min != 0.5 || info.PriceRange.Max != 3 {
		t.Fatalf("info=%+v", info)
	}
	if info.StartDate != "2024-01-01T00:00:00Z" || info.EndDate != "2024-01-01T03:00:00Z" {
		t.Fatalf("dates=%s %s", info.StartDate, info.EndDate)
	}
	if len(info.PredictionColumns) != 4 {
		t.Fatalf("prediction columns=%v", info.PredictionColumns)
	}
}
