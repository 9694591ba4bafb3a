package alignment

import (
	"time"

	"KronosAlign/internal/domain/models"
)

var testStart = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func hourlySeries(n int) models.Series {
	s := make(models.Series, n)
	for i := range s {
		p := 100 + float64(i%7)
		s[i] = models.CanonicalRow{
			Timestamp: testStart.Add(time.Duration(i) * time.Hour),
			Open:      p,
			High:      p + 1,
			Low:       p - 1,
			Close:     p + 0.5,
			Volume:    1000,
		}
	}
	return s
}
