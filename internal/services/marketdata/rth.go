package marketdata

import (
	"time"
	_ "time/tzdata"

	"KronosAlign/internal/domain/models"
)

// ExchangeZone is the timezone regular trading hours are defined in.
const ExchangeZone = "America/New_York"

const (
	rthOpenMinute  = 9*60 + 30
	rthCloseMinute = 16 * 60
)

// FilterRTH keeps bars whose exchange-local wall clock falls within
// 09:30..16:00 inclusive. Timestamps stay in UTC.
func FilterRTH(s models.Series) (models.Series, error) {
	loc, err := time.LoadLocation(ExchangeZone)
	if err != nil {
		return nil, err
	}
	out := make(models.Series, 0, len(s))
	for _, r := range s {
		lt := r.Timestamp.In(loc)
		m := lt.Hour()*60 + lt.Minute()
		if m < rthOpenMinute || m > rthCloseMinute {
			continue
		}
		if m == rthCloseMinute && (lt.Second() > 0 || lt.Nanosecond() > 0) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
