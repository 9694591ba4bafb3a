package marketdata

import (
	"fmt"
	"strings"
)

// IntervalSpec maps a UI interval label to the provider interval and the
// default lookback period used when the caller gives neither period nor dates.
type IntervalSpec struct {
	Label         string
	Provider      string
	DefaultPeriod string
}

// Intraday reports whether bars are shorter than a day.
func (s IntervalSpec) Intraday() bool {
	return strings.HasSuffix(s.Provider, "m") || strings.HasSuffix(s.Provider, "h")
}

var intervals = map[string]IntervalSpec{
	"5m":      {Label: "5m", Provider: "5m", DefaultPeriod: "60d"},
	"15m":     {Label: "15m", Provider: "15m", DefaultPeriod: "60d"},
	"30m":     {Label: "30m", Provider: "30m", DefaultPeriod: "60d"},
	"hourly":  {Label: "hourly", Provider: "1h", DefaultPeriod: "730d"},
	"daily":   {Label: "daily", Provider: "1d", DefaultPeriod: "max"},
	"weekly":  {Label: "weekly", Provider: "1wk", DefaultPeriod: "max"},
	"monthly": {Label: "monthly", Provider: "1mo", DefaultPeriod: "max"},
}

// LookupInterval resolves a UI label, case-insensitively.
func LookupInterval(label string) (IntervalSpec, error) {
	s, ok := intervals[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return IntervalSpec{}, fmt.Errorf("unsupported interval: %s", label)
	}
	return s, nil
}
