package alignment

import (
	"fmt"
	"sort"
	"time"

	"KronosAlign/internal/domain/models"
)

// CadenceStrategy infers the sampling interval of a historical segment.
type CadenceStrategy interface {
	Name() string
	Cadence(ts []time.Time) (time.Duration, error)
}

// FirstDiffCadence uses the gap between the first two timestamps.
type FirstDiffCadence struct{}

func (FirstDiffCadence) Name() string { return "first_diff" }

func (FirstDiffCadence) Cadence(ts []time.Time) (time.Duration, error) {
	if len(ts) < 2 {
		return 0, &models.CadenceError{Rows: len(ts)}
	}
	d := ts[1].Sub(ts[0])
	if d <= 0 {
		return 0, &models.CadenceError{Rows: len(ts), Reason: fmt.Sprintf("non-increasing timestamps (step %s)", d)}
	}
	return d, nil
}

// MedianCadence uses the median of all consecutive gaps. It is robust to
// isolated calendar holes such as weekends and market holidays.
type MedianCadence struct{}

func (MedianCadence) Name() string { return "median" }

func (MedianCadence) Cadence(ts []time.Time) (time.Duration, error) {
	if len(ts) < 2 {
		return 0, &models.CadenceError{Rows: len(ts)}
	}
	diffs := make([]time.Duration, 0, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		diffs = append(diffs, ts[i].Sub(ts[i-1]))
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i] < diffs[j] })
	d := diffs[(len(diffs)-1)/2]
	if d <= 0 {
		return 0, &models.CadenceError{Rows: len(ts), Reason: fmt.Sprintf("non-increasing timestamps (median step %s)", d)}
	}
	return d, nil
}

// CadenceStrategyByName maps a config value to a strategy. Empty selects first_diff.
func CadenceStrategyByName(name string) (CadenceStrategy, error) {
	switch name {
	case "", "first_diff":
		return FirstDiffCadence{}, nil
	case "median":
		return MedianCadence{}, nil
	default:
		return nil, fmt.Errorf("unknown cadence strategy %q", name)
	}
}

// DeriveCadence infers the cadence of historical with the first-diff strategy.
func DeriveCadence(historical models.Series) (time.Duration, error) {
	return FirstDiffCadence{}.Cadence(historical.Timestamps())
}

// Synthesize returns last+cadence, last+2*cadence, ..., last+count*cadence.
func Synthesize(last time.Time, cadence time.Duration, count int) []time.Time {
	if count <= 0 {
		return nil
	}
	out := make([]time.Time, count)
	for i := range out {
		out[i] = last.Add(time.Duration(i+1) * cadence)
	}
	return out
}

// ChartAlign returns a copy of actual re-stamped with the synthesized
// sequence, for plotting against the forecast. The input is left untouched
// so exports keep the realized timestamps.
func ChartAlign(actual models.Series, synthesized []time.Time) models.Series {
	out := make(models.Series, len(actual))
	copy(out, actual)
	for i := range out {
		if i >= len(synthesized) {
			break
		}
		out[i].Timestamp = synthesized[i]
	}
	return out
}
