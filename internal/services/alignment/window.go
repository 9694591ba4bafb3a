package alignment

import (
	"sort"

	"KronosAlign/internal/domain/models"
)

// ResolveWindow decides which rows of series feed the forecaster and which
// rows serve as ground truth. series must be sorted by timestamp.
//
// Latest mode takes the first Lookback rows as history and up to Horizon
// following rows as actual, truncated to what the series holds. Anchored mode
// starts at the first row at or after the anchor and needs the full window.
func ResolveWindow(series models.Series, spec models.WindowSpec) (models.WindowResolution, error) {
	if spec.Lookback <= 0 || spec.Horizon <= 0 {
		return nil, models.ErrInvalidWindow
	}
	n := len(series)

	if spec.Anchor == nil {
		if n < spec.Lookback {
			return models.InsufficientWindow{
				Mode:      models.ModeLatest,
				Required:  spec.Lookback,
				Available: n,
			}, nil
		}
		end := spec.Required()
		if end > n {
			end = n
		}
		return models.LatestWindow{
			Historical: models.IndexRange{Start: 0, End: spec.Lookback},
			Actual:     models.IndexRange{Start: spec.Lookback, End: end},
			Truncated:  end-spec.Lookback < spec.Horizon,
		}, nil
	}

	anchor := spec.Anchor.UTC()
	idx := sort.Search(n, func(i int) bool { return !series[i].Timestamp.Before(anchor) })
	available := n - idx
	if available < spec.Required() {
		return models.InsufficientWindow{
			Mode:      models.ModeAnchored,
			Anchor:    &anchor,
			Required:  spec.Required(),
			Available: available,
		}, nil
	}

	histEnd := idx + spec.Lookback
	return models.AnchoredWindow{
		Anchor:      anchor,
		AnchorIndex: idx,
		Historical:  models.IndexRange{Start: idx, End: histEnd},
		Actual:      models.IndexRange{Start: histEnd, End: histEnd + spec.Horizon},
	}, nil
}

// SelectWindows returns the historical and actual index ranges for spec, or
// an *models.InsufficientDataError when the series is too short.
func SelectWindows(series models.Series, spec models.WindowSpec) (historical, actual models.IndexRange, err error) {
	res, err := ResolveWindow(series, spec)
	if err != nil {
		return historical, actual, err
	}
	switch w := res.(type) {
	case models.LatestWindow:
		return w.Historical, w.Actual, nil
	case models.AnchoredWindow:
		return w.Historical, w.Actual, nil
	case models.InsufficientWindow:
		return historical, actual, &models.InsufficientDataError{
			Mode:      w.Mode,
			Anchor:    w.Anchor,
			Required:  w.Required,
			Available: w.Available,
		}
	}
	return historical, actual, models.ErrInvalidWindow
}
