package models

import "time"

// WindowMode tells how the prediction window was positioned.
type WindowMode string

const (
	ModeLatest   WindowMode = "latest"
	ModeAnchored WindowMode = "anchored"
)

// WindowSpec describes the requested context and horizon.
// A nil Anchor selects latest-data mode.
type WindowSpec struct {
	Lookback int
	Horizon  int
	Anchor   *time.Time
}

// Mode returns the window mode implied by the anchor.
func (w WindowSpec) Mode() WindowMode {
	if w.Anchor == nil {
		return ModeLatest
	}
	return ModeAnchored
}

// Required is the number of rows needed to serve the full window.
func (w WindowSpec) Required() int { return w.Lookback + w.Horizon }

// IndexRange is a half-open interval [Start, End) into a Series.
type IndexRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of indexes covered.
func (r IndexRange) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// WindowResolution is the outcome of placing a WindowSpec on a Series.
// It is one of LatestWindow, AnchoredWindow or InsufficientWindow.
type WindowResolution interface {
	windowResolution()
}

// LatestWindow takes the first Lookback rows as history. Actual may be shorter
// than the horizon, in which case Truncated is set.
type LatestWindow struct {
	Historical IndexRange
	Actual     IndexRange
	Truncated  bool
}

// AnchoredWindow starts at the first row at or after Anchor. Both ranges are complete.
type AnchoredWindow struct {
	Anchor      time.Time
	AnchorIndex int
	Historical  IndexRange
	Actual      IndexRange
}

// InsufficientWindow reports a window the series cannot serve.
type InsufficientWindow struct {
	Mode      WindowMode
	Anchor    *time.Time
	Required  int
	Available int
}

func (LatestWindow) windowResolution()       {}
func (AnchoredWindow) windowResolution()     {}
func (InsufficientWindow) windowResolution() {}

// SegmentTriple carries the aligned segments of one prediction request.
// ForecastTimestamps always has Horizon entries; Actual keeps its true timestamps.
type SegmentTriple struct {
	Historical         Series      `json:"historical"`
	ForecastTimestamps []time.Time `json:"forecast_timestamps"`
	Forecast           Series      `json:"forecast"`
	Actual             Series      `json:"actual"`
}
