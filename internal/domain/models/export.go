package models

import "time"

// AnchorLatest is written in place of an anchor in latest-data mode.
const AnchorLatest = "latest"

// SamplingParams are passed through to the forecaster untouched.
type SamplingParams struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	SampleCount int     `json:"sample_count"`
}

// DefaultSamplingParams mirrors the defaults of the prediction endpoint.
func DefaultSamplingParams() SamplingParams {
	return SamplingParams{Temperature: 1.0, TopP: 0.9, SampleCount: 1}
}

// WindowParams are the effective window parameters of a run.
type WindowParams struct {
	Lookback int    `json:"lookback"`
	Horizon  int    `json:"horizon"`
	Anchor   string `json:"anchor"`
}

// FieldRange is a min/max pair.
type FieldRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// PriceRanges holds one FieldRange per price field.
type PriceRanges struct {
	Open  FieldRange `json:"open"`
	High  FieldRange `json:"high"`
	Low   FieldRange `json:"low"`
	Close FieldRange `json:"close"`
}

// HistoricalSummary fingerprints what was fed to the forecaster.
type HistoricalSummary struct {
	Rows               int         `json:"rows"`
	Start              time.Time   `json:"start"`
	End                time.Time   `json:"end"`
	PriceRange         PriceRanges `json:"price_range"`
	LastValues         PriceTuple  `json:"last_values"`
	RealizedVolatility float64     `json:"realized_volatility"`
}

// RecordMeta is request metadata supplied by the caller of the assembler.
type RecordMeta struct {
	ID        string
	CreatedAt time.Time
	Source    string
	Model     string
	Spec      WindowSpec
	Sampling  SamplingParams
}

// ExportRecord is the persisted outcome of one prediction request.
type ExportRecord struct {
	ID                string            `json:"id"`
	CreatedAt         time.Time         `json:"created_at"`
	Source            string            `json:"source"`
	Model             string            `json:"model,omitempty"`
	PredictionType    string            `json:"prediction_type"`
	Window            WindowParams      `json:"window"`
	Sampling          SamplingParams    `json:"sampling"`
	HistoricalSummary HistoricalSummary `json:"historical_summary"`
	Forecast          Series            `json:"forecast"`
	Actual            Series            `json:"actual"`
	Continuity        *ContinuityReport `json:"continuity,omitempty"`
}

// HasComparison reports whether realized data was available.
func (r *ExportRecord) HasComparison() bool { return len(r.Actual) > 0 }

// Summary projects the record onto its run-index entry.
func (r *ExportRecord) Summary() RunSummary {
	s := RunSummary{
		ID:             r.ID,
		CreatedAt:      r.CreatedAt,
		Source:         r.Source,
		Model:          r.Model,
		PredictionType: r.PredictionType,
		Lookback:       r.Window.Lookback,
		Horizon:        r.Window.Horizon,
		Anchor:         r.Window.Anchor,
		HasComparison:  r.HasComparison(),
	}
	if r.Continuity != nil {
		s.ClosePctGap = r.Continuity.PercentGap.Close
	}
	return s
}
