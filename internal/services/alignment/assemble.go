package alignment

import (
	"math"
	"time"

	"KronosAlign/internal/domain/models"
	"KronosAlign/internal/services/features"
)

// Prediction type labels written into export records.
const (
	PredictionTypeLatest   = "forecast from latest data"
	PredictionTypeAnchored = "forecast within selected window"
)

// Summarize computes the fingerprint of the historical segment fed to the
// forecaster. cadence drives the annualization of the realized volatility.
func Summarize(historical models.Series, cadence time.Duration) models.HistoricalSummary {
	s := models.HistoricalSummary{Rows: len(historical)}
	if len(historical) == 0 {
		return s
	}
	s.Start = historical[0].Timestamp
	s.End = historical[len(historical)-1].Timestamp
	s.LastValues = historical[len(historical)-1].Prices()

	open := newRange()
	high := newRange()
	low := newRange()
	cls := newRange()
	for _, r := range historical {
		open.add(r.Open)
		high.add(r.High)
		low.add(r.Low)
		cls.add(r.Close)
	}
	s.PriceRange = models.PriceRanges{Open: open.FieldRange, High: high.FieldRange, Low: low.FieldRange, Close: cls.FieldRange}
	s.RealizedVolatility = features.SeriesVolatility(historical.Closes(), cadence)
	return s
}

type rangeAcc struct{ models.FieldRange }

func newRange() *rangeAcc {
	return &rangeAcc{models.FieldRange{Min: math.Inf(1), Max: math.Inf(-1)}}
}

func (r *rangeAcc) add(v float64) {
	r.Min = math.Min(r.Min, v)
	r.Max = math.Max(r.Max, v)
}

// Assemble merges request metadata and the aligned segments into one record.
// It performs no I/O.
func Assemble(meta models.RecordMeta, summary models.HistoricalSummary, triple models.SegmentTriple, report *models.ContinuityReport) models.ExportRecord {
	window := models.WindowParams{
		Lookback: meta.Spec.Lookback,
		Horizon:  meta.Spec.Horizon,
		Anchor:   models.AnchorLatest,
	}
	predictionType := PredictionTypeLatest
	if meta.Spec.Anchor != nil {
		window.Anchor = meta.Spec.Anchor.UTC().Format(time.RFC3339)
		predictionType = PredictionTypeAnchored
	}

	actual := triple.Actual
	if actual == nil {
		actual = models.Series{}
	}
	return models.ExportRecord{
		ID:                meta.ID,
		CreatedAt:         meta.CreatedAt.UTC(),
		Source:            meta.Source,
		Model:             meta.Model,
		PredictionType:    predictionType,
		Window:            window,
		Sampling:          meta.Sampling,
		HistoricalSummary: summary,
		Forecast:          triple.Forecast,
		Actual:            actual,
		Continuity:        report,
	}
}
