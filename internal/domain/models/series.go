package models

import "time"

// PriceField names one of the four price columns.
type PriceField string

const (
	FieldOpen  PriceField = "open"
	FieldHigh  PriceField = "high"
	FieldLow   PriceField = "low"
	FieldClose PriceField = "close"
)

// PriceFields lists the price columns in canonical order.
var PriceFields = []PriceField{FieldOpen, FieldHigh, FieldLow, FieldClose}

// CanonicalRow is one normalized OHLCV bar. Timestamp is always UTC.
type CanonicalRow struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Amount    float64   `json:"amount"`
}

// Prices returns the OHLC part of the row.
func (r CanonicalRow) Prices() PriceTuple {
	return PriceTuple{Open: r.Open, High: r.High, Low: r.Low, Close: r.Close}
}

// PriceTuple holds the four price fields of a bar.
type PriceTuple struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Get returns the value of field f.
func (p PriceTuple) Get(f PriceField) float64 {
	switch f {
	case FieldOpen:
		return p.Open
	case FieldHigh:
		return p.High
	case FieldLow:
		return p.Low
	default:
		return p.Close
	}
}

// Series is a chronologically ordered run of bars with strictly increasing timestamps.
type Series []CanonicalRow

// Slice returns a copy of the rows in r.
func (s Series) Slice(r IndexRange) Series {
	if r.Start >= r.End || r.Start >= len(s) {
		return Series{}
	}
	end := r.End
	if end > len(s) {
		end = len(s)
	}
	out := make(Series, end-r.Start)
	copy(out, s[r.Start:end])
	return out
}

// Timestamps returns the timestamp column.
func (s Series) Timestamps() []time.Time {
	out := make([]time.Time, len(s))
	for i, r := range s {
		out[i] = r.Timestamp
	}
	return out
}

// First returns the first row, ok=false when empty.
func (s Series) First() (CanonicalRow, bool) {
	if len(s) == 0 {
		return CanonicalRow{}, false
	}
	return s[0], true
}

// Last returns the last row, ok=false when empty.
func (s Series) Last() (CanonicalRow, bool) {
	if len(s) == 0 {
		return CanonicalRow{}, false
	}
	return s[len(s)-1], true
}

// Closes returns the close column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, r := range s {
		out[i] = r.Close
	}
	return out
}
