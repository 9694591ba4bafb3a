package models

// FieldGaps holds one numeric value per price field.
type FieldGaps struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Set stores v under field f.
func (g *FieldGaps) Set(f PriceField, v float64) {
	switch f {
	case FieldOpen:
		g.Open = v
	case FieldHigh:
		g.High = v
	case FieldLow:
		g.Low = v
	case FieldClose:
		g.Close = v
	}
}

// AsMap returns the gaps keyed by field.
func (g FieldGaps) AsMap() map[PriceField]float64 {
	return map[PriceField]float64{
		FieldOpen:  g.Open,
		FieldHigh:  g.High,
		FieldLow:   g.Low,
		FieldClose: g.Close,
	}
}

// PercentGaps holds percent gaps per field. A nil entry means undefined
// (the actual value was zero) and encodes as JSON null.
type PercentGaps struct {
	Open  *float64 `json:"open"`
	High  *float64 `json:"high"`
	Low   *float64 `json:"low"`
	Close *float64 `json:"close"`
}

// Set stores v under field f; nil marks the field undefined.
func (g *PercentGaps) Set(f PriceField, v *float64) {
	switch f {
	case FieldOpen:
		g.Open = v
	case FieldHigh:
		g.High = v
	case FieldLow:
		g.Low = v
	case FieldClose:
		g.Close = v
	}
}

// AsMap returns the percent gaps keyed by field.
func (g PercentGaps) AsMap() map[PriceField]*float64 {
	return map[PriceField]*float64{
		FieldOpen:  g.Open,
		FieldHigh:  g.High,
		FieldLow:   g.Low,
		FieldClose: g.Close,
	}
}

// ContinuityReport compares the nearest-term forecast bar (forecast row 0)
// with the first realized bar.
type ContinuityReport struct {
	LastForecast    PriceTuple   `json:"last_forecast"`
	FirstActual     PriceTuple   `json:"first_actual"`
	AbsoluteGap     FieldGaps    `json:"absolute_gap"`
	PercentGap      PercentGaps  `json:"percent_gap"`
	UndefinedFields []PriceField `json:"undefined_fields,omitempty"`
}
