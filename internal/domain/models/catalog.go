package models

import "time"

// ModelPreset describes a loadable forecasting model.
type ModelPreset struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	ModelID       string `json:"model_id"`
	TokenizerID   string `json:"tokenizer_id"`
	ContextLength int    `json:"context_length"`
	Params        string `json:"params"`
	Description   string `json:"description"`
}

// LoadedModel describes the model currently held by the registry.
type LoadedModel struct {
	Key      string    `json:"key"`
	Name     string    `json:"name"`
	Device   string    `json:"device"`
	LoadedAt time.Time `json:"loaded_at"`
}

// ModelStatus is reported by the model-status endpoint.
type ModelStatus struct {
	Available    bool         `json:"available"`
	Loaded       bool         `json:"loaded"`
	Message      string       `json:"message"`
	CurrentModel *LoadedModel `json:"current_model,omitempty"`
}

// DataFile is one CSV found under a data root.
type DataFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size string `json:"size"`
}

// OverallRange is the min/max over all price columns.
type OverallRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DataInfo describes a loaded series.
type DataInfo struct {
	Rows              int          `json:"rows"`
	Columns           []string     `json:"columns"`
	StartDate         string       `json:"start_date"`
	EndDate           string       `json:"end_date"`
	PriceRange        OverallRange `json:"price_range"`
	PredictionColumns []string     `json:"prediction_columns"`
	Timeframe         string       `json:"timeframe"`
}

// RunSummary is a compact index entry for a stored export record.
type RunSummary struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Source         string    `json:"source"`
	Model          string    `json:"model"`
	PredictionType string    `json:"prediction_type"`
	Lookback       int       `json:"lookback"`
	Horizon        int       `json:"horizon"`
	Anchor         string    `json:"anchor"`
	HasComparison  bool      `json:"has_comparison"`
	ClosePctGap    *float64  `json:"close_pct_gap,omitempty"`
}
