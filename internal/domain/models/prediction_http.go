package models

// Requests for the prediction HTTP endpoints. Defined in domain so the Kafka
// job handler can decode the same payloads.

type PredictRequest struct {
	FilePath    string  `json:"file_path" validate:"required"`
	Lookback    int     `json:"lookback" default:"400" validate:"gte=2,lte=10000"`
	PredLen     int     `json:"pred_len" default:"120" validate:"gte=1,lte=5000"`
	Temperature float64 `json:"temperature" default:"1.0" validate:"gt=0,lte=5"`
	TopP        float64 `json:"top_p" default:"0.9" validate:"gt=0,lte=1"`
	SampleCount int     `json:"sample_count" default:"1" validate:"gte=1,lte=20"`
	StartDate   string  `json:"start_date"`
}

type LoadDataRequest struct {
	FilePath string `json:"file_path" validate:"required"`
}

type LoadModelRequest struct {
	ModelKey string `json:"model_key" default:"kronos-small" validate:"oneof=kronos-mini kronos-small kronos-base"`
	Device   string `json:"device" default:"cpu" validate:"required"`
}

type FetchDataRequest struct {
	Ticker   string `json:"ticker" validate:"required,max=16"`
	Interval string `json:"interval" validate:"required,oneof=5m 15m 30m hourly daily weekly monthly"`
	Period   string `json:"period"`
	Start    string `json:"start"`
	End      string `json:"end"`
	RTHOnly  *bool  `json:"rth_only"`
	Async    bool   `json:"async"`
}

// RTH reports whether intraday bars should be filtered to regular trading hours.
func (r FetchDataRequest) RTH() bool {
	return r.RTHOnly == nil || *r.RTHOnly
}

type ListRunsRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}

// ChartSeries holds the three segments on one time axis. Actual rows are
// re-stamped onto the forecast timestamps.
type ChartSeries struct {
	Historical Series `json:"historical"`
	Forecast   Series `json:"forecast"`
	Actual     Series `json:"actual"`
}

// PredictResponse is returned by the predict endpoint and the prediction job.
type PredictResponse struct {
	PredictionType    string            `json:"prediction_type"`
	RecordID          string            `json:"record_id"`
	PredictionResults Series            `json:"prediction_results"`
	ActualData        Series            `json:"actual_data"`
	HasComparison     bool              `json:"has_comparison"`
	Continuity        *ContinuityReport `json:"continuity"`
	Chart             ChartSeries       `json:"chart"`
	Warnings          []string          `json:"warnings,omitempty"`
}

// LoadDataResponse wraps the data info of a loaded file.
type LoadDataResponse struct {
	FilePath string   `json:"file_path"`
	DataInfo DataInfo `json:"data_info"`
}

// FetchDataResponse reports a completed or queued download.
type FetchDataResponse struct {
	Ticker   string `json:"ticker"`
	Interval string `json:"interval"`
	Queued   bool   `json:"queued"`
	Rows     int    `json:"rows,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
}

// LoadModelResponse describes a freshly loaded model.
type LoadModelResponse struct {
	Model    ModelPreset `json:"model"`
	Device   string      `json:"device"`
	LoadedAt string      `json:"loaded_at"`
}
