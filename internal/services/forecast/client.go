package forecast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"KronosAlign/internal/domain/models"
	"KronosAlign/pkg/config"
	xhttp "KronosAlign/pkg/http"
)

// Client talks JSON to the model sidecar that hosts the forecasting model.
// It implements domain service.Forecaster and service.ModelLoader.
type Client struct {
	baseURL string
	client  *xhttp.Client
}

// NewClient builds a sidecar client from the forecaster config section.
func NewClient(cfg *config.Config) *Client {
	timeout := cfg.Forecaster.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return NewClientWithURL(cfg.Forecaster.URL,
		xhttp.WithTimeout(timeout),
		xhttp.WithRetry(cfg.Forecaster.RetryFor),
		xhttp.WithRateLimit(cfg.Forecaster.RateLimit, 1),
	)
}

// NewClientWithURL builds a client for baseURL with explicit options.
func NewClientWithURL(baseURL string, opts ...xhttp.ClientOption) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(opts...),
	}
}

type bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Amount    float64   `json:"amount"`
}

type forecastRequest struct {
	Context            []bar       `json:"context"`
	ForecastTimestamps []time.Time `json:"forecast_timestamps"`
	Horizon            int         `json:"horizon"`
	Temperature        float64     `json:"temperature"`
	TopP               float64     `json:"top_p"`
	SampleCount        int         `json:"sample_count"`
}

type forecastResponse struct {
	Rows  []bar  `json:"rows"`
	Error string `json:"error,omitempty"`
}

type loadRequest struct {
	ModelID       string `json:"model_id"`
	TokenizerID   string `json:"tokenizer_id"`
	ContextLength int    `json:"context_length"`
	Device        string `json:"device"`
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Forecast sends the context window and returns horizon predicted bars.
func (c *Client) Forecast(ctx context.Context, contextRows models.Series, contextTs, forecastTs []time.Time, horizon int, params models.SamplingParams) (models.Series, error) {
	req := forecastRequest{
		Context:            make([]bar, len(contextRows)),
		ForecastTimestamps: forecastTs,
		Horizon:            horizon,
		Temperature:        params.Temperature,
		TopP:               params.TopP,
		SampleCount:        params.SampleCount,
	}
	for i, r := range contextRows {
		ts := r.Timestamp
		if i < len(contextTs) {
			ts = contextTs[i]
		}
		req.Context[i] = bar{Timestamp: ts, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume, Amount: r.Amount}
	}

	// Model failures are not retried here; one attempt per call.
	var resp forecastResponse
	if err := c.postJSON(ctx, "/forecast", req, &resp, false); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("sidecar: %s", resp.Error)
	}

	out := make(models.Series, len(resp.Rows))
	for i, b := range resp.Rows {
		out[i] = models.CanonicalRow{Timestamp: b.Timestamp.UTC(), Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume, Amount: b.Amount}
	}
	return out, nil
}

// LoadModel asks the sidecar to load preset on device.
func (c *Client) LoadModel(ctx context.Context, preset models.ModelPreset, device string) error {
	var resp statusResponse
	err := c.postJSON(ctx, "/models/load", loadRequest{
		ModelID:       preset.ModelID,
		TokenizerID:   preset.TokenizerID,
		ContextLength: preset.ContextLength,
		Device:        device,
	}, &resp, true)
	if err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("sidecar: %s", resp.Error)
	}
	return nil
}

// Health reports whether the sidecar is reachable and ready.
func (c *Client) Health(ctx context.Context) error {
	var resp statusResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/health",
	}, &resp)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("health: status %q", resp.Status)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, dest interface{}, retry bool) error {
	if c.client == nil || c.baseURL == "" {
		return fmt.Errorf("forecaster http client not initialized")
	}
	opts := &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}
	send := c.client.SendAndParseOnce
	if retry {
		send = c.client.SendAndParse
	}
	if err := send(ctx, opts, dest); err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}
