package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"KronosAlign/internal/domain/models"
	domrepo "KronosAlign/internal/domain/repository"
	"KronosAlign/internal/service/ratelimit"
	"KronosAlign/internal/services/alignment"
	"KronosAlign/internal/services/datafiles"
	"KronosAlign/internal/services/marketdata"
	"KronosAlign/internal/services/registry"
	"KronosAlign/internal/usecase"
	"KronosAlign/pkg/config"
	xhttp "KronosAlign/pkg/http"
	"KronosAlign/pkg/metrics"

	"github.com/labstack/echo/v4"
)

var t0 = time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)

type fakeRuntime struct {
	healthy bool
	failFC  bool
}

func (f *fakeRuntime) LoadModel(context.Context, models.ModelPreset, string) error { return nil }

func (f *fakeRuntime) Health(context.Context) error {
	if !f.healthy {
		return errors.New("down")
	}
	return nil
}

func (f *fakeRuntime) Forecast(_ context.Context, _ models.Series, _, _ []time.Time, horizon int, _ models.SamplingParams) (models.Series, error) {
	if f.failFC {
		return nil, errors.New("cuda out of memory")
	}
	out := make(models.Series, horizon)
	for i := range out {
		out[i] = models.CanonicalRow{Open: 1, High: 1, Low: 1, Close: 1}
	}
	return out, nil
}

type emptySource struct{}

func (emptySource) Name() string { return "empty" }
func (emptySource) Fetch(context.Context, domrepo.MarketQuery) (models.Series, error) {
	return nil, nil
}

type fixture struct {
	e    *echo.Echo
	rt   *fakeRuntime
	reg  *registry.Registry
	root string
	csv  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	csv := filepath.Join(root, "bars.csv")
	s := make(models.Series, 40)
	for i := range s {
		p := 10 + float64(i)
		s[i] = models.CanonicalRow{Timestamp: t0.Add(time.Duration(i) * time.Hour), Open: p, High: p, Low: p, Close: p}
	}
	if err := marketdata.WriteCSV(csv, s); err != nil {
		t.Fatal(err)
	}

	rt := &fakeRuntime{healthy: true}
	reg := registry.New(rt, nil)
	engine := alignment.NewEngine(reg)
	loader := usecase.NewSeriesLoader(engine, nil, nil)
	noop := metrics.Noop{}

	h := NewPredictionEchoHandler(
		nil,
		usecase.NewPredictionUseCase(engine, loader, reg, nil, noop, nil),
		usecase.NewDataUseCase(datafiles.NewCatalog(nil, root), loader, nil),
		usecase.NewModelUseCase(reg),
		usecase.NewFetchUseCase(emptySource{}, loader, nil, nil, root, noop, nil),
		ratelimit.New(0.001, 1),
	)
	srv := xhttp.NewServer(h, xhttp.WithCORS(false), xhttp.WithMetricsPath(""))
	return &fixture{e: srv.Echo(), rt: rt, reg: reg, root: root, csv: csv}
}

func (f *fixture) do(t *testing.T, method, target string, body interface{}) (int, xhttp.APIResponse) {
	t.Helper()
	var r *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		r = httptest.NewRequest(method, target, strings.NewReader(string(b)))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, r)
	var out xhttp.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v (%s)", target, err, rec.Body.String())
	}
	return rec.Code, out
}

func errCode(t *testing.T, out xhttp.APIResponse) string {
	t.Helper()
	list, ok := out.Data.([]interface{})
	if !ok || len(list) == 0 {
		t.Fatalf("no error list in %+v", out)
	}
	return list[0].(map[string]interface{})["code"].(string)
}

func TestPredictRequiresModel(t *testing.T) {
	f := newFixture(t)
	code, out := f.do(t, http.MethodPost, "/api/predict", map[string]interface{}{"file_path": f.csv, "lookback": 10, "pred_len": 5})
	if code != http.StatusBadRequest || errCode(t, out) != "ERR_MODEL_NOT_LOADED" {
		t.Fatalf("code=%d out=%+v", code, out)
	}
}

func TestLoadModelAndPredict(t *testing.T) {
	f := newFixture(t)
	code, _ := f.do(t, http.MethodPost, "/api/load-model", map[string]interface{}{"model_key": "kronos-mini"})
	if code != http.StatusOK {
		t.Fatalf("load-model code=%d", code)
	}
	code, out := f.do(t, http.MethodGet, "/api/model-status", nil)
	st := out.Data.(map[string]interface{})
	if code != http.StatusOK || st["loaded"] != true {
		t.Fatalf("status=%+v", st)
	}

	code, out = f.do(t, http.MethodPost, "/api/predict", map[string]interface{}{"file_path": f.csv, "lookback": 10, "pred_len": 5})
	if code != http.StatusOK {
		t.Fatalf("predict code=%d out=%+v", code, out)
	}
	res := out.Data.(map[string]interface{})
	if res["has_comparison"] != true || len(res["prediction_results"].([]interface{})) != 5 {
		t.Fatalf("res=%+v", res)
	}
	if res["prediction_type"] != alignment.PredictionTypeLatest {
		t.Fatalf("prediction_type=%v", res["prediction_type"])
	}

	code, out = f.do(t, http.MethodPost, "/api/predict", map[string]interface{}{
		"file_path": f.csv, "lookback": 10, "pred_len": 5, "start_date": t0.Add(30 * time.Hour).Format(time.RFC3339),
	})
	if code != http.StatusBadRequest || errCode(t, out) != "ERR_INSUFFICIENT_DATA" {
		t.Fatalf("anchored code=%d out=%+v", code, out)
	}
	params := out.Data.([]interface{})[0].(map[string]interface{})["params"].(map[string]interface{})
	if params["required"].(float64) != 15 || params["available"].(float64) != 10 {
		t.Fatalf("params=%v", params)
	}

	f.rt.failFC = true
	code, out = f.do(t, http.MethodPost, "/api/predict", map[string]interface{}{"file_path": f.csv, "lookback": 10, "pred_len": 5})
	if code != http.StatusBadGateway || errCode(t, out) != "ERR_FORECASTER" {
		t.Fatalf("forecaster failure code=%d out=%+v", code, out)
	}
}

func TestPredictValidationAndMissingFile(t *testing.T) {
	f := newFixture(t)
	code, _ := f.do(t, http.MethodPost, "/api/predict", map[string]interface{}{"lookback": 10})
	if code != http.StatusBadRequest {
		t.Fatalf("missing file_path code=%d", code)
	}
	code, out := f.do(t, http.MethodPost, "/api/load-data", map[string]interface{}{"file_path": filepath.Join(f.root, "nope.csv")})
	if code != http.StatusNotFound || errCode(t, out) != "ERR_NOT_FOUND" {
		t.Fatalf("missing file code=%d out=%+v", code, out)
	}
}

func TestDataFilesAndLoadData(t *testing.T) {
	f := newFixture(t)
	code, out := f.do(t, http.MethodGet, "/api/data-files", nil)
	list := out.Data.(map[string]interface{})
	if code != http.StatusOK || list["total"].(float64) != 1 {
		t.Fatalf("data-files=%+v", out)
	}
	code, out = f.do(t, http.MethodPost, "/api/load-data", map[string]interface{}{"file_path": f.csv})
	info := out.Data.(map[string]interface{})["data_info"].(map[string]interface{})
	if code != http.StatusOK || info["rows"].(float64) != 40 || info["timeframe"] != "1 hours" {
		t.Fatalf("load-data=%+v", info)
	}
}

func TestAvailableModelsAndPredictions(t *testing.T) {
	f := newFixture(t)
	code, out := f.do(t, http.MethodGet, "/api/available-models", nil)
	data := out.Data.(map[string]interface{})
	if code != http.StatusOK || len(data["models"].([]interface{})) != 3 || data["model_available"] != true {
		t.Fatalf("available-models=%+v", data)
	}
	code, out = f.do(t, http.MethodGet, "/api/predictions?limit=5", nil)
	if code != http.StatusOK || out.Data.(map[string]interface{})["total"].(float64) != 0 {
		t.Fatalf("predictions=%+v", out)
	}
	code, _ = f.do(t, http.MethodGet, "/api/predictions?limit=999", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("limit=999 code=%d", code)
	}
}

func TestFetchDataRateLimitedAndEmpty(t *testing.T) {
	f := newFixture(t)
	body := map[string]interface{}{"ticker": "AAPL", "interval": "daily"}
	code, out := f.do(t, http.MethodPost, "/api/fetch-data", body)
	if code != http.StatusNotFound {
		t.Fatalf("empty fetch code=%d out=%+v", code, out)
	}
	code, _ = f.do(t, http.MethodPost, "/api/fetch-data", body)
	if code != http.StatusTooManyRequests {
		t.Fatalf("second fetch code=%d", code)
	}
}

func TestFetchDataEmptyYahooChartIsNotFound(t *testing.T) {
	yahoo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		_, _ = w.Write([]byte(`{"chart":{"result":[{"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}`))
	}))
	defer yahoo.Close()

	cfg := &config.Config{}
	cfg.Market.BaseURL = yahoo.URL
	cfg.Market.Timeout = 5 * time.Second

	root := t.TempDir()
	loader := usecase.NewSeriesLoader(alignment.NewEngine(nil), nil, nil)
	h := NewPredictionEchoHandler(nil, nil, nil, nil,
		usecase.NewFetchUseCase(marketdata.NewYahooSource(cfg, nil), loader, nil, nil, root, metrics.Noop{}, nil),
		nil,
	)
	f := &fixture{e: xhttp.NewServer(h, xhttp.WithCORS(false), xhttp.WithMetricsPath("")).Echo(), root: root}

	code, out := f.do(t, http.MethodPost, "/api/fetch-data", map[string]interface{}{"ticker": "AAPL", "interval": "daily"})
	if code != http.StatusNotFound || errCode(t, out) != "ERR_NOT_FOUND" {
		t.Fatalf("code=%d out=%+v", code, out)
	}
}
