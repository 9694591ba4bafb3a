package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type sampleRequest struct {
	Name  string `json:"name" validate:"required"`
	Limit int    `json:"limit" default:"20" validate:"gte=1,lte=50"`
}

type sampleHandler struct{}

func (sampleHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/echo", func(c echo.Context) error {
		req := &sampleRequest{}
		if verr := ReadAndValidateRequest(c, req); verr != nil {
			return BadRequestResponse(c, verr)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundError("file not found").WithParam("path", "/x.csv"))
	})
	e.GET("/boom", func(c echo.Context) error {
		panic("boom")
	})
}

func serve(t *testing.T, s *Server, method, target, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	var out APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestServerRoutes(t *testing.T) {
	s := NewServer(sampleHandler{}, WithCORS(false), WithMetricsPath(""))

	rec, out := serve(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || out.Status != http.StatusOK {
		t.Fatalf("healthz: %d %+v", rec.Code, out)
	}

	rec, out = serve(t, s, http.MethodPost, "/echo", `{"name":"a"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("echo: %d %s", rec.Code, rec.Body.String())
	}
	data := out.Data.(map[string]interface{})
	if data["limit"].(float64) != 20 {
		t.Fatalf("default not applied: %v", data)
	}

	rec, out = serve(t, s, http.MethodPost, "/echo", `{"limit":99}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	errs := out.Data.([]interface{})
	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.(map[string]interface{})["field"].(string)] = true
	}
	if !fields["name"] || !fields["limit"] {
		t.Fatalf("validation fields=%v", fields)
	}

	rec, out = serve(t, s, http.MethodGet, "/missing", "")
	if rec.Code != http.StatusNotFound || out.Message != "file not found" {
		t.Fatalf("missing: %d %+v", rec.Code, out)
	}

	rec, _ = serve(t, s, http.MethodGet, "/boom", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic: %d", rec.Code)
	}
}

func TestServerCORSPreflight(t *testing.T) {
	s := NewServer(sampleHandler{}, WithCORS(true), WithMetricsPath(""))
	req := httptest.NewRequest(http.MethodOptions, "/echo", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "http://localhost:3000" {
		t.Fatalf("allow origin=%q", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	}
	if rec.Header().Get(echo.HeaderAccessControlMaxAge) != "600" {
		t.Fatalf("max age=%q", rec.Header().Get(echo.HeaderAccessControlMaxAge))
	}
}

func TestServerMetricsRoute(t *testing.T) {
	s := NewServer(nil, WithMetricsPath("/prom"))
	rec, _ := serve(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/prom", nil)
	mrec := httptest.NewRecorder()
	s.Echo().ServeHTTP(mrec, req)
	if mrec.Code != http.StatusOK || !strings.Contains(mrec.Body.String(), "kronos_http_requests_total") {
		t.Fatalf("metrics body missing request counter")
	}
}
