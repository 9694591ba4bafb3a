package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestLimiterPerKey(t *testing.T) {
	l := New(1, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst of 2 must pass")
	}
	if l.Allow("a") {
		t.Fatalf("third call must be limited")
	}
	if !l.Allow("b") {
		t.Fatalf("keys are independent")
	}
	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatalf("token must refill after a second")
	}
}

func TestLimiterForgetsIdleKeys(t *testing.T) {
	l := New(1, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	l.Allow("old")
	now = now.Add(time.Hour)
	l.Allow("new")
	if _, ok := l.m["old"]; ok {
		t.Fatalf("idle key not swept")
	}
}

func TestMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(New(0.001, 1).Middleware())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes=%v", codes)
	}
}
