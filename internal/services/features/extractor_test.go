package features

import (
	"math"
	"testing"
	"time"
)

func TestComputeLogReturns(t *testing.T) {
	got := ComputeLogReturns([]float64{100, 110, 0, 121})
	if len(got) != 3 {
		t.Fatalf("len=%d", len(got))
	}
	if math.Abs(got[0]-math.Log(1.1)) > 1e-12 {
		t.Fatalf("unexpected first return %v", got[0])
	}
	if got[1] != 0 || got[2] != 0 {
		t.Fatalf("non-positive prices must yield zero returns, got %v", got[1:])
	}
	if ComputeLogReturns([]float64{1}) != nil {
		t.Fatalf("expected nil for a single price")
	}
}

func TestRealizedVolatilityConstantSeries(t *testing.T) {
	rets := ComputeLogReturns([]float64{10, 10, 10, 10})
	if v := RealizedVolatility(rets, len(rets), BarsPerYear(time.Hour)); v != 0 {
		t.Fatalf("flat series must have zero volatility, got %v", v)
	}
}

func TestBarsPerYear(t *testing.T) {
	if got := BarsPerYear(24 * time.Hour); got != 365 {
		t.Fatalf("daily bars per year = %v", got)
	}
	if BarsPerYear(0) != 0 {
		t.Fatalf("zero cadence must give zero")
	}
}

func TestSeriesVolatilityPositive(t *testing.T) {
	v := SeriesVolatility([]float64{100, 101, 99, 102, 98}, time.Hour)
	if v <= 0 {
		t.Fatalf("expected positive volatility, got %v", v)
	}
}
