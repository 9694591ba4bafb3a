package features

import (
	"math"
	"time"
)

const year = 365 * 24 * time.Hour

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(closes)-1, or nil if insufficient data.
// Non-positive prices contribute a zero return.
func ComputeLogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		cur := closes[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the last
// window returns using the provided number of bars per year.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window || barsPerYear <= 0 {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// BarsPerYear converts a bar cadence into bars per calendar year.
func BarsPerYear(cadence time.Duration) float64 {
	if cadence <= 0 {
		return 0
	}
	return float64(year) / float64(cadence)
}

// SeriesVolatility is the annualized volatility of all returns in closes.
func SeriesVolatility(closes []float64, cadence time.Duration) float64 {
	rets := ComputeLogReturns(closes)
	return RealizedVolatility(rets, len(rets), BarsPerYear(cadence))
}
