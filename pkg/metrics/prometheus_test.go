package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordPrediction("latest", "ok")
	r.RecordPrediction("latest", "ok")
	r.RecordPersistence("json", "error")
	r.RecordError("schema")
	r.RecordContinuityGap("close", 1.2)
	r.RecordLatency("predict", 0.3)

	if got := testutil.ToFloat64(r.predictions.WithLabelValues("latest", "ok")); got != 2 {
		t.Fatalf("predictions=%v", got)
	}
	if got := testutil.ToFloat64(r.persistence.WithLabelValues("json", "error")); got != 1 {
		t.Fatalf("persistence=%v", got)
	}
	if n := testutil.CollectAndCount(r.continuityGap); n != 1 {
		t.Fatalf("continuity series=%d", n)
	}
}
