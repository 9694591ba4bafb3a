package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"KronosAlign/internal/domain/models"
	"KronosAlign/internal/usecase"
)

type captureQueue struct {
	reqs []models.FetchDataRequest
	fail string
}

func (q *captureQueue) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	if msgType != usecase.RefreshJobType {
		return errors.New("unexpected type " + msgType)
	}
	req := payload.(models.FetchDataRequest)
	if req.Ticker == q.fail {
		return errors.New("queue full")
	}
	q.reqs = append(q.reqs, req)
	return nil
}

func TestNewRejectsBadSpec(t *testing.T) {
	if _, err := New(&captureQueue{}, RefreshPlan{Spec: "every day"}, nil); err == nil {
		t.Fatalf("expected spec error")
	}
}

func TestRunNow(t *testing.T) {
	q := &captureQueue{fail: "TSLA"}
	s, err := New(q, RefreshPlan{Spec: "30 21 * * 1-5", Tickers: []string{"AAPL", " ", "TSLA", "MSFT"}, Interval: "daily", Period: "1y"}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if n := s.RunNow(context.Background()); n != 2 {
		t.Fatalf("queued %d", n)
	}
	if q.reqs[0].Ticker != "AAPL" || q.reqs[1].Ticker != "MSFT" || q.reqs[0].Interval != "daily" || q.reqs[0].Period != "1y" {
		t.Fatalf("reqs=%+v", q.reqs)
	}
}

func TestStartStop(t *testing.T) {
	s, err := New(&captureQueue{}, RefreshPlan{Spec: "@every 1h", Tickers: []string{"AAPL"}}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
