package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type refreshPayload struct {
	Ticker   string `json:"ticker"`
	Interval string `json:"interval"`
}

type recordingJob struct {
	mu       sync.Mutex
	failures int
	calls    int
	got      []refreshPayload
	done     chan struct{}
}

func (j *recordingJob) Name() string { return "recording" }
func (j *recordingJob) Type() string { return "refresh" }

func (j *recordingJob) Handle(_ context.Context, payload json.RawMessage) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	if j.calls <= j.failures {
		return errors.New("transient")
	}
	p, err := ParsePayload[refreshPayload](payload)
	if err != nil {
		return err
	}
	j.got = append(j.got, *p)
	close(j.done)
	return nil
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload[refreshPayload](json.RawMessage(`{"ticker":"AAPL","interval":"daily"}`))
	if err != nil || p.Ticker != "AAPL" || p.Interval != "daily" {
		t.Fatalf("parse: %+v %v", p, err)
	}
	if _, err := ParsePayload[refreshPayload](nil); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestNewMessage(t *testing.T) {
	m, err := NewMessage("refresh", refreshPayload{Ticker: "MSFT"})
	if err != nil {
		t.Fatal(err)
	}
	if m.ID == "" || m.Type != "refresh" || string(m.Payload) != `{"ticker":"MSFT","interval":""}` {
		t.Fatalf("message=%+v", m)
	}
}

func TestLocalQueueRetriesUntilSuccess(t *testing.T) {
	q := NewLocalQueue(nil, &QueueConfig{Workers: 1, RetryLimit: 3, RetryDelay: time.Millisecond})
	job := &recordingJob{failures: 2, done: make(chan struct{})}
	q.RegisterJob(job)
	if err := q.Enqueue(context.Background(), "refresh", refreshPayload{Ticker: "AAPL"}); err == nil {
		t.Fatalf("enqueue before start must fail")
	}
	if err := q.Start(); err != nil {
		t.Fatal(err)
	}
	defer q.Stop(context.Background())

	if err := q.Enqueue(context.Background(), "refresh", refreshPayload{Ticker: "AAPL", Interval: "daily"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	select {
	case <-job.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not complete")
	}
	job.mu.Lock()
	defer job.mu.Unlock()
	if job.calls != 3 || job.got[0].Ticker != "AAPL" {
		t.Fatalf("calls=%d got=%+v", job.calls, job.got)
	}
}

func TestLocalQueueDeadLetters(t *testing.T) {
	q := NewLocalQueue(nil, &QueueConfig{Workers: 1, RetryLimit: 1, RetryDelay: time.Millisecond})
	job := &recordingJob{failures: 100, done: make(chan struct{})}
	q.RegisterJob(job)
	_ = q.Start()
	defer q.Stop(context.Background())

	_ = q.Enqueue(context.Background(), "refresh", refreshPayload{Ticker: "BAD"})
	deadline := time.Now().Add(2 * time.Second)
	for len(q.DeadLetters()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("message never dead-lettered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if dl := q.DeadLetters(); dl[0].Attempts != 1 {
		t.Fatalf("attempts=%d", dl[0].Attempts)
	}
}

func TestLocalQueueRejectsUnknownType(t *testing.T) {
	q := NewLocalQueue(nil, nil)
	_ = q.Start()
	defer q.Stop(context.Background())
	if err := q.Enqueue(context.Background(), "nope", nil); err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}
