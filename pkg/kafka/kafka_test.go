package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

type countingHandler struct {
	topic    string
	failures int
	calls    int
	traceIDs []string
}

func (h *countingHandler) Topic() string { return h.topic }

func (h *countingHandler) Handle(ctx context.Context, _ []byte) error {
	h.calls++
	h.traceIDs = append(h.traceIDs, TraceIDFromContext(ctx))
	if h.calls <= h.failures {
		return errors.New("boom")
	}
	return nil
}

func TestProducerEncodesAndForwardsTraceID(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "gzip")

	ctx := WithTraceID(context.Background(), "abc")
	if err := p.Publish(ctx, "runs", []byte("id-1"), map[string]int{"n": 1}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.PublishMessage(context.Background(), "logs", "raw"); err != nil {
		t.Fatalf("publish message: %v", err)
	}
	if len(w.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(w.msgs))
	}
	if string(w.msgs[0].Value) != `{"n":1}` || string(w.msgs[0].Key) != "id-1" || w.msgs[0].Topic != "runs" {
		t.Fatalf("unexpected message %+v", w.msgs[0])
	}
	if ExtractTraceID(w.msgs[0]) != "abc" {
		t.Fatalf("trace header missing")
	}
	if string(w.msgs[1].Value) != "raw" || len(w.msgs[1].Headers) != 0 {
		t.Fatalf("unexpected message %+v", w.msgs[1])
	}
}

func TestProducerWrapsWriteError(t *testing.T) {
	p := newProducer(&fakeWriter{err: errors.New("broker down")}, "gzip")
	if err := p.Publish(context.Background(), "runs", nil, "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func testConsumer(retryMax int, dlq bool) (*Consumer, *fakeReader, *fakeWriter) {
	cfg := &ConsumerConfig{
		GroupID:    "test",
		RetryMax:   retryMax,
		BackoffMin: time.Millisecond,
		BackoffMax: 2 * time.Millisecond,
		BufferSize: 1,
		DLQTopic:   "jobs.dlq",
	}
	c := newConsumer(cfg)
	r := &fakeReader{}
	w := &fakeWriter{}
	c.readers["jobs"] = r
	if dlq {
		c.dlq = w
	}
	return c, r, w
}

func TestConsumerRetriesThenCommits(t *testing.T) {
	c, r, w := testConsumer(3, true)
	h := &countingHandler{topic: "jobs", failures: 2}
	c.RegisterHandler(h)
	c.WithConsumerHook(NewHookChain(TraceHook()))

	km := kafka.Message{Topic: "jobs", Value: []byte("{}"), Headers: []kafka.Header{{Key: "trace_id", Value: []byte("t-1")}}}
	c.process(&message{topic: "jobs", km: km})

	if h.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", h.calls)
	}
	if h.traceIDs[0] != "t-1" {
		t.Fatalf("trace id not propagated: %v", h.traceIDs)
	}
	if len(r.committed) != 1 || len(w.msgs) != 0 {
		t.Fatalf("committed=%d dlq=%d", len(r.committed), len(w.msgs))
	}
}

func TestConsumerDeadLettersAfterRetries(t *testing.T) {
	c, r, w := testConsumer(1, true)
	h := &countingHandler{topic: "jobs", failures: 10}
	c.RegisterHandler(h)

	c.process(&message{topic: "jobs", km: kafka.Message{Topic: "jobs", Value: []byte("bad")}})

	if h.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", h.calls)
	}
	if len(w.msgs) != 1 || w.msgs[0].Topic != "jobs.dlq" || string(w.msgs[0].Value) != "bad" {
		t.Fatalf("dlq=%+v", w.msgs)
	}
	if len(r.committed) != 1 {
		t.Fatalf("offset must be committed after dlq")
	}
}

func TestConsumerWithoutDLQLeavesOffset(t *testing.T) {
	c, r, _ := testConsumer(0, false)
	c.RegisterHandler(&countingHandler{topic: "jobs", failures: 10})

	c.process(&message{topic: "jobs", km: kafka.Message{Topic: "jobs"}})
	if len(r.committed) != 0 {
		t.Fatalf("failed message without dlq must not be committed")
	}
}

func TestHookChainRecoversPanic(t *testing.T) {
	panicky := HookFuncs{Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
		panic("bad hook")
	}}
	_, _, _, err := NewHookChain(TraceHook(), panicky).BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var he *HookError
	if !errors.As(err, &he) || he.Code != "ERR_PANIC" {
		t.Fatalf("expected panic hook error, got %v", err)
	}
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		if d <= 0 || d > 100*time.Millisecond {
			t.Fatalf("attempt %d: %v out of range", attempt, d)
		}
	}
}
