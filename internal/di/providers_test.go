package di

import (
	"context"
	"testing"

	"KronosAlign/pkg/config"
	"KronosAlign/pkg/metrics"
	"KronosAlign/pkg/queue"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("environment: test\ndata:\n  root: " + t.TempDir() + "\npersistence:\n  json: true\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return cfg
}

func TestOptionalInfrastructureIsNil(t *testing.T) {
	cfg := testConfig(t)

	producer, err := ProvideKafkaProducer(cfg)
	if err != nil || producer != nil {
		t.Fatalf("producer=%v err=%v", producer, err)
	}
	rc, err := ProvideRedisCache(cfg)
	if err != nil || rc != nil {
		t.Fatalf("redis=%v err=%v", rc, err)
	}
	ch, err := ProvideClickHouseClient(cfg)
	if err != nil || ch != nil {
		t.Fatalf("clickhouse=%v err=%v", ch, err)
	}
	idx, err := ProvideSQLiteRunIndex(cfg, nil)
	if err != nil || idx != nil {
		t.Fatalf("sqlite=%v err=%v", idx, err)
	}
	if runs := ProvideRunIndex(nil, nil); runs != nil {
		t.Fatalf("run index should be nil, got %T", runs)
	}
	if _, ok := ProvideMetrics(cfg).(metrics.Noop); !ok {
		t.Fatalf("metrics disabled should be a noop")
	}
	if ProvideRateLimiter(cfg) != nil {
		t.Fatalf("rate limiter should be off without per_second")
	}
	sched, err := ProvideScheduler(cfg, nil, nil, nil)
	if err != nil || sched != nil {
		t.Fatalf("scheduler=%v err=%v", sched, err)
	}
}

func TestRecordStoresAndQueueFallback(t *testing.T) {
	cfg := testConfig(t)
	cfg.Persistence.SQLite.Enabled = true

	idx, err := ProvideSQLiteRunIndex(cfg, nil)
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer idx.Close()

	stores := ProvideRecordStores(cfg, nil, nil, nil, idx)
	if len(stores) != 2 || stores[0].Name() != "json" || stores[1].Name() != "sqlite" {
		names := make([]string, 0, len(stores))
		for _, s := range stores {
			names = append(names, s.Name())
		}
		t.Fatalf("stores=%v", names)
	}
	if ProvideRunIndex(idx, nil) == nil {
		t.Fatalf("run index missing")
	}

	q := ProvideJobQueue(cfg, nil, nil)
	if _, ok := q.(*queue.LocalQueue); !ok {
		t.Fatalf("queue=%T, want local fallback", q)
	}
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
