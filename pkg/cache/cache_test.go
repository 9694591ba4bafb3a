package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type point struct {
	X int     `json:"x"`
	Y float64 `json:"y"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()

	if err := mc.Set(ctx, "p", point{X: 1, Y: 2.5}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got point
	if err := mc.Get(ctx, "p", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != (point{X: 1, Y: 2.5}) {
		t.Fatalf("got %+v", got)
	}

	_ = mc.Set(ctx, "s", "plain", time.Minute)
	var s string
	if err := mc.Get(ctx, "s", &s); err != nil || s != "plain" {
		t.Fatalf("string get: %q %v", s, err)
	}

	if err := mc.Get(ctx, "missing", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }
	_ = mc.Set(ctx, "k", 1, time.Second)

	now = now.Add(2 * time.Second)
	var v int
	if err := mc.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}
	if mc.Len() != 0 {
		t.Fatalf("expired entry not removed")
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryCleanup(0))
	defer mc.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { now = now.Add(time.Millisecond); return now }

	_ = mc.Set(ctx, "a", 1, 0)
	_ = mc.Set(ctx, "b", 2, 0)
	var v int
	_ = mc.Get(ctx, "a", &v)
	_ = mc.Set(ctx, "c", 3, 0)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatalf("a and c should remain")
	}
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()

	_ = mc.Set(ctx, "series:abc:1", 1, 0)
	_ = mc.Set(ctx, "series:abc:2", 1, 0)
	_ = mc.Set(ctx, "series:def:1", 1, 0)
	if err := mc.DeleteByPattern(ctx, BuildPattern("series:abc:")); err != nil {
		t.Fatal(err)
	}
	if mc.Len() != 1 {
		t.Fatalf("expected one key left, got %d", mc.Len())
	}
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()

	if ok, _ := mc.TryLock(ctx, "job", time.Minute); !ok {
		t.Fatalf("first lock must succeed")
	}
	if ok, _ := mc.TryLock(ctx, "job", time.Minute); ok {
		t.Fatalf("second lock must fail")
	}
	_ = mc.Unlock(ctx, "job")
	if ok, _ := mc.TryLock(ctx, "job", time.Minute); !ok {
		t.Fatalf("lock after unlock must succeed")
	}
}

func TestLayeredCachePromotesFromRemote(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache(WithMemoryCleanup(0))
	lc := NewLayeredCache(remote, WithLayeredMemorySize(4))
	defer lc.Close()

	_ = remote.Set(ctx, "p", point{X: 7}, time.Minute)
	var got point
	if err := lc.Get(ctx, "p", &got); err != nil || got.X != 7 {
		t.Fatalf("get through layer: %+v %v", got, err)
	}
	if lc.memCache.Len() != 1 {
		t.Fatalf("value not promoted to L1")
	}

	_ = lc.Delete(ctx, "p")
	if err := lc.Get(ctx, "p", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestGenerateKeyWithParams(t *testing.T) {
	if got := GenerateKeyWithParams("series", "abc", 42); got != "series:abc:42" {
		t.Fatalf("got %s", got)
	}
}
