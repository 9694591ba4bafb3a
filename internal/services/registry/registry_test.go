package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"KronosAlign/internal/domain/models"
)

type fakeRuntime struct {
	loaded   []string
	loadErr  error
	healthy  bool
	inflight int32
	maxSeen  int32
}

func (f *fakeRuntime) LoadModel(_ context.Context, p models.ModelPreset, _ string) error {
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = append(f.loaded, p.Key)
	return nil
}

func (f *fakeRuntime) Health(context.Context) error {
	if !f.healthy {
		return errors.New("down")
	}
	return nil
}

func (f *fakeRuntime) Forecast(_ context.Context, _ models.Series, _, _ []time.Time, horizon int, _ models.SamplingParams) (models.Series, error) {
	n := atomic.AddInt32(&f.inflight, 1)
	for {
		m := atomic.LoadInt32(&f.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxSeen, m, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	atomic.AddInt32(&f.inflight, -1)
	return make(models.Series, horizon), nil
}

func TestForecastBeforeLoad(t *testing.T) {
	r := New(&fakeRuntime{}, nil)
	_, err := r.Forecast(context.Background(), nil, nil, nil, 1, models.DefaultSamplingParams())
	if !errors.Is(err, models.ErrModelNotLoaded) {
		t.Fatalf("expected ErrModelNotLoaded, got %v", err)
	}
}

func TestLoadUnknownAndFailure(t *testing.T) {
	rt := &fakeRuntime{}
	r := New(rt, nil)
	if _, err := r.Load(context.Background(), "kronos-huge", "cpu"); err == nil {
		t.Fatalf("expected unsupported model error")
	}
	rt.loadErr = errors.New("oom")
	if _, err := r.Load(context.Background(), "kronos-mini", "cpu"); err == nil || r.Current() != nil {
		t.Fatalf("failed load must not install a handle")
	}
}

func TestLoadReplacesHandle(t *testing.T) {
	rt := &fakeRuntime{healthy: true}
	r := New(rt, nil)
	if _, err := r.Load(context.Background(), "kronos-small", ""); err != nil {
		t.Fatalf("load: %v", err)
	}
	if h := r.Current(); h == nil || h.Preset.Key != "kronos-small" || h.Device != "cpu" {
		t.Fatalf("handle=%+v", h)
	}
	if _, err := r.Load(context.Background(), "kronos-base", "cuda:0"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	st := r.Status(context.Background())
	if !st.Available || !st.Loaded || st.CurrentModel.Name != "Kronos-base" || st.CurrentModel.Device != "cuda:0" {
		t.Fatalf("status=%+v", st)
	}
}

func TestStatusUnavailable(t *testing.T) {
	st := New(&fakeRuntime{}, nil).Status(context.Background())
	if st.Available || st.Loaded || st.CurrentModel != nil {
		t.Fatalf("status=%+v", st)
	}
}

func TestForecastIsSerialized(t *testing.T) {
	rt := &fakeRuntime{}
	r := New(rt, nil)
	if _, err := r.Load(context.Background(), "kronos-mini", "cpu"); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Forecast(context.Background(), make(models.Series, 3), nil, nil, 2, models.DefaultSamplingParams()); err != nil {
				t.Errorf("forecast: %v", err)
			}
		}()
	}
	wg.Wait()
	if atomic.LoadInt32(&rt.maxSeen) != 1 {
		t.Fatalf("concurrent forecasts observed: %d", rt.maxSeen)
	}
}

func TestSortedPresets(t *testing.T) {
	p := SortedPresets()
	if len(p) != 3 || p[0].Key != "kronos-base" || p[2].Key != "kronos-small" {
		t.Fatalf("presets=%v", p)
	}
}
