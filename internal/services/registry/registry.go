package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"KronosAlign/internal/domain/models"
	domsvc "KronosAlign/internal/domain/service"
	applogger "KronosAlign/pkg/logger"
)

// Presets lists the models that can be loaded, keyed by model key.
var Presets = map[string]models.ModelPreset{
	"kronos-mini": {
		Key:           "kronos-mini",
		Name:          "Kronos-mini",
		ModelID:       "NeoQuasar/Kronos-mini",
		TokenizerID:   "NeoQuasar/Kronos-Tokenizer-2k",
		ContextLength: 2048,
		Params:        "4.1M",
		Description:   "Lightweight model, suitable for fast prediction",
	},
	"kronos-small": {
		Key:           "kronos-small",
		Name:          "Kronos-small",
		ModelID:       "NeoQuasar/Kronos-small",
		TokenizerID:   "NeoQuasar/Kronos-Tokenizer-base",
		ContextLength: 512,
		Params:        "24.7M",
		Description:   "Small model, balanced performance and speed",
	},
	"kronos-base": {
		Key:           "kronos-base",
		Name:          "Kronos-base",
		ModelID:       "NeoQuasar/Kronos-base",
		TokenizerID:   "NeoQuasar/Kronos-Tokenizer-base",
		ContextLength: 512,
		Params:        "102.3M",
		Description:   "Base model, provides better prediction quality",
	},
}

// SortedPresets returns the presets ordered by key.
func SortedPresets() []models.ModelPreset {
	out := make([]models.ModelPreset, 0, len(Presets))
	for _, p := range Presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Handle is the immutable description of a loaded model.
type Handle struct {
	Preset   models.ModelPreset
	Device   string
	LoadedAt time.Time
}

// Registry owns the process-wide model handle. Load replaces the handle
// atomically; Forecast calls are serialized so at most one inference uses the
// shared model at a time.
type Registry struct {
	runtime Runtime
	handle  atomic.Pointer[Handle]
	mu      sync.Mutex
	l       *applogger.Logger
	now     func() time.Time
}

// Runtime is the model backend the registry drives.
type Runtime interface {
	domsvc.Forecaster
	domsvc.ModelLoader
}

func New(rt Runtime, l *applogger.Logger) *Registry {
	return &Registry{runtime: rt, l: l, now: time.Now}
}

// Load loads the preset named key on device and swaps it in.
func (r *Registry) Load(ctx context.Context, key, device string) (*Handle, error) {
	preset, ok := Presets[key]
	if !ok {
		return nil, fmt.Errorf("unsupported model: %s", key)
	}
	if device == "" {
		device = "cpu"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.runtime.LoadModel(ctx, preset, device); err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	h := &Handle{Preset: preset, Device: device, LoadedAt: r.now().UTC()}
	r.handle.Store(h)
	if r.l != nil {
		r.l.Info("model loaded",
			applogger.String("model", preset.Name),
			applogger.String("device", device),
		)
	}
	return h, nil
}

// Current returns the loaded handle or nil.
func (r *Registry) Current() *Handle { return r.handle.Load() }

// ModelName returns the display name of the loaded model, or "".
func (r *Registry) ModelName() string {
	if h := r.handle.Load(); h != nil {
		return h.Preset.Name
	}
	return ""
}

// Forecast implements domain service.Forecaster over the loaded model.
func (r *Registry) Forecast(ctx context.Context, contextRows models.Series, contextTs, forecastTs []time.Time, horizon int, params models.SamplingParams) (models.Series, error) {
	h := r.handle.Load()
	if h == nil {
		return nil, models.ErrModelNotLoaded
	}
	if len(contextRows) > h.Preset.ContextLength && r.l != nil {
		r.l.Warn("lookback exceeds model context length, older rows will be truncated by the model",
			applogger.String("model", h.Preset.Name),
			applogger.Int("lookback", len(contextRows)),
			applogger.Int("context_length", h.Preset.ContextLength),
		)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runtime.Forecast(ctx, contextRows, contextTs, forecastTs, horizon, params)
}

// Status reports sidecar availability and the loaded model.
func (r *Registry) Status(ctx context.Context) models.ModelStatus {
	st := models.ModelStatus{Available: r.runtime.Health(ctx) == nil}
	h := r.handle.Load()
	switch {
	case h != nil:
		st.Loaded = true
		st.Message = "Model loaded and available"
		st.CurrentModel = &models.LoadedModel{
			Key:      h.Preset.Key,
			Name:     h.Preset.Name,
			Device:   h.Device,
			LoadedAt: h.LoadedAt,
		}
	case st.Available:
		st.Message = "Model runtime available but not loaded"
	default:
		st.Message = "Model runtime not available"
	}
	return st
}
