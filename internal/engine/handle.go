package engine

import (
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HandleConfig configures a Handle.
type HandleConfig struct {
	Runtime Runtime
	Logger  *zerolog.Logger
	// CheckModelFile resolves and verifies the model path on disk before
	// handing it to the runtime. Runtimes that host the model elsewhere
	// (llama-server) leave it unset.
	CheckModelFile bool
}

// Handle owns the lifecycle of the process-wide inference capability:
// Unloaded -> Loading -> Ready -> (Serving)* -> Unloading -> Unloaded.
type Handle struct {
	rt        Runtime
	log       zerolog.Logger
	checkFile bool

	loaded    atomic.Bool
	state     atomic.Int32
	modelPath atomic.Value // string
	loadedAt  atomic.Int64
}

// NewHandle constructs an unloaded Handle.
func NewHandle(cfg HandleConfig) *Handle {
	h := &Handle{rt: cfg.Runtime, checkFile: cfg.CheckModelFile, log: zerolog.Nop()}
	if cfg.Logger != nil {
		h.log = cfg.Logger.With().Str("component", "engine").Logger()
	}
	h.modelPath.Store("")
	return h
}

// Load brings the engine to Ready. It may succeed at most once; any failure
// leaves the handle Failed and is returned as a *LoadError.
func (h *Handle) Load(modelPath string, opts Options) error {
	if !h.loaded.CompareAndSwap(false, true) {
		return &LoadError{Path: modelPath, Err: ErrAlreadyLoaded}
	}
	h.state.Store(int32(StateLoading))
	path := modelPath
	if h.checkFile {
		resolved, err := ResolveModelPath(modelPath)
		if err != nil {
			h.state.Store(int32(StateFailed))
			h.log.Error().Err(err).Str("model_path", modelPath).Msg("model file unavailable")
			return &LoadError{Path: modelPath, Err: err}
		}
		path = resolved
	}
	h.log.Info().Str("model_path", path).Int("ctx", opts.ContextSize).Int("gpu_layers", opts.GPULayers).
		Int("threads", opts.Threads).Msg("loading model")
	start := time.Now()
	if err := h.rt.Load(path, opts); err != nil {
		h.state.Store(int32(StateFailed))
		h.log.Error().Err(err).Str("model_path", path).Msg("model load failed")
		return &LoadError{Path: path, Err: err}
	}
	h.modelPath.Store(path)
	h.loadedAt.Store(time.Now().Unix())
	h.state.Store(int32(StateReady))
	h.log.Info().Str("model", filepath.Base(path)).Dur("dur", time.Since(start)).Msg("model loaded")
	return nil
}

// Execute runs one generation. It must not be called concurrently; a second
// concurrent call fails with ErrReentrant instead of reaching the runtime.
func (h *Handle) Execute(prompt string, params Params) (Output, error) {
	if !h.state.CompareAndSwap(int32(StateReady), int32(StateServing)) {
		if State(h.state.Load()) == StateServing {
			return Output{}, ErrReentrant
		}
		return Output{}, ErrNotReady
	}
	defer h.state.Store(int32(StateReady))
	out, err := h.rt.Generate(prompt, params)
	if err != nil {
		return Output{}, &InferenceError{Err: err}
	}
	return out, nil
}

// Unload releases the runtime. It is idempotent: calling it on a handle
// that is not Ready is a no-op. It refuses to run under an executing call.
func (h *Handle) Unload() error {
	if !h.state.CompareAndSwap(int32(StateReady), int32(StateUnloading)) {
		if State(h.state.Load()) == StateServing {
			return ErrServing
		}
		return nil
	}
	err := h.rt.Close()
	h.state.Store(int32(StateUnloaded))
	if err != nil {
		h.log.Warn().Err(err).Msg("runtime close failed")
		return err
	}
	h.log.Info().Msg("model unloaded")
	return nil
}

// State returns the current lifecycle state.
func (h *Handle) State() State { return State(h.state.Load()) }

// Healthy reports whether the engine can accept work.
func (h *Handle) Healthy() bool {
	s := h.State()
	return s == StateReady || s == StateServing
}

// ModelPath returns the loaded model path, or "" before a successful Load.
func (h *Handle) ModelPath() string { return h.modelPath.Load().(string) }

// ModelName returns the base name of the loaded model file.
func (h *Handle) ModelName() string {
	if p := h.ModelPath(); p != "" {
		return filepath.Base(p)
	}
	return ""
}

// LoadedAt returns when the model finished loading, or the zero time.
func (h *Handle) LoadedAt() time.Time {
	if s := h.loadedAt.Load(); s != 0 {
		return time.Unix(s, 0)
	}
	return time.Time{}
}
