// Package app wires the engine, admission gate, chat service and health
// reporter together and owns their startup and shutdown order.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"chatd/internal/chat"
	"chatd/internal/config"
	"chatd/internal/engine"
	"chatd/internal/gate"
	"chatd/internal/health"
	"chatd/internal/httpapi"
	"chatd/pkg/types"
)

// Options configures New.
type Options struct {
	// Config must already have defaults applied.
	Config config.Config
	// Runtime overrides the runtime selected by Config.Backend.
	Runtime engine.Runtime
	// Publisher receives gate lifecycle events; nil logs them at debug.
	Publisher gate.EventPublisher
	Logger    *zerolog.Logger
}

// App is one running service instance.
type App struct {
	cfg config.Config
	log zerolog.Logger

	Engine   *engine.Handle
	Gate     *gate.Gate
	Chat     *chat.Service
	Reporter *health.Reporter

	shutdownOnce sync.Once
	shutdownErr  error
}

var _ httpapi.Service = (*App)(nil)

// New builds an App. Nothing is loaded until Start.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	tmpl, err := chat.LookupTemplate(cfg.PromptTemplate)
	if err != nil {
		return nil, err
	}
	rt := opts.Runtime
	if rt == nil {
		if rt, err = newRuntime(cfg); err != nil {
			return nil, err
		}
	}
	pub := opts.Publisher
	if pub == nil {
		pub = gate.LogPublisher{Logger: log.With().Str("component", "gate").Logger()}
	}

	h := engine.NewHandle(engine.HandleConfig{
		Runtime:        rt,
		Logger:         &log,
		CheckModelFile: cfg.Backend != config.BackendServer && opts.Runtime == nil,
	})
	g := gate.New(gate.Config{
		Engine:        h,
		MaxQueueDepth: cfg.QueueBound(),
		DefaultWait:   cfg.QueueTimeout(),
		Publisher:     pub,
		Logger:        &log,
	})
	svc := chat.NewService(chat.Config{
		Gate:           g,
		Template:       tmpl,
		QueueTimeout:   cfg.QueueTimeout(),
		MaxTokensLimit: cfg.MaxTokensLimit,
		Logger:         &log,
	})
	return &App{
		cfg:      cfg,
		log:      log,
		Engine:   h,
		Gate:     g,
		Chat:     svc,
		Reporter: health.NewReporter(h, g),
	}, nil
}

func newRuntime(cfg config.Config) (engine.Runtime, error) {
	switch cfg.Backend {
	case config.BackendLlama:
		return engine.NewLlamaRuntime(), nil
	case config.BackendServer:
		return engine.NewServerRuntime(engine.ServerConfig{
			BaseURL:        cfg.ServerURL,
			ReadyTimeout:   cfg.ServerReadyTimeout(),
			RequestTimeout: cfg.RequestTimeout(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// Start loads the model. It must succeed before the listener starts; a
// failure is fatal and leaves the engine Failed.
func (a *App) Start() error {
	return a.Engine.Load(a.cfg.ModelPath, engine.Options{
		ContextSize: a.cfg.ContextSize,
		GPULayers:   a.cfg.GPULayerCount(),
		Threads:     a.cfg.Threads,
	})
}

// Shutdown stops admission, cancels queued requests, waits for the in-flight
// generation and then unloads the engine. It runs once; later calls return
// the first result. If ctx ends while a generation is still running the
// engine is left loaded, since freeing it under a live call is unsafe.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		a.log.Info().Int("queued", a.Gate.QueueDepth()).Int("inflight", a.Gate.Inflight()).Msg("shutting down")
		if err := a.Gate.Close(ctx); err != nil {
			a.log.Warn().Err(err).Msg("drain incomplete; engine left loaded")
			a.shutdownErr = fmt.Errorf("drain: %w", err)
			return
		}
		if err := a.Engine.Unload(); err != nil {
			a.shutdownErr = fmt.Errorf("unload: %w", err)
			return
		}
		a.log.Info().Msg("shutdown complete")
	})
	return a.shutdownErr
}

// Handler returns the HTTP API bound to this App.
func (a *App) Handler() http.Handler { return httpapi.NewMux(a) }

// Complete implements httpapi.Service.
func (a *App) Complete(ctx context.Context, req types.ChatCompletionRequest) (chat.Result, error) {
	return a.Chat.Complete(ctx, req)
}

// Health implements httpapi.Service.
func (a *App) Health() health.Report { return a.Reporter.Report() }

// Ready implements httpapi.Service.
func (a *App) Ready() bool { return a.Reporter.Ready() }
