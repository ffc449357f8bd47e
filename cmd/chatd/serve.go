package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"chatd/internal/app"
	"chatd/internal/config"
	"chatd/internal/engine"
	"chatd/internal/httpapi"
)

func runServe(ctx context.Context, cfg config.Config) error {
	log := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("addr", cfg.Addr).Str("backend", cfg.Backend).Str("model_path", cfg.ModelPath).
		Bool("llama_built", engine.LlamaBuilt()).Str("version", version).Msg("starting chatd")

	a, err := app.New(app.Options{Config: cfg, Logger: &log})
	if err != nil {
		return err
	}
	if err := a.Start(); err != nil {
		log.Error().Err(err).Msg("model load failed")
		return err
	}

	// Handlers see baseCtx; it is canceled only after the drain so the
	// in-flight request can still answer its client.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetRequestTimeout(cfg.RequestTimeout())
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("model", a.Engine.ModelName()).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutdown requested")
		shCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		defer cancelBase()

		var sg errgroup.Group
		sg.Go(func() error { return srv.Shutdown(shCtx) })
		sg.Go(func() error { return a.Shutdown(shCtx) })
		if err := sg.Wait(); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown incomplete")
			return err
		}
		log.Info().Msg("bye")
		return nil
	})
	return g.Wait()
}
