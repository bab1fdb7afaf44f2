package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scavenge/internal/catalog"
	"scavenge/internal/config"
	"scavenge/internal/game"
	"scavenge/internal/serverapp"
	"scavenge/internal/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("scavenge: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, env, err := config.FromEnv()
	if err != nil {
		return err
	}
	logger := log.Default()

	shutdownTracing, err := tracing.Setup(ctx, "scavenge", env.OTelEndpoint, env.OTelEnabled)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.Printf("[tracing] shutdown: %v", err)
		}
	}()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			logger.Printf("[storage] close: %v", err)
		}
	}()

	hostDone := make(chan error, 1)
	go func() { hostDone <- a.host.Run(ctx) }()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Printf("listening on http://localhost%s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("[server] shutdown: %v", err)
	}
	// The host checkpoints once ctx is done.
	return <-hostDone
}

type app struct {
	engine  *game.Engine
	host    *game.Host
	handler http.Handler
	close   func() error
}

func buildApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*app, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Load(cfg.Catalog.Path, logger)
	} else {
		cat, err = catalog.Default(logger)
	}
	if err != nil {
		return nil, err
	}

	repo, closeRepo, err := game.OpenRepository(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	engine, err := game.New(game.Options{
		Config:  cfg,
		Catalog: cat,
		Repo:    repo,
		Logger:  logger,
	})
	if err == nil {
		err = engine.Init(ctx)
	}
	if err != nil {
		_ = closeRepo()
		return nil, err
	}

	host := game.NewHost(engine, cfg.Host.Tick)
	handler, err := serverapp.NewHandler(serverapp.Options{Host: host, Logger: logger})
	if err != nil {
		_ = closeRepo()
		return nil, err
	}
	return &app{engine: engine, host: host, handler: handler, close: closeRepo}, nil
}
