package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"scavenge/internal/catalog"
	"scavenge/internal/config"
	"scavenge/internal/console"
	"scavenge/internal/game"
	"scavenge/internal/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg, env, err := config.FromEnv()
	if err != nil {
		return err
	}

	// Keep engine logs off the prompt.
	logFile, err := os.OpenFile("scavenge.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := log.New(logFile, "", log.LstdFlags)

	shutdownTracing, err := tracing.Setup(ctx, "scavenge-console", env.OTelEndpoint, env.OTelEnabled)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.WithoutCancel(ctx)) }()

	var cat *catalog.Catalog
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Load(cfg.Catalog.Path, logger)
	} else {
		cat, err = catalog.Default(logger)
	}
	if err != nil {
		return err
	}

	repo, closeRepo, err := game.OpenRepository(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = closeRepo() }()

	engine, err := game.New(game.Options{Config: cfg, Catalog: cat, Repo: repo, Logger: logger})
	if err != nil {
		return err
	}
	host := game.NewHost(engine, cfg.Host.Tick)
	c := console.New(host, os.Stdout)
	defer c.Attach()()

	// Attach first so offline catch-up is narrated.
	if err := engine.Init(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	hostDone := make(chan error, 1)
	go func() { hostDone <- host.Run(runCtx) }()

	fmt.Println("scavenge: the wasteland waits.")
	consoleDone := make(chan error, 1)
	go func() { consoleDone <- c.Run(runCtx, os.Stdin) }()

	select {
	case <-ctx.Done():
	case err = <-consoleDone:
	}
	cancel()
	if herr := <-hostDone; herr != nil && err == nil {
		err = herr
	}
	return err
}
