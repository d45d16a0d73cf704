package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"gapdash/internal/api"
	"gapdash/internal/binding"
	"gapdash/internal/config"
	"gapdash/internal/engine"
	"gapdash/internal/logger"
	"gapdash/internal/metrics"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(os.Stdout, cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load the dataset before serving; charts have nothing to show without it.
	client := &http.Client{Timeout: cfg.FetchTimeout}
	ds, err := engine.Load(ctx, client, cfg.DatasetURL, log)
	if err != nil {
		log.Error("dataset load failed", "source", cfg.DatasetURL, "error", err)
		os.Exit(1)
	}

	// 2. Wire the callback graph.
	m := metrics.New(prometheus.DefaultRegisterer)
	m.SetDatasetRows(ds.Len())

	graph, err := binding.NewGraph(ds, binding.Bindings(), m, log)
	if err != nil {
		log.Error("invalid chart bindings", "error", err)
		os.Exit(1)
	}

	e := api.NewServer(api.NewHandler(graph, log), api.ServerOptions{
		Debug:     cfg.Debug,
		RateLimit: cfg.RateLimit,
		Logger:    log,
		Gatherer:  prometheus.DefaultGatherer,
	})

	// 3. Serve until interrupted.
	go func() {
		log.Info("server listening", "addr", cfg.Addr, "debug", cfg.Debug)
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
}
