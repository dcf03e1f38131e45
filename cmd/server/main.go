package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/lysyi3m/card-comb/app/api"
	"github.com/lysyi3m/card-comb/app/cards"
	"github.com/lysyi3m/card-comb/app/cfg"
	"github.com/lysyi3m/card-comb/app/feed"
	"github.com/lysyi3m/card-comb/app/provider"
	"github.com/lysyi3m/card-comb/app/tasks"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if config == nil {
		// Help was shown
		return
	}

	setupLogger(config.Debug)

	slog.Info("Starting Card Comb server", "version", config.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Discover providers
	registry := provider.NewRegistry(afero.NewOsFs(), config.ProvidersDir,
		provider.HTTPDialer(config.UserAgent), config.QueryTimeout)
	if err := registry.Run(); err != nil {
		slog.Error("Failed to load provider descriptors", "error", err)
		os.Exit(1)
	}
	slog.Info("Provider descriptors loaded",
		"dir", config.ProvidersDir,
		"descriptors", registry.DescriptorCount(),
		"handles", len(registry.Snapshot()))

	if config.WatchProviders {
		go func() {
			if err := registry.Watch(ctx, 500*time.Millisecond); err != nil {
				slog.Error("Provider watcher stopped", "error", err)
			}
		}()
	}

	// Query workers
	pool := tasks.NewPool(config.WorkerCount, config.QueueSize)
	pool.Start()
	defer pool.Stop()
	slog.Info("Query worker pool started", "workers", pool.WorkerCount(), "queue_size", config.QueueSize)

	marshaller := feed.NewMarshaller(feed.NewThumbnailResolver(nil), feed.NewSanitizer())
	pipeline := tasks.NewPipeline(pool, marshaller)

	apiHandler := api.NewHandler(registry, pipeline, cards.NewRoundRobin(config.SuggestedApps), config.Version)
	server := api.NewServer(apiHandler, config.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: config.QueryTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", config.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Worker pool is stopped via defer
	slog.Info("Card Comb server shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
