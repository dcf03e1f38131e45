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

	"github.com/gin-gonic/gin"
	"github.com/jessevdk/go-flags"

	"github.com/lysyi3m/card-comb/app/newsfeed"
	"github.com/lysyi3m/card-comb/app/shard"
	"github.com/lysyi3m/card-comb/app/transport"
)

// Config holds the news provider configuration from flags and environment variables
type Config struct {
	FeedURLs        []string `long:"feed-url" env:"FEED_URLS" env-delim:"," required:"true" description:"RSS/Atom feed URL (repeatable)"`
	Port            string   `long:"port" env:"PORT" default:"9001" description:"HTTP server port"`
	ShardPath       string   `long:"shard-path" env:"SHARD_PATH" default:"./news.shard" description:"Shard file receiving item images"`
	MaxItems        int      `long:"max-items" env:"MAX_ITEMS" default:"20" description:"Maximum number of items served"`
	Timeout         int      `long:"timeout" env:"FETCH_TIMEOUT" default:"30" description:"Fetch timeout in seconds"`
	RefreshInterval int      `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"900" description:"Feed refresh interval in seconds (0 disables periodic refresh)"`
	FetchLimit      int      `long:"fetch-limit" env:"FETCH_LIMIT" default:"4" description:"Maximum number of concurrent feed fetches"`
	ExtractContent  bool     `long:"extract-content" env:"EXTRACT_CONTENT" description:"Extract a synopsis from the article page when the feed has none"`
	UserAgent       string   `long:"user-agent" env:"USER_AGENT" default:"Card Comb News/1.0" description:"User agent string for HTTP requests"`
	Debug           bool     `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func main() {
	config := loadConfig()
	if config == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if config.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting news provider", "feeds", len(config.FeedURLs), "shard", config.ShardPath)

	writer, err := shard.Create(config.ShardPath)
	if err != nil {
		slog.Error("Failed to create shard", "path", config.ShardPath, "error", err)
		os.Exit(1)
	}
	defer writer.Close()

	fetcher := newsfeed.NewFetcher(&http.Client{}, config.UserAgent, time.Duration(config.Timeout)*time.Second)
	service := newsfeed.NewService(newsfeed.Config{
		FeedURLs:       config.FeedURLs,
		MaxItems:       config.MaxItems,
		ExtractContent: config.ExtractContent,
		FetchLimit:     config.FetchLimit,
	}, fetcher, newsfeed.NewParser(), newsfeed.NewContentExtractor(), writer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go service.Start(ctx, time.Duration(config.RefreshInterval)*time.Second)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	transport.Register(r, service.Methods())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"last_refresh": service.LastRefresh().Format(time.RFC3339),
		})
	})

	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("News provider shutdown complete")
}

func loadConfig() *Config {
	var config Config

	parser := flags.NewParser(&config, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		fmt.Fprintf(os.Stderr, "Failed to parse configuration: %v\n", err)
		os.Exit(1)
	}

	return &config
}
