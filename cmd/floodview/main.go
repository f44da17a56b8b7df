package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/floodview/internal/adapter/backend"
	"github.com/couchcryptid/floodview/internal/adapter/fixtures"
	httpadapter "github.com/couchcryptid/floodview/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/floodview/internal/adapter/kafka"
	"github.com/couchcryptid/floodview/internal/adapter/posthog"
	"github.com/couchcryptid/floodview/internal/annotation"
	"github.com/couchcryptid/floodview/internal/config"
	"github.com/couchcryptid/floodview/internal/observability"
	"github.com/couchcryptid/floodview/internal/pipeline"
	"github.com/couchcryptid/floodview/internal/view"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctrl := view.New(view.NewScene(), view.BaseMaps(cfg.BingKey, cfg.WMSURL), logger, metrics)

	client, err := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, metrics, logger)
	if err != nil {
		logger.Error("failed to create backend client", "error", err)
		os.Exit(1)
	}
	resolver, err := backend.NewCachedImageResolver(client, cfg.ImageIDCacheSize, metrics)
	if err != nil {
		logger.Error("failed to create image id cache", "error", err)
		os.Exit(1)
	}

	// Publishing and analytics are feature-flagged; nil interfaces disable them.
	var publisher annotation.Publisher
	var writer *kafkaadapter.Writer
	if cfg.PublishingEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("annotation publishing enabled", "topic", cfg.KafkaAnnotationTopic)
	} else {
		logger.Info("annotation publishing disabled")
	}

	var tracker *posthog.Tracker
	var svcTracker annotation.Tracker
	handlers := httpadapter.Handlers{View: ctrl, Forecast: client}
	if cfg.AnalyticsEnabled() {
		tracker, err = posthog.NewTracker(cfg.PostHogKey, cfg.PostHogHost, logger)
		if err != nil {
			logger.Error("failed to create analytics client", "error", err)
			os.Exit(1)
		}
		handlers.Tracker = tracker
		svcTracker = tracker
		logger.Info("analytics enabled", "host", cfg.PostHogHost)
	}

	svc := annotation.NewService(client, resolver, ctrl, publisher, svcTracker, logger, metrics)
	handlers.Annotations = svc

	p := pipeline.New(fixtures.NewClient(cfg.DataURL, cfg.FetchTimeout, metrics, logger), ctrl,
		pipeline.Defaults{Model: cfg.DefaultModel, AOI: cfg.DefaultAOI}, logger, metrics)
	p.OnReady(svc.RefreshOverlay)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, handlers, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Load catalogs and select the initial view.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("catalog load error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if tracker != nil {
		if err := tracker.Close(); err != nil {
			logger.Error("analytics close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
