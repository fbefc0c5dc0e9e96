package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	v1 "github.com/jaennil/guide_helper/backend/tilerender/internal/infrastructure/http/v1"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/infrastructure/render"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/repository/features"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/usecase"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/config"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/http_server"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/logger"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/telemetry"
)

func Run(cfg *config.Config) {
	l := logger.NewZapLogger(cfg.Logger)
	defer func() { _ = l.Sync() }()

	l.Info("app config", "cfg", cfg)

	ctx := logger.WithLogger(context.Background(), l)

	// Initialize OpenTelemetry if enabled
	var shutdownTelemetry func(context.Context) error
	if cfg.Telemetry.Enabled {
		var err error
		shutdownTelemetry, err = telemetry.InitTracer(telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		}, l)
		if err != nil {
			l.Fatal("failed to initialize telemetry", "error", err)
		}
		l.Info("telemetry initialized", "service", cfg.Telemetry.ServiceName)
	}

	source, err := features.Open(cfg.Source, cfg.Redis, l.Named("features"))
	if err != nil {
		l.Fatal("failed to open feature source", "kind", cfg.Source.Kind, "error", err)
	}
	l.Info("feature source opened", "kind", cfg.Source.Kind)

	renderer, err := render.New(cfg.Render.TileSize, cfg.Render.FontSize)
	if err != nil {
		l.Fatal("failed to initialize renderer", "error", err)
	}

	x, y := cache.CenterAt(cfg.View.CenterLon, cfg.View.CenterLat, cfg.View.Zoom)
	store := cache.NewStore(cache.View{
		CenterX:  x,
		CenterY:  y,
		Zoom:     cfg.View.Zoom,
		MinZoom:  cfg.Render.MinZoom,
		TileSize: cfg.Render.TileSize,
	}, cfg.View.Width, cfg.View.Height)

	notifier := usecase.NewNotifier()
	worker := usecase.NewRenderWorker(store, source, renderer, notifier, usecase.WorkerConfig{
		DataMaxZoom:  cfg.Render.DataMaxZoom,
		Workers:      cfg.Render.Workers,
		IdleInterval: cfg.Render.IdleInterval,
		BusyInterval: cfg.Render.BusyInterval,
	}, l.Named("worker"))
	worker.Start(ctx)

	h := handler.NewHandler(
		validator.New(),
		usecase.NewViewUseCase(store, worker, l),
		usecase.NewFrameUseCase(store, l),
		usecase.NewTileUseCase(store, l),
		notifier,
	)
	router := v1.NewRouter(h, l, cfg.Telemetry.Enabled, cfg.Telemetry.ServiceName)

	// closing the notifier ends open repaint streams once Shutdown starts
	httpServer := http_server.NewServer(cfg.HTTP.Server, router, notifier.Close)

	go func() {
		l.Info("starting http server...", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("http server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	l.Info("received shutdown signal", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	l.Info("shutting down http server...", "address", httpServer.Addr)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error("http server shutdown failed", "error", err)
	} else {
		l.Info("http_server shutdown completed")
	}

	// the worker must be joined before any image is released
	worker.Stop()
	store.Release()

	if err := renderer.Close(); err != nil {
		l.Error("failed to close renderer", "error", err)
	}
	if err := source.Close(); err != nil {
		l.Error("failed to close feature source", "error", err)
	}

	if shutdownTelemetry != nil {
		telemetryCtx, telemetryCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer telemetryCancel()

		if err := shutdownTelemetry(telemetryCtx); err != nil {
			l.Error("failed to shutdown telemetry", "error", err)
		}
	}

	l.Info("application shutdown completed")
}
