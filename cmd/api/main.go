package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/aritzm/guidepost/internal/adapters/http"
	natsadapter "github.com/aritzm/guidepost/internal/adapters/nats"
	"github.com/aritzm/guidepost/internal/adapters/postgres"
	"github.com/aritzm/guidepost/internal/adapters/valkey"
	"github.com/aritzm/guidepost/internal/core/ports"
	"github.com/aritzm/guidepost/internal/core/usecases"
	"github.com/aritzm/guidepost/internal/pkg/config"
	"github.com/aritzm/guidepost/internal/pkg/logging"
	"github.com/aritzm/guidepost/internal/pkg/metrics"
	"github.com/aritzm/guidepost/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("guidepost-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		cacheSvc = cache
		defer cache.Close()
	}

	// NATS
	var publisher ports.EventPublisher
	var notifier ports.NotificationService
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		publisher = pub
		defer pub.Close()
	}

	// Raw NATS connection for the WebSocket relay and push notifier
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		notifier = natsadapter.NewPushNotifier(natsConn)
	}

	// Repos
	poiRepo := postgres.NewPOIRepo(db)
	trackRepo := postgres.NewTrackRepo(db)
	sessionRepo := postgres.NewSessionRepo(db)
	positionRepo := postgres.NewPositionRepo(db)
	eventRepo := postgres.NewTriggerEventRepo(db)

	// Use cases
	poiSvc := usecases.NewPOIService(poiRepo, cacheSvc)
	guideSvc := usecases.NewAudioGuideService(trackRepo, cacheSvc)
	tourSvc := usecases.NewGuideService(sessionRepo, positionRepo, eventRepo, guideSvc, publisher, cacheSvc, notifier)

	deps := &http.Dependencies{
		POIs:   poiSvc,
		Guides: guideSvc,
		Tours:  tourSvc,
		Events: publisher,
		NATS:   natsConn,
		DB:     db,
		Cache:  cache,
	}

	// Keep pool gauges fresh for Prometheus scrapes
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "GuidePost API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.guidepost.tours",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
