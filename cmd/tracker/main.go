package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	natsadapter "github.com/aritzm/guidepost/internal/adapters/nats"
	"github.com/aritzm/guidepost/internal/adapters/postgres"
	"github.com/aritzm/guidepost/internal/adapters/valkey"
	"github.com/aritzm/guidepost/internal/core/domain"
	"github.com/aritzm/guidepost/internal/core/ports"
	"github.com/aritzm/guidepost/internal/core/usecases"
	"github.com/aritzm/guidepost/internal/pkg/config"
	"github.com/aritzm/guidepost/internal/pkg/logging"
	"github.com/aritzm/guidepost/internal/pkg/metrics"
)

// The tracker drains the position stream and runs the trigger pipeline for
// clients that publish GPS samples over NATS instead of the HTTP endpoint.
func main() {
	cfg, err := config.Load("guidepost-tracker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		cacheSvc = cache
		defer cache.Close()
	}

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	publisher = pub
	defer pub.Close()

	var notifier ports.NotificationService
	if nc, err := natsadapter.RawConn(cfg.NATS.URL); err == nil {
		notifier = natsadapter.NewPushNotifier(nc)
	}

	trackRepo := postgres.NewTrackRepo(db)
	sessionRepo := postgres.NewSessionRepo(db)
	positionRepo := postgres.NewPositionRepo(db)
	eventRepo := postgres.NewTriggerEventRepo(db)

	guideSvc := usecases.NewAudioGuideService(trackRepo, cacheSvc)
	tourSvc := usecases.NewGuideService(sessionRepo, positionRepo, eventRepo, guideSvc, publisher, cacheSvc, notifier)

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribePositionSamples(ctx, func(ctx context.Context, ps *domain.PositionSample) error {
		start := time.Now()
		fired, err := tourSvc.ProcessPositionSample(ctx, ps)
		if err != nil {
			slog.Warn("process position sample", "session_id", ps.SessionID, "error", err)
			return err
		}
		metrics.PositionsProcessed.WithLabelValues("nats").Inc()
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
		for _, ev := range fired {
			metrics.TriggersFired.WithLabelValues(strconv.FormatBool(ev.AutoPlayed)).Inc()
		}
		if len(fired) > 0 {
			slog.Info("triggers fired",
				"session_id", ps.SessionID,
				"count", len(fired),
				"took", time.Since(start).String())
		}
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe positions: %v", err)
	}

	slog.Info("tracker started, draining position stream")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down tracker", "signal", sig.String())
	cancel()
	// Let in-flight handlers finish acking
	time.Sleep(2 * time.Second)
}
