package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/aritzm/guidepost/internal/adapters/nats"
	"github.com/aritzm/guidepost/internal/adapters/postgres"
	"github.com/aritzm/guidepost/internal/adapters/valkey"
	"github.com/aritzm/guidepost/internal/core/domain"
	"github.com/aritzm/guidepost/internal/core/ports"
	"github.com/aritzm/guidepost/internal/pkg/config"
	"github.com/aritzm/guidepost/internal/pkg/logging"
	"github.com/aritzm/guidepost/internal/workflows"
)

// The notifier runs a Temporal worker for trigger push delivery and starts
// one workflow per fired trigger coming off the JetStream trigger stream.
func main() {
	cfg, err := config.Load("guidepost-notifier")
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
		slog.Warn("valkey unavailable, delivery claims disabled", "error", err)
	} else {
		cacheSvc = cache
		defer cache.Close()
	}

	var notifier ports.NotificationService
	nc, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats push conn unavailable", "error", err)
	} else {
		notifier = natsadapter.NewPushNotifier(nc)
		defer nc.Drain()
	}

	// Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.TriggerNotificationWorkflow)
	w.RegisterActivity(&workflows.NotificationActivities{
		Tracks:   postgres.NewTrackRepo(db),
		Cache:    cacheSvc,
		Notifier: notifier,
	})

	// Trigger stream feeds workflow starts. The workflow ID pins one run
	// per session+track, so JetStream redeliveries do not fan out.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeTriggerEvents(ctx, func(ctx context.Context, ev *domain.TriggerEvent) error {
		opts := client.StartWorkflowOptions{
			ID:        fmt.Sprintf("trigger-notify-%s-%s", ev.SessionID, ev.TrackID),
			TaskQueue: cfg.Temporal.TaskQueue,
		}
		_, err := c.ExecuteWorkflow(ctx, opts, workflows.TriggerNotificationWorkflow, workflows.NotificationInput{
			SessionID:      ev.SessionID,
			TrackID:        ev.TrackID,
			TrackTitle:     ev.TrackTitle,
			DistanceMeters: ev.DistanceMeters,
		})
		if err != nil {
			var started *serviceerror.WorkflowExecutionAlreadyStarted
			if errors.As(err, &started) {
				return nil // redelivery of a trigger we already picked up
			}
			slog.Warn("start notification workflow", "session_id", ev.SessionID, "track_id", ev.TrackID, "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe triggers: %v", err)
	}

	slog.Info("notifier worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
