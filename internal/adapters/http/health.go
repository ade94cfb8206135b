package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readyCheckTimeout = 3 * time.Second

// HealthHandler answers liveness probes without touching any backend.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		})
	}
}

// ReadyHandler probes Postgres, NATS, and Valkey. The database is the
// only hard dependency; a missing NATS or cache degrades trigger
// fan-out but the REST surface still works, so only the DB check can
// fail readiness when those are simply not configured.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), readyCheckTimeout)
		defer cancel()

		checks := make(map[string]string)
		ready := true

		switch {
		case deps.DB == nil:
			checks["database"] = "not configured"
			ready = false
		default:
			if err := deps.DB.Pool.Ping(ctx); err != nil {
				checks["database"] = "error: " + err.Error()
				ready = false
			} else {
				checks["database"] = "ok"
			}
		}

		switch {
		case deps.NATS == nil:
			checks["nats"] = "not configured"
		case deps.NATS.IsConnected():
			checks["nats"] = "ok"
		default:
			checks["nats"] = "disconnected"
			ready = false
		}

		if deps.Cache != nil {
			_, err := deps.Cache.Get(ctx, "__readyz__")
			// A missing probe key surfaces as "valkey nil message",
			// which still proves the connection works.
			if err != nil && err.Error() != "valkey nil message" {
				checks["cache"] = "error: " + err.Error()
				ready = false
			} else {
				checks["cache"] = "ok"
			}
		} else {
			checks["cache"] = "not configured"
		}

		status, code := "ready", fiber.StatusOK
		if !ready {
			status, code = "not ready", fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
