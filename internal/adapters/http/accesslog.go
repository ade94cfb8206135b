package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AccessLogMiddleware emits one structured slog line per request:
// method, path, status, duration, response size, client IP, and the
// request ID assigned upstream. Health probes log at debug so the
// readiness poller does not flood the output.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		method := c.Method()
		path := c.Path()
		clientIP := c.IP()
		requestID := c.Get(fiber.HeaderXRequestID, "unknown")

		err := c.Next()

		status := c.Response().StatusCode()

		attrs := []slog.Attr{
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
			slog.String("client_ip", clientIP),
			slog.String("request_id", requestID),
		}

		level := slog.LevelInfo
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			level = slog.LevelError
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case path == "/v1/health" || path == "/v1/ready":
			level = slog.LevelDebug
		}

		slog.LogAttrs(c.Context(), level, method+" "+path, attrs...)

		return err
	}
}
