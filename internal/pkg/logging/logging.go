// Package logging configures the process-wide slog default logger.
// All binaries call Setup once at startup; everything downstream uses
// slog.Default (or a request-scoped child of it).
package logging

import (
	"log/slog"
	"os"
	"strings"
)

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Setup installs the default logger. Unknown level strings fall back
// to info, unknown formats to JSON; startup never fails on a typo in
// GUIDEPOST_LOG_LEVEL.
func Setup(level, format string) {
	lvl, ok := levels[strings.ToLower(level)]
	if !ok {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
