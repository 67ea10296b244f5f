// Package logger provides structured logging setup for tbd.
package logger

import (
	"io"
	"log/slog"
	"strings"

	"github.com/Strob0t/tbd/internal/config"
)

// New creates a *slog.Logger from the given Logging config. Records are
// written as JSON to w with a "service" attribute on every record. When
// cfg.Async is set, writes go through an AsyncHandler; callers must Close
// the returned Closer before exiting to flush it.
func New(cfg config.Logging, w io.Writer) (*slog.Logger, Closer) {
	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	var closer Closer = nopCloser{}
	if cfg.Async {
		ah := NewAsyncHandler(handler, cfg.AsyncBuffer, cfg.AsyncWorkers)
		handler, closer = ah, ah
	}

	return slog.New(handler).With("service", cfg.Service), closer
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
