package logging

import (
	"log/slog"
	"os"
	"strings"
)

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// NewJSONLogger builds the process logger. Every record carries the service
// name so api and worker logs can be told apart in a shared stream.
func NewJSONLogger(service, level string) *slog.Logger {
	lvl, ok := levels[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With("service", service)
}
