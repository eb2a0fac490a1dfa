// Package logger provides the module wide structured logger plus a
// persistent diagnostic log that survives hard navigations.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// singleton is the package-level logger. Accessed atomically so it can be
// swapped concurrently (tests capture output via Set).
var singleton atomic.Pointer[slog.Logger]

func init() {
	singleton.Store(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// Initialize configures the package logger for the given level name
// (debug, info, warn, error, none).
func Initialize(level string) {
	var handler slog.Handler
	if strings.EqualFold(level, "none") {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(127)})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(level)})
	}
	singleton.Store(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the underlying *slog.Logger for injection into structs.
func Get() *slog.Logger {
	return singleton.Load()
}

// Set replaces the package logger; intended for tests.
func Set(l *slog.Logger) {
	singleton.Store(l)
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) {
	singleton.Load().Debug(fmt.Sprintf(format, args...))
}

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) {
	singleton.Load().Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) {
	singleton.Load().Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) {
	singleton.Load().Error(fmt.Sprintf(format, args...))
}
