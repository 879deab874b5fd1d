package logging

import (
	"log/slog"
	"sync/atomic"
)

var traceEnabled atomic.Bool

// SetTrace enables per-message logs for chatty paths such as the engine bridge.
func SetTrace(on bool) { traceEnabled.Store(on) }

// Trace logs a message at DEBUG level, but only if tracing is enabled.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if traceEnabled.Load() {
		logger.Debug(msg, args...)
	}
}
