package debug

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Functions in this package take a localDebug flag so individual call sites
// can switch tracing on without raising the global log level. Output goes to
// the zap global logger at debug level, falling back to info when the global
// logger would drop debug entries.

func emit(msg string, fields ...zap.Field) {
	logger := zap.L()
	if ce := logger.Check(zap.DebugLevel, msg); ce != nil {
		ce.Write(fields...)
		return
	}
	logger.Info(msg, fields...)
}

// DebugHeader marks the start of a traced section
func DebugHeader(enabled bool) {
	if enabled {
		emit("=== DEBUG START ===")
	}
}

// DebugFooter marks the end of a traced section
func DebugFooter(enabled bool) {
	if enabled {
		emit("=== DEBUG END ===")
	}
}

// DebugOutput logs a formatted message if debugging is enabled
func DebugOutput(enabled bool, format string, args ...interface{}) {
	if enabled {
		emit(fmt.Sprintf(format, args...), zap.Bool("local_debug", true))
	}
}

// DebugTiming logs start and completion of operation; call the returned func when done
func DebugTiming(enabled bool, operation string) func() {
	if !enabled {
		return func() {}
	}

	start := time.Now()
	emit("starting", zap.String("operation", operation))

	return func() {
		emit("completed", zap.String("operation", operation), zap.Duration("took", time.Since(start)))
	}
}
