// Package logger provides leveled logging for the engine's background tasks.
package logger

import (
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel controls which messages are emitted.
type LogLevel int32

const (
	// LogLevelDebug emits everything, including per-cycle compaction detail.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo emits lifecycle events (recovery, rotation, compaction).
	LogLevelInfo
	// LogLevelWarn emits recoverable anomalies (dropped events, skipped files).
	LogLevelWarn
	// LogLevelError emits failures only.
	LogLevelError
)

// currentLevel is read by background goroutines while SetLevel may run on
// another, so access goes through atomics.
var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(LogLevelInfo))
}

// SetLevel sets the global log level.
func SetLevel(level LogLevel) {
	currentLevel.Store(int32(level))
}

// ParseLevel maps a config string to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "warn":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func level() LogLevel {
	return LogLevel(currentLevel.Load())
}

// Debug logs a debug-level message.
func Debug(format string, v ...interface{}) {
	if level() <= LogLevelDebug {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Info logs an info-level message.
func Info(format string, v ...interface{}) {
	if level() <= LogLevelInfo {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warn logs a warn-level message.
func Warn(format string, v ...interface{}) {
	if level() <= LogLevelWarn {
		log.Printf("[WARN] "+format, v...)
	}
}

// Error logs an error-level message.
func Error(format string, v ...interface{}) {
	if level() <= LogLevelError {
		log.Printf("[ERROR] "+format, v...)
	}
}
