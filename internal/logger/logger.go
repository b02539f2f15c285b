// Package logger provides leveled logging for vllmctl.
//
// The logger writes to stderr so that command output on stdout stays
// machine-consumable. Debug messages are suppressed unless enabled via
// SetDebug (typically wired to a --verbose flag).
package logger

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// debugEnabled gates Debug output. Accessed atomically so commands can
// toggle it without coordination.
var debugEnabled atomic.Bool

// SetDebug enables or disables debug-level output.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// Info logs an informational message.
func Info(format string, args ...interface{}) {
	logf("INFO", format, args...)
}

// Warn logs a warning. Warnings are advisory and never stop execution.
func Warn(format string, args ...interface{}) {
	logf("WARN", format, args...)
}

// Error logs an error message. Logging an error does not exit; fatal
// handling is the caller's responsibility.
func Error(format string, args ...interface{}) {
	logf("ERROR", format, args...)
}

// Debug logs a debug message. No-op unless SetDebug(true) was called.
func Debug(format string, args ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	logf("DEBUG", format, args...)
}

func logf(level, format string, args ...interface{}) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(os.Stderr, "%s [%s] %s\n", ts, level, fmt.Sprintf(format, args...))
}
