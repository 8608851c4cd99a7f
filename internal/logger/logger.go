// Package logger writes levelled diagnostics to stderr. Debug and Info
// lines appear only with --verbose; warnings and errors always do.
// Long-running commands turn on timestamps.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level orders message severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelTags = [...]string{
	LevelDebug: "[DEBUG] ",
	LevelInfo:  "[INFO] ",
	LevelWarn:  "[WARN] ",
	LevelError: "[ERROR] ",
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	mu         sync.Mutex
	timestamps bool
	minLevel   Level     = LevelWarn
	output     io.Writer = os.Stderr
)

var now = time.Now

// SetVerbose lowers the threshold to Debug, or restores it to Warn.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	if v {
		minLevel = LevelDebug
	} else {
		minLevel = LevelWarn
	}
}

// IsVerbose reports whether Debug messages are printed.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return minLevel <= LevelDebug
}

// SetTimestamps prefixes every line with the local time when enabled.
func SetTimestamps(on bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = on
}

// SetOutput redirects log lines; tests pass a buffer.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func logf(level Level, format string, args []any) {
	mu.Lock()
	defer mu.Unlock()
	if level < minLevel {
		return
	}
	prefix := levelTags[level]
	if timestamps {
		prefix = now().Format(timestampLayout) + " " + prefix
	}
	fmt.Fprintf(output, prefix+format+"\n", args...)
}

// Debug logs pipeline detail.
func Debug(format string, args ...any) { logf(LevelDebug, format, args) }

// Info logs progress.
func Info(format string, args ...any) { logf(LevelInfo, format, args) }

// Warn logs a recoverable problem.
func Warn(format string, args ...any) { logf(LevelWarn, format, args) }

// Error logs a failure.
func Error(format string, args ...any) { logf(LevelError, format, args) }

// Section prints a header between pipeline stages in verbose mode.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if minLevel <= LevelDebug {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Timed logs the duration of an operation at debug level when the
// returned function is called.
//
//	defer logger.Timed("rebuild index")()
func Timed(name string) func() {
	start := time.Now()
	return func() {
		Debug("%s took %s", name, time.Since(start).Round(time.Millisecond))
	}
}
