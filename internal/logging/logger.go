// Package logging provides structured progress logging with file output
// support. It uses environment variables for configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
)

// LogFilePattern matches the files created by NewLogger.
const LogFilePattern = "dexscope-*-debug.log"

// LoggerCloser wraps a logger and provides a Close method for cleanup
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
	path   string
}

// Close closes the underlying writer if it's closeable
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// Path returns the log file, or "" when logging to a stream.
func (lc *LoggerCloser) Path() string { return lc.path }

// NewLoggerWithWriter creates a new logger with the provided writer
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	lg.SetLevel(levelFromEnv())

	prefix := os.Getenv("DEXSCOPE_LOG_PREFIX")
	if prefix == "" {
		prefix = "dexscope "
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr && w != os.Stdout {
		closer = c
	}

	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

func levelFromEnv() log.Level {
	switch os.Getenv("DEXSCOPE_LOG_LEVEL") {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// NewLogger creates a new logger based on environment variables
// DEXSCOPE_LOG_LEVEL: debug, info, warn, error (default: info)
// DEXSCOPE_LOG_PREFIX: prefix for log messages (default: "dexscope ")
// DEXSCOPE_LOG_TO_FILE: when set to "1", logs to a timestamped file in dir
// instead of stderr. toFile forces the same.
func NewLogger(dir string, toFile bool) *LoggerCloser {
	if !toFile && os.Getenv("DEXSCOPE_LOG_TO_FILE") != "1" {
		return NewLoggerWithWriter(os.Stderr)
	}

	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("dexscope-%s-debug.log", timestamp))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		// If file creation fails, fall back to stderr
		return NewLoggerWithWriter(os.Stderr)
	}
	lc := NewLoggerWithWriter(f)
	lc.path = path
	return lc
}

// LatestLogFile returns the newest log file in dir.
func LatestLogFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, LogFilePattern))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no log files in %s", dir)
	}
	// The timestamp in the name sorts chronologically.
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return os.Getenv("DEXSCOPE_LOG_LEVEL") == "debug"
}
