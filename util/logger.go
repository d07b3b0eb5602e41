// Package util holds the small helpers every other package leans on:
// the levelled logger and address formatting.
package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// FileOptions sizes the rotating log file used by [NewFileLogger].
type FileOptions struct {
	Path       string
	MaxSizeMB  int // rotate after this many megabytes (default 10)
	MaxBackups int // rotated files to keep (default 3)
	MaxAgeDays int // 0 keeps rotated files forever
}

// Logger writes levelled, prefixed lines.  Errors are always written;
// everything else depends on the verbosity.  A Logger is safe for use
// from the caller and the receive goroutine at once.
type Logger struct {
	mu         sync.Mutex
	level      LogLevel
	output     io.Writer
	closer     io.Closer
	timestamps bool
}

// NewLogger returns a Logger writing to stderr at the given verbosity
// (0 quiet, 1 normal, 2 verbose, 3 debug).  Debug turns on timestamps.
func NewLogger(verbosity int) *Logger {
	return &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= int(LogDebug),
	}
}

// NewFileLogger returns a Logger that appends to a size-rotated file.
// Timestamps are always on since the file outlives the session.
func NewFileLogger(verbosity int, opts FileOptions) *Logger {
	if opts.MaxSizeMB == 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxBackups == 0 {
		opts.MaxBackups = 3
	}
	lj := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}
	return &Logger{
		level:      LogLevel(verbosity),
		output:     lj,
		closer:     lj,
		timestamps: true,
	}
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	l.mu.Lock()
	l.timestamps = on
	l.mu.Unlock()
}

// SetOutput overrides the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.output = w
	l.mu.Unlock()
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// Close releases the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

// Info logs at verbosity ≥ 1.
func (l *Logger) Info(format string, args ...interface{}) { l.at(LogNormal, "INF", format, args) }

// Warn logs at verbosity ≥ 1.
func (l *Logger) Warn(format string, args ...interface{}) { l.at(LogNormal, "WRN", format, args) }

// Verbose logs at verbosity ≥ 2.
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.at(LogVerbose, "VRB", format, args)
}

// Debug logs at verbosity ≥ 3.
func (l *Logger) Debug(format string, args ...interface{}) { l.at(LogDebug, "DBG", format, args) }

// Error always logs.
func (l *Logger) Error(format string, args ...interface{}) { l.at(LogQuiet, "ERR", format, args) }

func (l *Logger) at(min LogLevel, tag, format string, args []interface{}) {
	if l == nil || l.level < min {
		return
	}

	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timestamps {
		fmt.Fprintf(l.output, "%s [%s] %s\n", time.Now().Format("15:04:05.000"), tag, msg)
		return
	}
	fmt.Fprintf(l.output, "[%s] %s\n", tag, msg)
}
