// Package logger provides structured logging for the simulation server.
// Everything the engine does to Sisyphus should be traceable through this.
package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

// Level controls which messages are written.
type Level int

const (
	LevelInfo Level = iota
	LevelDebug
)

// ParseLevel maps a config string to a Level. Unknown values mean info.
func ParseLevel(s string) Level {
	if strings.EqualFold(s, "debug") {
		return LevelDebug
	}
	return LevelInfo
}

// Logger provides structured logging with context.
type Logger struct {
	debugLogger *log.Logger
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	level       Level
}

// NewLogger creates a new logger instance writing to stdout/stderr.
func NewLogger() *Logger {
	return NewLoggerWithWriters(os.Stdout, os.Stderr)
}

// NewLoggerWithWriters creates a logger with explicit sinks. Info, warn and
// debug lines go to out; errors go to errOut.
func NewLoggerWithWriters(out, errOut io.Writer) *Logger {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	return &Logger{
		debugLogger: log.New(out, "[SISYPHUS-DEBUG] ", flags),
		infoLogger:  log.New(out, "[SISYPHUS-INFO] ", flags),
		warnLogger:  log.New(out, "[SISYPHUS-WARN] ", flags),
		errorLogger: log.New(errOut, "[SISYPHUS-ERROR] ", flags),
		level:       LevelInfo,
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return NewLoggerWithWriters(io.Discard, io.Discard)
}

// SetLevel changes the verbosity.
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

// Debug logs verbose diagnostics when the level allows it.
func (l *Logger) Debug(msg string) {
	if l.level >= LevelDebug {
		l.debugLogger.Output(2, msg)
	}
}

// Info logs informational messages.
func (l *Logger) Info(msg string) {
	l.infoLogger.Output(2, msg)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string) {
	l.warnLogger.Output(2, msg)
}

// Error logs error messages.
func (l *Logger) Error(msg string) {
	l.errorLogger.Output(2, msg)
}

// Event logs a specific simulation event for audit.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.infoLogger.Printf("[EVENT:%s] Actor:%s | %s", eventType, actorID, details)
}
