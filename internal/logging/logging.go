// Package logging provides the injectable logger used by the
// scheduler and frame controller: a small interface with level
// methods, supplied at construction and defaulting to a no-op,
// backed by gopkg.in/natefinch/lumberjack.v2 for file rotation.
package logging

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the interface the encoder's components log through.
// Callers that don't care about logging use Nop.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Nop discards everything. It is the default Logger for components
// constructed without an explicit logger.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// FileLogger writes leveled, rotated log output through a
// *lumberjack.Logger. Debug output is rate-limited to the first
// occurrence of a given format string plus a line with the running
// count at every 1000th occurrence, so a
// per-CTU debug log call (one per CTU per frame) cannot flood the
// rotated file.
type FileLogger struct {
	out    io.Writer
	logger *log.Logger

	mu     sync.Mutex
	counts map[string]*atomic.Int64
}

// NewFileLogger creates a FileLogger rotating through path with the
// given size/age/backup limits.
func NewFileLogger(path string, maxSizeMB, maxBackups, maxAgeDays int) *FileLogger {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	return &FileLogger{
		out:    lj,
		logger: log.New(lj, "", log.LstdFlags|log.Lmicroseconds),
		counts: make(map[string]*atomic.Int64),
	}
}

func (l *FileLogger) Debug(format string, args ...interface{}) {
	l.logRateLimited("DEBUG", format, args...)
}

func (l *FileLogger) Info(format string, args ...interface{}) {
	l.logger.Printf("INFO "+format, args...)
}

func (l *FileLogger) Warn(format string, args ...interface{}) {
	l.logger.Printf("WARN "+format, args...)
}

func (l *FileLogger) Error(format string, args ...interface{}) {
	l.logger.Printf("ERROR "+format, args...)
}

// logRateLimited logs the first occurrence of format verbatim, then
// tallies subsequent occurrences without writing them, except that
// every 1000th occurrence is written with the count of the messages
// suppressed so far (a cheap approximation good enough for per-CTU
// diagnostic noise).
func (l *FileLogger) logRateLimited(level, format string, args ...interface{}) {
	l.mu.Lock()
	c, ok := l.counts[format]
	if !ok {
		c = &atomic.Int64{}
		l.counts[format] = c
	}
	l.mu.Unlock()

	n := c.Add(1)
	if n == 1 {
		l.logger.Printf(level+" "+format, args...)
		return
	}
	if n%1000 == 0 {
		l.logger.Printf("%s %s (suppressed %d similar messages)", level, fmt.Sprintf(format, args...), n-1)
	}
}
