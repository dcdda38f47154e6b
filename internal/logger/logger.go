// Package logger provides leveled, timestamped logging for the pipeline and
// an access-log middleware for the HTTP API.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps "debug", "info", "warn" and "error"; anything else is info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type Logger struct {
	out   *log.Logger
	err   *log.Logger
	level Level
	now   func() time.Time
}

// New writes info and below to stdout, errors to stderr.
func New(level Level) *Logger {
	return NewWithWriters(os.Stdout, os.Stderr, level)
}

func NewWithWriters(out, errOut io.Writer, level Level) *Logger {
	return &Logger{
		out:   log.New(out, "", 0),
		err:   log.New(errOut, "", 0),
		level: level,
		now:   time.Now,
	}
}

// Discard drops everything. Used by tests.
func Discard() *Logger {
	return NewWithWriters(io.Discard, io.Discard, LevelError+1)
}

func (l *Logger) logf(level Level, tag string, format string, args ...any) {
	if l == nil {
		log.Printf(tag+" "+format, args...)
		return
	}
	if level < l.level {
		return
	}
	line := fmt.Sprintf("[%s] %s %s", l.now().Format("2006-01-02 15:04:05"), tag, fmt.Sprintf(format, args...))
	if level >= LevelError {
		l.err.Println(line)
		return
	}
	l.out.Println(line)
}

func (l *Logger) Debug(format string, args ...any) { l.logf(LevelDebug, "DEBUG", format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.logf(LevelInfo, "INFO ", format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.logf(LevelWarn, "WARN ", format, args...) }
func (l *Logger) Error(format string, args ...any) { l.logf(LevelError, "ERROR", format, args...) }

// Printf satisfies the Printf-style logger interfaces of other packages.
func (l *Logger) Printf(format string, args ...any) { l.Info(format, args...) }

// Leveled adapts the logger to key/value style interfaces such as
// retryablehttp.LeveledLogger.
func (l *Logger) Leveled() *KV { return &KV{l: l} }

type KV struct{ l *Logger }

func (k *KV) Error(msg string, kv ...any) { k.l.Error("%s%s", msg, pairs(kv)) }
func (k *KV) Info(msg string, kv ...any)  { k.l.Debug("%s%s", msg, pairs(kv)) }
func (k *KV) Debug(msg string, kv ...any) { k.l.Debug("%s%s", msg, pairs(kv)) }
func (k *KV) Warn(msg string, kv ...any)  { k.l.Warn("%s%s", msg, pairs(kv)) }

func pairs(kv []any) string {
	var sb strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", kv[i], kv[i+1])
	}
	return sb.String()
}
