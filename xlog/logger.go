// Package xlog wraps log/slog with the attribute helpers used across the
// camlink client.
package xlog

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(NewText(LevelInfo))
}

func Debug(msg string, fields ...slog.Attr) {
	Default().Debug(msg, fields...)
}

func Info(msg string, fields ...slog.Attr) {
	Default().Info(msg, fields...)
}

func Warn(msg string, fields ...slog.Attr) {
	Default().Warn(msg, fields...)
}

func Error(msg string, fields ...slog.Attr) {
	Default().Error(msg, fields...)
}

type Logger struct {
	json bool
	s    *slog.Logger
}

const (
	LevelDebug slog.Level = slog.LevelDebug
	LevelInfo  slog.Level = slog.LevelInfo
	LevelWarn  slog.Level = slog.LevelWarn
	LevelError slog.Level = slog.LevelError
)

var (
	Int      = slog.Int
	Any      = slog.Any
	Bool     = slog.Bool
	Str      = slog.String
	Duration = slog.Duration
)

func Err(e error) slog.Attr {
	return slog.Any("error", e)
}

// Sid tags a record with the per-connection session id.
func Sid(session string) slog.Attr {
	return slog.String("sessionId", session)
}

func State(s string) slog.Attr {
	return slog.String("state", s)
}

func Action(a string) slog.Attr {
	return slog.String("action", a)
}

func Event(e string) slog.Attr {
	return slog.String("event", e)
}

func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

func With(args ...any) *Logger {
	return Default().With(args...)
}

func NewText(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{s: slog.New(handler), json: false}
}

func NewJSON(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{s: slog.New(handler), json: true}
}

func Default() *Logger {
	return defaultLogger.Load()
}

func SetDefault(l *Logger) {
	defaultLogger.Store(l)
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{s: l.s.With(args...), json: l.json}
}

func (l *Logger) Debug(msg string, fields ...slog.Attr) {
	l.s.LogAttrs(context.Background(), slog.LevelDebug, msg, fields...)
}

func (l *Logger) Info(msg string, fields ...slog.Attr) {
	l.s.LogAttrs(context.Background(), slog.LevelInfo, msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...slog.Attr) {
	l.s.LogAttrs(context.Background(), slog.LevelWarn, msg, fields...)
}

func (l *Logger) Error(msg string, fields ...slog.Attr) {
	l.s.LogAttrs(context.Background(), slog.LevelError, msg, fields...)
}
