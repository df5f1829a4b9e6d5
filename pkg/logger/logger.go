// Package logger provides the structured logging facade used across the service.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// callerSkipFrames skips getCaller and the logging method itself.
const callerSkipFrames = 2

// Logger defines the logging interface.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Fatal(ctx context.Context, msg string, fields ...Field)

	Named(name string) Logger
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// Field constructors.
func String(key, val string) Field                 { return Field{Key: key, Value: val} }
func Int(key string, val int) Field                { return Field{Key: key, Value: val} }
func Int64(key string, val int64) Field            { return Field{Key: key, Value: val} }
func Bool(key string, val bool) Field              { return Field{Key: key, Value: val} }
func Float64(key string, val float64) Field        { return Field{Key: key, Value: val} }
func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val} }
func Any(key string, val interface{}) Field        { return Field{Key: key, Value: val} }
func Error(err error) Field                        { return Field{Key: "error", Value: err} }

// slogLogger implements Logger using slog.
type slogLogger struct {
	Logger *slog.Logger
}

func (l *slogLogger) Named(name string) Logger {
	return &slogLogger{Logger: l.Logger.With(slog.String("logger", name))}
}

func (l *slogLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelInfo, msg, fields)
}

func (l *slogLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields)
}

func (l *slogLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelDebug, msg, fields)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelWarn, msg, fields)
}

func (l *slogLogger) Fatal(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields)
	os.Exit(1)
}

func (l *slogLogger) log(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Logger.Enabled(ctx, level) {
		return
	}
	fields = append(fields, String("source", getCaller()))
	l.Logger.LogAttrs(ctx, level, msg, convertFields(fields)...)
}

// convertFields converts our Field type to slog.Attr.
func convertFields(fields []Field) []slog.Attr {
	attrs := make([]slog.Attr, len(fields))
	for i, f := range fields {
		attrs[i] = slog.Any(f.Key, f.Value)
	}
	return attrs
}

var global Logger
var levelVar slog.LevelVar

// Init initializes the global logger writing text records to stdout.
func Init() error {
	return InitWithWriter(os.Stdout, "text")
}

// InitWithWriter initializes the global logger with the given sink and format
// ("text" or "json").
func InitWithWriter(w io.Writer, format string) error {
	if w == nil {
		return fmt.Errorf("logger: nil writer")
	}
	levelVar.Set(slog.LevelInfo)
	opts := &slog.HandlerOptions{Level: &levelVar}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("logger: unknown format %q", format)
	}
	global = &slogLogger{Logger: slog.New(h)}
	return nil
}

// getCaller returns the caller location as relative/path/file.go:line.
func getCaller() string {
	// one extra frame for slogLogger.log
	_, file, line, ok := runtime.Caller(callerSkipFrames + 1)
	if !ok {
		return "unknown:0"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	relPath, err := filepath.Rel(cwd, file)
	if err != nil {
		return fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	return fmt.Sprintf("%s:%d", relPath, line)
}

// Get returns the global logger.
func Get() Logger {
	if global == nil {
		panic("logger not initialized. Call logger.Init() first")
	}
	return global
}

// Named creates a named logger.
func Named(name string) Logger {
	return Get().Named(name)
}

// Discard returns a logger that drops every record. Useful in tests.
func Discard() Logger {
	return &slogLogger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

// Sync flushes buffered log entries.
func Sync() error {
	// slog does not buffer; nothing to flush
	return nil
}

// SetLevel updates the current logging level for the global logger handler.
func SetLevel(level slog.Level) { levelVar.Set(level) }

// SetLevelString parses and sets the logging level.
// Accepts: debug, info, warn/warning, error (case-insensitive).
func SetLevelString(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		SetLevel(slog.LevelDebug)
	case "", "info":
		SetLevel(slog.LevelInfo)
	case "warn", "warning":
		SetLevel(slog.LevelWarn)
	case "error":
		SetLevel(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %s", level)
	}
	return nil
}
