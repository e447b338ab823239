// Package logger provides the diagnostic-stream logging used by the trace
// parser (record-level recoverable errors, spec.md §7) and the replay
// engine (replay-recoverable errors), backed by log/slog.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity level names, matching the vocabulary accepted by --log-severity.
const (
	TRACE   = "TRACE"
	DEBUG   = "DEBUG"
	INFO    = "INFO"
	WARNING = "WARNING"
	ERROR   = "ERROR"
	OFF     = "OFF"
)

// Custom slog levels. slog only predefines Debug/Info/Warn/Error; TRACE sits
// below Debug and OFF sits above Error so nothing is ever enabled at it.
const (
	LevelTrace slog.Level = -8
	LevelDebug slog.Level = -4
	LevelInfo  slog.Level = 0
	LevelWarn  slog.Level = 4
	LevelError slog.Level = 8
	LevelOff   slog.Level = 12
)

const timeLayout = "2006/01/02 15:04:05.000000"

const asyncBufferSize = 256

// LogRotateConfig mirrors the on-disk rotation knobs handed to lumberjack.
type LogRotateConfig struct {
	MaxFileSizeMB   int
	BackupFileCount int
	Compress        bool
}

// DefaultLogRotateConfig returns the rotation settings used when none are
// supplied explicitly.
func DefaultLogRotateConfig() LogRotateConfig {
	return LogRotateConfig{MaxFileSizeMB: 512, BackupFileCount: 10, Compress: false}
}

// LoggingConfig configures where and how diagnostic output is written.
type LoggingConfig struct {
	FilePath        string
	Severity        string
	Format          string
	LogRotateConfig LogRotateConfig
}

type loggerFactory struct {
	file            *os.File
	sysWriter       io.Writer
	async           *AsyncLogger
	format          string
	level           string
	logRotateConfig LogRotateConfig
}

var (
	programLevel          = new(slog.LevelVar)
	defaultLoggerFactory  = &loggerFactory{format: "json", level: INFO, logRotateConfig: DefaultLogRotateConfig(), sysWriter: os.Stderr}
	defaultLogger         = newDefaultLogger()
)

func newDefaultLogger() *slog.Logger {
	return slog.New(defaultLoggerFactory.createJsonOrTextHandler(defaultLoggerFactory.sysWriter, programLevel, ""))
}

func init() {
	setLoggingLevel(defaultLoggerFactory.level, programLevel)
}

// createJsonOrTextHandler builds the slog.Handler for the configured format,
// gated by programLevel and with every message prefixed by prefix (used by
// tests to namespace log lines; production callers pass "").
func (f *loggerFactory) createJsonOrTextHandler(w io.Writer, level *slog.LevelVar, prefix string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	var base slog.Handler
	switch f.format {
	case "text":
		opts.ReplaceAttr = textReplaceAttr
		base = slog.NewTextHandler(w, opts)
	default:
		opts.ReplaceAttr = jsonReplaceAttr
		base = slog.NewJSONHandler(w, opts)
	}
	return &prefixHandler{inner: base, prefix: prefix}
}

func levelName(l slog.Level) string {
	switch {
	case l < LevelDebug:
		return TRACE
	case l < LevelInfo:
		return DEBUG
	case l < LevelWarn:
		return INFO
	case l < LevelError:
		return WARNING
	default:
		return ERROR
	}
}

func textReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) != 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		t, ok := a.Value.Any().(time.Time)
		if ok {
			return slog.String(slog.TimeKey, t.Format(timeLayout))
		}
	case slog.LevelKey:
		lvl, ok := a.Value.Any().(slog.Level)
		if ok {
			return slog.String("severity", levelName(lvl))
		}
	case slog.MessageKey:
		return slog.String("message", a.Value.String())
	}
	return a
}

func jsonReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) != 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		t, ok := a.Value.Any().(time.Time)
		if ok {
			return slog.Attr{
				Key: "timestamp",
				Value: slog.GroupValue(
					slog.Int64("seconds", t.Unix()),
					slog.Int64("nanos", int64(t.Nanosecond())),
				),
			}
		}
	case slog.LevelKey:
		lvl, ok := a.Value.Any().(slog.Level)
		if ok {
			return slog.String("severity", levelName(lvl))
		}
	case slog.MessageKey:
		return slog.String("message", a.Value.String())
	}
	return a
}

// prefixHandler prepends a static prefix to every logged message.
type prefixHandler struct {
	inner  slog.Handler
	prefix string
}

func (h *prefixHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *prefixHandler) Handle(ctx context.Context, r slog.Record) error {
	nr := slog.NewRecord(r.Time, r.Level, h.prefix+r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		nr.AddAttrs(a)
		return true
	})
	return h.inner.Handle(ctx, nr)
}

func (h *prefixHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prefixHandler{inner: h.inner.WithAttrs(attrs), prefix: h.prefix}
}

func (h *prefixHandler) WithGroup(name string) slog.Handler {
	return &prefixHandler{inner: h.inner.WithGroup(name), prefix: h.prefix}
}

func setLoggingLevel(level string, v *slog.LevelVar) {
	switch level {
	case TRACE:
		v.Set(LevelTrace)
	case DEBUG:
		v.Set(LevelDebug)
	case INFO:
		v.Set(LevelInfo)
	case WARNING:
		v.Set(LevelWarn)
	case ERROR:
		v.Set(LevelError)
	default:
		v.Set(LevelOff)
	}
}

// SetLoggingLevel changes the minimum severity emitted by the default logger.
func SetLoggingLevel(level string) {
	defaultLoggerFactory.level = level
	setLoggingLevel(level, programLevel)
}

// SetLogFormat switches between "text" and "json" output; an empty format
// falls back to "json".
func SetLogFormat(format string) {
	defaultLoggerFactory.format = format
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(currentWriter(), programLevel, ""))
}

func currentWriter() io.Writer {
	if defaultLoggerFactory.async != nil {
		return defaultLoggerFactory.async
	}
	return defaultLoggerFactory.sysWriter
}

// InitLogFile routes subsequent log output through a rotating, asynchronous
// file writer instead of stderr.
func InitLogFile(cfg LoggingConfig) error {
	if cfg.FilePath == "" {
		return fmt.Errorf("logger: empty file path")
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("logger: opening log file %q: %w", cfg.FilePath, err)
	}

	rotate := cfg.LogRotateConfig
	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    rotate.MaxFileSizeMB,
		MaxBackups: rotate.BackupFileCount,
		Compress:   rotate.Compress,
	}

	defaultLoggerFactory.file = f
	defaultLoggerFactory.sysWriter = nil
	defaultLoggerFactory.async = NewAsyncLogger(lj, asyncBufferSize)
	defaultLoggerFactory.format = cfg.Format
	defaultLoggerFactory.level = cfg.Severity
	defaultLoggerFactory.logRotateConfig = rotate

	setLoggingLevel(cfg.Severity, programLevel)
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(defaultLoggerFactory.async, programLevel, ""))
	return nil
}

// Close flushes and releases any open log file. Safe to call even if no file
// was configured.
func Close() error {
	if defaultLoggerFactory.async != nil {
		return defaultLoggerFactory.async.Close()
	}
	return nil
}

func log(ctx context.Context, level slog.Level, format string, v ...any) {
	if !defaultLogger.Enabled(ctx, level) {
		return
	}
	defaultLogger.Log(ctx, level, fmt.Sprintf(format, v...))
}

// Tracef logs at TRACE severity.
func Tracef(format string, v ...any) { log(context.Background(), LevelTrace, format, v...) }

// Debugf logs at DEBUG severity.
func Debugf(format string, v ...any) { log(context.Background(), LevelDebug, format, v...) }

// Infof logs at INFO severity.
func Infof(format string, v ...any) { log(context.Background(), LevelInfo, format, v...) }

// Warnf logs at WARNING severity.
func Warnf(format string, v ...any) { log(context.Background(), LevelWarn, format, v...) }

// Errorf logs at ERROR severity.
func Errorf(format string, v ...any) { log(context.Background(), LevelError, format, v...) }
