package logging

import (
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultLogLevel = "info"

// Fields carries structured key/value pairs attached to a log entry.
type Fields map[string]interface{}

// Logger wraps a zap logger with the Fields call style used across the service.
type Logger struct {
	zl *zap.Logger
}

var (
	baseOnce sync.Once
	base     *zap.Logger
)

func root() *zap.Logger {
	baseOnce.Do(func() {
		zl, err := newZap()
		if err != nil {
			zl = zap.NewNop()
		}
		base = zl
	})
	return base
}

func newZap() (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))))); err != nil {
		_ = level.UnmarshalText([]byte(defaultLogLevel))
	}

	encoderCfg := zapcore.EncoderConfig{
		MessageKey: "message",
		TimeKey:    "timestamp",
		LevelKey:   "severity",
		NameKey:    "component",
		EncodeTime: zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(strings.ToUpper(level.String()))
		},
		CallerKey:     "caller",
		EncodeCaller:  zapcore.ShortCallerEncoder,
		StacktraceKey: "stacktrace",
	}

	cfg := zap.Config{
		Level:             level,
		Encoding:          "json",
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}

	return cfg.Build(zap.AddCallerSkip(1))
}

// NewLogger returns a logger named after the component that owns it.
func NewLogger(component string) *Logger {
	return &Logger{zl: root().Named(component)}
}

// NewNopLogger returns a logger that discards everything. Used by tests.
func NewNopLogger() *Logger {
	return &Logger{zl: zap.NewNop()}
}

// With returns a child logger that always carries the given fields.
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{zl: l.zl.With(toZap(fields)...)}
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.zl.Debug(msg, merge(fields)...)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.zl.Info(msg, merge(fields)...)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.zl.Warn(msg, merge(fields)...)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.zl.Error(msg, merge(fields)...)
}

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...Fields) {
	l.zl.Fatal(msg, merge(fields)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

// Zap exposes the underlying logger for libraries that take one directly.
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

func merge(fields []Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields[0]))
	for _, f := range fields {
		out = append(out, toZap(f)...)
	}
	return out
}

func toZap(fields Fields) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
