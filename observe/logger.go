package observe

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured log attribute.
type Field struct {
	Key   string
	Value any
}

// F is shorthand for Field{Key: key, Value: value}.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Err returns the conventional "error" field. A nil error yields a nil value.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger provides structured logging.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: when ctx carries a valid span, trace_id and span_id are attached.
// - Redaction: values of RedactedFields never reach the output.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)

	// With returns a logger that adds fields to every entry.
	With(fields ...Field) Logger

	// Sync flushes buffered entries.
	Sync() error
}

const redacted = "[REDACTED]"

var redactedSet = func() map[string]bool {
	m := make(map[string]bool, len(RedactedFields))
	for _, k := range RedactedFields {
		m[k] = true
	}
	return m
}()

// NewLogger creates a zap-backed Logger writing to w.
// level is one of debug|info|warn|error (default info); format is json or
// console (default json).
func NewLogger(level, format string, w io.Writer) (Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var enc zapcore.Encoder
	switch format {
	case "json", "":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogFormat, format)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(lvl))
	return &zapLogger{z: zap.New(core)}, nil
}

// FromZap adapts an existing zap logger.
func FromZap(z *zap.Logger) Logger {
	if z == nil {
		return NopLogger()
	}
	return &zapLogger{z: z}
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("%w: %q", ErrInvalidLogLevel, level)
	}
}

type zapLogger struct {
	z *zap.Logger
}

func (l *zapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	if ce := l.z.Check(zapcore.DebugLevel, msg); ce != nil {
		ce.Write(zapFields(ctx, fields)...)
	}
}

func (l *zapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	if ce := l.z.Check(zapcore.InfoLevel, msg); ce != nil {
		ce.Write(zapFields(ctx, fields)...)
	}
}

func (l *zapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	if ce := l.z.Check(zapcore.WarnLevel, msg); ce != nil {
		ce.Write(zapFields(ctx, fields)...)
	}
}

func (l *zapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	if ce := l.z.Check(zapcore.ErrorLevel, msg); ce != nil {
		ce.Write(zapFields(ctx, fields)...)
	}
}

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(zapFields(nil, fields)...)}
}

func (l *zapLogger) Sync() error {
	return l.z.Sync()
}

func zapFields(ctx context.Context, fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+2)
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			out = append(out,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}
	}
	for _, f := range fields {
		if redactedSet[f.Key] {
			out = append(out, zap.String(f.Key, redacted))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return &zapLogger{z: zap.NewNop()}
}
