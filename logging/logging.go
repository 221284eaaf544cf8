// Package logging builds the zap loggers used by the CLI and the HTTP
// server.
package logging

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultLevel = "info"

	// EnvLevel is consulted when no level is configured.
	EnvLevel = "NAMEPROXY_LOG_LEVEL"

	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options selects level, encoding and destination.
type Options struct {
	// Level is debug, info, warn or error. Empty falls back to
	// NAMEPROXY_LOG_LEVEL, then info.
	Level string
	// Format is "console" (CLI) or "json" (server).
	Format string
	// OutputPaths defaults to stderr.
	OutputPaths []string
}

// New constructs a logger. JSON output uses severity/timestamp/message keys
// so it can be shipped to a log collector as is.
func New(opts Options) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	raw := strings.TrimSpace(opts.Level)
	if raw == "" {
		raw = os.Getenv(EnvLevel)
	}
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(raw)))); err != nil || raw == "" {
		_ = level.UnmarshalText([]byte(defaultLevel))
	}

	format := opts.Format
	if format == "" {
		format = FormatConsole
	}

	var encoderCfg zapcore.EncoderConfig
	switch format {
	case FormatJSON:
		encoderCfg = zapcore.EncoderConfig{
			MessageKey: "message",
			TimeKey:    "timestamp",
			LevelKey:   "severity",
			EncodeTime: zapcore.RFC3339NanoTimeEncoder,
			EncodeLevel: func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
				enc.AppendString(strings.ToUpper(level.String()))
			},
			EncodeDuration: zapcore.MillisDurationEncoder,
			CallerKey:      "caller",
			EncodeCaller:   zapcore.ShortCallerEncoder,
			StacktraceKey:  "stacktrace",
		}
	case FormatConsole:
		encoderCfg = zapcore.EncoderConfig{
			MessageKey:     "message",
			TimeKey:        "time",
			LevelKey:       "level",
			EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05"),
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		}
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	outputs := opts.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	cfg := zap.Config{
		Level:             level,
		Encoding:          format,
		EncoderConfig:     encoderCfg,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     format == FormatConsole,
		DisableStacktrace: true,
	}
	return cfg.Build()
}

type ctxKey struct{}

// WithLogger stores logger on ctx.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored on ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}
