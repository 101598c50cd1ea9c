// Package alog builds the structured logger threaded through every
// kernel Context: debug for per-step detail (gated behind the capability
// config's explain flag), info for fn/flow boundaries, error for
// propagated ErrKind failures.
package alog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "lvl",
	NameKey:        "name",
	CallerKey:      "caller",
	MessageKey:     "msg",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.LowercaseLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.SecondsDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// New builds a zap.Logger writing JSON lines to stderr at the given level
// ("debug", "info", "warn", "error"; unrecognized values fall back to
// "info"), with debug-level output additionally gated by explain.
func New(level string, explain bool) *zap.Logger {
	lvl := parseLevel(level)
	if lvl == zapcore.DebugLevel && !explain {
		lvl = zapcore.InfoLevel
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core)
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
