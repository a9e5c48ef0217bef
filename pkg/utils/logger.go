package utils

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap with the debug/info/warn/error levels used across the app
type Logger struct {
	z *zap.Logger
}

// Log is the process-wide logger
var Log = NewLogger(os.Getenv("APP_ENV"))

// NewLogger builds a production JSON logger for env "production" and a
// colored development logger otherwise.
func NewLogger(env string) *Logger {
	var (
		z   *zap.Logger
		err error
	)
	if env == "production" {
		z, err = zap.NewProduction()
	} else {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		z, err = cfg.Build()
	}
	if err != nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// NewNopLogger is used by tests that don't care about output.
func NewNopLogger() *Logger {
	return &Logger{z: zap.NewNop()}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.z.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.z.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.z.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.z.Error(msg, fields...)
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

// Zap exposes the underlying logger for libraries that want one.
func (l *Logger) Zap() *zap.Logger {
	return l.z
}

// Sync flushes buffered entries; call before exit.
func (l *Logger) Sync() {
	_ = l.z.Sync()
}
