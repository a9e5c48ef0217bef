package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapSharesCore(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &Logger{z: zap.New(core)}

	zap.NewStdLog(l.Zap().Named("http")).Print("http: TLS handshake error")
	l.With(zap.String("row", "7")).Warn("Inventory row deleted")
	l.Debug("dropped")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "http", entries[0].LoggerName)
	assert.Equal(t, "http: TLS handshake error", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "7", entries[1].ContextMap()["row"])
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Info("ignored", zap.Int("n", 1))
		l.Sync()
	})
}
