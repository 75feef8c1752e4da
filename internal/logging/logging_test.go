package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	require.Error(t, err)
}

func TestNewLevels(t *testing.T) {
	for _, lvl := range []string{"", "debug", "INFO", "warn", "error"} {
		logger, err := New(Options{Level: lvl, Format: "console"})
		require.NoError(t, err, lvl)
		assert.NotNil(t, logger)
	}
}

func TestInstallReplacesGlobal(t *testing.T) {
	before := zap.L()
	logger, restore, err := Install(Options{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.Same(t, logger, zap.L())
	assert.False(t, zap.L().Core().Enabled(zapcore.InfoLevel))
	restore()
	assert.Same(t, before, zap.L())
}

func TestNewObserved(t *testing.T) {
	logger, logs := NewObserved(zapcore.DebugLevel)
	logger.Info("hello", zap.String("k", "v"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "hello", logs.All()[0].Message)
	assert.Equal(t, "v", logs.All()[0].ContextMap()["k"])
}
