package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestDisabledIsSilent(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	DebugHeader(false)
	DebugOutput(false, "nothing %d", 1)
	DebugTiming(false, "op")()
	DebugFooter(false)

	assert.Zero(t, logs.Len())
}

func TestEnabledWritesAtDebug(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	DebugHeader(true)
	DebugOutput(true, "parsed %s", "x")
	DebugFooter(true)

	entries := logs.All()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, "parsed x", entries[1].Message)
		assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	}
}

func TestEnabledFallsBackToInfo(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	done := DebugTiming(true, "export")
	done()

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		assert.Equal(t, "export", entries[1].ContextMap()["operation"])
	}
}
