package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leandrodaf/posemidi/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level contracts.LogLevel) (*ZapLogger, *observer.ObservedLogs) {
	atomic := zap.NewAtomicLevelAt(toZapLevel(level))
	core, logs := observer.New(atomic)
	return newWithCore(core, atomic), logs
}

func TestZapLoggerFields(t *testing.T) {
	log, logs := newObserved(contracts.DebugLevel)

	log.Info("note on",
		log.Field().Int("channel", 3),
		log.Field().Uint8("note", 64),
		log.Field().String("landmark", "LEFT_WRIST"),
		log.Field().Error("error", errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "note on", entry.Message)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	ctx := entry.ContextMap()
	assert.EqualValues(t, 3, ctx["channel"])
	assert.EqualValues(t, 64, ctx["note"])
	assert.Equal(t, "LEFT_WRIST", ctx["landmark"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestZapLoggerSetLevel(t *testing.T) {
	log, logs := newObserved(contracts.InfoLevel)

	log.Debug("hidden")
	log.Info("shown")
	assert.Equal(t, 1, logs.Len())

	log.SetLevel(contracts.ErrorLevel)
	log.Warn("hidden")
	log.Error("shown")
	assert.Equal(t, 2, logs.Len())

	log.SetLevel(contracts.DebugLevel)
	log.Debug("shown")
	assert.Equal(t, 3, logs.Len())
}

func TestZapLoggerIgnoresEmptyField(t *testing.T) {
	log, logs := newObserved(contracts.InfoLevel)

	log.Info("msg", log.Field())

	require.Equal(t, 1, logs.Len())
	assert.Empty(t, logs.All()[0].Context)
}

func TestZapLoggerFileDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posemidi.log")

	log := NewZapLogger()
	log.SetDestination(contracts.FileLog, path)
	log.Info("written to file", log.Field().Int("frames", 12))
	log.SetDestination(contracts.ConsoleLog)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.Contains(t, string(data), `"frames":12`)
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	assert.NotPanics(t, func() {
		log.Info("discarded", log.Field().Bool("ok", true))
		log.SetLevel(contracts.DebugLevel)
	})
}
