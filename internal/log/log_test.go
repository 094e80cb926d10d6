package log

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestKeyValuesAndError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Replace(zap.New(core))
	defer restore()

	Info("export finished", "event_id", "standup", "count", 3)
	Error("export failed", errors.New("disk full"), "event_id", "standup")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	assert.Equal(t, "export finished", entries[0].Message)
	assert.Equal(t, "standup", entries[0].ContextMap()["event_id"])
	assert.EqualValues(t, 3, entries[0].ContextMap()["count"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "disk full", entries[1].ContextMap()["err"])
}

func TestSetLevel(t *testing.T) {
	defer SetLevel(LevelInfo)

	SetLevel(LevelError)
	assert.False(t, atomicLvl.Enabled(zapcore.InfoLevel))
	assert.True(t, atomicLvl.Enabled(zapcore.ErrorLevel))

	SetLevel(LevelDebug)
	assert.True(t, atomicLvl.Enabled(zapcore.DebugLevel))
}

func TestReplaceWhileLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					Debug("tick")
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		restore := Replace(zap.New(core))
		restore()
	}
	restore := Replace(zap.New(core))
	Info("settled")
	close(stop)
	wg.Wait()
	restore()

	assert.NotZero(t, logs.FilterMessage("settled").Len())
}
