package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "production", ""} {
		l, err := New(mode)
		require.NoError(t, err, mode)
		require.NotNil(t, l.SugaredLogger)
	}
}

func TestKeyValuePairs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("run", "abc").Warn("driver failed", "driver", "Max Verstappen")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "driver failed", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc", fields["run"])
	assert.Equal(t, "Max Verstappen", fields["driver"])
}

func TestNopDiscards(t *testing.T) {
	l := NewNop()
	l.Info("ignored", "k", "v")
	l.Sync()
}
