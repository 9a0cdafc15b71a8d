package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	l, err := New(Config{Level: "debug"})
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New(Config{Development: true})
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.InfoLevel))
	require.False(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = New(Config{Level: "loud"})
	require.Error(t, err)
}

func TestWithCorrelationID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := FromZap(zap.New(core))

	l.WithCorrelationID("corr-1").Info("handled")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "corr-1", entries[0].ContextMap()["correlation_id"])
}

func TestFromZap_Nil(t *testing.T) {
	require.NotNil(t, FromZap(nil).Logger)
}
