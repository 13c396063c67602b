package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sys/unix"

	"github.com/genilink/go-serial-transport/config"
)

func TestNew(t *testing.T) {
	l, err := New(config.LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zap.DebugLevel))

	_, err = New(config.LogConfig{Level: "nonsense"})
	require.Error(t, err)
}

func TestNewReporter_LogsOpAndErrno(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rep := NewReporter(zap.New(core))

	rep.Report("poll", unix.EIO)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "poll", fields["op"])
	require.EqualValues(t, int(unix.EIO), fields["errno"])
}

func TestDumpHex(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := zap.New(core)

	DumpHex(l, "rx", []byte{0x27, 0x0E, 0xA2})
	require.Len(t, logs.All(), 1)
	require.Contains(t, logs.All()[0].ContextMap()["bytes"], "27 0e a2")

	// Nothing is rendered when debug is off
	quietCore, quietLogs := observer.New(zap.InfoLevel)
	DumpHex(zap.New(quietCore), "rx", []byte{0x01})
	require.Empty(t, quietLogs.All())
}
