package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	serial "github.com/genilink/go-serial-transport"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, uint(0), cfg.Serial.PortIndex)
	require.Equal(t, 19200, cfg.Serial.BaudRate)
	require.Equal(t, "even", cfg.Serial.Parity)
	require.Equal(t, 500*time.Millisecond, cfg.Serial.PollWait)
	require.Equal(t, 20*time.Millisecond, cfg.Serial.TickInterval)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "serial.yaml")
	doc := `
serial:
  device: /dev/ttyUSB0
  baud_rate: 9600
  parity: none
  poll_wait: 250ms
  tick_interval: 10ms
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB0", cfg.Serial.Device)
	require.Equal(t, 9600, cfg.Serial.BaudRate)
	require.Equal(t, 250*time.Millisecond, cfg.Serial.PollWait)
	require.Equal(t, 10*time.Millisecond, cfg.Serial.TickInterval)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestSerialConfig_Transport(t *testing.T) {
	sc := SerialConfig{
		PortIndex: 2,
		BaudRate:  19200,
		DataBits:  8,
		StopBits:  1,
		Parity:    "odd",
		PollWait:  100 * time.Millisecond,
	}
	tc, err := sc.Transport()
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyS2", tc.Device)
	require.Equal(t, serial.ParityOdd, tc.Parity)
	require.Equal(t, 100*time.Millisecond, tc.PollWait)

	// Explicit device wins over the port index
	sc.Device = "/dev/ttyUSB1"
	tc, err = sc.Transport()
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB1", tc.Device)

	sc.Parity = "bogus"
	_, err = sc.Transport()
	require.Error(t, err)
}
