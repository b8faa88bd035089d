package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "N0CALL", cfg.Sender.SrcCallsign)
	assert.EqualValues(t, 200, cfg.Sender.MaxPayloadSize)
	assert.EqualValues(t, 1, cfg.Sender.StartMessageID)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "N0CALL", cfg.Sender.SrcCallsign)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
logging:
  level: DEBUG
sender:
  src_callsign: F4JXQ-1
  max_payload_size: 1Ki
  encodings: crc32,h
simulation:
  bit_error_rate: 0.001
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "F4JXQ-1", cfg.Sender.SrcCallsign)
	assert.EqualValues(t, 1024, cfg.Sender.MaxPayloadSize)
	assert.Equal(t, "crc32,h", cfg.Sender.Encodings)
	assert.InDelta(t, 0.001, cfg.Simulation.BitErrorRate, 1e-9)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
logging:
  level: LOUD
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("HQFBP_SENDER_SRC_CALLSIGN", "ENV-1")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ENV-1", cfg.Sender.SrcCallsign)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, WriteDefault(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Sender.SrcCallsign, cfg.Sender.SrcCallsign)

	assert.Error(t, WriteDefault(path, false), "refuses to overwrite")
	assert.NoError(t, WriteDefault(path, true))
}
