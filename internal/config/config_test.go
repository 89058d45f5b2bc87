package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 400, cfg.Detection.MinSuspiciousFrameSize)
	assert.Equal(t, 2000, cfg.Detection.ScanIntervalMS)
	assert.True(t, cfg.Detection.EnableBlobBlocking)
	assert.True(t, cfg.Detection.EnableSignatureBlocking)
	assert.Equal(t, "http://127.0.0.1:9222", cfg.DevToolsURL)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := []byte(`
devToolsURL: http://127.0.0.1:9333
detection:
  minSuspiciousFrameSize: 600
  enableBlobBlocking: false
sink:
  endpoint: https://collector.example/events
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9333", cfg.DevToolsURL)
	assert.Equal(t, 600, cfg.Detection.MinSuspiciousFrameSize)
	assert.False(t, cfg.Detection.EnableBlobBlocking)
	assert.Equal(t, "https://collector.example/events", cfg.Sink.Endpoint)

	// Untouched keys keep their defaults.
	assert.Equal(t, 2000, cfg.Detection.ScanIntervalMS)
	assert.Equal(t, "violations.sqlite3", cfg.Sink.DSN)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("detection: ["), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
