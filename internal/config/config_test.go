package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
anchor:
  path: /etc/xroad/configuration-anchor.xml
client: DEV/COM/5678/client
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "info", cfg.Verbosity)

	client, err := cfg.ClientID()
	require.NoError(t, err)
	assert.Equal(t, "client", client.SubsystemCode)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_ANCHOR_PATH", "/tmp/anchor.xml")
	path := writeConfig(t, `
anchor:
  path: ${TEST_ANCHOR_PATH}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/anchor.xml", cfg.Anchor.Path)
}

func TestLoadSources(t *testing.T) {
	path := writeConfig(t, `
anchor:
  sources:
    - cs1.example.com
    - cs2.example.com
timeout: 10s
verbosity: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Anchor.Sources, 2)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing anchor", "client: DEV/COM/5678\n"},
		{"bad client", "anchor:\n  path: /a.xml\nclient: DEV/COM\n"},
		{"bad verbosity", "anchor:\n  path: /a.xml\nverbosity: loud\n"},
		{"cert without key", "anchor:\n  path: /a.xml\ntls:\n  certFile: /c.pem\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestTransportTimeout(t *testing.T) {
	cfg, err := Load(writeConfig(t, "anchor:\n  path: /a.xml\ntimeout: 2s\n"))
	require.NoError(t, err)

	tc, err := cfg.Transport()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, tc.Timeout)
	assert.False(t, tc.Secure())
}
