package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.SocketPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "paseo-app", cfg.Update.Owner)
	assert.Equal(t, "paseo-desktop", cfg.Update.Repo)
	assert.Empty(t, cfg.MetricsListen)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desktopd.yaml")
	content := `
data_dir: /tmp/paseo-attachments
socket_path: /tmp/paseo.sock
shell: /bin/bash
log_level: debug
metrics_listen: "127.0.0.1:9990"
update:
  owner: example
  repo: desktop
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/paseo-attachments", cfg.DataDir)
	assert.Equal(t, "/tmp/paseo.sock", cfg.SocketPath)
	assert.Equal(t, "/bin/bash", cfg.Shell)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9990", cfg.MetricsListen)
	assert.Equal(t, "example", cfg.Update.Owner)
	assert.Equal(t, "desktop", cfg.Update.Repo)
}

func TestLoadExpandsHome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desktopd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: ~/attachments\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "attachments"), cfg.DataDir)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desktopd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [broken\n"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}
