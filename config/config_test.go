package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig("")
	assert.Equal(t, "caisse", cfg.System.Appid)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, ":1815", cfg.System.ApiListen)
	assert.NotEmpty(t, cfg.Gateway.ShellManifest)
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfile := filepath.Join(dir, "caisse.yml")
	require.NoError(t, os.WriteFile(cfile, []byte(`
system:
  appid: caisse
  workdir: /tmp/caisse-test
  api_listen: ":9815"
database:
  type: sqlite
  name: caisse.db
gateway:
  revision: v7
`), 0o644))

	t.Setenv("CAISSE_GATEWAY_REVISION", "v8")
	t.Setenv("CAISSE_SYNC_PROBE_INTERVAL", "5")

	cfg := LoadConfig(cfile)
	assert.Equal(t, "/tmp/caisse-test", cfg.System.Workdir)
	assert.Equal(t, ":9815", cfg.System.ApiListen)
	// env beats file
	assert.Equal(t, "v8", cfg.Gateway.Revision)
	assert.Equal(t, 5, cfg.Sync.ProbeInterval)
	// log file defaults under the workdir
	assert.Equal(t, filepath.Join("/tmp/caisse-test", "caisse.log"), cfg.Logger.Filename)
}
