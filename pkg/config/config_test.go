package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/lpspool/internal/bytesize"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	// ====================================================================
	// No config file: everything comes from defaults
	// ====================================================================

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)

	assert.Equal(t, 515, cfg.Server.Port)
	assert.Equal(t, 64, cfg.Server.MaxConnections)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, DefaultSpoolDir, cfg.Spool.Dir)
	assert.Empty(t, cfg.Helper.Command)

	assert.Equal(t, 4*bytesize.KiB, cfg.Limits.MaxCommandSize)
	assert.Equal(t, 16*bytesize.KiB, cfg.Limits.MaxControlSize)

	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
  format: json
server:
  bind_address: 127.0.0.1
  port: 5515
  max_connections: 8
  shutdown_timeout: 5s
spool:
  dir: /tmp/lpspool-test
helper:
  command: ["/usr/local/bin/print-job", "--verbose"]
limits:
  max_command_size: 8Ki
  max_control_size: 32Ki
metrics:
  enabled: true
  port: 9191
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Level is normalized to uppercase
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output, "unset fields fall back to defaults")

	assert.Equal(t, "127.0.0.1", cfg.Server.BindAddress)
	assert.Equal(t, 5515, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Server.MaxConnections)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "/tmp/lpspool-test", cfg.Spool.Dir)
	assert.Equal(t, []string{"/usr/local/bin/print-job", "--verbose"}, cfg.Helper.Command)

	assert.Equal(t, 8*bytesize.KiB, cfg.Limits.MaxCommandSize)
	assert.Equal(t, 32*bytesize.KiB, cfg.Limits.MaxControlSize)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9191, cfg.Metrics.Port)
}

func TestLoadNumericSizes(t *testing.T) {
	path := writeConfigFile(t, `
limits:
  max_command_size: 2048
  max_control_size: 16384
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, bytesize.ByteSize(2048), cfg.Limits.MaxCommandSize)
	assert.Equal(t, 16*bytesize.KiB, cfg.Limits.MaxControlSize)
}

func TestEnvironmentOverride(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: info
`)

	t.Setenv("LPSPOOL_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	// ====================================================================
	// Validation failures
	// ====================================================================

	_, err := Load(writeConfigFile(t, `
logging:
  level: verbose
`))
	assert.Error(t, err)

	_, err = Load(writeConfigFile(t, `
server:
  port: 70000
`))
	assert.Error(t, err)

	_, err = Load(writeConfigFile(t, `
limits:
  max_command_size: 12parsecs
`))
	assert.Error(t, err)

	_, err = Load(writeConfigFile(t, `
server:
  port: 9090
metrics:
  enabled: true
  port: 9090
`))
	assert.Error(t, err, "metrics and server ports must differ")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Port = 5515
	cfg.Helper.Command = []string{"/bin/true"}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5515, loaded.Server.Port)
	assert.Equal(t, []string{"/bin/true"}, loaded.Helper.Command)
	assert.Equal(t, cfg.Limits.MaxControlSize, loaded.Limits.MaxControlSize)
}
