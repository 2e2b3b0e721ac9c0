package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.UserServiceURL)
	assert.Equal(t, "http://localhost:8001", cfg.DataServiceURL)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.NotEmpty(t, cfg.DBPath)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "portal.yaml")
	content := "user_service_url: http://users.internal/\ndata_service_url: http://data.internal\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://users.internal", cfg.UserServiceURL, "trailing slash is trimmed")
	assert.Equal(t, "http://data.internal", cfg.DataServiceURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORTAL_DATA_SERVICE_URL", "http://env-data:9000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://env-data:9000", cfg.DataServiceURL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{DataServiceURL: "x"}.Validate())
	assert.Error(t, Config{UserServiceURL: "x"}.Validate())
	assert.NoError(t, Config{UserServiceURL: "x", DataServiceURL: "y"}.Validate())
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
