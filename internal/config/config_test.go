package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PIPECFG_SETTINGS", "PIPECFG_STRICT", "PIPECFG_LOG_LEVEL", "PIPECFG_LOG_FORMAT", "PIPECFG_ADDR", "PIPECFG_REDIS_URL", "PIPECFG_REDIS_PREFIX", "PIPECFG_GCP_PROJECT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ".teamcity", cfg.Settings.Path)
	assert.False(t, cfg.Settings.Strict)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, ":8111", cfg.Server.Addr)
	assert.Equal(t, "pipecfg:secret:", cfg.Secrets.RedisPrefix)
	assert.Empty(t, cfg.Secrets.GCPProject)
}

func TestLoadFromEnvFile(t *testing.T) {
	// godotenv never overrides variables that are already set
	for _, k := range []string{"PIPECFG_SETTINGS", "PIPECFG_STRICT"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("PIPECFG_SETTINGS=ci/settings.yaml\nPIPECFG_STRICT=true\n"), 0644))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "ci/settings.yaml", cfg.Settings.Path)
	assert.True(t, cfg.Settings.Strict)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Settings: SettingsConfig{Path: "settings.yaml"},
		Log:      LogConfig{Level: "info", Format: "json"},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Log.Format = "xml"
	assert.ErrorContains(t, cfg.Validate(), "PIPECFG_LOG_FORMAT")

	cfg.Log.Format = "text"
	cfg.Secrets.RedisURL = "localhost:6379"
	assert.ErrorContains(t, cfg.Validate(), "PIPECFG_REDIS_URL")

	cfg.Secrets.RedisURL = ""
	cfg.Settings.Path = ""
	assert.ErrorContains(t, cfg.Validate(), "PIPECFG_SETTINGS")
}
