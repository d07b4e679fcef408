package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "missing.yaml"))
	t.Setenv("UPLOAD_DIR", filepath.Join(dir, "uploads"))
	t.Setenv("SESSIONS_DIR", filepath.Join(dir, "sessions"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 100*time.Millisecond, cfg.Browser.SlowMo)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "https://studio.youtube.com", cfg.YouTube.StudioURL)
	assert.Equal(t, 5*time.Minute, cfg.YouTube.Timeouts.Processing)
	assert.Equal(t, 30*time.Second, cfg.YouTube.Timeouts.ShareURL)
	assert.Equal(t, time.Second, cfg.YouTube.ChecksPoll.Interval)
	assert.Equal(t, 10*time.Minute, cfg.YouTube.ChecksPoll.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.YouTube.ChallengePoll.Timeout)
	assert.Equal(t, 4000, cfg.Instagram.MaxUploadMB)
	assert.Equal(t, filepath.Join(dir, "sessions", "chrome_profile"), cfg.ProfileDir())
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
server:
  port: 9000
browser:
  headless: false
youtube:
  timeouts:
    processing: 90s
  checks_poll:
    interval: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("UPLOAD_DIR", filepath.Join(dir, "uploads"))
	t.Setenv("SESSIONS_DIR", filepath.Join(dir, "sessions"))
	t.Setenv("PORT", "9100")
	t.Setenv("SLOW_MO", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 250*time.Millisecond, cfg.Browser.SlowMo)
	assert.Equal(t, 90*time.Second, cfg.YouTube.Timeouts.Processing)
	assert.Equal(t, 2*time.Second, cfg.YouTube.ChecksPoll.Interval)
	assert.Equal(t, 10*time.Minute, cfg.YouTube.ChecksPoll.Timeout)
}

func TestLoadSlowMoCanBeDisabled(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		env  string
		want time.Duration
	}{
		{"unset keeps default", "", "", 100 * time.Millisecond},
		{"env zero", "", "0", 0},
		{"yaml zero", "browser:\n  slow_mo: 0s\n", "", 0},
		{"env overrides yaml", "browser:\n  slow_mo: 0s\n", "40", 40 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yml), 0644))

			t.Setenv("CONFIG_PATH", path)
			t.Setenv("UPLOAD_DIR", dir)
			t.Setenv("SESSIONS_DIR", dir)
			t.Setenv("SLOW_MO", tt.env)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Browser.SlowMo)
		})
	}
}

func TestLoadInvalidEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "missing.yaml"))
	t.Setenv("UPLOAD_DIR", dir)
	t.Setenv("SESSIONS_DIR", dir)

	tests := []struct {
		key, value string
	}{
		{"PORT", "eighty"},
		{"HEADLESS", "maybe"},
		{"SLOW_MO", "fast"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		UploadDir:   filepath.Join(dir, "a", "uploads"),
		SessionsDir: filepath.Join(dir, "b", "sessions"),
	}

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, cfg.UploadDir)
	assert.DirExists(t, cfg.SessionsDir)
}
