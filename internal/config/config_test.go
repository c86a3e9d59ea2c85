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
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 180*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 55*time.Second, cfg.AI.AttemptTimeout)
	assert.Greater(t, cfg.Server.ShutdownTimeout, cfg.AI.Timeout, "shutdown must outlast an in-flight AI call")
	assert.Equal(t, 3, cfg.AI.RetryMaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.AI.RetryBaseDelay)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 4000, cfg.AI.MaxTokens)
	assert.InDelta(t, 0.7, cfg.AI.Temperature, 1e-9)
	assert.Equal(t, 24*time.Hour, cfg.Video.CacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AI_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("AI_TIMEOUT", "45s")
	t.Setenv("YOUTUBE_API_KEY", "yt-key")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, 5, cfg.AI.RetryMaxAttempts)
	assert.Equal(t, 45*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "yt-key", cfg.Video.APIKey)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("ai:\n  model: gpt-4o\n  retry_base_delay: 1s\nlog:\n  level: debug\n  format: console\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.AI.Model)
	assert.Equal(t, time.Second, cfg.AI.RetryBaseDelay)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("AI_RETRY_MAX_ATTEMPTS", "0")

	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadKeepsZeroTemperature(t *testing.T) {
	t.Setenv("AI_TEMPERATURE", "0")
	t.Setenv("AI_ATTEMPT_TIMEOUT", "20s")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Zero(t, cfg.AI.Temperature)
	assert.Equal(t, 20*time.Second, cfg.AI.AttemptTimeout)
}
