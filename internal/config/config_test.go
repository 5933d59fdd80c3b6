package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8009", cfg.Port)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 300*time.Millisecond, cfg.AIDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.AnimationTime)
	assert.Equal(t, time.Duration(0), cfg.TurnTimeout)
	assert.Equal(t, "adjacent", cfg.MovementMode)
	assert.False(t, cfg.DevMode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "hexfront.db")
	t.Setenv("TURN_TIMEOUT", "2m")
	t.Setenv("MOVEMENT_MODE", "reachable")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.TurnTimeout)
	assert.Equal(t, "reachable", cfg.MovementMode)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "hexfront.db", cfg.DatabaseURL)
}

func TestLoad_WithConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hexfront.json")
	body := `{"port": "7000", "ai_action_delay": "1s", "redis_url": ""}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, time.Second, cfg.AIDelay)
	assert.Equal(t, "", cfg.RedisURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/hexfront.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}
