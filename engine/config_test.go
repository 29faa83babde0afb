package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/trigon/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint32(800), cfg.Window.Width)
	assert.Equal(t, uint32(600), cfg.Window.Height)
	assert.Equal(t, uint32(2), cfg.Renderer.FramesInFlight)
	assert.False(t, cfg.Renderer.Debug)
	assert.Equal(t, "triangle", cfg.Renderer.ShaderProgram)
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
[window]
width = 1280

[renderer]
frames_in_flight = 3
debug = true

[log]
level = "debug"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint32(1280), cfg.Window.Width)
	assert.Equal(t, uint32(600), cfg.Window.Height, "unset keys keep their default")
	assert.Equal(t, uint32(3), cfg.Renderer.FramesInFlight)
	assert.True(t, cfg.Renderer.Debug)
	assert.Equal(t, "shaders", cfg.Renderer.ShaderDir)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "[renderer]\nframes_in_flight = 0\n"))
	require.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = LoadConfig(writeConfig(t, "[window]\nheight = 0\n"))
	require.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = LoadConfig(writeConfig(t, "[window\n"))
	require.Error(t, err)
}
