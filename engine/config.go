package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/trigon/engine/core"
)

type WindowConfig struct {
	// Window starting position x axis, if applicable.
	PosX uint32 `toml:"pos_x"`
	// Window starting position y axis, if applicable.
	PosY   uint32 `toml:"pos_y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	// The application name used in windowing.
	Title string `toml:"title"`
}

type RendererConfig struct {
	FramesInFlight uint32 `toml:"frames_in_flight"`
	// Validation layers and the debug report callback.
	Debug bool `toml:"debug"`
	// Directory holding <program>-vert.spv and <program>-frag.spv.
	ShaderDir     string `toml:"shader_dir"`
	ShaderProgram string `toml:"shader_program"`
	// Reload the pipeline when the compiled shaders change.
	WatchShaders bool `toml:"watch_shaders"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Log      LogConfig      `toml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			PosX:   100,
			PosY:   100,
			Width:  800,
			Height: 600,
			Title:  "Vulkan",
		},
		Renderer: RendererConfig{
			FramesInFlight: 2,
			Debug:          false,
			ShaderDir:      "shaders",
			ShaderProgram:  "triangle",
			WatchShaders:   true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a TOML file over the defaults. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			core.LogDebug("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("%w: window size %dx%d", core.ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	if c.Renderer.FramesInFlight < 1 {
		return fmt.Errorf("%w: frames_in_flight must be at least 1", core.ErrInvalidConfig)
	}
	if c.Renderer.ShaderProgram == "" {
		return fmt.Errorf("%w: shader_program is empty", core.ErrInvalidConfig)
	}
	return nil
}
