package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the engine configuration, loaded from a TOML file. Every field
// has a default so the engine can run without a config file on disk.
type Config struct {
	AppName string `toml:"app_name"`

	// Window size at startup.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`

	// Internal render target size. The frame is rendered at this resolution
	// and upscaled to the swapchain extent at present time.
	RenderWidth  uint32 `toml:"render_width"`
	RenderHeight uint32 `toml:"render_height"`

	// Size of each device memory heap carved up by the allocator, in bytes.
	HeapSize uint64 `toml:"heap_size"`

	// How long a frame may wait on the in-flight fence before the renderer
	// gives up and reports a hung device.
	FrameTimeout time.Duration `toml:"frame_timeout"`

	ShaderDir string `toml:"shader_dir"`

	LogLevel string `toml:"log_level"`
}

func Default() *Config {
	return &Config{
		AppName:      "Prism",
		Width:        1280,
		Height:       720,
		RenderWidth:  480,
		RenderHeight: 270,
		HeapSize:     32 * 1024 * 1024,
		FrameTimeout: 5 * time.Second,
		ShaderDir:    "shaders",
		LogLevel:     "debug",
	}
}

// Load reads a TOML config file. A missing file is not an error; the
// defaults are returned. Fields absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
