package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.toml")
	data := `
app_name = "testbed"
width = 640
height = 480
heap_size = 1048576
frame_timeout = 1000000000
log_level = "warn"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "testbed", cfg.AppName)
	assert.Equal(t, uint32(640), cfg.Width)
	assert.Equal(t, uint32(480), cfg.Height)
	assert.Equal(t, uint64(1<<20), cfg.HeapSize)
	assert.Equal(t, time.Second, cfg.FrameTimeout)
	assert.Equal(t, "warn", cfg.LogLevel)
	// Untouched fields keep their defaults.
	assert.Equal(t, uint32(480), cfg.RenderWidth)
	assert.Equal(t, uint32(270), cfg.RenderHeight)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("width = {"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
