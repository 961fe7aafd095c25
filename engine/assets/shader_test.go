package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytecodeCachesReads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.comp.spv")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	r, err := NewShaderRegistry(dir)
	require.NoError(t, err)
	defer r.Close()

	code, err := r.Bytecode("scene.comp.spv")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), code)

	// Served from cache even if the file vanishes underneath.
	require.NoError(t, os.Remove(path))
	code, err = r.Bytecode("scene.comp.spv")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), code)
}

func TestBytecodeMissingShader(t *testing.T) {
	r, err := NewShaderRegistry(t.TempDir())
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Bytecode("nope.spv")
	assert.Error(t, err)
}

func TestRewrittenShaderIsReloaded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ui.comp.spv")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	r, err := NewShaderRegistry(dir)
	require.NoError(t, err)
	defer r.Close()

	code, err := r.Bytecode("ui.comp.spv")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), code)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))

	assert.Eventually(t, func() bool {
		code, err := r.Bytecode("ui.comp.spv")
		return err == nil && string(code) == "v2"
	}, 5*time.Second, 10*time.Millisecond, "watcher should drop the stale cache entry")
}

func TestModelRegistryKeepsRegistrationOrder(t *testing.T) {
	r := NewModelRegistry()
	a := &Model{}
	b := &Model{}
	c := &Model{}
	require.NoError(t, r.Register("tree", a))
	require.NoError(t, r.Register("rock", b))
	require.NoError(t, r.Register("firefly", c))

	assert.Equal(t, []*Model{a, b, c}, r.Models())
	assert.Equal(t, []*Model{a, b, c}, r.Models(), "order must be stable across calls")
}

func TestModelRegistryRejectsDuplicates(t *testing.T) {
	r := NewModelRegistry()
	require.NoError(t, r.Register("tree", &Model{}))
	assert.Error(t, r.Register("tree", &Model{}))
}
