package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ashenvale/prism/engine/core"
	"github.com/ashenvale/prism/engine/renderer/vulkan"
	"github.com/fsnotify/fsnotify"
	vk "github.com/goki/vulkan"
)

// ShaderRegistry caches compiled SPIR-V bytecode from a directory. A file
// watcher drops cache entries when a shader is recompiled on disk, so the
// next Load picks up the new bytecode without restarting the engine.
type ShaderRegistry struct {
	dir string

	mu    sync.Mutex
	cache map[string][]byte

	watcher *fsnotify.Watcher
}

func NewShaderRegistry(dir string) (*ShaderRegistry, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create shader watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch shader dir %s: %w", dir, err)
	}

	r := &ShaderRegistry{
		dir:     dir,
		cache:   map[string][]byte{},
		watcher: watcher,
	}
	go r.watch()
	return r, nil
}

func (r *ShaderRegistry) watch() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				r.invalidate(filepath.Base(event.Name))
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			core.LogWarn("shader watcher: %s", err)
		}
	}
}

func (r *ShaderRegistry) invalidate(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, cached := r.cache[name]; cached {
		core.LogInfo("shader %s changed, dropping cached bytecode", name)
		delete(r.cache, name)
	}
}

// Bytecode returns the SPIR-V for the named shader, reading from disk on a
// cache miss.
func (r *ShaderRegistry) Bytecode(name string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if code, cached := r.cache[name]; cached {
		return code, nil
	}
	code, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read shader %s: %w", name, err)
	}
	r.cache[name] = code
	return code, nil
}

// Load builds a shader module for the named shader. The caller owns the
// module.
func (r *ShaderRegistry) Load(device vk.Device, name string) (*vulkan.ShaderModule, error) {
	code, err := r.Bytecode(name)
	if err != nil {
		return nil, err
	}
	module, err := vulkan.NewShaderModule(device, code)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", name, err)
	}
	return module, nil
}

func (r *ShaderRegistry) Close() error {
	return r.watcher.Close()
}
