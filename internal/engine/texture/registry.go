package texture

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/internal/logger"
)

// LoaderFunc returns the raw contents of a texture file.
type LoaderFunc func(path string) ([]byte, error)

// Registry loads, uploads and memoizes textures by path. Failed loads are not
// cached so a later request can retry.
type Registry struct {
	dev     gpu.Device
	load    LoaderFunc
	scripts Scripts

	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	tex        gpu.Texture
	components int
}

// NewRegistry creates a texture registry. scripts may be nil.
func NewRegistry(dev gpu.Device, load LoaderFunc, scripts Scripts) *Registry {
	return &Registry{
		dev:     dev,
		load:    load,
		scripts: scripts,
		entries: make(map[string]*entry),
	}
}

// Texture returns the device texture for path, loading it on first use.
func (r *Registry) Texture(path string) (gpu.Texture, error) {
	e, err := r.get(path)
	if err != nil {
		return nil, err
	}
	return e.tex, nil
}

// Components returns the channel count of a loaded texture, or 0 when the
// texture is not loaded.
func (r *Registry) Components(path string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[normalize(path)]; ok {
		return e.components
	}
	return 0
}

// Script returns the texture script flags for path.
func (r *Registry) Script(path string) Script {
	return r.scripts.Lookup(path)
}

// Release frees every uploaded texture.
func (r *Registry) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, e := range r.entries {
		e.tex.Release()
		delete(r.entries, key)
	}
}

func (r *Registry) get(path string) (*entry, error) {
	key := normalize(path)

	// Fast path: read lock
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	data, err := r.load(path)
	if err != nil {
		return nil, fmt.Errorf("loading texture %s: %w", path, err)
	}
	img, err := Decode(path, data)
	if err != nil {
		return nil, err
	}

	// Write lock with double-check; uploads happen under the lock because
	// the device is bound to one thread anyway.
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		return e, nil
	}

	tex, err := r.dev.CreateTexture(img)
	if err != nil {
		return nil, fmt.Errorf("uploading texture %s: %w", path, err)
	}
	e = &entry{tex: tex, components: Components(img)}
	r.entries[key] = e

	logger.Named("texture").Debug("texture loaded",
		zap.String("path", path),
		zap.Int("width", tex.Width()),
		zap.Int("height", tex.Height()),
		zap.Int("components", e.components))
	return e, nil
}
