// Package assets resolves model and texture files under the client data
// directory and builds skinned mesh buffers for rendering.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/internal/engine/model"
	"github.com/Faultbox/mu-client/internal/logger"
	"github.com/Faultbox/mu-client/pkg/encoding"
)

// ErrNotFound is returned when no model or file exists at a path.
var ErrNotFound = errors.New("asset not found")

// ModelDecoder turns model file contents into a model.
type ModelDecoder func(name string, data []byte) (*model.Model, error)

// Manager loads files from the data directory, memoizes prepared models and
// uploads mesh buffers through the device.
type Manager struct {
	root    string
	dev     gpu.Device
	decoder ModelDecoder
	cache   *Cache

	group singleflight.Group

	mu     sync.RWMutex
	models map[string]*model.Model
	paths  map[*model.Model]string
}

// NewManager creates an asset manager rooted at dataDir. decoder may be nil,
// in which case only registered models can be prepared.
func NewManager(dataDir string, dev gpu.Device, decoder ModelDecoder) *Manager {
	return &Manager{
		root:    dataDir,
		dev:     dev,
		decoder: decoder,
		cache:   NewCache(),
		models:  make(map[string]*model.Model),
		paths:   make(map[*model.Model]string),
	}
}

// Register makes an in-memory model available under path.
func (m *Manager) Register(path string, mdl *model.Model) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models[normalize(path)] = mdl
	m.paths[mdl] = clean(path)
}

// PrepareModel returns the model at path, loading it once. Concurrent callers
// for the same path share one load; ctx only bounds the caller's wait.
func (m *Manager) PrepareModel(ctx context.Context, path string) (*model.Model, error) {
	key := normalize(path)

	m.mu.RLock()
	mdl, ok := m.models[key]
	m.mu.RUnlock()
	if ok {
		return mdl, nil
	}

	ch := m.group.DoChan(key, func() (any, error) {
		return m.loadModel(path)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Model), nil
	}
}

// PrepareModels loads several models concurrently and fails on the first
// error.
func (m *Manager) PrepareModels(ctx context.Context, paths ...string) ([]*model.Model, error) {
	out := make([]*model.Model, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			mdl, err := m.PrepareModel(ctx, p)
			if err != nil {
				return err
			}
			out[i] = mdl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Manager) loadModel(name string) (*model.Model, error) {
	key := clean(name)
	if m.decoder == nil {
		return nil, fmt.Errorf("model %s: %w", key, ErrNotFound)
	}

	data, err := m.Load(key)
	if err != nil {
		return nil, err
	}
	mdl, err := m.decoder(key, data)
	if err != nil {
		return nil, fmt.Errorf("decoding model %s: %w", key, err)
	}
	if err := mdl.Validate(); err != nil {
		return nil, err
	}

	m.Register(key, mdl)
	logger.Named("assets").Debug("model loaded",
		zap.String("path", key),
		zap.Int("bones", mdl.BoneCount()),
		zap.Int("meshes", len(mdl.Meshes)),
		zap.Int("actions", len(mdl.Actions)))
	return mdl, nil
}

// TexturePath resolves a texture reference from a model to a data path: the
// reference is taken relative to the model's directory. Names in the Korean
// code page are converted to UTF-8.
func (m *Manager) TexturePath(mdl *model.Model, rel string) string {
	m.mu.RLock()
	modelPath, ok := m.paths[mdl]
	m.mu.RUnlock()

	rel = clean(encoding.ToUTF8(rel))
	if !ok {
		return rel
	}
	return path.Join(path.Dir(modelPath), rel)
}

// Load reads a file below the data directory, caching its contents.
func (m *Manager) Load(name string) ([]byte, error) {
	rel := clean(name)
	key := strings.ToLower(rel)
	if data, ok := m.cache.Get(key); ok {
		return data, nil
	}

	data, err := os.ReadFile(filepath.Join(m.root, filepath.FromSlash(rel)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("file %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	m.cache.Set(key, data)
	return data, nil
}

// LoadTexture reads a texture file. Plain .jpg and .tga references fall back
// to the packed .ozj and .ozt files the client ships.
func (m *Manager) LoadTexture(name string) ([]byte, error) {
	data, err := m.Load(name)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return data, err
	}

	ext := strings.ToLower(path.Ext(name))
	var alt string
	switch ext {
	case ".jpg", ".jpeg":
		alt = strings.TrimSuffix(name, path.Ext(name)) + ".ozj"
	case ".tga":
		alt = strings.TrimSuffix(name, path.Ext(name)) + ".ozt"
	default:
		return nil, err
	}
	return m.Load(alt)
}

// Close drops cached file contents.
func (m *Manager) Close() {
	m.cache.Clear()
}

// clean converts a reference to a slash separated path relative to the data
// directory.
func clean(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// normalize maps paths to lookup keys.
func normalize(p string) string {
	return strings.ToLower(clean(p))
}
