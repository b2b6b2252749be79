// Package scene owns the model instances of a world and runs their frame:
// animation and behaviours in Update, buffer maintenance and the ordered
// draw passes in Draw.
package scene

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/internal/logger"
	"github.com/Faultbox/mu-client/pkg/math"
)

var (
	// ErrStaleHandle is returned for a handle whose object was removed.
	ErrStaleHandle = errors.New("stale object handle")

	// ErrCycle is returned when parenting would make an object its own
	// ancestor.
	ErrCycle = errors.New("parent cycle")
)

// BlendOrder selects how blend meshes of one object are ordered.
type BlendOrder int

const (
	// BlendOrderNone keeps mesh index order.
	BlendOrderNone BlendOrder = iota
	// BlendOrderBackToFront draws the mesh farthest from the camera first.
	BlendOrderBackToFront
)

// Config contains scene configuration options.
type Config struct {
	Shadows        bool
	Highlight      bool
	AnimationSpeed float32 // default keyframes per second for new objects
	AmbientLight   math.Vec3
	BlendOrder     BlendOrder
}

// DefaultConfig returns a default scene configuration.
func DefaultConfig() Config {
	return Config{
		Shadows:        true,
		Highlight:      true,
		AnimationSpeed: 4,
		AmbientLight:   math.Splat(1),
		BlendOrder:     BlendOrderNone,
	}
}

// FrameTime is the clock of one tick.
type FrameTime struct {
	Total   time.Duration
	Elapsed time.Duration
}

// Camera holds the matrices every pass draws with.
type Camera struct {
	Position   math.Vec3
	View       math.Mat4
	Projection math.Mat4
}

// Services are the collaborators objects load and draw through. Terrain may
// be nil.
type Services struct {
	Device   gpu.Device
	Models   ModelSource
	Textures TextureSource
	Terrain  Terrain
}

// Handle addresses an object in the scene arena. The zero Handle is never
// valid.
type Handle struct {
	index uint32
	gen   uint32
}

// NoHandle is the zero handle.
var NoHandle Handle

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

func (h Handle) String() string {
	return fmt.Sprintf("%d@%d", h.index, h.gen)
}

type slot struct {
	obj *ModelObject
	gen uint32
}

// Pass is one step of the frame's draw sequence.
type Pass struct {
	Name string
	Run  func(s *Scene)
}

// Scene manages model objects and draws them in a fixed pass order.
type Scene struct {
	cfg      Config
	dev      gpu.Device
	effect   *gpu.Effect
	models   ModelSource
	textures TextureSource
	terrain  Terrain
	log      *zap.Logger

	// Camera is read by every draw pass.
	Camera Camera

	slots []slot
	free  []uint32

	passes  []Pass
	ground  *TerrainRenderer
	sprites *SpriteRenderer
}

// New creates an empty scene.
func New(cfg Config, svc Services) *Scene {
	s := &Scene{
		cfg:      cfg,
		dev:      svc.Device,
		effect:   gpu.NewEffect(),
		models:   svc.Models,
		textures: svc.Textures,
		terrain:  svc.Terrain,
		log:      logger.Named("scene"),
		Camera: Camera{
			View:       math.Identity(),
			Projection: math.Identity(),
		},
	}
	s.passes = []Pass{
		{Name: "terrain", Run: (*Scene).drawGround},
		{Name: "models", Run: (*Scene).drawModels},
		{Name: "models-after", Run: (*Scene).drawModelsAfter},
		{Name: "sprites", Run: (*Scene).drawSprites},
	}
	return s
}

// Config returns the scene configuration.
func (s *Scene) Config() Config { return s.cfg }

// SetConfig replaces the render options. AnimationSpeed and AmbientLight
// apply to objects created afterwards.
func (s *Scene) SetConfig(cfg Config) { s.cfg = cfg }

// Device returns the graphics device.
func (s *Scene) Device() gpu.Device { return s.dev }

// Effect returns the shared effect the passes configure.
func (s *Scene) Effect() *gpu.Effect { return s.effect }

// Terrain returns the terrain service, or nil.
func (s *Scene) Terrain() Terrain { return s.terrain }

// Passes returns the names of the draw passes in execution order.
func (s *Scene) Passes() []string {
	names := make([]string, len(s.passes))
	for i, p := range s.passes {
		names[i] = p.Name
	}
	return names
}

// SetGround sets the terrain renderer drawn by the first pass.
func (s *Scene) SetGround(tr *TerrainRenderer) { s.ground = tr }

// SetSprites sets the renderer for behaviour sprites.
func (s *Scene) SetSprites(sr *SpriteRenderer) { s.sprites = sr }

// NewObject creates an object configured with the scene defaults. It is not
// added to the scene.
func (s *Scene) NewObject(name, modelPath string) *ModelObject {
	o := NewModelObject(name, modelPath)
	o.AnimationSpeed = s.cfg.AnimationSpeed
	o.light = s.cfg.AmbientLight
	return o
}

// Add places o in the arena and returns its handle.
func (s *Scene) Add(o *ModelObject) Handle {
	var h Handle
	if n := len(s.free); n > 0 {
		idx := s.free[n-1]
		s.free = s.free[:n-1]
		sl := &s.slots[idx]
		sl.obj = o
		h = Handle{index: idx, gen: sl.gen}
	} else {
		s.slots = append(s.slots, slot{obj: o, gen: 1})
		h = Handle{index: uint32(len(s.slots) - 1), gen: 1}
	}
	o.scene = s
	o.handle = h
	return h
}

// Get resolves a handle.
func (s *Scene) Get(h Handle) (*ModelObject, bool) {
	if h.gen == 0 || int(h.index) >= len(s.slots) {
		return nil, false
	}
	sl := &s.slots[h.index]
	if sl.gen != h.gen || sl.obj == nil {
		return nil, false
	}
	return sl.obj, true
}

// Remove disposes the object and its children and invalidates their handles.
func (s *Scene) Remove(h Handle) error {
	o, ok := s.Get(h)
	if !ok {
		return fmt.Errorf("remove %s: %w", h, ErrStaleHandle)
	}

	if p, ok := o.Parent(); ok {
		p.removeChild(h)
	}
	children := o.children
	o.children = nil
	for _, ch := range children {
		s.Remove(ch)
	}

	o.Dispose()
	o.scene = nil
	o.handle = NoHandle
	o.parent = NoHandle

	sl := &s.slots[h.index]
	sl.obj = nil
	sl.gen++
	s.free = append(s.free, h.index)
	return nil
}

// SetParent attaches child under parent. A zero parent detaches child.
func (s *Scene) SetParent(child, parent Handle) error {
	c, ok := s.Get(child)
	if !ok {
		return fmt.Errorf("child %s: %w", child, ErrStaleHandle)
	}

	var p *ModelObject
	if !parent.IsZero() {
		if p, ok = s.Get(parent); !ok {
			return fmt.Errorf("parent %s: %w", parent, ErrStaleHandle)
		}
		for a := p; a != nil; a, _ = a.Parent() {
			if a == c {
				return fmt.Errorf("%s under %s: %w", c.Name, p.Name, ErrCycle)
			}
		}
	}

	if old, ok := c.Parent(); ok {
		old.removeChild(child)
	}
	c.parent = parent
	if p != nil {
		p.children = append(p.children, child)
	}
	c.matrixChanged()
	return nil
}

// Len returns the number of live objects.
func (s *Scene) Len() int {
	return len(s.slots) - len(s.free)
}

// Each calls fn for every live object, parents before their children.
func (s *Scene) Each(fn func(h Handle, o *ModelObject)) {
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.obj == nil || !sl.obj.parent.IsZero() {
			continue
		}
		s.walk(sl.obj, fn)
	}
}

func (s *Scene) walk(o *ModelObject, fn func(Handle, *ModelObject)) {
	fn(o.handle, o)
	for _, ch := range o.children {
		if c, ok := s.Get(ch); ok {
			s.walk(c, fn)
		}
	}
}

// Close removes every object and destroys the ground and sprite renderers.
func (s *Scene) Close() {
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.obj != nil && sl.obj.parent.IsZero() {
			_ = s.Remove(Handle{index: uint32(i), gen: sl.gen})
		}
	}
	if s.ground != nil {
		s.ground.Destroy()
		s.ground = nil
	}
	if s.sprites != nil {
		s.sprites.Destroy()
		s.sprites = nil
	}
}

// Update advances every object by one tick.
func (s *Scene) Update(ft FrameTime) {
	s.Each(func(_ Handle, o *ModelObject) {
		o.Update(ft)
	})
}

// Draw runs the draw passes in order.
func (s *Scene) Draw() {
	s.effect.View = s.Camera.View
	s.effect.Projection = s.Camera.Projection
	for _, p := range s.passes {
		p.Run(s)
	}
}

func (s *Scene) drawGround() {
	if s.ground == nil {
		return
	}
	if err := s.ground.Render(s.dev, s.effect); err != nil {
		s.log.Warn("drawing terrain", zap.Error(err))
	}
}

func (s *Scene) drawModels() {
	s.Each(func(_ Handle, o *ModelObject) {
		o.Draw()
	})
}

func (s *Scene) drawModelsAfter() {
	s.Each(func(_ Handle, o *ModelObject) {
		o.DrawAfter()
	})
}

func (s *Scene) drawSprites() {
	if s.sprites == nil {
		return
	}
	var sprites []Sprite
	s.Each(func(_ Handle, o *ModelObject) {
		if !o.Visible {
			return
		}
		for _, b := range o.behaviors {
			if src, ok := b.(SpriteSource); ok {
				sprites = append(sprites, src.Sprites()...)
			}
		}
	})
	if err := s.sprites.Render(s.dev, s.effect, s.Camera.View, sprites); err != nil {
		s.log.Warn("drawing sprites", zap.Error(err))
	}
}
