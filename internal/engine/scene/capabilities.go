package scene

import (
	"context"

	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/internal/engine/model"
	"github.com/Faultbox/mu-client/internal/engine/texture"
	"github.com/Faultbox/mu-client/pkg/math"
)

// Updatable advances per-frame state.
type Updatable interface {
	Update(ft FrameTime)
}

// Animatable evaluates a skeleton pose for the frame.
type Animatable interface {
	Animate(ft FrameTime)
}

// Drawable issues draw calls in the main and after passes.
type Drawable interface {
	Draw()
	DrawAfter()
}

var (
	_ Updatable  = (*ModelObject)(nil)
	_ Animatable = (*ModelObject)(nil)
	_ Drawable   = (*ModelObject)(nil)
)

// Behavior adds per-object logic run after animation every tick.
type Behavior interface {
	Update(o *ModelObject, ft FrameTime)
}

// Loader is implemented by behaviours that prepare state once the object's
// content is loaded.
type Loader interface {
	Load(o *ModelObject) error
}

// SpriteSource is implemented by behaviours that emit billboards.
type SpriteSource interface {
	Sprites() []Sprite
}

// ModelSource resolves models and builds their skinned mesh buffers.
type ModelSource interface {
	PrepareModel(ctx context.Context, path string) (*model.Model, error)
	TexturePath(m *model.Model, rel string) string
	ModelBuffers(m *model.Model, mesh int, tint [4]uint8, pose []math.Mat4) (gpu.VertexBuffer, gpu.IndexBuffer, error)
}

// TextureSource provides device textures and their script flags.
type TextureSource interface {
	Texture(path string) (gpu.Texture, error)
	Script(path string) texture.Script
	Components(path string) int
}

// Terrain samples ground height and light.
type Terrain interface {
	Height(x, y float32) (float32, error)
	Light(x, y float32) math.Vec3
}
