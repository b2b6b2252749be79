// Package gpu defines the graphics device abstraction used by the model
// renderer: mesh buffers, textures, pipeline state and a basic effect.
package gpu

import (
	"errors"
	"image"

	"github.com/Faultbox/mu-client/pkg/math"
)

var (
	// ErrNilBuffer is returned when a draw is issued without bound buffers.
	ErrNilBuffer = errors.New("vertex or index buffer not set")

	// ErrEmptyMesh is returned when buffers are requested for no geometry.
	ErrEmptyMesh = errors.New("mesh has no vertices or indices")
)

// BlendState selects how drawn fragments combine with the framebuffer.
type BlendState int

const (
	BlendOpaque BlendState = iota
	BlendAlpha
	BlendAdditive
	BlendNonPremultiplied
	BlendShadow // multiplies destination by (1 - src alpha), darkening only
)

func (b BlendState) String() string {
	switch b {
	case BlendOpaque:
		return "opaque"
	case BlendAlpha:
		return "alpha"
	case BlendAdditive:
		return "additive"
	case BlendNonPremultiplied:
		return "non-premultiplied"
	case BlendShadow:
		return "shadow"
	default:
		return "unknown"
	}
}

// DepthState selects depth testing and writing.
type DepthState int

const (
	DepthDefault   DepthState = iota // test and write
	DepthRead                        // test only
	DepthNone                        // neither
	DepthLessEqual                   // test with <=, write
)

func (d DepthState) String() string {
	switch d {
	case DepthDefault:
		return "default"
	case DepthRead:
		return "read"
	case DepthNone:
		return "none"
	case DepthLessEqual:
		return "less-equal"
	default:
		return "unknown"
	}
}

// Vertex is the skinned, pre-tinted vertex format uploaded for model meshes.
type Vertex struct {
	Position math.Vec3
	Color    [4]uint8
	TexCoord [2]float32
}

// VertexBuffer is device-owned vertex storage.
type VertexBuffer interface {
	VertexCount() int
	Release()
}

// IndexBuffer is device-owned 32-bit index storage.
type IndexBuffer interface {
	IndexCount() int
	Release()
}

// Texture is a device-owned 2D texture.
type Texture interface {
	Width() int
	Height() int
	Release()
}

// Device is the graphics device a frame is drawn with. Blend and depth state
// are global: callers changing them restore the previous value with the
// guards in state.go.
type Device interface {
	BlendState() BlendState
	SetBlendState(BlendState)
	DepthState() DepthState
	SetDepthState(DepthState)

	// CreateMeshBuffers uploads a triangle list.
	CreateMeshBuffers(vertices []Vertex, indices []uint32) (VertexBuffer, IndexBuffer, error)
	// CreateTexture uploads an image.
	CreateTexture(img image.Image) (Texture, error)

	// ApplyEffect binds the effect's program and parameters for one pass.
	ApplyEffect(e *Effect) error
	SetVertexBuffer(vb VertexBuffer)
	SetIndexBuffer(ib IndexBuffer)
	// DrawIndexedTriangles draws primitiveCount triangles from the bound buffers.
	DrawIndexedTriangles(primitiveCount int) error
}
