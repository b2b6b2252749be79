package scene

import (
	"fmt"

	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/pkg/math"
)

// Sprite is a camera-facing quad anchored at its bottom center.
type Sprite struct {
	Position math.Vec3
	Size     float32
	Color    math.Vec3 // multiplied by Alpha into the vertex color
	Alpha    float32
}

// SpriteRenderer handles billboard rendering for effect sprites. Quads are
// expanded on the CPU every frame and drawn additively without depth writes.
type SpriteRenderer struct {
	Texture gpu.Texture

	vb gpu.VertexBuffer
	ib gpu.IndexBuffer

	vertices []gpu.Vertex
	indices  []uint32
}

// NewSpriteRenderer creates a sprite renderer drawing with tex, which may be
// nil for untextured quads.
func NewSpriteRenderer(tex gpu.Texture) *SpriteRenderer {
	return &SpriteRenderer{Texture: tex}
}

// Render draws sprites facing the camera of view.
func (sr *SpriteRenderer) Render(dev gpu.Device, eff *gpu.Effect, view math.Mat4, sprites []Sprite) error {
	if len(sprites) == 0 {
		return nil
	}

	// Camera basis is the transposed rotation of the view matrix.
	right := math.Vec3{X: view[0], Y: view[4], Z: view[8]}
	up := math.Vec3{X: view[1], Y: view[5], Z: view[9]}

	sr.vertices = sr.vertices[:0]
	sr.indices = sr.indices[:0]
	for _, s := range sprites {
		sr.appendQuad(s, right, up)
	}

	sr.release()
	vb, ib, err := dev.CreateMeshBuffers(sr.vertices, sr.indices)
	if err != nil {
		return fmt.Errorf("uploading sprites: %w", err)
	}
	sr.vb, sr.ib = vb, ib

	defer gpu.SaveState(dev)()
	defer eff.Save()()
	dev.SetBlendState(gpu.BlendAdditive)
	dev.SetDepthState(gpu.DepthRead)
	eff.World = math.Identity()
	eff.Texture = sr.Texture
	eff.DiffuseColor = math.Splat(1)
	eff.Alpha = 1

	if err := dev.ApplyEffect(eff); err != nil {
		return fmt.Errorf("applying effect: %w", err)
	}
	dev.SetVertexBuffer(vb)
	dev.SetIndexBuffer(ib)
	return dev.DrawIndexedTriangles(len(sr.indices) / 3)
}

func (sr *SpriteRenderer) appendQuad(s Sprite, right, up math.Vec3) {
	half := right.Scale(s.Size / 2)
	top := up.Scale(s.Size)
	c := s.Color.Scale(s.Alpha)
	col := [4]uint8{unit(c.X), unit(c.Y), unit(c.Z), unit(s.Alpha)}

	base := uint32(len(sr.vertices))
	sr.vertices = append(sr.vertices,
		gpu.Vertex{Position: s.Position.Sub(half), Color: col, TexCoord: [2]float32{0, 1}},
		gpu.Vertex{Position: s.Position.Add(half), Color: col, TexCoord: [2]float32{1, 1}},
		gpu.Vertex{Position: s.Position.Add(half).Add(top), Color: col, TexCoord: [2]float32{1, 0}},
		gpu.Vertex{Position: s.Position.Sub(half).Add(top), Color: col, TexCoord: [2]float32{0, 0}},
	)
	sr.indices = append(sr.indices, base, base+1, base+2, base, base+2, base+3)
}

// unit maps [0,1] to a color channel.
func unit(v float32) uint8 {
	return channel(255, v)
}

func (sr *SpriteRenderer) release() {
	if sr.vb != nil {
		sr.vb.Release()
		sr.vb = nil
	}
	if sr.ib != nil {
		sr.ib.Release()
		sr.ib = nil
	}
}

// Destroy releases all resources.
func (sr *SpriteRenderer) Destroy() {
	sr.release()
}
