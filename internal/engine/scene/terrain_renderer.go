package scene

import (
	"fmt"

	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/internal/engine/terrain"
	"github.com/Faultbox/mu-client/pkg/math"
)

// TerrainRenderer handles rendering of the ground mesh.
type TerrainRenderer struct {
	vb      gpu.VertexBuffer
	ib      gpu.IndexBuffer
	texture gpu.Texture

	// Bounds
	Bounds [2]math.Vec3
}

// NewTerrainRenderer uploads mesh. tex may be nil for an untextured ground.
func NewTerrainRenderer(dev gpu.Device, mesh *terrain.Mesh, tex gpu.Texture) (*TerrainRenderer, error) {
	if mesh == nil {
		return nil, fmt.Errorf("terrain mesh: %w", gpu.ErrEmptyMesh)
	}
	vb, ib, err := dev.CreateMeshBuffers(mesh.Vertices, mesh.Indices)
	if err != nil {
		return nil, fmt.Errorf("uploading terrain: %w", err)
	}
	return &TerrainRenderer{
		vb:      vb,
		ib:      ib,
		texture: tex,
		Bounds:  [2]math.Vec3{mesh.Bounds.Min, mesh.Bounds.Max},
	}, nil
}

// Render draws the ground opaque with depth writes.
func (tr *TerrainRenderer) Render(dev gpu.Device, eff *gpu.Effect) error {
	if tr.vb == nil {
		return nil
	}

	defer gpu.SaveState(dev)()
	defer eff.Save()()
	dev.SetBlendState(gpu.BlendOpaque)
	dev.SetDepthState(gpu.DepthDefault)
	eff.World = math.Identity()
	eff.Texture = tr.texture
	eff.DiffuseColor = math.Splat(1)
	eff.Alpha = 1

	if err := dev.ApplyEffect(eff); err != nil {
		return fmt.Errorf("applying effect: %w", err)
	}
	dev.SetVertexBuffer(tr.vb)
	dev.SetIndexBuffer(tr.ib)
	return dev.DrawIndexedTriangles(tr.ib.IndexCount() / 3)
}

// Destroy releases all resources.
func (tr *TerrainRenderer) Destroy() {
	if tr.vb != nil {
		tr.vb.Release()
		tr.vb = nil
	}
	if tr.ib != nil {
		tr.ib.Release()
		tr.ib = nil
	}
}
