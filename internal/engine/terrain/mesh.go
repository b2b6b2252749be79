package terrain

import (
	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/internal/engine/model"
	"github.com/Faultbox/mu-client/pkg/math"
)

// Mesh is a ground triangle list ready for upload.
type Mesh struct {
	Vertices []gpu.Vertex
	Indices  []uint32
	Bounds   model.Bounds
}

// BuildMesh triangulates the grid, one quad per cell, with baked light in the
// vertex color and one texture repeat per cell.
func BuildMesh(h *Heightmap) *Mesh {
	if h.Width < 2 || h.Rows < 2 {
		return nil
	}

	m := &Mesh{
		Vertices: make([]gpu.Vertex, 0, h.Width*h.Rows),
		Indices:  make([]uint32, 0, (h.Width-1)*(h.Rows-1)*6),
		Bounds:   model.EmptyBounds(),
	}

	for y := 0; y < h.Rows; y++ {
		for x := 0; x < h.Width; x++ {
			i := y*h.Width + x
			pos := math.Vec3{
				X: float32(x) * h.TileSize,
				Y: float32(y) * h.TileSize,
				Z: h.Heights[i],
			}
			m.Bounds.Extend(pos)
			m.Vertices = append(m.Vertices, gpu.Vertex{
				Position: pos,
				Color:    lightColor(h.Lights[i]),
				TexCoord: [2]float32{float32(x), float32(y)},
			})
		}
	}

	w := uint32(h.Width)
	for y := uint32(0); y < uint32(h.Rows-1); y++ {
		for x := uint32(0); x < w-1; x++ {
			i0 := y*w + x
			i1 := i0 + 1
			i2 := i0 + w
			i3 := i2 + 1
			m.Indices = append(m.Indices, i0, i1, i3, i0, i3, i2)
		}
	}

	return m
}

func lightColor(c math.Vec3) [4]uint8 {
	return [4]uint8{channel(c.X), channel(c.Y), channel(c.Z), 255}
}

func channel(v float32) uint8 {
	return uint8(clampf(v*255, 0, 255))
}
