package assets

import (
	"errors"
	"fmt"

	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/internal/engine/model"
	"github.com/Faultbox/mu-client/pkg/math"
)

var (
	// ErrMeshRange is returned for a mesh index outside the model.
	ErrMeshRange = errors.New("mesh index out of range")

	// ErrBadIndex is returned when a triangle references a missing vertex or
	// texcoord.
	ErrBadIndex = errors.New("triangle index out of range")
)

// quad corners expand to two triangles sharing the 0-2 diagonal
var (
	triCorners  = []int{0, 1, 2}
	quadCorners = []int{0, 1, 2, 0, 2, 3}
)

// Skin expands a mesh into a flat triangle list, moving every vertex by its
// bone's pose matrix and tinting it. Vertices bound to a bone outside pose
// keep their bind position.
func Skin(mesh *model.Mesh, tint [4]uint8, pose []math.Mat4) ([]gpu.Vertex, []uint32, error) {
	n := mesh.IndexCount()
	vertices := make([]gpu.Vertex, 0, n)
	indices := make([]uint32, 0, n)

	for ti := range mesh.Triangles {
		tri := &mesh.Triangles[ti]
		corners := triCorners
		if tri.Polygon == 4 {
			corners = quadCorners
		}

		for _, c := range corners {
			vi := int(tri.VertexIndex[c])
			if vi < 0 || vi >= len(mesh.Vertices) {
				return nil, nil, fmt.Errorf("triangle %d vertex %d: %w", ti, vi, ErrBadIndex)
			}
			ci := int(tri.TexCoordIndex[c])
			if ci < 0 || ci >= len(mesh.TexCoords) {
				return nil, nil, fmt.Errorf("triangle %d texcoord %d: %w", ti, ci, ErrBadIndex)
			}

			v := mesh.Vertices[vi]
			pos := v.Position
			if v.Bone >= 0 && v.Bone < len(pose) {
				pos = pose[v.Bone].TransformVec3(pos)
			}

			indices = append(indices, uint32(len(vertices)))
			vertices = append(vertices, gpu.Vertex{
				Position: pos,
				Color:    tint,
				TexCoord: mesh.TexCoords[ci],
			})
		}
	}
	return vertices, indices, nil
}

// ModelBuffers skins one mesh of mdl with pose and uploads the result.
func (m *Manager) ModelBuffers(mdl *model.Model, mesh int, tint [4]uint8, pose []math.Mat4) (gpu.VertexBuffer, gpu.IndexBuffer, error) {
	if mesh < 0 || mesh >= len(mdl.Meshes) {
		return nil, nil, fmt.Errorf("%s mesh %d: %w", mdl.Name, mesh, ErrMeshRange)
	}

	vertices, indices, err := Skin(&mdl.Meshes[mesh], tint, pose)
	if err != nil {
		return nil, nil, fmt.Errorf("%s mesh %d: %w", mdl.Name, mesh, err)
	}
	if len(indices) == 0 {
		return nil, nil, fmt.Errorf("%s mesh %d: %w", mdl.Name, mesh, gpu.ErrEmptyMesh)
	}

	vb, ib, err := m.dev.CreateMeshBuffers(vertices, indices)
	if err != nil {
		return nil, nil, fmt.Errorf("%s mesh %d: %w", mdl.Name, mesh, err)
	}
	return vb, ib, nil
}
