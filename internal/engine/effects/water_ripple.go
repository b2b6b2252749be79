package effects

import (
	"fmt"
	"image/color"
	stdmath "math"
	"slices"

	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/internal/engine/model"
	"github.com/Faultbox/mu-client/internal/engine/scene"
	"github.com/Faultbox/mu-client/pkg/math"
)

const (
	textureScrollSpeed = 0.1
	waveFrequency      = 1.5
	waveAmplitude      = 0.2 // texture V push at the wave crest
	vertexWaveHeight   = 0.4
	spatialFrequency   = 0.8
)

// WaterTint is the blue cast applied to water surfaces.
var WaterTint = color.RGBA{R: 200, G: 220, B: 255, A: 255}

// WaterRipple deforms one mesh of its host into a rolling water surface and
// scrolls its texture. The deformation is written into the host's own copy
// of the mesh; the shared model keeps its geometry.
type WaterRipple struct {
	Mesh int

	vertices  []model.Vertex
	texCoords [][2]float32
	offsets   []float32

	scroll   float32
	waveTime float32
}

// NewWaterRipple ripples mesh of the host.
func NewWaterRipple(mesh int) *WaterRipple {
	return &WaterRipple{Mesh: mesh}
}

// Load snapshots the undeformed mesh and sets the host's water presentation.
func (w *WaterRipple) Load(o *scene.ModelObject) error {
	if o.Model == nil || w.Mesh < 0 || w.Mesh >= len(o.Model.Meshes) {
		return fmt.Errorf("water mesh %d: %w", w.Mesh, scene.ErrNoModel)
	}
	src := &o.Model.Meshes[w.Mesh]
	w.vertices = slices.Clone(src.Vertices)
	w.texCoords = slices.Clone(src.TexCoords)
	w.offsets = make([]float32, len(src.Vertices))

	o.BlendState = gpu.BlendNonPremultiplied
	o.BlendMeshState = gpu.BlendAdditive
	o.LightEnabled = true
	o.IsTransparent = true
	o.SetAlpha(0.5)
	o.SetColor(WaterTint)
	return nil
}

// Update advances the wave and rewrites the host's mesh copy.
func (w *WaterRipple) Update(o *scene.ModelObject, ft scene.FrameTime) {
	if w.vertices == nil {
		return
	}
	mesh, err := o.OwnMesh(w.Mesh)
	if err != nil || len(mesh.Vertices) != len(w.vertices) || len(mesh.TexCoords) != len(w.texCoords) {
		return
	}

	dt := float32(ft.Elapsed.Seconds())
	w.waveTime += dt * 0.5
	w.scroll = float32(stdmath.Mod(float64(w.scroll+textureScrollSpeed*dt), 1))

	for i, v := range w.vertices {
		w.offsets[i] = waveOffset(v.Position.X, v.Position.Z, w.waveTime) * vertexWaveHeight
	}
	w.smooth(mesh.Triangles)

	for i, v := range w.vertices {
		v.Position = v.Position.Add(math.Vec3{Y: w.offsets[i]})
		mesh.Vertices[i] = v
	}

	for _, tri := range mesh.Triangles {
		for c := range corners(tri) {
			ti, vi := int(tri.TexCoordIndex[c]), int(tri.VertexIndex[c])
			if ti < 0 || ti >= len(w.texCoords) || vi < 0 || vi >= len(w.vertices) {
				continue
			}
			uv := w.texCoords[ti]
			push := float32(stdmath.Abs(float64(w.offsets[vi]/vertexWaveHeight))) * waveAmplitude
			mesh.TexCoords[ti] = [2]float32{uv[0], uv[1] + w.scroll + push}
		}
	}

	o.SetAlpha(0.4 + float32(stdmath.Abs(stdmath.Sin(float64(w.waveTime*waveFrequency*0.3))))*0.2)
	o.InvalidateBuffers()
}

// smooth pulls every corner's offset half way towards its triangle's mean.
func (w *WaterRipple) smooth(tris []model.Triangle) {
	for _, tri := range tris {
		n := corners(tri)
		for c := range n {
			vi := int(tri.VertexIndex[c])
			if vi < 0 || vi >= len(w.offsets) {
				continue
			}
			var sum float32
			valid := 0
			for k := range n {
				if j := int(tri.VertexIndex[k]); j >= 0 && j < len(w.offsets) {
					sum += w.offsets[j]
					valid++
				}
			}
			mean := sum / float32(valid)
			w.offsets[vi] += (mean - w.offsets[vi]) * 0.5
		}
	}
}

// Scroll returns the texture scroll offset in [0, 1).
func (w *WaterRipple) Scroll() float32 { return w.scroll }

func corners(tri model.Triangle) int {
	if tri.Polygon == 4 {
		return 4
	}
	return 3
}

func waveOffset(x, z, t float32) float32 {
	w1 := stdmath.Sin(float64(t*waveFrequency + (x+z)*spatialFrequency))
	w2 := stdmath.Sin(float64(t*waveFrequency*0.5+(x-z)*spatialFrequency*1.3)) * 0.5
	w3 := stdmath.Cos(float64(t*waveFrequency*0.7+z*spatialFrequency*0.8)) * 0.3
	return float32((w1 + w2 + w3) * 0.33)
}
