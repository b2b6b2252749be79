package scene

import (
	"cmp"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/pkg/math"
)

// Draw rebuilds stale buffers and draws the object's main pass.
func (o *ModelObject) Draw() {
	if o.scene == nil || !o.Visible {
		return
	}
	o.SetDynamicBuffers()
	o.drawPass(false)
}

// DrawAfter draws the alpha-bearing opaque meshes and every blend mesh.
func (o *ModelObject) DrawAfter() {
	if o.scene == nil || !o.Visible {
		return
	}
	o.drawPass(true)
}

func (o *ModelObject) drawPass(after bool) {
	if o.meshes == nil {
		return
	}
	eff := o.scene.effect
	defer eff.Save()()
	eff.View = o.scene.Camera.View
	eff.Projection = o.scene.Camera.Projection
	eff.World = o.world
	o.DrawModel(after)
}

// DrawModel issues the mesh draws of one pass. Opaque meshes come first: in
// the main pass those with opaque textures, preceded by their shadow and
// highlight; in the after pass those with alpha textures. Blend meshes
// follow, contributing shadow and highlight in the main pass and drawing
// themselves in the after pass.
func (o *ModelObject) DrawModel(after bool) {
	if o.Model == nil || o.meshes == nil {
		return
	}
	n := min(len(o.Model.Meshes), len(o.meshes))
	cfg := o.scene.cfg
	shadow := !after && cfg.Shadows && o.RenderShadow() && o.scene.terrain != nil
	highlight := !after && cfg.Highlight && o.MouseHover

	for i := range n {
		if o.IsHiddenMesh(i) || o.IsBlendMesh(i) {
			continue
		}
		if o.meshes[i].rgba != after {
			continue
		}
		if shadow {
			o.DrawShadowMesh(i)
		}
		if highlight {
			o.DrawMeshHighlight(i)
		}
		o.DrawMesh(i)
	}

	blend := o.blendScratch[:0]
	for i := range n {
		if !o.IsHiddenMesh(i) && o.IsBlendMesh(i) {
			blend = append(blend, i)
		}
	}
	o.blendScratch = blend
	if len(blend) == 0 {
		return
	}
	o.sortBlendMeshes(blend)

	for _, i := range blend {
		if shadow {
			o.DrawShadowMesh(i)
		}
		if highlight {
			o.DrawMeshHighlight(i)
		}
		if after {
			o.DrawMesh(i)
		}
	}
}

// sortBlendMeshes orders blend meshes per the scene's blend order.
func (o *ModelObject) sortBlendMeshes(idx []int) {
	if o.scene.cfg.BlendOrder != BlendOrderBackToFront {
		return
	}
	cam := toR3(o.scene.Camera.Position)
	dist := func(i int) float64 {
		return r3.Norm2(r3.Sub(toR3(o.world.TransformVec3(o.meshes[i].center)), cam))
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(dist(b), dist(a))
	})
}

func toR3(v math.Vec3) r3.Vec {
	return r3.Vec{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// DrawMesh draws mesh i with its texture, blend state and the total alpha.
// Failures are logged and end with this mesh.
func (o *ModelObject) DrawMesh(i int) {
	defer o.recoverMesh("draw", i)
	if err := o.drawMesh(i); err != nil {
		o.logMeshError("draw", i, err)
	}
}

func (o *ModelObject) drawMesh(i int) error {
	if i < 0 || i >= len(o.meshes) || o.IsHiddenMesh(i) {
		return nil
	}
	ms := &o.meshes[i]
	if ms.texture == nil || ms.vb == nil || ms.ib == nil {
		return nil
	}
	eff := o.scene.effect
	if eff.World.HasNaN() {
		return ErrInvalidWorld
	}

	dev := o.scene.dev
	state := o.BlendState
	if o.IsBlendMesh(i) {
		state = o.BlendMeshState
	}
	defer gpu.PushBlend(dev, state)()
	if o.MeshDepth != gpu.DepthDefault {
		defer gpu.PushDepth(dev, o.MeshDepth)()
	}
	defer eff.Save()()

	eff.Texture = ms.texture
	eff.Alpha = o.TotalAlpha()
	return o.submit(ms)
}

// submit applies the effect and draws the mesh buffers.
func (o *ModelObject) submit(ms *meshState) error {
	dev := o.scene.dev
	if err := dev.ApplyEffect(o.scene.effect); err != nil {
		return fmt.Errorf("applying effect: %w", err)
	}
	dev.SetVertexBuffer(ms.vb)
	dev.SetIndexBuffer(ms.ib)
	return dev.DrawIndexedTriangles(ms.ib.IndexCount() / 3)
}

func (o *ModelObject) recoverMesh(op string, i int) {
	if r := recover(); r != nil {
		o.logMeshError(op, i, fmt.Errorf("panic: %v", r))
	}
}

func (o *ModelObject) logMeshError(op string, i int, err error) {
	o.logger().Warn("mesh "+op+" failed",
		zap.String("object", o.Name),
		zap.Int("mesh", i),
		zap.Error(err))
}
