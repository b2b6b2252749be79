package scene

import (
	"github.com/Faultbox/mu-client/internal/engine/gpu"
	"github.com/Faultbox/mu-client/pkg/math"
)

const highlightBias = 0.015

var (
	highlightGreen = math.Vec3{Y: 1}
	highlightRed   = math.Vec3{X: 1}
)

// HighlightMatrix inflates world by the highlight bias around the model
// origin.
func HighlightMatrix(world math.Mat4) math.Mat4 {
	return world.
		Mul(math.Translate(-highlightBias, -highlightBias, -highlightBias)).
		Mul(math.ScaleUniform(1 + highlightBias))
}

// HighlightColor is red for monsters and green for everything else.
func (o *ModelObject) HighlightColor() math.Vec3 {
	if o.Category == CategoryMonster {
		return highlightRed
	}
	return highlightGreen
}

// DrawMeshHighlight draws an inflated additive copy of mesh i without depth
// writes. Effect and device state are restored afterwards.
func (o *ModelObject) DrawMeshHighlight(i int) {
	defer o.recoverMesh("highlight", i)
	if err := o.drawHighlight(i); err != nil {
		o.logMeshError("highlight", i, err)
	}
}

func (o *ModelObject) drawHighlight(i int) error {
	if i < 0 || i >= len(o.meshes) || o.IsHiddenMesh(i) {
		return nil
	}
	ms := &o.meshes[i]
	if ms.vb == nil || ms.ib == nil {
		return nil
	}
	if o.world.HasNaN() {
		return ErrInvalidWorld
	}

	dev, eff := o.scene.dev, o.scene.effect
	defer gpu.SaveState(dev)()
	defer eff.Save()()

	eff.World = HighlightMatrix(o.world)
	eff.Texture = ms.texture
	eff.DiffuseColor = o.HighlightColor()
	eff.Alpha = 1
	dev.SetDepthState(gpu.DepthRead)
	dev.SetBlendState(gpu.BlendAdditive)
	return o.submit(ms)
}
